package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/housei/dashboard/domain/entities"
	"github.com/housei/dashboard/internal/viewmodel"
	"github.com/housei/dashboard/usecase"
)

type command struct {
	summary string
	run     func(ctx context.Context, c *console, args []string) error
}

var commandOrder = []string{"login", "logout", "whoami", "devices", "watch", "add", "toggle", "delete", "setup"}

var commands = map[string]command{
	"login":   {"sign in as a dashboard admin", runLogin},
	"logout":  {"forget the signed-in admin", runLogout},
	"whoami":  {"show the signed-in admin", runWhoami},
	"devices": {"print the device list and dashboard stats", runDevices},
	"watch":   {"follow the dashboard live until interrupted", runWatch},
	"add":     {"register a new device", runAdd},
	"toggle":  {"switch a device on or off", runToggle},
	"delete":  {"remove a device", runDelete},
	"setup":   {"store a new admin credential pair", runSetup},
}

func newFlagSet(name string) *pflag.FlagSet {
	return pflag.NewFlagSet("housei "+name, pflag.ContinueOnError)
}

// parse handles --help by reporting success with ok=false
func parse(flagSet *pflag.FlagSet, args []string) (ok bool, err error) {
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func runLogin(ctx context.Context, c *console, args []string) error {
	var email, password string
	flagSet := newFlagSet("login")
	flagSet.StringVarP(&email, "email", "e", "", "admin email (prompted when omitted)")
	flagSet.StringVarP(&password, "password", "p", "", "admin password (prompted when omitted)")
	if ok, err := parse(flagSet, args); !ok {
		return err
	}

	var err error
	if email == "" {
		if email, err = c.prompt("Email: "); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = c.promptSecret("Password: "); err != nil {
			return err
		}
	}

	h := c.holder(c.adminService(ctx))
	user, err := h.Login(ctx, email, password)
	if err != nil {
		var authErr *entities.AuthenticationError
		if errors.As(err, &authErr) {
			return errors.New("invalid email or password")
		}
		return err
	}

	fmt.Fprintf(c.out, "Signed in as %s (%s)\n", user.DisplayName(), user.Email)
	return nil
}

func runLogout(ctx context.Context, c *console, args []string) error {
	if ok, err := parse(newFlagSet("logout"), args); !ok {
		return err
	}

	h := c.holder(nil)
	if err := h.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Signed out")
	return nil
}

func runWhoami(ctx context.Context, c *console, args []string) error {
	if ok, err := parse(newFlagSet("whoami"), args); !ok {
		return err
	}

	user, err := c.requireSession()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s <%s> role=%s\n", user.DisplayName(), user.Email, user.Role)
	return nil
}

// openRegistry activates a registry over the device store; the caller
// releases it
func openRegistry(ctx context.Context, c *console, onChange func(viewmodel.State)) (*viewmodel.Registry, error) {
	stores, err := c.openStores(ctx)
	if err != nil {
		return nil, err
	}
	registry := viewmodel.NewRegistry(stores.Devices, c.logger)
	if onChange != nil {
		registry.WithOnChange(onChange)
	}
	if err := registry.Activate(ctx); err != nil {
		return nil, err
	}
	return registry, nil
}

func runDevices(ctx context.Context, c *console, args []string) error {
	var recent int
	flagSet := newFlagSet("devices")
	flagSet.IntVar(&recent, "recent", 0, "only print the N newest devices")
	if ok, err := parse(flagSet, args); !ok {
		return err
	}

	if _, err := c.requireSession(); err != nil {
		return err
	}
	registry, err := openRegistry(ctx, c, nil)
	if err != nil {
		return err
	}
	defer registry.Release()

	state := registry.State()
	if recent > 0 {
		state.Devices = registry.RecentDevices(recent)
	}
	printDashboard(c.out, state)
	return nil
}

func runWatch(ctx context.Context, c *console, args []string) error {
	if ok, err := parse(newFlagSet("watch"), args); !ok {
		return err
	}

	if _, err := c.requireSession(); err != nil {
		return err
	}
	registry, err := openRegistry(ctx, c, func(state viewmodel.State) {
		printWatchLine(c.out, state)
	})
	if err != nil {
		return err
	}
	defer registry.Release()

	fmt.Fprintln(os.Stderr, "Watching devices, press Ctrl+C to stop")
	<-ctx.Done()
	return nil
}

func runAdd(ctx context.Context, c *console, args []string) error {
	var draft entities.DeviceDraft
	var deviceType string
	var sensors []string
	flagSet := newFlagSet("add")
	flagSet.StringVar(&draft.Name, "name", "", "device name")
	flagSet.StringVar(&deviceType, "type", string(entities.DeviceTypeSensorHub), "device type: "+joinTypes())
	flagSet.StringSliceVar(&sensors, "sensors", nil, "comma-separated sensors: "+joinSensors())
	flagSet.StringVar(&draft.OwnerEmail, "owner-email", "", "email of the device owner")
	flagSet.StringVar(&draft.OwnerPassword, "owner-password", "", "password of the device owner")
	if ok, err := parse(flagSet, args); !ok {
		return err
	}
	draft.Type = entities.DeviceType(deviceType)
	for _, s := range sensors {
		draft.Sensors = append(draft.Sensors, entities.SensorKind(strings.TrimSpace(s)))
	}

	if _, err := c.requireSession(); err != nil {
		return err
	}
	stores, err := c.openStores(ctx)
	if err != nil {
		return err
	}

	id, err := usecase.NewDeviceService(stores.Devices, c.logger).Create(ctx, draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Device added successfully: %s\n", id)
	return nil
}

func runToggle(ctx context.Context, c *console, args []string) error {
	flagSet := newFlagSet("toggle")
	if ok, err := parse(flagSet, args); !ok {
		return err
	}
	if flagSet.NArg() != 1 {
		return errors.New("usage: housei toggle <device-id>")
	}
	id := flagSet.Arg(0)

	if _, err := c.requireSession(); err != nil {
		return err
	}
	stores, err := c.openStores(ctx)
	if err != nil {
		return err
	}

	device, err := stores.Devices.GetByID(ctx, id)
	if err != nil {
		return err
	}
	status, err := usecase.NewDeviceService(stores.Devices, c.logger).ToggleStatus(ctx, id, device.Status)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s is now %s\n", device.Name, status)
	return nil
}

func runDelete(ctx context.Context, c *console, args []string) error {
	var yes bool
	flagSet := newFlagSet("delete")
	flagSet.BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	if ok, err := parse(flagSet, args); !ok {
		return err
	}
	if flagSet.NArg() != 1 {
		return errors.New("usage: housei delete [--yes] <device-id>")
	}
	id := flagSet.Arg(0)

	if _, err := c.requireSession(); err != nil {
		return err
	}
	stores, err := c.openStores(ctx)
	if err != nil {
		return err
	}

	if !yes {
		ok, err := c.confirm(fmt.Sprintf("Delete device %s? This cannot be undone.", id))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(c.out, "Cancelled")
			return nil
		}
	}

	if err := usecase.NewDeviceService(stores.Devices, c.logger).Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Device deleted successfully")
	return nil
}

func runSetup(ctx context.Context, c *console, args []string) error {
	var email, password string
	flagSet := newFlagSet("setup")
	flagSet.StringVarP(&email, "email", "e", "", "admin email (prompted when omitted)")
	flagSet.StringVarP(&password, "password", "p", "", "admin password (prompted when omitted)")
	if ok, err := parse(flagSet, args); !ok {
		return err
	}

	var err error
	if email == "" {
		if email, err = c.prompt("Email: "); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = c.promptSecret("Password: "); err != nil {
			return err
		}
	}

	stores, err := c.openStores(ctx)
	if err != nil {
		return err
	}
	admins := usecase.NewAdminService(stores.Admins, c.fallback(), c.logger)
	if err := admins.CreateAdmin(ctx, email, password); err != nil {
		return err
	}

	c.logger.Info("Admin created from console", zap.String("email", email))
	fmt.Fprintf(c.out, "Admin %s created\n", strings.TrimSpace(email))
	return nil
}

func joinTypes() string {
	names := make([]string, len(entities.DeviceTypes))
	for i, t := range entities.DeviceTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func joinSensors() string {
	names := make([]string, len(entities.SensorKinds))
	for i, k := range entities.SensorKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
