package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/housei/dashboard/adapters"
	"github.com/housei/dashboard/config"
	"github.com/housei/dashboard/domain/entities"
	"github.com/housei/dashboard/internal/bootstrap"
	"github.com/housei/dashboard/internal/logging"
	"github.com/housei/dashboard/internal/session"
	"github.com/housei/dashboard/usecase"
)

var errNotSignedIn = errors.New("not signed in; run 'housei login' first")

// console holds what every command needs. Stores are opened lazily so that
// login and logout work without a reachable database.
type console struct {
	cfg     *config.Config
	logger  *zap.Logger
	storage *adapters.FileStorage

	stores    *bootstrap.Stores
	storesErr error

	in  *bufio.Reader
	out io.Writer

	// Secrets are read with echo disabled when stdinFd is a terminal
	stdinFd      int
	isTerminal   func(fd int) bool
	readPassword func(fd int) ([]byte, error)
}

func newConsole(configPath, sessionPath, logLevel string) (*console, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel == "" {
		// Keep console output readable unless asked otherwise
		logLevel = "warn"
		if cfg.Log.Level == "debug" {
			logLevel = cfg.Log.Level
		}
	}
	logger, err := logging.New(logLevel)
	if err != nil {
		return nil, err
	}

	if sessionPath == "" {
		sessionPath = cfg.Console.StoragePath
	}
	if sessionPath == "" {
		if sessionPath, err = adapters.DefaultStoragePath(); err != nil {
			return nil, err
		}
	}

	return &console{
		cfg:     cfg,
		logger:  logger,
		storage: adapters.NewFileStorage(sessionPath),
		in:      bufio.NewReader(os.Stdin),
		out:     os.Stdout,

		stdinFd:      int(os.Stdin.Fd()),
		isTerminal:   term.IsTerminal,
		readPassword: term.ReadPassword,
	}, nil
}

func (c *console) close() {
	if c.stores != nil {
		c.stores.Close()
	}
	_ = c.logger.Sync()
}

// openStores connects once and remembers the outcome
func (c *console) openStores(ctx context.Context) (*bootstrap.Stores, error) {
	if c.stores == nil && c.storesErr == nil {
		c.stores, c.storesErr = bootstrap.OpenStores(ctx, c.cfg, c.logger)
	}
	return c.stores, c.storesErr
}

func (c *console) fallback() usecase.Credentials {
	return usecase.Credentials{Email: c.cfg.Auth.FallbackEmail, Password: c.cfg.Auth.FallbackPassword}
}

// adminService verifies against the credential store when it can be reached
// and against the fallback pair alone when it cannot
func (c *console) adminService(ctx context.Context) *usecase.AdminService {
	stores, err := c.openStores(ctx)
	if err != nil {
		c.logger.Warn("Credential store unreachable, only the fallback admin can sign in", zap.Error(err))
		return usecase.NewAdminService(nil, c.fallback(), c.logger)
	}
	return usecase.NewAdminService(stores.Admins, c.fallback(), c.logger)
}

func (c *console) holder(verifier session.CredentialVerifier) *session.Holder {
	h := session.NewHolder(verifier, c.storage, c.logger)
	h.Restore()
	return h
}

// requireSession restores the persisted admin and fails when there is none
func (c *console) requireSession() (*entities.AdminUser, error) {
	h := c.holder(nil)
	user := h.User()
	if user == nil {
		return nil, errNotSignedIn
	}
	return user, nil
}

// prompt asks for a line of input, returning it trimmed
func (c *console) prompt(label string) (string, error) {
	fmt.Fprint(c.out, label)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSuffix(strings.TrimSpace(label), ":"), err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret asks for a secret without echoing it. Piped input is read
// as a plain line with only the line ending stripped.
func (c *console) promptSecret(label string) (string, error) {
	name := strings.TrimSuffix(strings.TrimSpace(label), ":")
	fmt.Fprint(c.out, label)

	if c.isTerminal != nil && c.isTerminal(c.stdinFd) {
		secret, err := c.readPassword(c.stdinFd)
		fmt.Fprintln(c.out)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", name, err)
		}
		return string(secret), nil
	}

	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirm asks a yes/no question; anything but y or yes is a no
func (c *console) confirm(question string) (bool, error) {
	answer, err := c.prompt(question + " [y/N]: ")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
