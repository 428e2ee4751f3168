// sensor-agent publishes simulated readings for one device over MQTT, the
// way a physical Housei sensor board reports to the server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/housei/dashboard/adapters/mqtt"
	"github.com/housei/dashboard/domain/entities"
	"github.com/housei/dashboard/internal/logging"
)

const publishTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		deviceID string
		broker   string
		username string
		password string
		interval time.Duration
		sensors  []string
		logLevel string
	)

	flagSet := pflag.NewFlagSet("sensor-agent", pflag.ContinueOnError)
	flagSet.StringVar(&deviceID, "device", "", "ID of the device to report for (required)")
	flagSet.StringVar(&broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flagSet.StringVar(&username, "username", "", "MQTT username")
	flagSet.StringVar(&password, "password", "", "MQTT password")
	flagSet.DurationVar(&interval, "interval", 10*time.Second, "time between readings")
	flagSet.StringSliceVar(&sensors, "sensors", []string{"temperature", "humidity"}, "sensors to simulate")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if deviceID == "" {
		return errors.New("--device is required")
	}
	if interval <= 0 {
		return errors.New("--interval must be positive")
	}

	kinds := make([]entities.SensorKind, 0, len(sensors))
	for _, s := range sensors {
		kind := entities.SensorKind(s)
		if !kind.Valid() {
			return fmt.Errorf("unknown sensor %q", s)
		}
		kinds = append(kinds, kind)
	}

	logger, err := logging.New(logLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	statusTopic := mqtt.StatusTopic(deviceID)
	client, err := mqtt.Connect(mqtt.Options{
		Broker:      broker,
		ClientID:    "housei-agent-" + deviceID,
		Username:    username,
		Password:    password,
		WillTopic:   statusTopic,
		WillPayload: mqtt.StatusOffline,
	}, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	publish := func(topic string, payload interface{}) error {
		token := client.Publish(topic, 1, false, payload)
		if !token.WaitTimeout(publishTimeout) {
			return fmt.Errorf("publishing to %s: timed out", topic)
		}
		return token.Error()
	}

	if err := publish(statusTopic, mqtt.StatusOnline); err != nil {
		return err
	}
	// Graceful exit reports offline itself; the will only covers crashes
	defer func() {
		if err := publish(statusTopic, mqtt.StatusOffline); err != nil {
			logger.Warn("Failed to publish offline status", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sim := newSimulator(kinds)
	telemetryTopic := mqtt.TelemetryTopic(deviceID)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Sensor agent started",
		zap.String("device_id", deviceID),
		zap.Strings("sensors", sensors),
		zap.Duration("interval", interval))

	for {
		payload, err := json.Marshal(sim.next())
		if err != nil {
			return err
		}
		if err := publish(telemetryTopic, payload); err != nil {
			logger.Warn("Failed to publish reading", zap.Error(err))
		} else {
			logger.Debug("Reading published", zap.ByteString("payload", payload))
		}

		select {
		case <-ctx.Done():
			logger.Info("Sensor agent stopping")
			return nil
		case <-ticker.C:
		}
	}
}
