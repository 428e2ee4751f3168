package mqtt

import (
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// Options configures a broker connection
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// WillTopic, when set, is published with WillPayload by the broker if
	// the connection is lost without a clean disconnect
	WillTopic   string
	WillPayload string
}

// Connect opens a connection to the broker. An empty ClientID gets a random
// suffix so several instances can share a broker.
func Connect(opts Options, logger *zap.Logger) (paho.Client, error) {
	if opts.Broker == "" {
		return nil, errors.New("mqtt broker is required")
	}
	clientID := opts.ClientID
	if clientID == "" {
		clientID = "housei-" + uuid.NewString()
	}

	mqttOpts := paho.NewClientOptions()
	mqttOpts.AddBroker(opts.Broker)
	mqttOpts.SetClientID(clientID)
	mqttOpts.SetKeepAlive(30 * time.Second)
	mqttOpts.SetPingTimeout(10 * time.Second)
	mqttOpts.SetAutoReconnect(true)
	mqttOpts.SetConnectTimeout(connectTimeout)
	if opts.Username != "" {
		mqttOpts.SetUsername(opts.Username)
		mqttOpts.SetPassword(opts.Password)
	}
	if opts.WillTopic != "" {
		mqttOpts.SetWill(opts.WillTopic, opts.WillPayload, 1, true)
	}
	mqttOpts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})
	mqttOpts.SetOnConnectHandler(func(_ paho.Client) {
		logger.Info("Connected to MQTT broker", zap.String("broker", opts.Broker), zap.String("client_id", clientID))
	})

	client := paho.NewClient(mqttOpts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connecting to mqtt broker %s: timed out", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to mqtt broker %s: %w", opts.Broker, err)
	}
	return client, nil
}
