package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"nimblevision/config"
)

// CommandSetTankConfig pushes tank geometry and thresholds to the device firmware
const CommandSetTankConfig = "SET_TANK_CONFIG"

// ErrNoDeviceBroker is returned when no command broker is configured
var ErrNoDeviceBroker = errors.New("device command broker not configured")

// DeviceCommand is the JSON payload delivered to a device
type DeviceCommand struct {
	Command         string    `json:"command"`
	DeviceID        string    `json:"device_id"`
	SaviourID       int       `json:"saviour_id"`
	SaviourCapacity float64   `json:"saviour_capacity"`
	UpperThreshold  float64   `json:"upper_threshold"`
	LowerThreshold  float64   `json:"lower_threshold"`
	SaviourHeight   float64   `json:"saviour_height"`
	IssuedAt        time.Time `json:"issued_at"`
}

// DeviceCommandPublisher delivers commands to devices over a broker
type DeviceCommandPublisher interface {
	Publish(ctx context.Context, cmd DeviceCommand) error
	Close()
}

// Devices is the process-wide publisher, replaced by InitDevicePublisher or by tests
var Devices DeviceCommandPublisher = NoopPublisher{}

// InitDevicePublisher connects to the broker named by DEVICE_BROKER
func InitDevicePublisher(cfg config.Config) error {
	switch cfg.DeviceBroker {
	case "nats":
		p, err := NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			return err
		}
		Devices = p
	case "mqtt":
		p, err := NewMQTTPublisher(cfg.MQTTBrokerURL, cfg.MQTTUsername, cfg.MQTTPassword)
		if err != nil {
			return err
		}
		Devices = p
	case "none", "":
		Devices = NoopPublisher{}
		return nil
	default:
		return fmt.Errorf("unsupported device broker: %s", cfg.DeviceBroker)
	}
	log.Info().Str("broker", cfg.DeviceBroker).Msg("Device command publisher connected")
	return nil
}

// NoopPublisher is used when no broker is configured
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, DeviceCommand) error { return ErrNoDeviceBroker }
func (NoopPublisher) Close()                                      {}

var (
	natsSubjectEscaper = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")
	mqttTopicEscaper   = strings.NewReplacer("/", "_", "+", "_", "#", "_")
)

// NATSSubject is the subject a device listens on for commands
func NATSSubject(deviceID string) string {
	return "iot.devices." + natsSubjectEscaper.Replace(deviceID) + ".commands"
}

// MQTTTopic is the topic a device subscribes to for commands
func MQTTTopic(deviceID string) string {
	return "iot/devices/" + mqttTopicEscaper.Replace(deviceID) + "/commands"
}

// NATSPublisher publishes commands on core NATS
type NATSPublisher struct {
	nc *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name("nimblevision-api"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{nc: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, cmd DeviceCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(NATSSubject(cmd.DeviceID), data); err != nil {
		return err
	}
	return p.nc.FlushWithContext(ctx)
}

func (p *NATSPublisher) Close() { p.nc.Close() }

// MQTTPublisher publishes commands with QoS 1
type MQTTPublisher struct {
	client mqtt.Client
}

func NewMQTTPublisher(brokerURL, username, password string) (*MQTTPublisher, error) {
	if brokerURL == "" {
		return nil, errors.New("MQTT_BROKER_URL not set")
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(fmt.Sprintf("nimblevision-api-%d", time.Now().UnixNano()))
	if username != "" {
		opts.SetUsername(username)
		opts.SetPassword(password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Info().Str("broker", brokerURL).Msg("MQTT client connected")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Error().Err(err).Str("broker", brokerURL).Msg("MQTT connection lost")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt: %v", token.Error())
	}
	return &MQTTPublisher{client: client}, nil
}

func (p *MQTTPublisher) Publish(ctx context.Context, cmd DeviceCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	token := p.client.Publish(MQTTTopic(cmd.DeviceID), 1, false, data)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *MQTTPublisher) Close() { p.client.Disconnect(250) }

// PublishDeviceCommand sends cmd with a short deadline and logs the outcome
func PublishDeviceCommand(ctx context.Context, cmd DeviceCommand) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = time.Now().UTC()
	}
	err := Devices.Publish(ctx, cmd)
	switch {
	case errors.Is(err, ErrNoDeviceBroker):
		log.Debug().Str("device_id", cmd.DeviceID).Msg("No device broker, command not sent")
	case err != nil:
		log.Warn().Err(err).Str("device_id", cmd.DeviceID).Str("command", cmd.Command).Msg("Failed to publish device command")
	default:
		log.Info().Str("device_id", cmd.DeviceID).Str("command", cmd.Command).Msg("Device command published")
	}
	return err
}
