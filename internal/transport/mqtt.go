package transport

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/Luminet-Displays/luminet/internal/model"
	"github.com/Luminet-Displays/luminet/internal/registry"
)

// DeviceStore is the lookup needed to vet an MQTT status announcement.
type DeviceStore interface {
	GetDeviceBySerial(serial string) (model.Device, error)
}

// MQTTPusher publishes device messages to per-serial command topics. Used
// for legacy fleets that speak MQTT instead of the websocket channel; the
// registry session id for such devices is the serial itself, kept current
// by the per-serial status topic (devices publish online on connect and
// offline via their broker will).
type MQTTPusher struct {
	client mqtt.Client
}

func NewMQTTPusher(brokerURL, clientID string) (*MQTTPusher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", brokerURL).Msg("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Error().Err(err).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return &MQTTPusher{client: client}, nil
}

func commandTopic(serial string) string {
	return fmt.Sprintf("tv/%s/commands", serial)
}

const statusTopicFilter = "tv/+/status"

// statusData is the payload devices publish on their status topic.
type statusData struct {
	Status   string `json:"status"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

// statusRegistrar maintains registry entries for MQTT devices. Entries use
// the serial as the session id so engine pushes land on commandTopic.
type statusRegistrar struct {
	store DeviceStore
	reg   *registry.Registry
}

func (s *statusRegistrar) handle(topic string, payload []byte) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[2] != "status" || parts[1] == "" {
		return
	}
	serial := parts[1]

	var msg statusData
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Warn().Str("serial", serial).Msg("malformed status payload")
		return
	}

	if msg.Status != "online" {
		s.reg.RemoveBySession(serial)
		return
	}

	device, err := s.store.GetDeviceBySerial(serial)
	if err != nil || !device.Paired {
		log.Warn().Str("serial", serial).Msg("registration rejected: unknown or unpaired serial")
		return
	}

	name := device.Name
	if msg.Name != "" {
		name = msg.Name
	}
	timezone := device.Timezone
	if msg.Timezone != "" {
		timezone = msg.Timezone
	}

	s.reg.Register(registry.ConnectedDevice{
		Serial:      serial,
		SessionID:   serial,
		UserID:      device.CreatedBy,
		DeviceID:    device.ID,
		Name:        name,
		Timezone:    timezone,
		ConnectedAt: time.Now().UTC(),
	})
}

// SubscribeStatus starts tracking device presence from the status topics.
func (p *MQTTPusher) SubscribeStatus(store DeviceStore, reg *registry.Registry) error {
	r := &statusRegistrar{store: store, reg: reg}
	token := p.client.Subscribe(statusTopicFilter, 1, func(_ mqtt.Client, m mqtt.Message) {
		r.handle(m.Topic(), m.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to subscribe to device status topics: %w", token.Error())
	}
	return nil
}

// Push publishes to the device's command topic. The session id is the
// device serial for MQTT transports.
func (p *MQTTPusher) Push(sessionID string, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	token := p.client.Publish(commandTopic(sessionID), 1, false, payload)
	token.Wait()
	if token.Error() != nil {
		log.Error().Err(token.Error()).Str("serial", sessionID).Msg("failed to publish device message")
		return fmt.Errorf("failed to send message to device %s: %w", sessionID, token.Error())
	}
	return nil
}

// Close disconnects the underlying client.
func (p *MQTTPusher) Close() {
	p.client.Disconnect(250)
}
