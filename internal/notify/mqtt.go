// Package notify publishes completion notifications for processed videos.
package notify

import (
	"encoding/json"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/readvideos/vt-engine/internal/transcript"
)

// MQTTNotifier publishes a message per completed run so downstream consumers
// (media library indexers, chat bots) learn about new transcripts without
// polling the API.
type MQTTNotifier struct {
	conn      mqtt.Client
	topic     string
	connected atomic.Bool
	log       zerolog.Logger
}

// Options configure the MQTT connection.
type Options struct {
	BrokerURL string
	ClientID  string
	Topic     string
	Username  string
	Password  string
	Log       zerolog.Logger
}

// Connect establishes the broker connection. The returned notifier
// auto-reconnects; publishes while disconnected are dropped with a warning.
func Connect(opts Options) (*MQTTNotifier, error) {
	n := &MQTTNotifier{
		topic: opts.Topic,
		log:   opts.Log.With().Str("component", "notify").Logger(),
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(n.onConnect).
		SetConnectionLostHandler(n.onConnectionLost)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	n.conn = mqtt.NewClient(clientOpts)
	token := n.conn.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}

	return n, nil
}

// NotifyCompletion publishes the catalog entry of a completed run. Fire and
// forget: a failed publish never fails the run that triggered it.
func (n *MQTTNotifier) NotifyCompletion(entry transcript.VideoRecord) {
	payload, err := json.Marshal(entry)
	if err != nil {
		n.log.Warn().Err(err).Msg("notification marshal failed")
		return
	}

	token := n.conn.Publish(n.topic, 0, false, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			n.log.Warn().Err(err).Str("video_id", entry.ID).Msg("notification publish failed")
			return
		}
		n.log.Debug().Str("video_id", entry.ID).Str("topic", n.topic).Msg("completion published")
	}()
}

func (n *MQTTNotifier) onConnect(_ mqtt.Client) {
	n.connected.Store(true)
	n.log.Info().Str("topic", n.topic).Msg("mqtt connected")
}

func (n *MQTTNotifier) onConnectionLost(_ mqtt.Client, err error) {
	n.connected.Store(false)
	n.log.Warn().Err(err).Msg("mqtt connection lost, will auto-reconnect")
}

// IsConnected reports broker connectivity for the health endpoint.
func (n *MQTTNotifier) IsConnected() bool {
	return n.connected.Load()
}

// Close disconnects from the broker, allowing in-flight publishes to finish.
func (n *MQTTNotifier) Close() {
	n.log.Info().Msg("disconnecting mqtt notifier")
	n.conn.Disconnect(1000)
}
