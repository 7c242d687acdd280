// Package alertbus implements the Alert Deduper and the Bus (spec.md §4.6):
// the open-alert dedup state machine, and fan-out of confirmed alerts to
// persistent (NATS JetStream) and live (WebSocket) subscribers. The NATS
// wrapper is adapted from the teacher's pkg/services/embedded-nats/nats.go,
// narrowed from four general-purpose streams to the one alert stream this
// domain needs.
package alertbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"overwatch/pkg/shared"
)

type NATSConfig struct {
	Port    int
	DataDir string
}

func DefaultNATSConfig() *NATSConfig {
	return &NATSConfig{Port: 4222, DataDir: "./data/nats"}
}

// EmbeddedNATS runs a single-process NATS server with JetStream enabled,
// used as the durable leg of the Bus.
type EmbeddedNATS struct {
	server *server.Server
	nc     *nats.Conn
	js     nats.JetStreamContext
	config *NATSConfig
}

func NewEmbeddedNATS(cfg *NATSConfig) *EmbeddedNATS {
	if cfg == nil {
		cfg = DefaultNATSConfig()
	}
	return &EmbeddedNATS{config: cfg}
}

func (en *EmbeddedNATS) Start() error {
	opts := &server.Options{
		Port:      en.config.Port,
		JetStream: true,
		StoreDir:  en.config.DataDir,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return fmt.Errorf("failed to create NATS server: %w", err)
	}
	ns.ConfigureLogger()
	go ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		return fmt.Errorf("NATS server not ready for connections")
	}
	en.server = ns

	if err := en.connect(); err != nil {
		return fmt.Errorf("failed to connect to embedded NATS: %w", err)
	}

	if err := en.ensureAlertStream(); err != nil {
		return fmt.Errorf("failed to provision alert stream: %w", err)
	}

	log.Printf("embedded NATS started on port %d", en.config.Port)
	return nil
}

func (en *EmbeddedNATS) connect() error {
	url := fmt.Sprintf("nats://127.0.0.1:%d", en.config.Port)
	nc, err := nats.Connect(url,
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Printf("nats: async error: %v", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to create jetstream context: %w", err)
	}

	en.nc = nc
	en.js = js
	return nil
}

func (en *EmbeddedNATS) ensureAlertStream() error {
	cfg := &nats.StreamConfig{
		Name:            shared.StreamAlerts,
		Subjects:        []string{shared.SubjectAlertsAll},
		Retention:       nats.LimitsPolicy,
		MaxMsgs:         100_000,
		MaxBytes:        64 * 1024 * 1024,
		MaxAge:          30 * 24 * time.Hour,
		Replicas:        1,
		Duplicates:      2 * time.Minute,
		Discard:         nats.DiscardOld,
	}

	if _, err := en.js.StreamInfo(cfg.Name); err == nil {
		_, err = en.js.UpdateStream(cfg)
		return err
	}
	_, err := en.js.AddStream(cfg)
	return err
}

// PublishAlert publishes event as-is, preserving its Type (e.g. "alert" or
// "alert_resolved") rather than assuming one, with the event type, alert id
// and alert last-seen time as the dedup key, so a retried publish of the
// same alert event is a no-op on the JetStream side within the duplicate
// window.
func (en *EmbeddedNATS) PublishAlert(event shared.PushEvent, a *shared.Alert) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}

	msg := nats.NewMsg(shared.SubjectAlerts)
	msg.Data = payload
	msg.Header.Set("Nats-Msg-Id", fmt.Sprintf("%s-%d-%s", event.Type, a.ID, a.LastSeenAt.Format(time.RFC3339Nano)))

	_, err = en.js.PublishMsg(msg)
	return err
}

func (en *EmbeddedNATS) Connection() *nats.Conn        { return en.nc }
func (en *EmbeddedNATS) JetStream() nats.JetStreamContext { return en.js }

func (en *EmbeddedNATS) HealthCheck() error {
	if en.nc == nil || !en.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	if en.server != nil && !en.server.Running() {
		return fmt.Errorf("nats server not running")
	}
	return nil
}

func (en *EmbeddedNATS) Shutdown(ctx context.Context) error {
	if en.nc != nil {
		en.nc.Close()
	}
	if en.server != nil {
		en.server.Shutdown()
		en.server.WaitForShutdown()
	}
	return nil
}
