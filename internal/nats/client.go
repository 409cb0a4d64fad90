package nats

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"crm-service/internal/config"
)

// Event subjects
const (
	EventLeadCreated       = "crm.lead.created"
	EventLeadIngested      = "crm.lead.ingested"
	EventLeadStatusChanged = "crm.lead.status_changed"
	EventDealStageChanged  = "crm.deal.stage_changed"
	EventTenantDeleted     = "crm.tenant.deleted"
)

// LeadEvent is published when a lead is created, ingested or changes status
type LeadEvent struct {
	EventType string    `json:"event_type"`
	TenantID  string    `json:"tenant_id"`
	LeadID    string    `json:"lead_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Source    string    `json:"source"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// DealEvent is published when a deal changes stage
type DealEvent struct {
	EventType string    `json:"event_type"`
	TenantID  string    `json:"tenant_id"`
	DealID    string    `json:"deal_id"`
	Stage     string    `json:"stage"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// TenantEvent is published when a tenant is removed
type TenantEvent struct {
	EventType string    `json:"event_type"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// Client wraps the NATS connection. All publishes go through JetStream so
// downstream consumers (notification fan-out, audit) get durable delivery.
// A nil client is safe to call; publishes become no-ops so the service keeps
// working when NATS is down.
type Client struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	log  *logrus.Entry
}

// NewClient creates a new NATS client
func NewClient(cfg config.NATSConfig, log *logrus.Logger) (*Client, error) {
	entry := log.WithField("component", "nats")
	entry.WithField("url", cfg.URL).Info("connecting to NATS")

	opts := []nats.Option{
		nats.Name("crm-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			entry.WithError(err).Warn("disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			entry.WithField("url", nc.ConnectedUrl()).Info("reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			entry.Info("connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:        "CRM_EVENTS",
		Description: "Stream for CRM entity lifecycle events",
		Subjects:    []string{"crm.>"},
		Storage:     nats.FileStorage,
		Retention:   nats.LimitsPolicy,
		MaxAge:      24 * time.Hour * 7,
		MaxMsgs:     100000,
		Discard:     nats.DiscardOld,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		entry.WithError(err).Warn("could not create stream (may already exist)")
	}

	entry.Info("connected")

	return &Client{conn: conn, js: js, log: entry}, nil
}

// PublishLeadEvent publishes a lead lifecycle event on the given subject.
func (c *Client) PublishLeadEvent(subject string, event *LeadEvent) error {
	if c == nil || c.js == nil {
		return nil
	}

	event.EventType = subject
	event.Timestamp = time.Now().UTC()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := c.js.Publish(subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	c.log.WithFields(logrus.Fields{"subject": subject, "lead_id": event.LeadID, "seq": ack.Sequence}).Info("event published")
	return nil
}

// PublishDealEvent publishes a deal stage change.
func (c *Client) PublishDealEvent(event *DealEvent) error {
	if c == nil || c.js == nil {
		return nil
	}

	event.EventType = EventDealStageChanged
	event.Timestamp = time.Now().UTC()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := c.js.Publish(EventDealStageChanged, data)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	c.log.WithFields(logrus.Fields{"subject": EventDealStageChanged, "deal_id": event.DealID, "seq": ack.Sequence}).Info("event published")
	return nil
}

// PublishTenantDeleted publishes a tenant deletion event.
func (c *Client) PublishTenantDeleted(event *TenantEvent) error {
	if c == nil || c.js == nil {
		return nil
	}

	event.EventType = EventTenantDeleted
	event.Timestamp = time.Now().UTC()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := c.js.Publish(EventTenantDeleted, data)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	c.log.WithFields(logrus.Fields{"subject": EventTenantDeleted, "tenant_id": event.TenantID, "seq": ack.Sequence}).Info("event published")
	return nil
}

// Close closes the NATS connection
func (c *Client) Close() {
	if c != nil && c.conn != nil {
		c.conn.Close()
	}
}

// IsConnected returns true if the client is connected
func (c *Client) IsConnected() bool {
	return c != nil && c.conn != nil && c.conn.IsConnected()
}
