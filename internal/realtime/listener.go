package realtime

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"hostel-sync-backend/config"
)

// Refresher is the slice of the syncer the listener drives.
type Refresher interface {
	RefreshProfiles(ctx context.Context) error
	RefreshRooms(ctx context.Context) error
	RefreshNotices(ctx context.Context) error
	RefreshServiceRequests(ctx context.Context) error
	RefreshHostelRules(ctx context.Context) error
	RefreshAll(ctx context.Context) error
}

// tables the listener watches. A notification for a table is only a cue to
// refetch the whole collection; payloads are ignored, so no delta-merge or
// conflict-resolution logic is needed.
var tables = []string{
	"profiles", "rooms", "room_allocations", "notices", "service_requests", "hostel_rules",
}

// Listener subscribes to per-table change-notification topics and triggers
// the matching collection refresh. A periodic full refresh runs alongside as
// a safety net, and is the sole mechanism when no broker is configured.
// Subscriptions live for the duration of the context: cancelling it
// unsubscribes and disconnects, so no subscription outlives the session.
type Listener struct {
	cfg       *config.RealtimeConfig
	refresher Refresher
	connect   func() (mqtt.Client, error)
}

// NewListener creates a listener for the configured broker.
func NewListener(cfg *config.RealtimeConfig, refresher Refresher) *Listener {
	return &Listener{
		cfg:       cfg,
		refresher: refresher,
		connect: func() (mqtt.Client, error) {
			opts := mqtt.NewClientOptions()
			opts.AddBroker(cfg.Broker)
			opts.SetClientID(cfg.ClientID)
			if cfg.Username != "" {
				opts.SetUsername(cfg.Username)
			}
			if cfg.Password != "" {
				opts.SetPassword(cfg.Password)
			}
			opts.SetAutoReconnect(true)
			opts.SetCleanSession(true)

			client := mqtt.NewClient(opts)
			if token := client.Connect(); token.Wait() && token.Error() != nil {
				return nil, fmt.Errorf("failed to connect to broker: %w", token.Error())
			}
			return client, nil
		},
	}
}

// Run blocks until ctx is cancelled. It performs an initial full refresh,
// establishes the per-table subscriptions when a broker is configured, and
// keeps polling at the configured interval.
func (l *Listener) Run(ctx context.Context) {
	log.Println("Starting realtime sync listener...")

	if err := l.refresher.RefreshAll(ctx); err != nil {
		log.Printf("Error during initial refresh: %v", err)
	}

	var client mqtt.Client
	if l.cfg.Broker != "" {
		var err error
		client, err = l.connect()
		if err != nil {
			log.Printf("Warning: %v. Falling back to polling only.", err)
		} else if err := l.subscribe(ctx, client); err != nil {
			log.Printf("Warning: %v. Falling back to polling only.", err)
			client.Disconnect(250)
			client = nil
		}
	}

	timer := time.NewTimer(l.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.teardown(client)
			log.Println("Realtime sync listener shutting down.")
			return
		case <-timer.C:
			if err := l.refresher.RefreshAll(ctx); err != nil {
				log.Printf("Error during polling refresh: %v", err)
			}
			timer.Reset(l.cfg.PollInterval)
		}
	}
}

func (l *Listener) subscribe(ctx context.Context, client mqtt.Client) error {
	for _, table := range tables {
		table := table
		topic := l.topic(table)
		handler := func(_ mqtt.Client, msg mqtt.Message) {
			log.Printf("Change notification on %s, refreshing %s", msg.Topic(), table)
			if err := l.refreshTable(ctx, table); err != nil {
				log.Printf("Error refreshing %s: %v", table, err)
			}
		}
		if token := client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
		}
	}
	log.Printf("Subscribed to change notifications for %d tables", len(tables))
	return nil
}

// refreshTable maps a table notification to the collection refreshes it
// invalidates. Allocation ledger changes affect both derived collections.
func (l *Listener) refreshTable(ctx context.Context, table string) error {
	switch table {
	case "profiles":
		return l.refresher.RefreshProfiles(ctx)
	case "rooms":
		return l.refresher.RefreshRooms(ctx)
	case "room_allocations":
		if err := l.refresher.RefreshRooms(ctx); err != nil {
			return err
		}
		return l.refresher.RefreshProfiles(ctx)
	case "notices":
		return l.refresher.RefreshNotices(ctx)
	case "service_requests":
		return l.refresher.RefreshServiceRequests(ctx)
	case "hostel_rules":
		return l.refresher.RefreshHostelRules(ctx)
	default:
		log.Printf("Ignoring notification for unknown table %q", table)
		return nil
	}
}

func (l *Listener) topic(table string) string {
	return strings.TrimRight(l.cfg.TopicPrefix, "/") + "/" + table
}

func (l *Listener) teardown(client mqtt.Client) {
	if client == nil {
		return
	}
	topics := make([]string, len(tables))
	for i, table := range tables {
		topics[i] = l.topic(table)
	}
	if token := client.Unsubscribe(topics...); token.Wait() && token.Error() != nil {
		log.Printf("Error unsubscribing: %v", token.Error())
	}
	client.Disconnect(250)
}
