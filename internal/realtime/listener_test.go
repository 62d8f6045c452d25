package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-sync-backend/config"
)

type countingRefresher struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingRefresher() *countingRefresher {
	return &countingRefresher{counts: make(map[string]int)}
}

func (r *countingRefresher) bump(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[name]++
	return nil
}

func (r *countingRefresher) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

func (r *countingRefresher) RefreshProfiles(context.Context) error        { return r.bump("profiles") }
func (r *countingRefresher) RefreshRooms(context.Context) error           { return r.bump("rooms") }
func (r *countingRefresher) RefreshNotices(context.Context) error         { return r.bump("notices") }
func (r *countingRefresher) RefreshServiceRequests(context.Context) error { return r.bump("requests") }
func (r *countingRefresher) RefreshHostelRules(context.Context) error     { return r.bump("rules") }
func (r *countingRefresher) RefreshAll(context.Context) error             { return r.bump("all") }

func TestRun_PollsWithoutBroker(t *testing.T) {
	refresher := newCountingRefresher()
	listener := NewListener(&config.RealtimeConfig{
		PollInterval: 10 * time.Millisecond,
	}, refresher)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		listener.Run(ctx)
		close(done)
	}()

	// Initial refresh plus at least one polling cycle.
	require.Eventually(t, func() bool {
		return refresher.count("all") >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not shut down after context cancellation")
	}
}

func TestRefreshTable_Mapping(t *testing.T) {
	refresher := newCountingRefresher()
	listener := NewListener(&config.RealtimeConfig{PollInterval: time.Minute}, refresher)
	ctx := context.Background()

	require.NoError(t, listener.refreshTable(ctx, "notices"))
	assert.Equal(t, 1, refresher.count("notices"))

	// An allocation ledger change invalidates both derived collections.
	require.NoError(t, listener.refreshTable(ctx, "room_allocations"))
	assert.Equal(t, 1, refresher.count("rooms"))
	assert.Equal(t, 1, refresher.count("profiles"))

	// Unknown tables are ignored, not an error.
	require.NoError(t, listener.refreshTable(ctx, "audit_log"))
}

func TestTopic_PrefixJoining(t *testing.T) {
	listener := NewListener(&config.RealtimeConfig{TopicPrefix: "hostel/changes/"}, newCountingRefresher())
	assert.Equal(t, "hostel/changes/rooms", listener.topic("rooms"))

	listener = NewListener(&config.RealtimeConfig{TopicPrefix: "hostel/changes"}, newCountingRefresher())
	assert.Equal(t, "hostel/changes/rooms", listener.topic("rooms"))
}
