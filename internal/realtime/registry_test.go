package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(time.Minute, time.Hour)
	t.Cleanup(r.Close)
	return r
}

func TestRegisterAndIsConnected(t *testing.T) {
	assert := assert.New(t)
	r := newTestRegistry(t)

	r.Register("conversation:1", 42)
	assert.True(r.IsConnected("conversation:1", 42))
	assert.False(r.IsConnected("conversation:1", 99))
	assert.False(r.IsConnected("conversation:2", 42))
}

func TestUnregisterIsIdempotent(t *testing.T) {
	assert := assert.New(t)
	r := newTestRegistry(t)

	r.Register("conversation:1", 42)
	r.Unregister("conversation:1", 42)
	r.Unregister("conversation:1", 42)

	assert.False(r.IsConnected("conversation:1", 42))
	assert.NotContains(r.ConnectedUsers("conversation:1"), int64(42))

	// Unregistering a topic that never existed must also be a no-op.
	r.Unregister("conversation:404", 42)
}

func TestConnectedUsers(t *testing.T) {
	assert := assert.New(t)
	r := newTestRegistry(t)

	r.Register("conversation:1", 1)
	r.Register("conversation:1", 2)
	r.Register("conversation:2", 3)

	users := r.ConnectedUsers("conversation:1")
	assert.Len(users, 2)
	assert.Contains(users, int64(1))
	assert.Contains(users, int64(2))
	assert.Empty(r.ConnectedUsers("conversation:3"))
}

func TestRepeatedRegisterKeepsOneRecord(t *testing.T) {
	assert := assert.New(t)
	r := newTestRegistry(t)

	r.Register("user:7", 7)
	r.Register("user:7", 7)
	assert.Len(r.ConnectedUsers("user:7"), 1)
}

func TestSweepRemovesStaleRecords(t *testing.T) {
	assert := assert.New(t)
	r := newTestRegistry(t)

	r.Register("conversation:1", 1)
	r.Register("conversation:1", 2)
	r.Touch("conversation:1", 2)

	// Age user 1's record past the TTL by hand, then sweep.
	r.mu.Lock()
	r.topics["conversation:1"][1].LastSeenAt = time.Now().Add(-2 * time.Minute)
	r.mu.Unlock()

	r.sweepStale(time.Now())

	assert.False(r.IsConnected("conversation:1", 1))
	assert.True(r.IsConnected("conversation:1", 2))
}

func TestStaleRecordReportsOffline(t *testing.T) {
	assert := assert.New(t)
	r := newTestRegistry(t)

	r.Register("conversation:1", 1)
	r.mu.Lock()
	r.topics["conversation:1"][1].LastSeenAt = time.Now().Add(-2 * time.Minute)
	r.mu.Unlock()

	// Not swept yet, but past the TTL: treated as offline.
	assert.False(r.IsConnected("conversation:1", 1))
}
