package realtime

import (
	"log/slog"
	"sync"
	"time"
)

// ConnectionRecord tracks one user's live connection to one topic. Records
// are ephemeral; they live only in registry memory for the lifetime of the
// stream.
type ConnectionRecord struct {
	TopicID     string
	UserID      int64
	ConnectedAt time.Time
	LastSeenAt  time.Time
}

// Registry is the process-wide membership table of live connections, keyed
// by topic then user. A record whose LastSeenAt exceeds the TTL is treated
// as offline even if the transport never closed; a periodic sweep removes
// such records. Scaling beyond one process requires an external membership
// store instead of this table.
type Registry struct {
	mu     sync.RWMutex
	topics map[string]map[int64]*ConnectionRecord

	ttl  time.Duration
	done chan struct{}
	wg   sync.WaitGroup

	now func() time.Time
}

// NewRegistry creates a registry and starts its TTL sweep loop. Close must
// be called to stop the sweeper.
func NewRegistry(ttl, sweepInterval time.Duration) *Registry {
	r := &Registry{
		topics: make(map[string]map[int64]*ConnectionRecord),
		ttl:    ttl,
		done:   make(chan struct{}),
		now:    time.Now,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.sweepStale(r.now())
			case <-r.done:
				return
			}
		}
	}()

	return r
}

// Close stops the TTL sweeper. The registry must not be used after Close.
func (r *Registry) Close() {
	close(r.done)
	r.wg.Wait()
}

// Register records that the user has an open connection to the topic. A
// repeated register refreshes the existing record.
func (r *Registry) Register(topicID string, userID int64) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.topics[topicID]
	if !ok {
		members = make(map[int64]*ConnectionRecord)
		r.topics[topicID] = members
	}

	if rec, ok := members[userID]; ok {
		rec.LastSeenAt = now
		return
	}

	members[userID] = &ConnectionRecord{
		TopicID:     topicID,
		UserID:      userID,
		ConnectedAt: now,
		LastSeenAt:  now,
	}
}

// Unregister removes the user's record for the topic. It is idempotent:
// unregistering an absent record is a no-op.
func (r *Registry) Unregister(topicID string, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.topics[topicID]
	if !ok {
		return
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(r.topics, topicID)
	}
}

// Touch refreshes the record's LastSeenAt, keeping it ahead of the TTL
// sweep. Called on stream heartbeats.
func (r *Registry) Touch(topicID string, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.topics[topicID][userID]; ok {
		rec.LastSeenAt = r.now()
	}
}

// IsConnected reports whether the user currently has a live, non-stale
// record for the topic.
func (r *Registry) IsConnected(topicID string, userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.topics[topicID][userID]
	if !ok {
		return false
	}
	return r.now().Sub(rec.LastSeenAt) <= r.ttl
}

// ConnectedUsers returns the set of users currently registered on the topic.
func (r *Registry) ConnectedUsers(topicID string) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.topics[topicID]
	users := make([]int64, 0, len(members))
	for userID := range members {
		users = append(users, userID)
	}
	return users
}

// sweepStale removes records whose LastSeenAt is older than the TTL,
// compensating for transports that disappear without a close signal.
func (r *Registry) sweepStale(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for topicID, members := range r.topics {
		for userID, rec := range members {
			if now.Sub(rec.LastSeenAt) > r.ttl {
				delete(members, userID)
				slog.Debug("swept stale connection", "topic", topicID, "user_id", userID)
			}
		}
		if len(members) == 0 {
			delete(r.topics, topicID)
		}
	}
}
