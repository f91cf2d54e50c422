// ABOUTME: In-memory fan-out of conversation events to per-user live subscriptions
// ABOUTME: Delivers each event to every session of the users it concerns, except the session that caused it

package conversation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// subscriptionBuffer is how many undelivered events a session may hold
// before further events are dropped for it.
const subscriptionBuffer = 64

// EventType names what happened to a conversation
type EventType string

// EventType constants
const (
	EventMessageSent      EventType = "message_sent"
	EventConversationRead EventType = "conversation_read"
	EventBlocked          EventType = "blocked"
	EventUnblocked        EventType = "unblocked"
	EventArchived         EventType = "archived"
	EventUnarchived       EventType = "unarchived"
)

// Event is a change to a conversation that a user should see without reloading
type Event struct {
	Type           EventType
	ConversationID string
	MessageID      string // set for EventMessageSent
	ActorUserID    string
	At             time.Time
}

// Subscription is one live session of a user. Events is closed when the
// subscription ends, either through its context or the broadcaster closing.
type Subscription struct {
	ID     string
	UserID string
	Events <-chan *Event
}

type originKey struct{}

// WithOrigin marks ctx as acting on behalf of the live session subID. Events
// caused by calls made with this context are not echoed back to that session.
func WithOrigin(ctx context.Context, subID string) context.Context {
	if subID == "" {
		return ctx
	}
	return context.WithValue(ctx, originKey{}, subID)
}

// OriginFrom returns the session ID set by WithOrigin, or "".
func OriginFrom(ctx context.Context) string {
	id, _ := ctx.Value(originKey{}).(string)
	return id
}

// EventBroadcaster routes conversation events to the live sessions of the
// users involved. Sends never block: a session whose buffer is full misses
// the event.
type EventBroadcaster struct {
	mu       sync.RWMutex
	sessions map[string]map[string]chan *Event // userID -> subscription ID -> events
	closed   bool
	logger   *slog.Logger
}

// NewEventBroadcaster creates a broadcaster. Pass nil logger for default.
func NewEventBroadcaster(logger *slog.Logger) *EventBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBroadcaster{
		sessions: make(map[string]map[string]chan *Event),
		logger:   logger.With("component", "broadcaster"),
	}
}

// Subscribe opens a session for userID that lasts until ctx is done.
// After Close, the returned subscription's channel is already closed.
func (b *EventBroadcaster) Subscribe(ctx context.Context, userID string) *Subscription {
	ch := make(chan *Event, subscriptionBuffer)
	sub := &Subscription{ID: uuid.NewString(), UserID: userID, Events: ch}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return sub
	}
	if b.sessions[userID] == nil {
		b.sessions[userID] = make(map[string]chan *Event)
	}
	b.sessions[userID][sub.ID] = ch
	b.mu.Unlock()

	b.logger.Debug("session opened", "user_id", userID, "sub_id", sub.ID)

	context.AfterFunc(ctx, func() { b.Unsubscribe(sub) })
	return sub
}

// Publish delivers event to every session of each user in userIDs, skipping
// the session named by origin. A user listed twice receives the event once.
func (b *EventBroadcaster) Publish(origin string, event *Event, userIDs ...string) {
	// Sends happen under the read lock: Unsubscribe and Close need the write
	// lock to close a channel, so no channel can close mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	seen := make(map[string]bool, len(userIDs))
	for _, userID := range userIDs {
		if userID == "" || seen[userID] {
			continue
		}
		seen[userID] = true

		for subID, ch := range b.sessions[userID] {
			if subID == origin {
				continue
			}
			select {
			case ch <- event:
			default:
				b.logger.Warn("dropped event for slow session",
					"user_id", userID,
					"sub_id", subID,
					"conversation_id", event.ConversationID,
					"type", event.Type)
			}
		}
	}
}

// Unsubscribe ends a session and closes its channel. Ending a session twice
// is a no-op.
func (b *EventBroadcaster) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.sessions[sub.UserID][sub.ID]
	if !ok {
		return
	}
	close(ch)
	delete(b.sessions[sub.UserID], sub.ID)
	if len(b.sessions[sub.UserID]) == 0 {
		delete(b.sessions, sub.UserID)
	}

	b.logger.Debug("session closed", "user_id", sub.UserID, "sub_id", sub.ID)
}

// Close ends every session. Later Publish calls are dropped and later
// subscriptions start closed.
func (b *EventBroadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, subs := range b.sessions {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.sessions = nil

	b.logger.Debug("broadcaster closed")
}

// sessionCount reports how many sessions userID has open.
func (b *EventBroadcaster) sessionCount(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions[userID])
}
