// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
// A single mutex serializes writes, matching the transactional guarantees of SQLiteStore.
type MockStore struct {
	mu            sync.RWMutex
	users         map[string]*User         // keyed by user ID (identity fields resolved on read)
	developers    map[string]*Developer    // keyed by developer ID
	businesses    map[string]*Business     // keyed by business ID
	conversations map[string]*Conversation // keyed by conversation ID
	messages      map[string][]*Message    // keyed by conversation ID
	notifications map[string]*Notification // keyed by notification ID
	seq           int64
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:         make(map[string]*User),
		developers:    make(map[string]*Developer),
		businesses:    make(map[string]*Business),
		conversations: make(map[string]*Conversation),
		messages:      make(map[string][]*Message),
		notifications: make(map[string]*Notification),
	}
}

// CreateUser stores a new user.
func (m *MockStore) CreateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	u := *user
	u.DeveloperID, u.BusinessID = nil, nil
	m.users[u.ID] = &u
	return nil
}

// GetUser retrieves a user with its developer and business identities.
func (m *MockStore) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.resolveUserLocked(u), nil
}

// GetUserByEmail retrieves a user by email, ignoring case.
func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return m.resolveUserLocked(u), nil
		}
	}
	return nil, ErrNotFound
}

// resolveUserLocked returns a copy of u with identity fields filled. Must be called with mu held.
func (m *MockStore) resolveUserLocked(u *User) *User {
	result := *u
	for _, d := range m.developers {
		if d.UserID == u.ID {
			id := d.ID
			result.DeveloperID = &id
		}
	}
	for _, b := range m.businesses {
		if b.UserID == u.ID {
			id := b.ID
			result.BusinessID = &id
		}
	}
	return &result
}

// CreateDeveloper stores a developer profile.
func (m *MockStore) CreateDeveloper(ctx context.Context, dev *Developer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dev.CreatedAt.IsZero() {
		dev.CreatedAt = time.Now()
	}
	d := *dev
	m.developers[d.ID] = &d
	return nil
}

// GetDeveloper retrieves a developer profile.
func (m *MockStore) GetDeveloper(ctx context.Context, id string) (*Developer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.developers[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *d
	return &result, nil
}

// DeleteDeveloper removes a developer profile and unsets it on its conversations.
func (m *MockStore) DeleteDeveloper(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.developers[id]; !ok {
		return ErrNotFound
	}
	delete(m.developers, id)
	for _, c := range m.conversations {
		if c.DeveloperID != nil && *c.DeveloperID == id {
			c.DeveloperID = nil
		}
	}
	return nil
}

// CreateBusiness stores a business profile.
func (m *MockStore) CreateBusiness(ctx context.Context, biz *Business) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if biz.CreatedAt.IsZero() {
		biz.CreatedAt = time.Now()
	}
	b := *biz
	m.businesses[b.ID] = &b
	return nil
}

// GetBusiness retrieves a business profile.
func (m *MockStore) GetBusiness(ctx context.Context, id string) (*Business, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.businesses[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *b
	return &result, nil
}

// DeleteBusiness removes a business profile and unsets it on its conversations.
func (m *MockStore) DeleteBusiness(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.businesses[id]; !ok {
		return ErrNotFound
	}
	delete(m.businesses, id)
	for _, c := range m.conversations {
		if c.BusinessID != nil && *c.BusinessID == id {
			c.BusinessID = nil
		}
	}
	return nil
}

// CreateConversation stores a new conversation, enforcing pair and token uniqueness.
func (m *MockStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.conversations {
		if strings.EqualFold(c.InboundEmailToken, conv.InboundEmailToken) {
			return ErrDuplicateToken
		}
		if samePair(c, conv) {
			return ErrDuplicateConversation
		}
	}

	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}
	c := cloneConversation(conv)
	m.conversations[c.ID] = c
	return nil
}

// samePair mirrors SQL unique-index semantics: unset references never collide
func samePair(a, b *Conversation) bool {
	if a.DeveloperID == nil || a.BusinessID == nil || b.DeveloperID == nil || b.BusinessID == nil {
		return false
	}
	return *a.DeveloperID == *b.DeveloperID && *a.BusinessID == *b.BusinessID
}

func cloneConversation(c *Conversation) *Conversation {
	result := *c
	return &result
}

// GetConversation retrieves a conversation by ID.
func (m *MockStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneConversation(c), nil
}

// GetConversationByInboundEmailToken retrieves a conversation by token, ignoring case.
func (m *MockStore) GetConversationByInboundEmailToken(ctx context.Context, token string) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := strings.ToLower(token)
	for _, c := range m.conversations {
		if strings.ToLower(c.InboundEmailToken) == want {
			return cloneConversation(c), nil
		}
	}
	return nil, ErrNotFound
}

// GetConversationByParticipants retrieves the conversation of a developer/business pair.
func (m *MockStore) GetConversationByParticipants(ctx context.Context, developerID, businessID string) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	probe := &Conversation{DeveloperID: &developerID, BusinessID: &businessID}
	for _, c := range m.conversations {
		if samePair(c, probe) {
			return cloneConversation(c), nil
		}
	}
	return nil, ErrNotFound
}

// UpdateConversation persists blocked and archived timestamps and bumps updated_at.
func (m *MockStore) UpdateConversation(ctx context.Context, conv *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conversations[conv.ID]
	if !ok {
		return ErrNotFound
	}
	conv.UpdatedAt = time.Now()
	c.DeveloperBlockedAt = conv.DeveloperBlockedAt
	c.BusinessBlockedAt = conv.BusinessBlockedAt
	c.DeveloperArchivedAt = conv.DeveloperArchivedAt
	c.BusinessArchivedAt = conv.BusinessArchivedAt
	c.UpdatedAt = conv.UpdatedAt
	return nil
}

// ListConversations retrieves conversations matching the filter.
func (m *MockStore) ListConversations(ctx context.Context, filter ConversationFilter) ([]*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	match, orderBy, err := mockScope(filter.Scope)
	if err != nil {
		return nil, err
	}

	var result []*Conversation
	for _, c := range m.conversations {
		if filter.DeveloperID != "" && (c.DeveloperID == nil || *c.DeveloperID != filter.DeveloperID) {
			continue
		}
		if filter.BusinessID != "" && (c.BusinessID == nil || *c.BusinessID != filter.BusinessID) {
			continue
		}
		if !match(c) {
			continue
		}
		result = append(result, cloneConversation(c))
	}

	slices.SortFunc(result, func(a, b *Conversation) int {
		if c := orderBy(b).Compare(orderBy(a)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// mockScope returns the predicate and descending sort key of a scope
func mockScope(scope Scope) (func(*Conversation) bool, func(*Conversation) time.Time, error) {
	updated := func(c *Conversation) time.Time { return c.UpdatedAt }
	deref := func(t *time.Time) time.Time {
		if t == nil {
			return time.Time{}
		}
		return *t
	}

	switch scope {
	case ScopeAll:
		return func(*Conversation) bool { return true }, updated, nil
	case ScopeBlocked:
		return func(c *Conversation) bool {
			return c.DeveloperBlockedAt != nil || c.BusinessBlockedAt != nil
		}, updated, nil
	case ScopeVisible:
		return func(c *Conversation) bool {
			return c.DeveloperBlockedAt == nil && c.BusinessBlockedAt == nil
		}, updated, nil
	case ScopeArchivedByBusiness:
		return func(c *Conversation) bool { return c.BusinessArchivedAt != nil },
			func(c *Conversation) time.Time { return deref(c.BusinessArchivedAt) }, nil
	case ScopeUnarchivedByBusiness:
		return func(c *Conversation) bool { return c.BusinessArchivedAt == nil }, updated, nil
	case ScopeArchivedByDeveloper:
		return func(c *Conversation) bool { return c.DeveloperArchivedAt != nil },
			func(c *Conversation) time.Time { return deref(c.DeveloperArchivedAt) }, nil
	case ScopeUnarchivedByDeveloper:
		return func(c *Conversation) bool { return c.DeveloperArchivedAt == nil }, updated, nil
	default:
		return nil, nil, errUnknownScope(scope)
	}
}

// DeleteConversation removes a conversation with its messages and notifications.
func (m *MockStore) DeleteConversation(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(m.conversations, id)
	delete(m.messages, id)
	for nid, n := range m.notifications {
		if n.ConversationID == id {
			delete(m.notifications, nid)
		}
	}
	return nil
}

// RecordMessage appends a message, notifies the recipient and hands them the unread flag.
func (m *MockStore) RecordMessage(ctx context.Context, msg *Message, recipientUserID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conversations[msg.ConversationID]
	if !ok {
		return ErrNotFound
	}

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	m.seq++
	msg.Seq = m.seq

	stored := *msg
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], &stored)

	c.UpdatedAt = time.Now()
	if recipientUserID != "" {
		recipient := recipientUserID
		c.UserWithUnreadMessagesID = &recipient
		id := notificationID(msg.ID, recipientUserID)
		m.notifications[id] = &Notification{
			ID:             id,
			RecipientID:    recipientUserID,
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			CreatedAt:      msg.CreatedAt,
		}
	}
	return nil
}

// ListMessages returns a conversation's messages ordered by creation time, then insertion.
func (m *MockStore) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.messages[conversationID]
	result := make([]*Message, 0, len(msgs))
	for _, msg := range msgs {
		cp := *msg
		result = append(result, &cp)
	}
	slices.SortStableFunc(result, func(a, b *Message) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
	return result, nil
}

// GetLatestNotificationForRecipient returns the recipient's notification for a message.
func (m *MockStore) GetLatestNotificationForRecipient(ctx context.Context, messageID, recipientID string) (*Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *Notification
	for _, n := range m.notifications {
		if n.MessageID != messageID || n.RecipientID != recipientID {
			continue
		}
		if latest == nil || n.CreatedAt.After(latest.CreatedAt) {
			latest = n
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	result := *latest
	return &result, nil
}

// ListNotifications lists a recipient's notifications, newest first.
func (m *MockStore) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool) ([]*Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Notification
	for _, n := range m.notifications {
		if n.RecipientID != recipientID || (unreadOnly && n.Read()) {
			continue
		}
		cp := *n
		result = append(result, &cp)
	}
	slices.SortFunc(result, func(a, b *Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return result, nil
}

// MarkNotificationsRead marks the recipient's unread notifications in a
// conversation read and clears the unread holder if it is the recipient.
func (m *MockStore) MarkNotificationsRead(ctx context.Context, conversationID, userID string) (*ReadReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	receipt := &ReadReceipt{}
	for _, n := range m.notifications {
		if n.ConversationID == conversationID && n.RecipientID == userID && !n.Read() {
			readAt := now
			n.ReadAt = &readAt
			receipt.Marked++
		}
	}

	if c, ok := m.conversations[conversationID]; ok {
		if c.UserWithUnreadMessagesID != nil && *c.UserWithUnreadMessagesID == userID {
			c.UserWithUnreadMessagesID = nil
			c.UpdatedAt = now
			receipt.UnreadCleared = true
		}
	}
	return receipt, nil
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}

// Ensure MockStore implements Store interface
var _ Store = (*MockStore)(nil)
