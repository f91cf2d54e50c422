// ABOUTME: Store interface and data types for conversation persistence
// ABOUTME: Defines User, Conversation, Message, Notification and the Store interface

package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateConversation is returned when a conversation already exists for a developer/business pair
var ErrDuplicateConversation = errors.New("conversation already exists")

// ErrDuplicateToken is returned when an inbound email token collides with an existing one
var ErrDuplicateToken = errors.New("inbound email token already taken")

// ErrUnknownScope is returned when a ConversationFilter names an unsupported scope
var ErrUnknownScope = errors.New("unknown scope")

func errUnknownScope(scope Scope) error {
	return fmt.Errorf("%w: %q", ErrUnknownScope, scope)
}

// Side identifies which participant of a conversation an actor represents
type Side string

// Side constants
const (
	SideDeveloper Side = "developer"
	SideBusiness  Side = "business"
)

// Valid reports whether s is one of the two conversation sides.
func (s Side) Valid() bool {
	return s == SideDeveloper || s == SideBusiness
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideDeveloper {
		return SideBusiness
	}
	return SideDeveloper
}

// User is an account. A user holds at most one developer profile and at most
// one business profile; both are resolved when the user is loaded.
type User struct {
	ID          string
	Email       string
	DeveloperID *string
	BusinessID  *string
	CreatedAt   time.Time
}

// Developer is the developer-side profile owned by a user
type Developer struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
}

// Business is the business-side profile owned by a user
type Business struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
}

// Conversation is a thread between one developer and one business.
// DeveloperID and BusinessID become nil when the profile is deleted; the
// conversation itself is kept.
type Conversation struct {
	ID                       string
	InboundEmailToken        string
	DeveloperID              *string
	BusinessID               *string
	DeveloperBlockedAt       *time.Time
	BusinessBlockedAt        *time.Time
	DeveloperArchivedAt      *time.Time
	BusinessArchivedAt       *time.Time
	UserWithUnreadMessagesID *string // at most one user holds the unread flag
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// Message is a single message within a conversation
type Message struct {
	ID             string
	ConversationID string
	SenderSide     Side
	SenderID       string // developer or business ID, depending on SenderSide
	Body           string
	CreatedAt      time.Time
	Seq            int64 // insertion sequence, assigned by the store
}

// Notification records that a message was addressed to a recipient user
type Notification struct {
	ID             string
	RecipientID    string
	ConversationID string
	MessageID      string
	ReadAt         *time.Time
	CreatedAt      time.Time
}

// Read reports whether the recipient has read the notification.
func (n *Notification) Read() bool {
	return n.ReadAt != nil
}

// ReadReceipt is the outcome of marking a recipient's notifications read
type ReadReceipt struct {
	Marked        int64 // notifications flipped from unread to read
	UnreadCleared bool  // whether the conversation's unread holder was cleared
}

// Scope selects a subset of conversations, mirroring the inbox views
type Scope string

// Scope constants
const (
	ScopeAll                   Scope = ""
	ScopeBlocked               Scope = "blocked"
	ScopeVisible               Scope = "visible"
	ScopeArchivedByBusiness    Scope = "archived_by_business"
	ScopeUnarchivedByBusiness  Scope = "unarchived_by_business"
	ScopeArchivedByDeveloper   Scope = "archived_by_developer"
	ScopeUnarchivedByDeveloper Scope = "unarchived_by_developer"
)

// ConversationFilter narrows ListConversations results.
// Empty participant IDs match any participant.
type ConversationFilter struct {
	DeveloperID string
	BusinessID  string
	Scope       Scope
	Limit       int
}

// Store defines the interface for conversation persistence
type Store interface {
	// Users and participant profiles
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CreateDeveloper(ctx context.Context, dev *Developer) error
	GetDeveloper(ctx context.Context, id string) (*Developer, error)
	DeleteDeveloper(ctx context.Context, id string) error
	CreateBusiness(ctx context.Context, biz *Business) error
	GetBusiness(ctx context.Context, id string) (*Business, error)
	DeleteBusiness(ctx context.Context, id string) error

	// Conversations
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	GetConversationByInboundEmailToken(ctx context.Context, token string) (*Conversation, error)
	GetConversationByParticipants(ctx context.Context, developerID, businessID string) (*Conversation, error)
	UpdateConversation(ctx context.Context, conv *Conversation) error
	ListConversations(ctx context.Context, filter ConversationFilter) ([]*Conversation, error)
	DeleteConversation(ctx context.Context, id string) error

	// Messages
	RecordMessage(ctx context.Context, msg *Message, recipientUserID string) error
	ListMessages(ctx context.Context, conversationID string) ([]*Message, error)

	// Notifications
	GetLatestNotificationForRecipient(ctx context.Context, messageID, recipientID string) (*Notification, error)
	ListNotifications(ctx context.Context, recipientID string, unreadOnly bool) ([]*Notification, error)
	MarkNotificationsRead(ctx context.Context, conversationID, userID string) (*ReadReceipt, error)

	// Close releases any resources held by the store
	Close() error
}
