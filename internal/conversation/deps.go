// ABOUTME: Collaborator interfaces the conversation service depends on
// ABOUTME: Each is a narrow slice of store.Store so tests can fail one at a time

//go:generate go run go.uber.org/mock/mockgen -source=deps.go -destination=mocks/mock_deps.go -package=mocks

package conversation

import (
	"context"

	"github.com/JuzerShakir/railsdevs.com/internal/store"
)

// ConversationStore persists conversation rows
type ConversationStore interface {
	CreateConversation(ctx context.Context, conv *store.Conversation) error
	GetConversation(ctx context.Context, id string) (*store.Conversation, error)
	GetConversationByInboundEmailToken(ctx context.Context, token string) (*store.Conversation, error)
	UpdateConversation(ctx context.Context, conv *store.Conversation) error
	ListConversations(ctx context.Context, filter store.ConversationFilter) ([]*store.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
}

// MessageStore holds the ordered messages of each conversation
type MessageStore interface {
	RecordMessage(ctx context.Context, msg *store.Message, recipientUserID string) error
	ListMessages(ctx context.Context, conversationID string) ([]*store.Message, error)
}

// NotificationIndex tracks per-recipient read state of messages
type NotificationIndex interface {
	GetLatestNotificationForRecipient(ctx context.Context, messageID, recipientID string) (*store.Notification, error)
	MarkNotificationsRead(ctx context.Context, conversationID, userID string) (*store.ReadReceipt, error)
}

// IdentityResolver maps users to their developer and business profiles and back
type IdentityResolver interface {
	GetUser(ctx context.Context, id string) (*store.User, error)
	GetDeveloper(ctx context.Context, id string) (*store.Developer, error)
	GetBusiness(ctx context.Context, id string) (*store.Business, error)
}

// Deps bundles the collaborators of a Service.
type Deps struct {
	Conversations ConversationStore
	Messages      MessageStore
	Notifications NotificationIndex
	Identities    IdentityResolver
}

// DepsFromStore uses one store for every collaborator.
func DepsFromStore(s store.Store) Deps {
	return Deps{
		Conversations: s,
		Messages:      s,
		Notifications: s,
		Identities:    s,
	}
}
