// ABOUTME: Routes parsed inbound email to a conversation as a new message
// ABOUTME: Recipient local part is the conversation token; sender address picks the author

package inbound

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JuzerShakir/railsdevs.com/internal/conversation"
	"github.com/JuzerShakir/railsdevs.com/internal/store"
)

var (
	// ErrDuplicateDelivery is returned when a Message-ID was already delivered
	ErrDuplicateDelivery = errors.New("duplicate delivery")

	// ErrNoConversationAddress is returned when no recipient is on the inbound domain
	ErrNoConversationAddress = errors.New("no recipient addresses a conversation")

	// ErrUnknownSender is returned when the From address belongs to no user
	ErrUnknownSender = errors.New("sender is not a known user")
)

var validate = validator.New()

// Delivery is one inbound email, already parsed by the mail server.
type Delivery struct {
	MessageID string   `json:"message_id" validate:"required,max=998"`
	From      string   `json:"from" validate:"required"`
	To        []string `json:"to" validate:"required,min=1,dive,required"`
	Body      string   `json:"body" validate:"required"`
}

// Conversations is the part of conversation.Service the router drives.
type Conversations interface {
	ResolveToken(ctx context.Context, token string) (*store.Conversation, error)
	SendMessage(ctx context.Context, req conversation.SendRequest) (*conversation.SendResult, error)
}

// UserDirectory finds users by email address.
type UserDirectory interface {
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
}

// Router turns deliveries into conversation messages.
type Router struct {
	domain        string
	conversations Conversations
	users         UserDirectory
	seen          *SeenTracker
	logger        *slog.Logger
}

// NewRouter creates a Router for addresses on domain. seen may be nil to
// disable duplicate detection.
func NewRouter(domain string, conversations Conversations, users UserDirectory, seen *SeenTracker, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		domain:        strings.ToLower(strings.TrimSpace(domain)),
		conversations: conversations,
		users:         users,
		seen:          seen,
		logger:        logger.With("component", "inbound"),
	}
}

// normalizeMessageID strips whitespace and the angle brackets around a Message-ID.
func normalizeMessageID(id string) string {
	return strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(id), "<"), ">")
}

// Deliver posts d to the conversation addressed by its first recipient on
// the inbound domain. A failed delivery releases its Message-ID so the mail
// server's retry is processed again.
func (r *Router) Deliver(ctx context.Context, d Delivery) (*conversation.SendResult, error) {
	if err := validate.Struct(d); err != nil {
		return nil, fmt.Errorf("invalid delivery: %w", err)
	}

	messageID := normalizeMessageID(d.MessageID)
	if r.seen != nil {
		if !r.seen.Claim(messageID) {
			r.logger.Debug("dropping duplicate delivery", "message_id", messageID)
			return nil, ErrDuplicateDelivery
		}
	}

	result, err := r.deliver(ctx, d)
	if err != nil {
		if r.seen != nil {
			r.seen.Release(messageID)
		}
		r.logger.Warn("inbound delivery failed", "message_id", messageID, "error", err)
		return nil, err
	}

	r.logger.Info("inbound message delivered",
		"message_id", messageID,
		"conversation_id", result.Message.ConversationID)
	return result, nil
}

func (r *Router) deliver(ctx context.Context, d Delivery) (*conversation.SendResult, error) {
	token, err := r.conversationToken(d.To)
	if err != nil {
		return nil, err
	}

	conv, err := r.conversations.ResolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	from, err := mail.ParseAddress(d.From)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable address %q: %v", ErrUnknownSender, d.From, err)
	}
	user, err := r.users.GetUserByEmail(ctx, from.Address)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSender, from.Address)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up sender: %w", err)
	}

	return r.conversations.SendMessage(ctx, conversation.SendRequest{
		ConversationID: conv.ID,
		SenderUserID:   user.ID,
		Body:           d.Body,
	})
}

// conversationToken returns the local part of the first recipient on the
// inbound domain. Unparseable recipients are skipped.
func (r *Router) conversationToken(recipients []string) (string, error) {
	for _, rcpt := range recipients {
		addr, err := mail.ParseAddress(rcpt)
		if err != nil {
			r.logger.Debug("skipping unparseable recipient", "recipient", rcpt, "error", err)
			continue
		}
		at := strings.LastIndex(addr.Address, "@")
		if at <= 0 {
			continue
		}
		if strings.EqualFold(addr.Address[at+1:], r.domain) {
			return addr.Address[:at], nil
		}
	}
	return "", ErrNoConversationAddress
}
