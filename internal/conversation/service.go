// ABOUTME: Service owns conversation lifecycle: start, send, block, archive, read marking
// ABOUTME: Loads State for queries and routes every mutation through the injected stores

package conversation

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/JuzerShakir/railsdevs.com/internal/store"
)

const (
	// tokenLength matches the length of generated inbound email tokens.
	tokenLength = 24

	// maxTokenAttempts bounds retries when a generated token collides.
	maxTokenAttempts = 5

	base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

	// lockStripes is the number of mutexes serializing per-conversation updates.
	lockStripes = 64
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Settings tunes business rules of the service.
type Settings struct {
	// HiringFeeWindow is how old a conversation must be before a hiring fee
	// applies. Zero means DefaultHiringFeeWindow.
	HiringFeeWindow time.Duration

	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
}

// Service manages conversations between developers and businesses.
type Service struct {
	deps        Deps
	window      time.Duration
	now         func() time.Time
	broadcaster *EventBroadcaster
	logger      *slog.Logger

	// stripes serialize read-modify-write of a conversation's timestamps
	stripes [lockStripes]sync.Mutex
}

// New creates a conversation Service. broadcaster may be nil, in which case
// no events are published.
func New(deps Deps, settings Settings, broadcaster *EventBroadcaster, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.HiringFeeWindow <= 0 {
		settings.HiringFeeWindow = DefaultHiringFeeWindow
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	return &Service{
		deps:        deps,
		window:      settings.HiringFeeWindow,
		now:         settings.Now,
		broadcaster: broadcaster,
		logger:      logger.With("component", "conversation"),
	}
}

// StartRequest opens a conversation between a developer and a business
type StartRequest struct {
	DeveloperID string `validate:"required,max=255"`
	BusinessID  string `validate:"required,max=255"`
}

// SendRequest carries a message from one participant to the other
type SendRequest struct {
	ConversationID string `validate:"required"`
	SenderUserID   string `validate:"required"`
	Body           string `validate:"required"`
}

// SendResult is the outcome of a successful SendMessage
type SendResult struct {
	Message *store.Message

	// FirstReply is true when this is the sender's only message so far
	FirstReply bool
}

// generateToken returns a random base58 inbound email token.
func generateToken() (string, error) {
	buf := make([]byte, tokenLength)
	out := make([]byte, 0, tokenLength)
	for len(out) < tokenLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			// 6-bit values past the alphabet are rejected
			if idx := int(b & 0x3f); idx < len(base58Alphabet) && len(out) < tokenLength {
				out = append(out, base58Alphabet[idx])
			}
		}
	}
	return string(out), nil
}

// Start creates the conversation between a developer and a business.
// Returns store.ErrDuplicateConversation if they already have one.
func (s *Service) Start(ctx context.Context, req StartRequest) (*State, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid start request: %w", err)
	}

	if _, err := s.deps.Identities.GetDeveloper(ctx, req.DeveloperID); err != nil {
		return nil, fmt.Errorf("resolving developer %s: %w", req.DeveloperID, err)
	}
	if _, err := s.deps.Identities.GetBusiness(ctx, req.BusinessID); err != nil {
		return nil, fmt.Errorf("resolving business %s: %w", req.BusinessID, err)
	}

	now := s.now()
	for attempt := 1; ; attempt++ {
		token, err := generateToken()
		if err != nil {
			return nil, fmt.Errorf("generating inbound email token: %w", err)
		}

		conv := &store.Conversation{
			ID:                uuid.New().String(),
			InboundEmailToken: token,
			DeveloperID:       &req.DeveloperID,
			BusinessID:        &req.BusinessID,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		err = s.deps.Conversations.CreateConversation(ctx, conv)
		if errors.Is(err, store.ErrDuplicateToken) && attempt < maxTokenAttempts {
			s.logger.Warn("inbound email token collision, retrying", "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("creating conversation: %w", err)
		}

		s.logger.Info("conversation started",
			"conversation_id", conv.ID,
			"developer_id", req.DeveloperID,
			"business_id", req.BusinessID)
		return NewState(conv, nil), nil
	}
}

// ResolveToken finds a conversation by its inbound email token, ignoring case.
// Returns an error matching ErrNotFound if no conversation has the token.
func (s *Service) ResolveToken(ctx context.Context, token string) (*store.Conversation, error) {
	conv, err := s.deps.Conversations.GetConversationByInboundEmailToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving inbound email token: %w", err)
	}
	return conv, nil
}

// Load reads a conversation and its messages.
// Returns an error matching ErrNotFound if the conversation doesn't exist.
func (s *Service) Load(ctx context.Context, id string) (*State, error) {
	conv, err := s.deps.Conversations.GetConversation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	return s.withMessages(ctx, conv)
}

// LoadByToken reads the conversation addressed by an inbound email token.
func (s *Service) LoadByToken(ctx context.Context, token string) (*State, error) {
	conv, err := s.ResolveToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.withMessages(ctx, conv)
}

func (s *Service) withMessages(ctx context.Context, conv *store.Conversation) (*State, error) {
	messages, err := s.deps.Messages.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}
	return NewState(conv, messages), nil
}

// loadAs loads a conversation together with the side userID acts for.
func (s *Service) loadAs(ctx context.Context, conversationID, userID string) (*State, store.Side, error) {
	state, err := s.Load(ctx, conversationID)
	if err != nil {
		return nil, "", err
	}
	user, err := s.deps.Identities.GetUser(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("resolving user %s: %w", userID, err)
	}
	side, err := state.SideOf(user)
	if err != nil {
		return nil, "", err
	}
	return state, side, nil
}

// participantUserID returns the user account behind a participant.
func (s *Service) participantUserID(ctx context.Context, p Participant) (string, error) {
	if !p.Present() {
		return "", ErrOrphaned
	}
	if p.Side == store.SideDeveloper {
		dev, err := s.deps.Identities.GetDeveloper(ctx, p.ID)
		if err != nil {
			return "", fmt.Errorf("resolving developer %s: %w", p.ID, err)
		}
		return dev.UserID, nil
	}
	biz, err := s.deps.Identities.GetBusiness(ctx, p.ID)
	if err != nil {
		return "", fmt.Errorf("resolving business %s: %w", p.ID, err)
	}
	return biz.UserID, nil
}

// SendMessage records a message from one participant and hands the unread
// flag to the other.
//
// Returns ErrNotParticipant if the sender is on neither side, ErrOrphaned if
// a participant has been removed and ErrBlocked if either side has blocked.
func (s *Service) SendMessage(ctx context.Context, req SendRequest) (*SendResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid send request: %w", err)
	}

	// FirstReply is judged against the history loaded here, so sends to one
	// conversation must not interleave.
	defer s.lockConversation(req.ConversationID)()

	state, side, err := s.loadAs(ctx, req.ConversationID, req.SenderUserID)
	if err != nil {
		return nil, err
	}
	if state.IsOrphaned() {
		return nil, ErrOrphaned
	}
	if state.IsBlocked() {
		return nil, ErrBlocked
	}

	sender := state.Participant(side)
	recipientUserID, err := s.participantUserID(ctx, state.Participant(side.Other()))
	if err != nil {
		return nil, err
	}

	msg := &store.Message{
		ID:             uuid.New().String(),
		ConversationID: state.Conversation.ID,
		SenderSide:     side,
		SenderID:       sender.ID,
		Body:           req.Body,
		CreatedAt:      s.now(),
	}
	if err := s.deps.Messages.RecordMessage(ctx, msg, recipientUserID); err != nil {
		return nil, fmt.Errorf("recording message: %w", err)
	}

	state.Messages = append(state.Messages, msg)
	state.Conversation.UserWithUnreadMessagesID = &recipientUserID

	s.logger.Debug("message sent",
		"conversation_id", msg.ConversationID,
		"message_id", msg.ID,
		"sender_side", side)

	event := &Event{
		Type:           EventMessageSent,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		ActorUserID:    req.SenderUserID,
		At:             msg.CreatedAt,
	}
	s.publish(ctx, event, req.SenderUserID, recipientUserID)

	return &SendResult{Message: msg, FirstReply: state.IsFirstReply(sender)}, nil
}

// Block hides the conversation for both sides on behalf of userID's side.
func (s *Service) Block(ctx context.Context, conversationID, userID string) (*State, error) {
	return s.toggle(ctx, conversationID, userID, EventBlocked, func(c *store.Conversation, side store.Side, now time.Time) {
		setOnce(blockedField(c, side), now)
	})
}

// Unblock clears userID's side block.
func (s *Service) Unblock(ctx context.Context, conversationID, userID string) (*State, error) {
	return s.toggle(ctx, conversationID, userID, EventUnblocked, func(c *store.Conversation, side store.Side, _ time.Time) {
		*blockedField(c, side) = nil
	})
}

// Archive moves the conversation out of userID's active inbox.
func (s *Service) Archive(ctx context.Context, conversationID, userID string) (*State, error) {
	return s.toggle(ctx, conversationID, userID, EventArchived, func(c *store.Conversation, side store.Side, now time.Time) {
		setOnce(archivedField(c, side), now)
	})
}

// Unarchive returns the conversation to userID's active inbox.
func (s *Service) Unarchive(ctx context.Context, conversationID, userID string) (*State, error) {
	return s.toggle(ctx, conversationID, userID, EventUnarchived, func(c *store.Conversation, side store.Side, _ time.Time) {
		*archivedField(c, side) = nil
	})
}

func blockedField(c *store.Conversation, side store.Side) **time.Time {
	if side == store.SideDeveloper {
		return &c.DeveloperBlockedAt
	}
	return &c.BusinessBlockedAt
}

func archivedField(c *store.Conversation, side store.Side) **time.Time {
	if side == store.SideDeveloper {
		return &c.DeveloperArchivedAt
	}
	return &c.BusinessArchivedAt
}

// setOnce keeps an existing timestamp so repeated actions don't move it.
func setOnce(field **time.Time, now time.Time) {
	if *field == nil {
		*field = &now
	}
}

func (s *Service) lockConversation(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	mu := &s.stripes[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

func (s *Service) toggle(
	ctx context.Context,
	conversationID, userID string,
	eventType EventType,
	apply func(c *store.Conversation, side store.Side, now time.Time),
) (*State, error) {
	defer s.lockConversation(conversationID)()

	state, side, err := s.loadAs(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	apply(state.Conversation, side, now)
	if err := s.deps.Conversations.UpdateConversation(ctx, state.Conversation); err != nil {
		return nil, fmt.Errorf("updating conversation: %w", err)
	}

	s.logger.Info("conversation updated",
		"conversation_id", conversationID,
		"action", eventType,
		"side", side)

	s.publish(ctx, &Event{
		Type:           eventType,
		ConversationID: conversationID,
		ActorUserID:    userID,
		At:             now,
	}, userID)
	return state, nil
}

// Inbox lists userID's conversations on the given side, either the active
// ones or the archived ones. Archived conversations are ordered by when they
// were archived, active ones by last activity.
func (s *Service) Inbox(ctx context.Context, userID string, side store.Side, archived bool) ([]*store.Conversation, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("invalid side %q", side)
	}

	user, err := s.deps.Identities.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolving user %s: %w", userID, err)
	}

	filter := store.ConversationFilter{}
	switch side {
	case store.SideDeveloper:
		if user.DeveloperID == nil {
			return nil, ErrNotParticipant
		}
		filter.DeveloperID = *user.DeveloperID
		filter.Scope = store.ScopeUnarchivedByDeveloper
		if archived {
			filter.Scope = store.ScopeArchivedByDeveloper
		}
	case store.SideBusiness:
		if user.BusinessID == nil {
			return nil, ErrNotParticipant
		}
		filter.BusinessID = *user.BusinessID
		filter.Scope = store.ScopeUnarchivedByBusiness
		if archived {
			filter.Scope = store.ScopeArchivedByBusiness
		}
	}

	convs, err := s.deps.Conversations.ListConversations(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	return convs, nil
}

// Delete removes a conversation with all of its messages and notifications.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.deps.Conversations.DeleteConversation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}

	s.logger.Info("conversation deleted", "conversation_id", id)
	return nil
}

// LatestMessageReadByOtherRecipient reports whether the participant opposite
// to userID has read the newest message. Only the newest message counts.
// False when there are no messages or the recipient was never notified.
func (s *Service) LatestMessageReadByOtherRecipient(ctx context.Context, state *State, userID string) (bool, error) {
	latest := state.LatestMessage()
	if latest == nil {
		return false, nil
	}

	user, err := s.deps.Identities.GetUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("resolving user %s: %w", userID, err)
	}
	other, err := state.OtherParticipant(user)
	if err != nil {
		return false, err
	}
	if !other.Present() {
		return false, nil
	}

	otherUserID, err := s.participantUserID(ctx, other)
	if err != nil {
		return false, err
	}

	n, err := s.deps.Notifications.GetLatestNotificationForRecipient(ctx, latest.ID, otherUserID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up notification: %w", err)
	}
	return n.Read(), nil
}

// MarkNotificationsRead marks userID's notifications in the conversation as
// read and clears the unread flag if userID holds it.
func (s *Service) MarkNotificationsRead(ctx context.Context, conversationID, userID string) (*store.ReadReceipt, error) {
	receipt, err := s.deps.Notifications.MarkNotificationsRead(ctx, conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("marking notifications read: %w", err)
	}

	if receipt.Marked > 0 || receipt.UnreadCleared {
		s.publish(ctx, &Event{
			Type:           EventConversationRead,
			ConversationID: conversationID,
			ActorUserID:    userID,
			At:             s.now(),
		}, userID)
	}
	return receipt, nil
}

// HiringFeeEligible applies the configured hiring fee window at the current time.
func (s *Service) HiringFeeEligible(state *State) bool {
	return state.HiringFeeEligible(s.now(), s.window)
}

// publish fans event out to userIDs, skipping the live session that made
// the call, if ctx names one.
func (s *Service) publish(ctx context.Context, event *Event, userIDs ...string) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Publish(OriginFrom(ctx), event, userIDs...)
}
