// ABOUTME: State answers visibility, archival, unread and reply questions about a loaded conversation
// ABOUTME: Every predicate is a pure function of the conversation row and its messages

package conversation

import (
	"errors"
	"time"

	"github.com/samber/lo"

	"github.com/JuzerShakir/railsdevs.com/internal/store"
)

// DefaultHiringFeeWindow is how old a conversation must be before a hiring fee applies.
const DefaultHiringFeeWindow = 14 * 24 * time.Hour

var (
	// ErrNotFound is returned when no conversation matches an ID or inbound email token
	ErrNotFound = errors.New("conversation not found")

	// ErrNotParticipant is returned when a user is on neither side of a conversation
	ErrNotParticipant = errors.New("user is not a participant in this conversation")

	// ErrOrphaned is returned when acting on a conversation whose developer or business was removed
	ErrOrphaned = errors.New("conversation has a removed participant")

	// ErrBlocked is returned when sending to a conversation either side has blocked
	ErrBlocked = errors.New("conversation is blocked")
)

// Participant is one side of a conversation. ID is the developer or business
// ID and is empty when that profile has been removed.
type Participant struct {
	Side store.Side
	ID   string
}

// Present reports whether the participant's profile still exists.
func (p Participant) Present() bool {
	return p.ID != ""
}

func (p Participant) sent(m *store.Message) bool {
	return m.SenderSide == p.Side && m.SenderID == p.ID
}

// State is a conversation together with all of its messages.
type State struct {
	Conversation *store.Conversation
	Messages     []*store.Message
}

// NewState wraps a loaded conversation and its messages.
func NewState(conv *store.Conversation, messages []*store.Message) *State {
	return &State{Conversation: conv, Messages: messages}
}

// sameRef compares two optional references. An unset reference never matches.
func sameRef(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

// IsOrphaned reports whether the developer or the business has been removed.
func (s *State) IsOrphaned() bool {
	return s.Conversation.DeveloperID == nil || s.Conversation.BusinessID == nil
}

// IsDeveloper reports whether user's developer profile is this conversation's developer.
func (s *State) IsDeveloper(user *store.User) bool {
	return user != nil && sameRef(user.DeveloperID, s.Conversation.DeveloperID)
}

// IsBusiness reports whether user's business profile is this conversation's business.
func (s *State) IsBusiness(user *store.User) bool {
	return user != nil && sameRef(user.BusinessID, s.Conversation.BusinessID)
}

// Participant returns the given side of the conversation.
func (s *State) Participant(side store.Side) Participant {
	ref := s.Conversation.BusinessID
	if side == store.SideDeveloper {
		ref = s.Conversation.DeveloperID
	}
	return Participant{Side: side, ID: lo.FromPtr(ref)}
}

// SideOf returns the side user acts for. The developer side wins when a user
// holds both profiles of the conversation.
func (s *State) SideOf(user *store.User) (store.Side, error) {
	switch {
	case s.IsDeveloper(user):
		return store.SideDeveloper, nil
	case s.IsBusiness(user):
		return store.SideBusiness, nil
	default:
		return "", ErrNotParticipant
	}
}

// OtherParticipant returns the side opposite to user.
// Returns ErrNotParticipant if user is on neither side.
func (s *State) OtherParticipant(user *store.User) (Participant, error) {
	side, err := s.SideOf(user)
	if err != nil {
		return Participant{}, err
	}
	return s.Participant(side.Other()), nil
}

// IsBlocked reports whether either side has blocked the conversation.
func (s *State) IsBlocked() bool {
	return s.Conversation.DeveloperBlockedAt != nil || s.Conversation.BusinessBlockedAt != nil
}

// IsVisible reports whether neither side has blocked the conversation.
func (s *State) IsVisible() bool {
	return s.Conversation.DeveloperBlockedAt == nil && s.Conversation.BusinessBlockedAt == nil
}

// BlockedBy reports whether the given side has blocked the conversation.
func (s *State) BlockedBy(side store.Side) bool {
	if side == store.SideDeveloper {
		return s.Conversation.DeveloperBlockedAt != nil
	}
	return s.Conversation.BusinessBlockedAt != nil
}

// ArchivedBy reports whether the given side has archived the conversation.
func (s *State) ArchivedBy(side store.Side) bool {
	if side == store.SideDeveloper {
		return s.Conversation.DeveloperArchivedAt != nil
	}
	return s.Conversation.BusinessArchivedAt != nil
}

// UnarchivedBy reports whether the conversation is still in user's active
// list: user has a business profile and the business side has not archived,
// or user has a developer profile and the developer side has not archived.
func (s *State) UnarchivedBy(user *store.User) bool {
	if user == nil {
		return false
	}
	return (user.BusinessID != nil && s.Conversation.BusinessArchivedAt == nil) ||
		(user.DeveloperID != nil && s.Conversation.DeveloperArchivedAt == nil)
}

// HasUnreadFor reports whether user is the conversation's unread holder.
func (s *State) HasUnreadFor(user *store.User) bool {
	return user != nil && sameRef(s.Conversation.UserWithUnreadMessagesID, &user.ID)
}

// later orders messages by creation time, then by insertion sequence.
func later(a, b *store.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.Seq > b.Seq
}

// LatestMessage returns the newest message, or nil when there are none.
func (s *State) LatestMessage() *store.Message {
	return lo.MaxBy(s.Messages, later)
}

// IsFirstReply reports whether p has sent exactly one message and that
// message is still the newest in the conversation.
func (s *State) IsFirstReply(p Participant) bool {
	if lo.CountBy(s.Messages, p.sent) != 1 {
		return false
	}
	latest := s.LatestMessage()
	return latest != nil && p.sent(latest)
}

// DeveloperReplied reports whether the developer side has sent any message.
func (s *State) DeveloperReplied() bool {
	return lo.SomeBy(s.Messages, func(m *store.Message) bool {
		return m.SenderSide == store.SideDeveloper
	})
}

// HiringFeeEligible reports whether the developer has replied and the
// conversation is at least window old at now. The boundary counts.
func (s *State) HiringFeeEligible(now time.Time, window time.Duration) bool {
	return s.DeveloperReplied() && now.Sub(s.Conversation.CreatedAt) >= window
}
