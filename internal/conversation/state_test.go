// ABOUTME: Tests for State predicates over a loaded conversation
// ABOUTME: Covers sides, blocking, archival, unread holder, first reply and hiring fee rules

package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuzerShakir/railsdevs.com/internal/store"
)

func ptr[T any](v T) *T { return &v }

var (
	devUser  = &store.User{ID: "user-dev", DeveloperID: ptr("dev-1")}
	bizUser  = &store.User{ID: "user-biz", BusinessID: ptr("biz-1")}
	stranger = &store.User{ID: "user-x", DeveloperID: ptr("dev-9"), BusinessID: ptr("biz-9")}
)

func newTestState(messages ...*store.Message) *State {
	return NewState(&store.Conversation{
		ID:          "conv-1",
		DeveloperID: ptr("dev-1"),
		BusinessID:  ptr("biz-1"),
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}, messages)
}

func msg(id string, side store.Side, at time.Time, seq int64) *store.Message {
	senderID := "biz-1"
	if side == store.SideDeveloper {
		senderID = "dev-1"
	}
	return &store.Message{ID: id, ConversationID: "conv-1", SenderSide: side, SenderID: senderID, CreatedAt: at, Seq: seq}
}

func TestState_VisibleIsNotBlocked(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name       string
		devBlocked *time.Time
		bizBlocked *time.Time
		blocked    bool
	}{
		{"neither", nil, nil, false},
		{"developer", &now, nil, true},
		{"business", nil, &now, true},
		{"both", &now, &now, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestState()
			s.Conversation.DeveloperBlockedAt = tc.devBlocked
			s.Conversation.BusinessBlockedAt = tc.bizBlocked

			assert.Equal(t, tc.blocked, s.IsBlocked())
			assert.Equal(t, !tc.blocked, s.IsVisible())
			assert.Equal(t, tc.devBlocked != nil, s.BlockedBy(store.SideDeveloper))
			assert.Equal(t, tc.bizBlocked != nil, s.BlockedBy(store.SideBusiness))
		})
	}
}

func TestState_Sides(t *testing.T) {
	s := newTestState()

	assert.True(t, s.IsDeveloper(devUser))
	assert.False(t, s.IsBusiness(devUser))
	assert.True(t, s.IsBusiness(bizUser))
	assert.False(t, s.IsDeveloper(bizUser))
	assert.False(t, s.IsDeveloper(stranger))
	assert.False(t, s.IsBusiness(stranger))
	assert.False(t, s.IsDeveloper(nil))
}

func TestState_OtherParticipant(t *testing.T) {
	s := newTestState()

	other, err := s.OtherParticipant(devUser)
	require.NoError(t, err)
	assert.Equal(t, Participant{Side: store.SideBusiness, ID: "biz-1"}, other)

	other, err = s.OtherParticipant(bizUser)
	require.NoError(t, err)
	assert.Equal(t, Participant{Side: store.SideDeveloper, ID: "dev-1"}, other)

	_, err = s.OtherParticipant(stranger)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestState_OrphanedReferencesNeverMatch(t *testing.T) {
	s := newTestState()
	s.Conversation.DeveloperID = nil
	assert.True(t, s.IsOrphaned())

	// A user without a developer profile must not match the unset developer
	noProfile := &store.User{ID: "user-none"}
	assert.False(t, s.IsDeveloper(noProfile))
	_, err := s.OtherParticipant(noProfile)
	assert.ErrorIs(t, err, ErrNotParticipant)

	// The business can still find the removed developer side
	other, err := s.OtherParticipant(bizUser)
	require.NoError(t, err)
	assert.Equal(t, store.SideDeveloper, other.Side)
	assert.False(t, other.Present())

	assert.False(t, newTestState().IsOrphaned())
}

func TestState_UnarchivedBy(t *testing.T) {
	s := newTestState()
	assert.True(t, s.UnarchivedBy(devUser))
	assert.True(t, s.UnarchivedBy(bizUser))

	s.Conversation.BusinessArchivedAt = ptr(time.Now())
	assert.False(t, s.UnarchivedBy(bizUser), "business archived")
	assert.True(t, s.UnarchivedBy(devUser), "developer has not archived")
	assert.True(t, s.ArchivedBy(store.SideBusiness))
	assert.False(t, s.ArchivedBy(store.SideDeveloper))

	assert.False(t, s.UnarchivedBy(&store.User{ID: "user-none"}), "no profiles")
	assert.False(t, s.UnarchivedBy(nil))
}

func TestState_HasUnreadForIsIdentity(t *testing.T) {
	s := newTestState()
	assert.False(t, s.HasUnreadFor(devUser))
	assert.False(t, s.HasUnreadFor(bizUser))

	s.Conversation.UserWithUnreadMessagesID = ptr(bizUser.ID)
	assert.True(t, s.HasUnreadFor(bizUser))
	assert.False(t, s.HasUnreadFor(devUser))

	// Same role, different account
	otherBizUser := &store.User{ID: "user-biz-2", BusinessID: ptr("biz-1")}
	assert.False(t, s.HasUnreadFor(otherBizUser))

	// An empty ID never matches an unset holder
	s.Conversation.UserWithUnreadMessagesID = nil
	assert.False(t, s.HasUnreadFor(&store.User{}))
}

func TestState_LatestMessageIgnoresInsertionOrder(t *testing.T) {
	t1 := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	t3 := t2.Add(time.Minute)

	s := newTestState(
		msg("m3", store.SideBusiness, t3, 1),
		msg("m1", store.SideDeveloper, t1, 2),
		msg("m2", store.SideBusiness, t2, 3),
	)
	require.NotNil(t, s.LatestMessage())
	assert.Equal(t, "m3", s.LatestMessage().ID)

	assert.Nil(t, newTestState().LatestMessage())
}

func TestState_LatestMessageBreaksTiesBySeq(t *testing.T) {
	at := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	s := newTestState(
		msg("second", store.SideBusiness, at, 8),
		msg("first", store.SideDeveloper, at, 7),
	)
	assert.Equal(t, "second", s.LatestMessage().ID)
}

func TestState_IsFirstReply(t *testing.T) {
	at := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	s := newTestState()
	dev := s.Participant(store.SideDeveloper)
	biz := s.Participant(store.SideBusiness)

	assert.False(t, s.IsFirstReply(dev), "no messages")

	s.Messages = append(s.Messages, msg("m1", store.SideDeveloper, at, 1))
	assert.True(t, s.IsFirstReply(dev))
	assert.False(t, s.IsFirstReply(biz))

	s.Messages = append(s.Messages, msg("m2", store.SideBusiness, at.Add(time.Minute), 2))
	assert.False(t, s.IsFirstReply(dev), "no longer the newest")
	assert.True(t, s.IsFirstReply(biz))

	s.Messages = append(s.Messages, msg("m3", store.SideDeveloper, at.Add(2*time.Minute), 3))
	assert.False(t, s.IsFirstReply(dev), "second message by the same sender")
	assert.False(t, s.IsFirstReply(biz))
}

func TestState_HiringFeeEligible(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("no developer message", func(t *testing.T) {
		s := newTestState(msg("m1", store.SideBusiness, created, 1))
		now := created.Add(20 * 24 * time.Hour)
		assert.False(t, s.DeveloperReplied())
		assert.False(t, s.HiringFeeEligible(now, DefaultHiringFeeWindow))
	})

	t.Run("developer replied", func(t *testing.T) {
		s := newTestState(
			msg("m1", store.SideBusiness, created, 1),
			msg("m2", store.SideDeveloper, created.Add(time.Hour), 2),
		)
		assert.True(t, s.DeveloperReplied())

		boundary := created.Add(DefaultHiringFeeWindow)
		assert.False(t, s.HiringFeeEligible(boundary.Add(-time.Nanosecond), DefaultHiringFeeWindow))
		assert.True(t, s.HiringFeeEligible(boundary, DefaultHiringFeeWindow), "exactly 14 days counts")
		assert.True(t, s.HiringFeeEligible(boundary.Add(time.Hour), DefaultHiringFeeWindow))
	})

	t.Run("custom window", func(t *testing.T) {
		s := newTestState(msg("m1", store.SideDeveloper, created, 1))
		assert.True(t, s.HiringFeeEligible(created.Add(48*time.Hour), 48*time.Hour))
	})
}
