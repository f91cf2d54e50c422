// ABOUTME: Tests for the conversation Service
// ABOUTME: Runs lifecycle scenarios on SQLite and MockStore, and collaborator failures on gomock mocks

package conversation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/JuzerShakir/railsdevs.com/internal/conversation/mocks"
	"github.com/JuzerShakir/railsdevs.com/internal/store"
)

func createTestStore(t *testing.T) *store.SQLiteStore {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// harness wires a Service to a seeded store with a developer, a business
// and a controllable clock.
type harness struct {
	store       store.Store
	svc         *Service
	broadcaster *EventBroadcaster
	now         time.Time
}

func (h *harness) tick() { h.now = h.now.Add(time.Minute) }

func newHarness(t *testing.T, s store.Store) *harness {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &store.User{ID: "user-dev", Email: "dev@example.com"}))
	require.NoError(t, s.CreateUser(ctx, &store.User{ID: "user-biz", Email: "biz@example.com"}))
	require.NoError(t, s.CreateUser(ctx, &store.User{ID: "user-x", Email: "x@example.com"}))
	require.NoError(t, s.CreateDeveloper(ctx, &store.Developer{ID: "dev-1", UserID: "user-dev", Name: "Dana"}))
	require.NoError(t, s.CreateBusiness(ctx, &store.Business{ID: "biz-1", UserID: "user-biz", Name: "Acme"}))

	h := &harness{
		store:       s,
		broadcaster: NewEventBroadcaster(nil),
		now:         time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	t.Cleanup(h.broadcaster.Close)
	h.svc = New(DepsFromStore(s), Settings{Now: func() time.Time { return h.now }}, h.broadcaster, nil)
	return h
}

func (h *harness) start(t *testing.T) *State {
	t.Helper()
	state, err := h.svc.Start(context.Background(), StartRequest{DeveloperID: "dev-1", BusinessID: "biz-1"})
	require.NoError(t, err)
	return state
}

func (h *harness) send(t *testing.T, conversationID, userID, body string) *SendResult {
	t.Helper()
	h.tick()
	res, err := h.svc.SendMessage(context.Background(), SendRequest{
		ConversationID: conversationID,
		SenderUserID:   userID,
		Body:           body,
	})
	require.NoError(t, err)
	return res
}

func forEachStore(t *testing.T, fn func(t *testing.T, h *harness)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, newHarness(t, createTestStore(t))) })
	t.Run("mock", func(t *testing.T) { fn(t, newHarness(t, store.NewMockStore())) })
}

func TestService_Start(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		state := h.start(t)

		token := state.Conversation.InboundEmailToken
		assert.Len(t, token, tokenLength)
		for _, r := range token {
			assert.True(t, strings.ContainsRune(base58Alphabet, r), "unexpected token character %q", r)
		}
		assert.True(t, state.Conversation.CreatedAt.Equal(h.now))
		assert.Empty(t, state.Messages)

		_, err := h.svc.Start(ctx, StartRequest{DeveloperID: "dev-1", BusinessID: "biz-1"})
		assert.ErrorIs(t, err, store.ErrDuplicateConversation)

		_, err = h.svc.Start(ctx, StartRequest{DeveloperID: "dev-404", BusinessID: "biz-1"})
		assert.ErrorIs(t, err, store.ErrNotFound)

		_, err = h.svc.Start(ctx, StartRequest{BusinessID: "biz-1"})
		assert.Error(t, err)
	})
}

func TestService_ResolveTokenIgnoresCase(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		state := h.start(t)
		token := state.Conversation.InboundEmailToken

		for _, variant := range []string{token, strings.ToLower(token), strings.ToUpper(token)} {
			conv, err := h.svc.ResolveToken(ctx, variant)
			require.NoError(t, err, variant)
			assert.Equal(t, state.Conversation.ID, conv.ID)
		}

		loaded, err := h.svc.LoadByToken(ctx, strings.ToUpper(token))
		require.NoError(t, err)
		assert.Equal(t, state.Conversation.ID, loaded.Conversation.ID)

		_, err = h.svc.ResolveToken(ctx, "no-such-token")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestService_SendMessage(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		conv := h.start(t).Conversation

		first := h.send(t, conv.ID, "user-biz", "Interested in a contract role?")
		assert.True(t, first.FirstReply)
		assert.Equal(t, store.SideBusiness, first.Message.SenderSide)
		assert.Equal(t, "biz-1", first.Message.SenderID)

		state, err := h.svc.Load(ctx, conv.ID)
		require.NoError(t, err)
		require.Len(t, state.Messages, 1)
		assert.True(t, state.HasUnreadFor(&store.User{ID: "user-dev"}))

		second := h.send(t, conv.ID, "user-biz", "Following up")
		assert.False(t, second.FirstReply, "business has now sent two messages")

		reply := h.send(t, conv.ID, "user-dev", "Yes!")
		assert.True(t, reply.FirstReply)

		state, err = h.svc.Load(ctx, conv.ID)
		require.NoError(t, err)
		require.Len(t, state.Messages, 3)
		assert.Equal(t, reply.Message.ID, state.LatestMessage().ID)
		assert.True(t, state.HasUnreadFor(&store.User{ID: "user-biz"}))
		assert.False(t, state.HasUnreadFor(&store.User{ID: "user-dev"}))
		assert.True(t, state.DeveloperReplied())
	})
}

func TestService_SendMessageRejections(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		conv := h.start(t).Conversation

		_, err := h.svc.SendMessage(ctx, SendRequest{ConversationID: conv.ID, SenderUserID: "user-x", Body: "hi"})
		assert.ErrorIs(t, err, ErrNotParticipant)

		_, err = h.svc.SendMessage(ctx, SendRequest{ConversationID: conv.ID, SenderUserID: "user-dev"})
		assert.Error(t, err, "empty body")

		_, err = h.svc.SendMessage(ctx, SendRequest{ConversationID: "missing", SenderUserID: "user-dev", Body: "hi"})
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = h.svc.Block(ctx, conv.ID, "user-biz")
		require.NoError(t, err)
		_, err = h.svc.SendMessage(ctx, SendRequest{ConversationID: conv.ID, SenderUserID: "user-dev", Body: "hi"})
		assert.ErrorIs(t, err, ErrBlocked)

		_, err = h.svc.Unblock(ctx, conv.ID, "user-biz")
		require.NoError(t, err)
		h.send(t, conv.ID, "user-dev", "hi again")

		require.NoError(t, h.store.DeleteDeveloper(ctx, "dev-1"))
		_, err = h.svc.SendMessage(ctx, SendRequest{ConversationID: conv.ID, SenderUserID: "user-biz", Body: "still there?"})
		assert.ErrorIs(t, err, ErrOrphaned)
	})
}

func TestService_SendMessagePublishesToBothUsers(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		conv := h.start(t).Conversation
		dev := h.broadcaster.Subscribe(t.Context(), "user-dev")
		biz := h.broadcaster.Subscribe(t.Context(), "user-biz")

		res := h.send(t, conv.ID, "user-dev", "hello")

		for _, ch := range []<-chan *Event{dev.Events, biz.Events} {
			ev := receive(t, ch)
			assert.Equal(t, EventMessageSent, ev.Type)
			assert.Equal(t, res.Message.ID, ev.MessageID)
			assert.Equal(t, "user-dev", ev.ActorUserID)
		}
	})
}

func TestService_EventsSkipTheActingSession(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		conv := h.start(t).Conversation
		acting := h.broadcaster.Subscribe(t.Context(), "user-dev")
		otherTab := h.broadcaster.Subscribe(t.Context(), "user-dev")
		biz := h.broadcaster.Subscribe(t.Context(), "user-biz")

		ctx := WithOrigin(context.Background(), acting.ID)
		_, err := h.svc.SendMessage(ctx, SendRequest{ConversationID: conv.ID, SenderUserID: "user-dev", Body: "hello"})
		require.NoError(t, err)
		_, err = h.svc.Archive(ctx, conv.ID, "user-dev")
		require.NoError(t, err)

		assert.Equal(t, EventMessageSent, receive(t, otherTab.Events).Type)
		assert.Equal(t, EventArchived, receive(t, otherTab.Events).Type)
		assert.Equal(t, EventMessageSent, receive(t, biz.Events).Type)
		select {
		case ev := <-acting.Events:
			t.Fatalf("acting session was sent its own %s event", ev.Type)
		case <-time.After(100 * time.Millisecond):
		}
	})
}

func TestService_ConcurrentSendsHaveOneFirstReply(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		conv := h.start(t).Conversation

		var wg sync.WaitGroup
		var mu sync.Mutex
		firstReplies := 0
		for i := range 8 {
			wg.Go(func() {
				res, err := h.svc.SendMessage(context.Background(), SendRequest{
					ConversationID: conv.ID,
					SenderUserID:   "user-dev",
					Body:           fmt.Sprintf("message %d", i),
				})
				if !assert.NoError(t, err) {
					return
				}
				if res.FirstReply {
					mu.Lock()
					firstReplies++
					mu.Unlock()
				}
			})
		}
		wg.Wait()

		assert.Equal(t, 1, firstReplies)
	})
}

func TestService_MarkNotificationsRead(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		conv := h.start(t).Conversation
		h.send(t, conv.ID, "user-biz", "one")
		h.send(t, conv.ID, "user-biz", "two")

		// Not the holder: nothing to mark, holder unchanged
		receipt, err := h.svc.MarkNotificationsRead(ctx, conv.ID, "user-biz")
		require.NoError(t, err)
		assert.Equal(t, int64(0), receipt.Marked)
		assert.False(t, receipt.UnreadCleared)

		state, err := h.svc.Load(ctx, conv.ID)
		require.NoError(t, err)
		assert.True(t, state.HasUnreadFor(&store.User{ID: "user-dev"}))

		reader := h.broadcaster.Subscribe(t.Context(), "user-dev")
		receipt, err = h.svc.MarkNotificationsRead(ctx, conv.ID, "user-dev")
		require.NoError(t, err)
		assert.Equal(t, int64(2), receipt.Marked)
		assert.True(t, receipt.UnreadCleared)
		assert.Equal(t, EventConversationRead, receive(t, reader.Events).Type)

		state, err = h.svc.Load(ctx, conv.ID)
		require.NoError(t, err)
		assert.False(t, state.HasUnreadFor(&store.User{ID: "user-dev"}))
		assert.Nil(t, state.Conversation.UserWithUnreadMessagesID)

		unread, err := h.store.ListNotifications(ctx, "user-dev", true)
		require.NoError(t, err)
		assert.Empty(t, unread)
	})
}

func TestService_LatestMessageReadByOtherRecipient(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		state := h.start(t)
		convID := state.Conversation.ID

		read, err := h.svc.LatestMessageReadByOtherRecipient(ctx, state, "user-biz")
		require.NoError(t, err)
		assert.False(t, read, "no messages")

		h.send(t, convID, "user-biz", "ping")
		state, err = h.svc.Load(ctx, convID)
		require.NoError(t, err)

		read, err = h.svc.LatestMessageReadByOtherRecipient(ctx, state, "user-biz")
		require.NoError(t, err)
		assert.False(t, read, "developer has not read yet")

		_, err = h.svc.MarkNotificationsRead(ctx, convID, "user-dev")
		require.NoError(t, err)
		read, err = h.svc.LatestMessageReadByOtherRecipient(ctx, state, "user-biz")
		require.NoError(t, err)
		assert.True(t, read)

		// The developer's own message was never addressed to the developer
		read, err = h.svc.LatestMessageReadByOtherRecipient(ctx, state, "user-dev")
		require.NoError(t, err)
		assert.False(t, read)

		// Only the newest message counts
		h.send(t, convID, "user-biz", "pong")
		state, err = h.svc.Load(ctx, convID)
		require.NoError(t, err)
		read, err = h.svc.LatestMessageReadByOtherRecipient(ctx, state, "user-biz")
		require.NoError(t, err)
		assert.False(t, read)

		_, err = h.svc.LatestMessageReadByOtherRecipient(ctx, state, "user-x")
		assert.ErrorIs(t, err, ErrNotParticipant)
	})
}

func TestService_BlockAndArchive(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		convID := h.start(t).Conversation.ID

		h.tick()
		blockedAt := h.now
		state, err := h.svc.Block(ctx, convID, "user-dev")
		require.NoError(t, err)
		assert.True(t, state.BlockedBy(store.SideDeveloper))
		assert.False(t, state.BlockedBy(store.SideBusiness))

		// Blocking again keeps the original timestamp
		h.tick()
		state, err = h.svc.Block(ctx, convID, "user-dev")
		require.NoError(t, err)
		assert.True(t, state.Conversation.DeveloperBlockedAt.Equal(blockedAt))

		state, err = h.svc.Archive(ctx, convID, "user-biz")
		require.NoError(t, err)
		assert.True(t, state.ArchivedBy(store.SideBusiness))

		loaded, err := h.svc.Load(ctx, convID)
		require.NoError(t, err)
		assert.True(t, loaded.IsBlocked())
		assert.True(t, loaded.ArchivedBy(store.SideBusiness))
		assert.False(t, loaded.ArchivedBy(store.SideDeveloper))

		devUser, err := h.store.GetUser(ctx, "user-dev")
		require.NoError(t, err)
		bizUser, err := h.store.GetUser(ctx, "user-biz")
		require.NoError(t, err)
		assert.False(t, loaded.UnarchivedBy(bizUser))
		assert.True(t, loaded.UnarchivedBy(devUser))

		state, err = h.svc.Unblock(ctx, convID, "user-dev")
		require.NoError(t, err)
		assert.True(t, state.IsVisible())

		state, err = h.svc.Unarchive(ctx, convID, "user-biz")
		require.NoError(t, err)
		assert.False(t, state.ArchivedBy(store.SideBusiness))

		_, err = h.svc.Archive(ctx, convID, "user-x")
		assert.ErrorIs(t, err, ErrNotParticipant)
	})
}

func TestService_Inbox(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		convID := h.start(t).Conversation.ID

		active, err := h.svc.Inbox(ctx, "user-biz", store.SideBusiness, false)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, convID, active[0].ID)

		_, err = h.svc.Archive(ctx, convID, "user-biz")
		require.NoError(t, err)

		active, err = h.svc.Inbox(ctx, "user-biz", store.SideBusiness, false)
		require.NoError(t, err)
		assert.Empty(t, active)

		archived, err := h.svc.Inbox(ctx, "user-biz", store.SideBusiness, true)
		require.NoError(t, err)
		require.Len(t, archived, 1)

		// Archival is per side
		devActive, err := h.svc.Inbox(ctx, "user-dev", store.SideDeveloper, false)
		require.NoError(t, err)
		assert.Len(t, devActive, 1)

		_, err = h.svc.Inbox(ctx, "user-dev", store.SideBusiness, false)
		assert.ErrorIs(t, err, ErrNotParticipant)

		_, err = h.svc.Inbox(ctx, "user-dev", store.Side("recruiter"), false)
		assert.Error(t, err)
	})
}

func TestService_HiringFeeEligibleUsesClockAndWindow(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		convID := h.start(t).Conversation.ID
		created := h.now

		h.send(t, convID, "user-biz", "hello")
		h.now = created.Add(20 * 24 * time.Hour)
		state, err := h.svc.Load(ctx, convID)
		require.NoError(t, err)
		assert.False(t, h.svc.HiringFeeEligible(state), "developer never replied")

		h.send(t, convID, "user-dev", "hi")
		state, err = h.svc.Load(ctx, convID)
		require.NoError(t, err)

		h.now = created.Add(DefaultHiringFeeWindow)
		assert.True(t, h.svc.HiringFeeEligible(state))
		h.now = created.Add(DefaultHiringFeeWindow - time.Second)
		assert.False(t, h.svc.HiringFeeEligible(state))
	})
}

func TestService_Delete(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		convID := h.start(t).Conversation.ID
		h.send(t, convID, "user-dev", "bye")

		require.NoError(t, h.svc.Delete(ctx, convID))

		_, err := h.svc.Load(ctx, convID)
		assert.ErrorIs(t, err, ErrNotFound)

		msgs, err := h.store.ListMessages(ctx, convID)
		require.NoError(t, err)
		assert.Empty(t, msgs)

		assert.ErrorIs(t, h.svc.Delete(ctx, convID), ErrNotFound)
	})
}

// mockDeps builds a Service on gomock collaborators.
type mockDeps struct {
	conversations *mocks.MockConversationStore
	messages      *mocks.MockMessageStore
	notifications *mocks.MockNotificationIndex
	identities    *mocks.MockIdentityResolver
	svc           *Service
}

func newMockDeps(t *testing.T) *mockDeps {
	ctrl := gomock.NewController(t)
	m := &mockDeps{
		conversations: mocks.NewMockConversationStore(ctrl),
		messages:      mocks.NewMockMessageStore(ctrl),
		notifications: mocks.NewMockNotificationIndex(ctrl),
		identities:    mocks.NewMockIdentityResolver(ctrl),
	}
	m.svc = New(Deps{
		Conversations: m.conversations,
		Messages:      m.messages,
		Notifications: m.notifications,
		Identities:    m.identities,
	}, Settings{}, nil, nil)
	return m
}

var errStoreDown = errors.New("store unavailable")

func mockConversation() *store.Conversation {
	return &store.Conversation{ID: "conv-1", DeveloperID: ptr("dev-1"), BusinessID: ptr("biz-1")}
}

func TestService_CollaboratorFailuresPropagate(t *testing.T) {
	ctx := context.Background()

	t.Run("token lookup", func(t *testing.T) {
		m := newMockDeps(t)
		m.conversations.EXPECT().GetConversationByInboundEmailToken(gomock.Any(), "abc").Return(nil, errStoreDown)

		_, err := m.svc.ResolveToken(ctx, "abc")
		assert.ErrorIs(t, err, errStoreDown)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("message listing", func(t *testing.T) {
		m := newMockDeps(t)
		m.conversations.EXPECT().GetConversation(gomock.Any(), "conv-1").Return(mockConversation(), nil)
		m.messages.EXPECT().ListMessages(gomock.Any(), "conv-1").Return(nil, errStoreDown)

		_, err := m.svc.Load(ctx, "conv-1")
		assert.ErrorIs(t, err, errStoreDown)
	})

	t.Run("read marking", func(t *testing.T) {
		m := newMockDeps(t)
		m.notifications.EXPECT().MarkNotificationsRead(gomock.Any(), "conv-1", "user-dev").Return(nil, errStoreDown)

		_, err := m.svc.MarkNotificationsRead(ctx, "conv-1", "user-dev")
		assert.ErrorIs(t, err, errStoreDown)
	})

	t.Run("notification lookup", func(t *testing.T) {
		m := newMockDeps(t)
		state := NewState(mockConversation(), []*store.Message{
			{ID: "m1", SenderSide: store.SideDeveloper, SenderID: "dev-1"},
		})
		m.identities.EXPECT().GetUser(gomock.Any(), "user-dev").Return(devUser, nil)
		m.identities.EXPECT().GetBusiness(gomock.Any(), "biz-1").Return(&store.Business{ID: "biz-1", UserID: "user-biz"}, nil)
		m.notifications.EXPECT().GetLatestNotificationForRecipient(gomock.Any(), "m1", "user-biz").Return(nil, errStoreDown)

		_, err := m.svc.LatestMessageReadByOtherRecipient(ctx, state, "user-dev")
		assert.ErrorIs(t, err, errStoreDown)
	})

	t.Run("identity resolution", func(t *testing.T) {
		m := newMockDeps(t)
		m.conversations.EXPECT().GetConversation(gomock.Any(), "conv-1").Return(mockConversation(), nil)
		m.messages.EXPECT().ListMessages(gomock.Any(), "conv-1").Return(nil, nil)
		m.identities.EXPECT().GetUser(gomock.Any(), "user-dev").Return(nil, errStoreDown)

		_, err := m.svc.SendMessage(ctx, SendRequest{ConversationID: "conv-1", SenderUserID: "user-dev", Body: "hi"})
		assert.ErrorIs(t, err, errStoreDown)
	})

	t.Run("message recording", func(t *testing.T) {
		m := newMockDeps(t)
		m.conversations.EXPECT().GetConversation(gomock.Any(), "conv-1").Return(mockConversation(), nil)
		m.messages.EXPECT().ListMessages(gomock.Any(), "conv-1").Return(nil, nil)
		m.identities.EXPECT().GetUser(gomock.Any(), "user-dev").Return(devUser, nil)
		m.identities.EXPECT().GetBusiness(gomock.Any(), "biz-1").Return(&store.Business{ID: "biz-1", UserID: "user-biz"}, nil)
		m.messages.EXPECT().RecordMessage(gomock.Any(), gomock.Any(), "user-biz").Return(errStoreDown)

		_, err := m.svc.SendMessage(ctx, SendRequest{ConversationID: "conv-1", SenderUserID: "user-dev", Body: "hi"})
		assert.ErrorIs(t, err, errStoreDown)
	})
}

func TestService_LatestMessageReadWithoutNotification(t *testing.T) {
	m := newMockDeps(t)
	state := NewState(mockConversation(), []*store.Message{
		{ID: "m1", SenderSide: store.SideDeveloper, SenderID: "dev-1"},
	})
	m.identities.EXPECT().GetUser(gomock.Any(), "user-dev").Return(devUser, nil)
	m.identities.EXPECT().GetBusiness(gomock.Any(), "biz-1").Return(&store.Business{ID: "biz-1", UserID: "user-biz"}, nil)
	m.notifications.EXPECT().GetLatestNotificationForRecipient(gomock.Any(), "m1", "user-biz").Return(nil, store.ErrNotFound)

	read, err := m.svc.LatestMessageReadByOtherRecipient(context.Background(), state, "user-dev")
	require.NoError(t, err)
	assert.False(t, read)
}

func TestService_StartRetriesTokenCollisions(t *testing.T) {
	m := newMockDeps(t)
	m.identities.EXPECT().GetDeveloper(gomock.Any(), "dev-1").Return(&store.Developer{ID: "dev-1"}, nil)
	m.identities.EXPECT().GetBusiness(gomock.Any(), "biz-1").Return(&store.Business{ID: "biz-1"}, nil)

	var tokens []string
	gomock.InOrder(
		m.conversations.EXPECT().CreateConversation(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, c *store.Conversation) error {
				tokens = append(tokens, c.InboundEmailToken)
				return store.ErrDuplicateToken
			}),
		m.conversations.EXPECT().CreateConversation(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, c *store.Conversation) error {
				tokens = append(tokens, c.InboundEmailToken)
				return nil
			}),
	)

	state, err := m.svc.Start(context.Background(), StartRequest{DeveloperID: "dev-1", BusinessID: "biz-1"})
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.NotEqual(t, tokens[0], tokens[1])
	assert.Equal(t, tokens[1], state.Conversation.InboundEmailToken)
}

func TestService_StartGivesUpAfterRepeatedCollisions(t *testing.T) {
	m := newMockDeps(t)
	m.identities.EXPECT().GetDeveloper(gomock.Any(), "dev-1").Return(&store.Developer{ID: "dev-1"}, nil)
	m.identities.EXPECT().GetBusiness(gomock.Any(), "biz-1").Return(&store.Business{ID: "biz-1"}, nil)
	m.conversations.EXPECT().CreateConversation(gomock.Any(), gomock.Any()).
		Return(store.ErrDuplicateToken).Times(maxTokenAttempts)

	_, err := m.svc.Start(context.Background(), StartRequest{DeveloperID: "dev-1", BusinessID: "biz-1"})
	assert.ErrorIs(t, err, store.ErrDuplicateToken)
}

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		token, err := generateToken()
		require.NoError(t, err)
		require.Len(t, token, tokenLength)
		assert.False(t, seen[token], "duplicate token %s", token)
		seen[token] = true
	}
}
