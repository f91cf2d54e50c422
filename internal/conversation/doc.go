// Package conversation implements the rules of a developer/business conversation.
//
// # State
//
// State wraps a loaded conversation and its messages and answers questions
// about it without touching storage:
//
//   - IsOrphaned: the developer or business profile was removed
//   - IsDeveloper / IsBusiness / SideOf / OtherParticipant: which side a user acts for
//   - IsBlocked / IsVisible / BlockedBy: blocking by either side hides the conversation
//   - ArchivedBy / UnarchivedBy: archival is tracked per side
//   - HasUnreadFor: whether a specific user holds the unread flag
//   - LatestMessage: newest by creation time, then by insertion sequence
//   - IsFirstReply: the sender has exactly one message and it is the newest
//   - DeveloperReplied / HiringFeeEligible: the developer has replied and the
//     conversation is old enough for a hiring fee
//
// Side resolution compares the user's developer and business profiles against
// the conversation's references. A user on neither side gets ErrNotParticipant.
//
// # Service
//
// Service performs the mutations and the queries that need storage:
//
//	svc := conversation.New(conversation.DepsFromStore(s), conversation.Settings{}, broadcaster, logger)
//
// Key operations:
//
//   - Start(ctx, req): Create a conversation with a fresh inbound email token
//   - ResolveToken / LoadByToken: Find a conversation by token, ignoring case
//   - SendMessage(ctx, req): Record a message and hand the unread flag to the recipient
//   - Block / Unblock / Archive / Unarchive: Toggle the acting side's timestamps
//   - MarkNotificationsRead: Mark a user's notifications read and clear their unread flag
//   - LatestMessageReadByOtherRecipient: Read receipt for the newest message
//   - Inbox: Active or archived conversations for one side of a user
//
// The service depends on four narrow interfaces (ConversationStore,
// MessageStore, NotificationIndex, IdentityResolver). Their errors are wrapped
// with context and remain matchable with errors.Is.
//
// # Event Broadcasting
//
// EventBroadcaster fans out events per user ID so open inboxes can refresh:
//
//	sub := broadcaster.Subscribe(ctx, userID)
//	for ev := range sub.Events { ... }
//
// Events: message_sent, conversation_read, blocked, unblocked, archived,
// unarchived. Slow sessions drop events rather than block senders. A call
// made with WithOrigin(ctx, sub.ID) is not echoed to that session.
package conversation
