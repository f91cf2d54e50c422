// Package store provides persistent storage for developer/business conversations.
//
// # Architecture
//
// A single Store interface covers the whole persistence surface:
//
//   - Users and their developer and business profiles
//   - Conversations with per-side blocked and archived timestamps
//   - Messages, ordered by creation time then insertion sequence
//   - Notifications, one per message per recipient
//
// SQLiteStore is the production implementation. MockStore keeps the same
// semantics in memory and is shared by tests across packages.
//
// # Data Models
//
//   - User: Account holding at most one developer and one business profile
//   - Conversation: Thread between one developer and one business, found by
//     ID, by participant pair, or by its inbound email token (ignoring case)
//   - Message: Body sent by one side of a conversation
//   - Notification: Unread marker for the recipient of a message
//
// Deleting a developer or business profile leaves its conversations in place
// with the participant reference unset. Deleting a conversation removes its
// messages and notifications.
//
// # Unread Holder
//
// Conversation.UserWithUnreadMessagesID names the one user with unread
// messages. RecordMessage hands it to the recipient. MarkNotificationsRead
// clears it only while it still names the reader, in the same transaction
// that marks the reader's notifications read, so a message arriving in
// between is never lost.
//
// # SQLite Configuration
//
// Every pooled connection is opened with:
//
//	PRAGMA foreign_keys=ON;
//	PRAGMA busy_timeout=5000;
//	PRAGMA journal_mode=WAL;  -- file databases only
//
// Use NewSQLiteStore(":memory:") for throwaway databases. Pass WithLogger to
// log through the process logger instead of slog.Default().
//
// # Error Handling
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrDuplicateConversation: Developer/business pair already has a conversation
//   - ErrDuplicateToken: Inbound email token already taken
//   - ErrUnknownScope: ConversationFilter names an unsupported scope
//
// All methods accept context.Context for cancellation support.
package store
