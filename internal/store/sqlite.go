// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides user, conversation, message and notification persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// timeFormat is fixed width so that lexical order in SQL matches time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger sets the logger the store writes to. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *SQLiteStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "store")

	memory := path == ":memory:"
	if !memory {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	// Pragmas go in the DSN so every pooled connection gets them
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if !memory {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Each connection to :memory: is a separate database
	if memory {
		db.SetMaxOpenConns(1)
	}

	s.db = db

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s.logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(lower(email));

		CREATE TABLE IF NOT EXISTS developers (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			name       TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS businesses (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			name       TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		-- Participant references are nulled, not cascaded, when a profile goes away
		CREATE TABLE IF NOT EXISTS conversations (
			id                           TEXT PRIMARY KEY,
			inbound_email_token          TEXT NOT NULL,
			developer_id                 TEXT REFERENCES developers(id) ON DELETE SET NULL,
			business_id                  TEXT REFERENCES businesses(id) ON DELETE SET NULL,
			developer_blocked_at         TEXT,
			business_blocked_at          TEXT,
			developer_archived_at        TEXT,
			business_archived_at         TEXT,
			user_with_unread_messages_id TEXT REFERENCES users(id) ON DELETE SET NULL,
			created_at                   TEXT NOT NULL,
			updated_at                   TEXT NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_participants
			ON conversations(developer_id, business_id);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_token
			ON conversations(lower(inbound_email_token));
		CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at);

		CREATE TABLE IF NOT EXISTS messages (
			seq             INTEGER PRIMARY KEY AUTOINCREMENT,
			id              TEXT NOT NULL UNIQUE,
			conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			sender_side     TEXT NOT NULL,
			sender_id       TEXT NOT NULL,
			body            TEXT NOT NULL,
			created_at      TEXT NOT NULL,

			CHECK (sender_side IN ('developer', 'business'))
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
			ON messages(conversation_id, created_at, seq);

		CREATE TABLE IF NOT EXISTS notifications (
			id              TEXT PRIMARY KEY,
			recipient_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			message_id      TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
			read_at         TEXT,
			created_at      TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_notifications_recipient_conversation
			ON notifications(recipient_id, conversation_id, read_at);
		CREATE INDEX IF NOT EXISTS idx_notifications_message ON notifications(message_id, recipient_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}

// nullTime returns nil for unset timestamps, otherwise the formatted value
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullString returns nil for unset references, otherwise the string value
func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func ptrString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// isUniqueViolation checks if the error is a SQLite UNIQUE constraint violation
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateUser creates a new user account.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, created_at) VALUES (?, ?, ?)
	`, user.ID, user.Email, formatTime(user.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Debug("created user", "id", user.ID)
	return nil
}

const selectUser = `
	SELECT u.id, u.email, u.created_at, d.id, b.id
	FROM users u
	LEFT JOIN developers d ON d.user_id = u.id
	LEFT JOIN businesses b ON b.user_id = u.id
`

// GetUser retrieves a user by ID together with its developer and business identities.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, selectUser+` WHERE u.id = ?`, id))
}

// GetUserByEmail retrieves a user by email, ignoring case.
// Returns ErrNotFound if no user has that email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, selectUser+` WHERE lower(u.email) = lower(?)`, email))
}

func (s *SQLiteStore) scanUser(row rowScanner) (*User, error) {
	var u User
	var createdAt string
	var developerID, businessID sql.NullString

	err := row.Scan(&u.ID, &u.Email, &createdAt, &developerID, &businessID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	u.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	u.DeveloperID = ptrString(developerID)
	u.BusinessID = ptrString(businessID)

	return &u, nil
}

// CreateDeveloper creates the developer profile of a user.
func (s *SQLiteStore) CreateDeveloper(ctx context.Context, dev *Developer) error {
	if dev.CreatedAt.IsZero() {
		dev.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO developers (id, user_id, name, created_at) VALUES (?, ?, ?, ?)
	`, dev.ID, dev.UserID, dev.Name, formatTime(dev.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting developer: %w", err)
	}

	s.logger.Debug("created developer", "id", dev.ID, "user_id", dev.UserID)
	return nil
}

// GetDeveloper retrieves a developer profile by ID.
// Returns ErrNotFound if the developer doesn't exist.
func (s *SQLiteStore) GetDeveloper(ctx context.Context, id string) (*Developer, error) {
	var d Developer
	var createdAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, created_at FROM developers WHERE id = ?
	`, id).Scan(&d.ID, &d.UserID, &d.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying developer: %w", err)
	}

	d.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &d, nil
}

// DeleteDeveloper removes a developer profile. Conversations keep existing
// with their developer reference unset.
// Returns ErrNotFound if the developer doesn't exist.
func (s *SQLiteStore) DeleteDeveloper(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "developers", id)
}

// CreateBusiness creates the business profile of a user.
func (s *SQLiteStore) CreateBusiness(ctx context.Context, biz *Business) error {
	if biz.CreatedAt.IsZero() {
		biz.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO businesses (id, user_id, name, created_at) VALUES (?, ?, ?, ?)
	`, biz.ID, biz.UserID, biz.Name, formatTime(biz.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting business: %w", err)
	}

	s.logger.Debug("created business", "id", biz.ID, "user_id", biz.UserID)
	return nil
}

// GetBusiness retrieves a business profile by ID.
// Returns ErrNotFound if the business doesn't exist.
func (s *SQLiteStore) GetBusiness(ctx context.Context, id string) (*Business, error) {
	var b Business
	var createdAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, created_at FROM businesses WHERE id = ?
	`, id).Scan(&b.ID, &b.UserID, &b.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying business: %w", err)
	}

	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &b, nil
}

// DeleteBusiness removes a business profile. Conversations keep existing
// with their business reference unset.
// Returns ErrNotFound if the business doesn't exist.
func (s *SQLiteStore) DeleteBusiness(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "businesses", id)
}

func (s *SQLiteStore) deleteByID(ctx context.Context, table, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted row", "table", table, "id", id)
	return nil
}

// CreateConversation creates a new conversation.
// Returns ErrDuplicateConversation if the developer/business pair already has one,
// and ErrDuplicateToken if the inbound email token is taken (ignoring case).
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (
			id, inbound_email_token, developer_id, business_id,
			developer_blocked_at, business_blocked_at, developer_archived_at, business_archived_at,
			user_with_unread_messages_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		conv.ID,
		conv.InboundEmailToken,
		nullString(conv.DeveloperID),
		nullString(conv.BusinessID),
		nullTime(conv.DeveloperBlockedAt),
		nullTime(conv.BusinessBlockedAt),
		nullTime(conv.DeveloperArchivedAt),
		nullTime(conv.BusinessArchivedAt),
		nullString(conv.UserWithUnreadMessagesID),
		formatTime(conv.CreatedAt),
		formatTime(conv.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "inbound_email_token") || strings.Contains(err.Error(), "idx_conversations_token") {
				return ErrDuplicateToken
			}
			return ErrDuplicateConversation
		}
		return fmt.Errorf("inserting conversation: %w", err)
	}

	s.logger.Debug("created conversation", "id", conv.ID)
	return nil
}

const selectConversation = `
	SELECT id, inbound_email_token, developer_id, business_id,
	       developer_blocked_at, business_blocked_at, developer_archived_at, business_archived_at,
	       user_with_unread_messages_id, created_at, updated_at
	FROM conversations
`

// GetConversation retrieves a conversation by ID.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	return s.scanConversation(s.db.QueryRowContext(ctx, selectConversation+` WHERE id = ?`, id))
}

// GetConversationByInboundEmailToken retrieves a conversation by its inbound
// email token. Both sides of the comparison are lowercased.
// Returns ErrNotFound if no conversation matches.
func (s *SQLiteStore) GetConversationByInboundEmailToken(ctx context.Context, token string) (*Conversation, error) {
	return s.scanConversation(s.db.QueryRowContext(ctx,
		selectConversation+` WHERE lower(inbound_email_token) = ?`, strings.ToLower(token)))
}

// GetConversationByParticipants retrieves the conversation between a developer and a business.
// Returns ErrNotFound if they have no conversation.
func (s *SQLiteStore) GetConversationByParticipants(ctx context.Context, developerID, businessID string) (*Conversation, error) {
	return s.scanConversation(s.db.QueryRowContext(ctx,
		selectConversation+` WHERE developer_id = ? AND business_id = ?`, developerID, businessID))
}

func (s *SQLiteStore) scanConversation(row rowScanner) (*Conversation, error) {
	var c Conversation
	var developerID, businessID, unreadID sql.NullString
	var devBlocked, bizBlocked, devArchived, bizArchived sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&c.ID,
		&c.InboundEmailToken,
		&developerID,
		&businessID,
		&devBlocked,
		&bizBlocked,
		&devArchived,
		&bizArchived,
		&unreadID,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}

	c.DeveloperID = ptrString(developerID)
	c.BusinessID = ptrString(businessID)
	c.UserWithUnreadMessagesID = ptrString(unreadID)

	if c.DeveloperBlockedAt, err = parseNullTime(devBlocked); err != nil {
		return nil, fmt.Errorf("parsing developer_blocked_at: %w", err)
	}
	if c.BusinessBlockedAt, err = parseNullTime(bizBlocked); err != nil {
		return nil, fmt.Errorf("parsing business_blocked_at: %w", err)
	}
	if c.DeveloperArchivedAt, err = parseNullTime(devArchived); err != nil {
		return nil, fmt.Errorf("parsing developer_archived_at: %w", err)
	}
	if c.BusinessArchivedAt, err = parseNullTime(bizArchived); err != nil {
		return nil, fmt.Errorf("parsing business_archived_at: %w", err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &c, nil
}

// UpdateConversation persists the blocked and archived timestamps of a
// conversation and bumps updated_at. The unread holder is owned by
// RecordMessage and MarkNotificationsRead and is not written here.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) UpdateConversation(ctx context.Context, conv *Conversation) error {
	conv.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx, `
		UPDATE conversations
		SET developer_blocked_at = ?, business_blocked_at = ?,
		    developer_archived_at = ?, business_archived_at = ?,
		    updated_at = ?
		WHERE id = ?
	`,
		nullTime(conv.DeveloperBlockedAt),
		nullTime(conv.BusinessBlockedAt),
		nullTime(conv.DeveloperArchivedAt),
		nullTime(conv.BusinessArchivedAt),
		formatTime(conv.UpdatedAt),
		conv.ID,
	)
	if err != nil {
		return fmt.Errorf("updating conversation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated conversation", "id", conv.ID)
	return nil
}

// scopeClause returns the WHERE condition and ORDER BY for a scope
func scopeClause(scope Scope) (string, string, error) {
	switch scope {
	case ScopeAll:
		return "", "updated_at DESC", nil
	case ScopeBlocked:
		return "(developer_blocked_at IS NOT NULL OR business_blocked_at IS NOT NULL)", "updated_at DESC", nil
	case ScopeVisible:
		return "developer_blocked_at IS NULL AND business_blocked_at IS NULL", "updated_at DESC", nil
	case ScopeArchivedByBusiness:
		return "business_archived_at IS NOT NULL", "business_archived_at DESC", nil
	case ScopeUnarchivedByBusiness:
		return "business_archived_at IS NULL", "updated_at DESC", nil
	case ScopeArchivedByDeveloper:
		return "developer_archived_at IS NOT NULL", "developer_archived_at DESC", nil
	case ScopeUnarchivedByDeveloper:
		return "developer_archived_at IS NULL", "updated_at DESC", nil
	default:
		return "", "", errUnknownScope(scope)
	}
}

// ListConversations retrieves conversations matching the filter.
// If limit is 0 or negative, a default limit of 100 is used.
func (s *SQLiteStore) ListConversations(ctx context.Context, filter ConversationFilter) ([]*Conversation, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	where, order, err := scopeClause(filter.Scope)
	if err != nil {
		return nil, err
	}

	var conds []string
	var args []any
	if where != "" {
		conds = append(conds, where)
	}
	if filter.DeveloperID != "" {
		conds = append(conds, "developer_id = ?")
		args = append(args, filter.DeveloperID)
	}
	if filter.BusinessID != "" {
		conds = append(conds, "business_id = ?")
		args = append(args, filter.BusinessID)
	}

	query := selectConversation
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY " + order + ", id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var convs []*Conversation
	for rows.Next() {
		c, err := s.scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation rows: %w", err)
	}

	return convs, nil
}

// DeleteConversation removes a conversation with its messages and notifications.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "conversations", id)
}

// RecordMessage appends a message to its conversation. In the same
// transaction it creates the recipient's unread notification, hands the
// unread flag to the recipient and bumps the conversation's updated_at.
// An empty recipientUserID records the message only.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) RecordMessage(ctx context.Context, msg *Message, recipientUserID string) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var result sql.Result
	if recipientUserID != "" {
		result, err = tx.ExecContext(ctx, `
			UPDATE conversations SET user_with_unread_messages_id = ?, updated_at = ? WHERE id = ?
		`, recipientUserID, formatTime(time.Now()), msg.ConversationID)
	} else {
		result, err = tx.ExecContext(ctx, `
			UPDATE conversations SET updated_at = ? WHERE id = ?
		`, formatTime(time.Now()), msg.ConversationID)
	}
	if err != nil {
		return fmt.Errorf("touching conversation: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	result, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_side, sender_id, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ConversationID, string(msg.SenderSide), msg.SenderID, msg.Body, formatTime(msg.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	if msg.Seq, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("reading message seq: %w", err)
	}

	if recipientUserID != "" {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO notifications (id, recipient_id, conversation_id, message_id, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, notificationID(msg.ID, recipientUserID), recipientUserID, msg.ConversationID, msg.ID, formatTime(msg.CreatedAt))
		if err != nil {
			return fmt.Errorf("inserting notification: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing message: %w", err)
	}

	s.logger.Debug("recorded message",
		"id", msg.ID,
		"conversation_id", msg.ConversationID,
		"sender_side", msg.SenderSide,
		"recipient_id", recipientUserID)
	return nil
}

// notificationID derives a stable notification ID from its message and recipient
func notificationID(messageID, recipientID string) string {
	return messageID + ":" + recipientID
}

// ListMessages retrieves all messages of a conversation in chronological
// order. Messages with equal timestamps are ordered by insertion.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, conversation_id, sender_side, sender_id, body, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, seq ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var side, createdAt string

		if err := rows.Scan(&msg.Seq, &msg.ID, &msg.ConversationID, &side, &msg.SenderID, &msg.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		msg.SenderSide = Side(side)

		msg.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing message created_at: %w", err)
		}

		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return messages, nil
}

func scanNotification(row rowScanner) (*Notification, error) {
	var n Notification
	var readAt sql.NullString
	var createdAt string

	err := row.Scan(&n.ID, &n.RecipientID, &n.ConversationID, &n.MessageID, &readAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning notification: %w", err)
	}

	if n.ReadAt, err = parseNullTime(readAt); err != nil {
		return nil, fmt.Errorf("parsing read_at: %w", err)
	}
	if n.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &n, nil
}

// GetLatestNotificationForRecipient retrieves the newest notification about a
// message addressed to a recipient.
// Returns ErrNotFound if the recipient was never notified about the message.
func (s *SQLiteStore) GetLatestNotificationForRecipient(ctx context.Context, messageID, recipientID string) (*Notification, error) {
	return scanNotification(s.db.QueryRowContext(ctx, `
		SELECT id, recipient_id, conversation_id, message_id, read_at, created_at
		FROM notifications
		WHERE message_id = ? AND recipient_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, messageID, recipientID))
}

// ListNotifications lists a recipient's notifications, newest first.
func (s *SQLiteStore) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool) ([]*Notification, error) {
	query := `
		SELECT id, recipient_id, conversation_id, message_id, read_at, created_at
		FROM notifications
		WHERE recipient_id = ?
	`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationsRead marks every unread notification addressed to userID
// in the conversation as read and, in the same transaction, clears the
// conversation's unread holder if and only if it is userID.
func (s *SQLiteStore) MarkNotificationsRead(ctx context.Context, conversationID, userID string) (*ReadReceipt, error) {
	now := formatTime(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE notifications SET read_at = ?
		WHERE conversation_id = ? AND recipient_id = ? AND read_at IS NULL
	`, now, conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("marking notifications read: %w", err)
	}
	marked, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE conversations SET user_with_unread_messages_id = NULL, updated_at = ?
		WHERE id = ? AND user_with_unread_messages_id = ?
	`, now, conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("clearing unread holder: %w", err)
	}
	cleared, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing read marks: %w", err)
	}

	s.logger.Debug("marked notifications read",
		"conversation_id", conversationID,
		"user_id", userID,
		"marked", marked,
		"unread_cleared", cleared > 0)
	return &ReadReceipt{Marked: marked, UnreadCleared: cleared > 0}, nil
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)
