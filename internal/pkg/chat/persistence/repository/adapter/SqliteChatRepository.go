package adapter

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
	repository "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/persistence/repository/port"
	userport "github.com/LingwalAnkit/NavShiksha-Chat/internal/repository/port"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// SqliteChatRepository is the single-file store for small deployments. It
// serves both the chat and the user ports from one database handle.
type SqliteChatRepository struct {
	db *sql.DB
}

var (
	_ repository.ChatRepository = (*SqliteChatRepository)(nil)
	_ userport.UserRepository   = (*SqliteChatRepository)(nil)
)

func NewSqliteChatRepository(db *sql.DB) *SqliteChatRepository {
	return &SqliteChatRepository{db: db}
}

type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func sqliteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return chat.ErrNotFound
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return chat.ErrConflict
		case sqlite3.ErrConstraintForeignKey:
			return chat.ErrNotFound
		}
	}
	return err
}

func nanos(t time.Time) int64 { return t.UTC().UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

func nullableTime(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// placeholders returns "?,?,?" and the ids as driver args.
func placeholders(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

// ===================== Users =====================

const sqliteUserColumns = `u.id, u.email, u.name, u.image, u.created_at, u.last_seen_at`

type userRow struct {
	id, email, name string
	image           sql.NullString
	created         int64
	lastSeen        sql.NullInt64
}

func (u *userRow) dest() []any {
	return []any{&u.id, &u.email, &u.name, &u.image, &u.created, &u.lastSeen}
}

func (u *userRow) user() chat.User {
	return chat.User{
		ID:         u.id,
		Email:      u.email,
		Name:       u.name,
		Image:      nullableString(u.image),
		CreatedAt:  fromNanos(u.created),
		LastSeenAt: nullableTime(u.lastSeen),
	}
}

func (r *SqliteChatRepository) findUser(ctx context.Context, where string, arg string) (*chat.User, error) {
	var row userRow
	err := r.db.QueryRowContext(ctx, `SELECT `+sqliteUserColumns+` FROM users u WHERE `+where, arg).Scan(row.dest()...)
	if err != nil {
		return nil, sqliteError(err)
	}
	u := row.user()
	return &u, nil
}

func (r *SqliteChatRepository) FindByID(ctx context.Context, id string) (*chat.User, error) {
	return r.findUser(ctx, `u.id = ?`, id)
}

func (r *SqliteChatRepository) FindByEmail(ctx context.Context, email string) (*chat.User, error) {
	return r.findUser(ctx, `u.email = ?`, email)
}

func (r *SqliteChatRepository) ListExcept(ctx context.Context, userID string) ([]chat.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sqliteUserColumns+` FROM users u WHERE u.id <> ? ORDER BY u.created_at DESC, u.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chat.User
	for rows.Next() {
		var row userRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, err
		}
		out = append(out, row.user())
	}
	return out, rows.Err()
}

func (r *SqliteChatRepository) Upsert(ctx context.Context, u chat.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, image, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET email = excluded.email, name = excluded.name, image = excluded.image
	`, u.ID, u.Email, u.Name, u.Image, nanos(u.CreatedAt))
	return sqliteError(err)
}

func (r *SqliteChatRepository) TouchLastSeen(ctx context.Context, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET last_seen_at = ?1
		WHERE id = ?2 AND (last_seen_at IS NULL OR last_seen_at <= ?1)
	`, nanos(at), userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.FindByID(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}

// ===================== Conversations =====================

func (r *SqliteChatRepository) CreateConversation(ctx context.Context, c *chat.Conversation, memberIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, is_group, name, direct_key, created_at, last_message_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, c.IsGroup, c.Name, c.DirectKey, nanos(c.CreatedAt), nanos(c.LastMessageAt))
	if err != nil {
		return sqliteError(err)
	}
	for _, uid := range memberIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_members (conversation_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)
		`, id, uid, chat.ParticipantRoleMember, nanos(c.CreatedAt)); err != nil {
			return sqliteError(err)
		}
	}
	members, err := sqliteMembers(ctx, tx, []string{id})
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	c.ID = id
	c.Members = members[id]
	return nil
}

const sqliteConversationColumns = `c.id, c.is_group, c.name, c.direct_key, c.created_at, c.last_message_at, c.last_message_id`

func (r *SqliteChatRepository) FindDirect(ctx context.Context, directKey string) (*chat.Conversation, error) {
	return r.getOne(ctx, `SELECT `+sqliteConversationColumns+` FROM conversations c WHERE c.direct_key = ? AND c.is_group = 0`, directKey)
}

func (r *SqliteChatRepository) GetConversation(ctx context.Context, conversationID string) (*chat.Conversation, error) {
	return r.getOne(ctx, `SELECT `+sqliteConversationColumns+` FROM conversations c WHERE c.id = ?`, conversationID)
}

func (r *SqliteChatRepository) getOne(ctx context.Context, query, arg string) (*chat.Conversation, error) {
	convs, err := r.queryConversations(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return nil, chat.ErrNotFound
	}
	return &convs[0], nil
}

func (r *SqliteChatRepository) ListConversationsForUser(ctx context.Context, userID string) ([]chat.Conversation, error) {
	return r.queryConversations(ctx, `
		SELECT `+sqliteConversationColumns+`
		FROM conversations c
		JOIN conversation_members p ON p.conversation_id = c.id
		WHERE p.user_id = ?
		ORDER BY c.last_message_at DESC, c.id
	`, userID)
}

func (r *SqliteChatRepository) queryConversations(ctx context.Context, query string, args ...any) ([]chat.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var (
		convs   []chat.Conversation
		lastIDs []string
	)
	for rows.Next() {
		var (
			c             chat.Conversation
			name, key     sql.NullString
			lastID        sql.NullString
			created, last int64
		)
		if err := rows.Scan(&c.ID, &c.IsGroup, &name, &key, &created, &last, &lastID); err != nil {
			rows.Close()
			return nil, err
		}
		c.Name = nullableString(name)
		c.DirectKey = nullableString(key)
		c.CreatedAt = fromNanos(created)
		c.LastMessageAt = fromNanos(last)
		if lastID.Valid {
			lastIDs = append(lastIDs, lastID.String)
			c.LastMessage = &chat.Message{ID: lastID.String}
		}
		convs = append(convs, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	members, err := sqliteMembers(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	last, err := sqliteMessages(ctx, r.db, lastIDs)
	if err != nil {
		return nil, err
	}
	for i := range convs {
		convs[i].Members = members[convs[i].ID]
		if convs[i].LastMessage != nil {
			convs[i].LastMessage = last[convs[i].LastMessage.ID]
		}
	}
	return convs, nil
}

func (r *SqliteChatRepository) DeleteConversation(ctx context.Context, conversationID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, conversationID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return chat.ErrNotFound
	}
	return nil
}

func (r *SqliteChatRepository) IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM conversation_members WHERE conversation_id = ? AND user_id = ?
	`, conversationID, userID).Scan(&n)
	return n > 0, err
}

// ===================== Messages =====================

func (r *SqliteChatRepository) SaveMessage(ctx context.Context, m *chat.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.NewString()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, created_at, body, image) VALUES (?, ?, ?, ?, ?, ?)
	`, id, m.ConversationID, m.SenderID, nanos(m.CreatedAt), m.Body, m.Image)
	if err != nil {
		return sqliteError(err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO message_seen (message_id, user_id, seen_at) VALUES (?, ?, ?)
	`, id, m.SenderID, nanos(m.CreatedAt)); err != nil {
		return sqliteError(err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET last_message_at = ?1, last_message_id = ?2
		WHERE id = ?3 AND last_message_at <= ?1
	`, nanos(m.CreatedAt), id, m.ConversationID); err != nil {
		return err
	}
	loaded, err := sqliteMessages(ctx, tx, []string{id})
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if full, ok := loaded[id]; ok {
		*m = *full
	} else {
		m.ID, m.Seq = id, seq
	}
	return nil
}

func (r *SqliteChatRepository) GetMessage(ctx context.Context, messageID string) (*chat.Message, error) {
	msgs, err := sqliteMessages(ctx, r.db, []string{messageID})
	if err != nil {
		return nil, err
	}
	m, ok := msgs[messageID]
	if !ok {
		return nil, chat.ErrNotFound
	}
	return m, nil
}

func (r *SqliteChatRepository) LatestMessage(ctx context.Context, conversationID string) (*chat.Message, error) {
	msgs, err := r.GetMessagesByConversation(ctx, conversationID, nil, 1)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, chat.ErrNotFound
	}
	return &msgs[0], nil
}

func (r *SqliteChatRepository) GetMessagesByConversation(ctx context.Context, conversationID string, before *chat.Cursor, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id FROM messages WHERE conversation_id = ?`
	args := []any{conversationID}
	if before != nil {
		at := nanos(before.At)
		query += ` AND (created_at < ? OR (created_at = ? AND seq < ?))`
		args = append(args, at, at, before.Seq)
	}
	query += ` ORDER BY created_at DESC, seq DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byID, err := sqliteMessages(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	out := make([]chat.Message, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *SqliteChatRepository) AddSeen(ctx context.Context, messageID string, userID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO message_seen (message_id, user_id, seen_at) VALUES (?, ?, ?)
		ON CONFLICT (message_id, user_id) DO NOTHING
	`, messageID, userID, nanos(at))
	if err != nil {
		return false, sqliteError(err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ===================== batch loaders =====================

// User rows may be missing when the directory has not synced yet; LEFT JOIN
// falls back to an id-only user.
func sqliteMembers(ctx context.Context, q sqlQuerier, conversationIDs []string) (map[string][]chat.User, error) {
	out := make(map[string][]chat.User, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}
	in, args := placeholders(conversationIDs)
	rows, err := q.QueryContext(ctx, `
		SELECT p.conversation_id, p.user_id, COALESCE(u.email, ''), COALESCE(u.name, ''), u.image,
		       COALESCE(u.created_at, 0), u.last_seen_at
		FROM conversation_members p
		LEFT JOIN users u ON u.id = p.user_id
		WHERE p.conversation_id IN (`+in+`)
		ORDER BY p.joined_at, p.user_id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			convID string
			row    userRow
		)
		if err := rows.Scan(append([]any{&convID}, row.dest()...)...); err != nil {
			return nil, err
		}
		out[convID] = append(out[convID], row.user())
	}
	return out, rows.Err()
}

func sqliteMessages(ctx context.Context, q sqlQuerier, ids []string) (map[string]*chat.Message, error) {
	out := make(map[string]*chat.Message, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	in, args := placeholders(ids)
	rows, err := q.QueryContext(ctx, `
		SELECT m.id, m.seq, m.conversation_id, m.sender_id, m.created_at, m.body, m.image,
		       m.sender_id, COALESCE(u.email, ''), COALESCE(u.name, ''), u.image, COALESCE(u.created_at, 0), u.last_seen_at
		FROM messages m
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.id IN (`+in+`)
	`, args...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			m         chat.Message
			created   int64
			body, img sql.NullString
			senderRow userRow
		)
		dest := append([]any{&m.ID, &m.Seq, &m.ConversationID, &m.SenderID, &created, &body, &img}, senderRow.dest()...)
		if err := rows.Scan(dest...); err != nil {
			rows.Close()
			return nil, err
		}
		m.CreatedAt = fromNanos(created)
		m.Body = nullableString(body)
		m.Image = nullableString(img)
		sender := senderRow.user()
		m.Sender = &sender
		out[m.ID] = &m
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	seenRows, err := q.QueryContext(ctx, `
		SELECT s.message_id, s.seen_at, s.user_id, COALESCE(u.email, ''), COALESCE(u.name, ''), u.image,
		       COALESCE(u.created_at, 0), u.last_seen_at
		FROM message_seen s
		LEFT JOIN users u ON u.id = s.user_id
		WHERE s.message_id IN (`+in+`)
		ORDER BY s.rowid
	`, args...)
	if err != nil {
		return nil, err
	}
	defer seenRows.Close()
	for seenRows.Next() {
		var (
			msgID  string
			seenAt int64
			row    userRow
		)
		if err := seenRows.Scan(append([]any{&msgID, &seenAt}, row.dest()...)...); err != nil {
			return nil, err
		}
		if m, ok := out[msgID]; ok {
			u := row.user()
			m.Seen.AddEntry(chat.SeenEntry{UserID: u.ID, SeenAt: fromNanos(seenAt), User: &u})
		}
	}
	return out, seenRows.Err()
}
