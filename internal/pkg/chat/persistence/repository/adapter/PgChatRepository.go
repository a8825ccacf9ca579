package adapter

import (
	"context"
	"errors"
	"time"

	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
	repository "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/persistence/repository/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgChatRepository struct {
	pool *pgxpool.Pool
}

var _ repository.ChatRepository = (*PgChatRepository)(nil)

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

var errNilPool = errors.New("PgChatRepository: nil pool")

// pgError maps driver errors onto the domain sentinels.
func pgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return chat.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return chat.ErrConflict
		case pgForeignKeyViolation:
			return chat.ErrNotFound
		}
	}
	return err
}

func (r *PgChatRepository) CreateConversation(ctx context.Context, c *chat.Conversation, memberIDs []string) error {
	if r == nil || r.pool == nil {
		return errNilPool
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO chat.conversation (is_group, name, direct_key, created_at, last_message_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, c.IsGroup, c.Name, c.DirectKey, c.CreatedAt, c.LastMessageAt).Scan(&c.ID)
	if err != nil {
		return pgError(err)
	}

	for _, uid := range memberIDs {
		_, err := tx.Exec(ctx, `
			INSERT INTO chat.participant (conversation_id, user_id, role, joined_at)
			VALUES ($1, $2, $3, $4)
		`, c.ID, uid, chat.ParticipantRoleMember, c.CreatedAt)
		if err != nil {
			return pgError(err)
		}
	}

	members, err := loadMembers(ctx, tx, []string{c.ID})
	if err != nil {
		return err
	}
	c.Members = members[c.ID]

	return tx.Commit(ctx)
}

const conversationColumns = `c.id, c.is_group, c.name, c.direct_key, c.created_at, c.last_message_at, c.last_message_id`

func (r *PgChatRepository) FindDirect(ctx context.Context, directKey string) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	return r.getOne(ctx, `SELECT `+conversationColumns+` FROM chat.conversation c WHERE c.direct_key = $1 AND NOT c.is_group`, directKey)
}

func (r *PgChatRepository) GetConversation(ctx context.Context, conversationID string) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	return r.getOne(ctx, `SELECT `+conversationColumns+` FROM chat.conversation c WHERE c.id = $1`, conversationID)
}

func (r *PgChatRepository) getOne(ctx context.Context, query string, arg string) (*chat.Conversation, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	convs, err := r.hydrate(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return nil, chat.ErrNotFound
	}
	return &convs[0], nil
}

func (r *PgChatRepository) ListConversationsForUser(ctx context.Context, userID string) ([]chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM chat.conversation c
		JOIN chat.participant p ON p.conversation_id = c.id
		WHERE p.user_id = $1
		ORDER BY c.last_message_at DESC, c.id
	`, userID)
	if err != nil {
		return nil, err
	}
	return r.hydrate(ctx, rows)
}

// hydrate scans conversation rows and attaches members and last messages.
func (r *PgChatRepository) hydrate(ctx context.Context, rows pgx.Rows) ([]chat.Conversation, error) {
	var (
		convs   []chat.Conversation
		lastIDs []string
	)
	for rows.Next() {
		var (
			c      chat.Conversation
			lastID *string
		)
		if err := rows.Scan(&c.ID, &c.IsGroup, &c.Name, &c.DirectKey, &c.CreatedAt, &c.LastMessageAt, &lastID); err != nil {
			rows.Close()
			return nil, err
		}
		if lastID != nil {
			lastIDs = append(lastIDs, *lastID)
			c.LastMessage = &chat.Message{ID: *lastID}
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
	members, err := loadMembers(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	last, err := loadMessages(ctx, r.pool, lastIDs)
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

func (r *PgChatRepository) DeleteConversation(ctx context.Context, conversationID string) error {
	if r == nil || r.pool == nil {
		return errNilPool
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM chat.conversation WHERE id = $1`, conversationID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return chat.ErrNotFound
	}
	return nil
}

func (r *PgChatRepository) IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errNilPool
	}
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM chat.participant WHERE conversation_id = $1 AND user_id = $2)
	`, conversationID, userID).Scan(&ok)
	return ok, err
}

func (r *PgChatRepository) SaveMessage(ctx context.Context, m *chat.Message) error {
	if r == nil || r.pool == nil {
		return errNilPool
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO chat.message (conversation_id, sender_id, created_at, body, image)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, seq
	`, m.ConversationID, m.SenderID, m.CreatedAt, m.Body, m.Image).Scan(&m.ID, &m.Seq)
	if err != nil {
		return pgError(err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO chat.message_seen (message_id, user_id, seen_at) VALUES ($1, $2, $3)
	`, m.ID, m.SenderID, m.CreatedAt); err != nil {
		return pgError(err)
	}

	// Last writer by timestamp wins; an older message never rewinds the pointer.
	if _, err := tx.Exec(ctx, `
		UPDATE chat.conversation
		SET last_message_at = $2, last_message_id = $3
		WHERE id = $1 AND last_message_at <= $2
	`, m.ConversationID, m.CreatedAt, m.ID); err != nil {
		return err
	}

	loaded, err := loadMessages(ctx, tx, []string{m.ID})
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	if full, ok := loaded[m.ID]; ok {
		*m = *full
	}
	return nil
}

func (r *PgChatRepository) GetMessage(ctx context.Context, messageID string) (*chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	msgs, err := loadMessages(ctx, r.pool, []string{messageID})
	if err != nil {
		return nil, err
	}
	m, ok := msgs[messageID]
	if !ok {
		return nil, chat.ErrNotFound
	}
	return m, nil
}

func (r *PgChatRepository) LatestMessage(ctx context.Context, conversationID string) (*chat.Message, error) {
	msgs, err := r.GetMessagesByConversation(ctx, conversationID, nil, 1)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, chat.ErrNotFound
	}
	return &msgs[0], nil
}

func (r *PgChatRepository) GetMessagesByConversation(ctx context.Context, conversationID string, before *chat.Cursor, limit int) ([]chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	if limit <= 0 {
		limit = 50
	}

	var (
		rows pgx.Rows
		err  error
	)
	if before == nil {
		rows, err = r.pool.Query(ctx, `
			SELECT id FROM chat.message
			WHERE conversation_id = $1
			ORDER BY created_at DESC, seq DESC
			LIMIT $2
		`, conversationID, limit)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT id FROM chat.message
			WHERE conversation_id = $1 AND (created_at, seq) < ($2, $3)
			ORDER BY created_at DESC, seq DESC
			LIMIT $4
		`, conversationID, before.At, before.Seq, limit)
	}
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	byID, err := loadMessages(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	msgs := make([]chat.Message, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			msgs = append(msgs, *m)
		}
	}
	return msgs, nil
}

func (r *PgChatRepository) AddSeen(ctx context.Context, messageID string, userID string, at time.Time) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errNilPool
	}
	ct, err := r.pool.Exec(ctx, `
		INSERT INTO chat.message_seen (message_id, user_id, seen_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (message_id, user_id) DO NOTHING
	`, messageID, userID, at)
	if err != nil {
		return false, pgError(err)
	}
	return ct.RowsAffected() > 0, nil
}

// ===================== batch loaders =====================

const userColumns = `u.id, u.email, u.name, u.image, u.created_at, u.last_seen_at`

func scanUserInto(u *chat.User) []any {
	return []any{&u.ID, &u.Email, &u.Name, &u.Image, &u.CreatedAt, &u.LastSeenAt}
}

func loadMembers(ctx context.Context, q querier, conversationIDs []string) (map[string][]chat.User, error) {
	out := make(map[string][]chat.User, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}
	rows, err := q.Query(ctx, `
		SELECT p.conversation_id, `+userColumns+`
		FROM chat.participant p
		JOIN chat.users u ON u.id = p.user_id
		WHERE p.conversation_id = ANY($1)
		ORDER BY p.joined_at, u.id
	`, conversationIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			convID string
			u      chat.User
		)
		if err := rows.Scan(append([]any{&convID}, scanUserInto(&u)...)...); err != nil {
			return nil, err
		}
		out[convID] = append(out[convID], u)
	}
	return out, rows.Err()
}

// loadMessages fetches messages by id with sender and seen-by expanded.
func loadMessages(ctx context.Context, q querier, ids []string) (map[string]*chat.Message, error) {
	out := make(map[string]*chat.Message, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.Query(ctx, `
		SELECT m.id, m.seq, m.conversation_id, m.sender_id, m.created_at, m.body, m.image, `+userColumns+`
		FROM chat.message m
		JOIN chat.users u ON u.id = m.sender_id
		WHERE m.id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			m      chat.Message
			sender chat.User
		)
		dest := append([]any{&m.ID, &m.Seq, &m.ConversationID, &m.SenderID, &m.CreatedAt, &m.Body, &m.Image}, scanUserInto(&sender)...)
		if err := rows.Scan(dest...); err != nil {
			rows.Close()
			return nil, err
		}
		m.Sender = &sender
		out[m.ID] = &m
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	seenRows, err := q.Query(ctx, `
		SELECT s.message_id, s.seen_at, `+userColumns+`
		FROM chat.message_seen s
		JOIN chat.users u ON u.id = s.user_id
		WHERE s.message_id = ANY($1)
		ORDER BY s.seq
	`, ids)
	if err != nil {
		return nil, err
	}
	defer seenRows.Close()
	for seenRows.Next() {
		var (
			msgID  string
			seenAt time.Time
			u      chat.User
		)
		if err := seenRows.Scan(append([]any{&msgID, &seenAt}, scanUserInto(&u)...)...); err != nil {
			return nil, err
		}
		if m, ok := out[msgID]; ok {
			user := u
			m.Seen.AddEntry(chat.SeenEntry{UserID: u.ID, SeenAt: seenAt, User: &user})
		}
	}
	return out, seenRows.Err()
}
