package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/stevechen1112/aetheria/pkg/models"
)

// SQLiteStore implements Store on a single sqlite database.
type SQLiteStore struct {
	db     *sql.DB
	locker *Locker
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL DEFAULT '',
	birth_date     TEXT NOT NULL DEFAULT '',
	birth_time     TEXT NOT NULL DEFAULT '',
	birth_location TEXT NOT NULL DEFAULT '',
	gender         TEXT NOT NULL DEFAULT '',
	longitude      REAL,
	latitude       REAL,
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS messages (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	session_id   TEXT NOT NULL,
	role         TEXT NOT NULL,
	content      TEXT NOT NULL DEFAULT '',
	widget       TEXT,
	citations    TEXT,
	tool_calls   TEXT,
	tool_results TEXT,
	created_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq);

CREATE TABLE IF NOT EXISTS message_feedback (
	message_id TEXT PRIMARY KEY,
	rating     INTEGER NOT NULL,
	comment    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS chart_locks (
	user_id    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, kind)
);

CREATE TABLE IF NOT EXISTS memory_episodic (
	seq     INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	message TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_episodic_user ON memory_episodic(user_id, seq);

CREATE TABLE IF NOT EXISTS memory_summaries (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	text       TEXT NOT NULL,
	from_time  TIMESTAMP NOT NULL,
	to_time    TIMESTAMP NOT NULL,
	consumed   INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_summaries_user ON memory_summaries(user_id, created_at);

CREATE TABLE IF NOT EXISTS memory_profiles (
	user_id    TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, key)
);
`

// NewSQLiteStore opens (creating if needed) the database at dsn and applies
// the schema.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serialises writers; a single connection avoids SQLITE_BUSY
	// under concurrent turns.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteStore{db: db, locker: NewLocker()}, nil
}

// NewSQLiteStoreWithDB wraps an existing connection. Used by tests.
func NewSQLiteStoreWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, locker: NewLocker()}
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// GetOrCreateUser returns the user record, creating an empty one on first
// sight.
func (s *SQLiteStore) GetOrCreateUser(ctx context.Context, userID string) (*models.User, error) {
	user := &models.User{ID: userID}
	row := s.db.QueryRowContext(ctx, `
		SELECT name, birth_date, birth_time, birth_location, gender, longitude, latitude, created_at, updated_at
		FROM users WHERE id = ?`, userID)

	var longitude, latitude sql.NullFloat64
	err := row.Scan(&user.Name, &user.BirthDate, &user.BirthTime, &user.BirthLocation,
		&user.Gender, &longitude, &latitude, &user.CreatedAt, &user.UpdatedAt)
	switch {
	case err == sql.ErrNoRows:
		now := time.Now().UTC()
		user.CreatedAt, user.UpdatedAt = now, now
		unlock := s.locker.Lock(userID)
		defer unlock()
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO users (id, created_at, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(id) DO NOTHING`, userID, now, now)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		return user, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read user: %w", err)
	}
	if longitude.Valid {
		user.Longitude = &longitude.Float64
	}
	if latitude.Valid {
		user.Latitude = &latitude.Float64
	}
	return user, nil
}

// UpdateUserFacts writes the non-zero fields of facts.
func (s *SQLiteStore) UpdateUserFacts(ctx context.Context, userID string, facts models.UserFacts) error {
	if facts.IsZero() {
		return nil
	}
	unlock := s.locker.Lock(userID)
	defer unlock()

	set := "updated_at = ?"
	args := []any{time.Now().UTC()}
	add := func(col, val string) {
		if val != "" {
			set += ", " + col + " = ?"
			args = append(args, val)
		}
	}
	add("name", facts.Name)
	add("birth_date", facts.BirthDate)
	add("birth_time", facts.BirthTime)
	add("birth_location", facts.BirthLocation)
	add("gender", facts.Gender)
	if facts.Longitude != nil {
		set += ", longitude = ?"
		args = append(args, *facts.Longitude)
	}
	if facts.Latitude != nil {
		set += ", latitude = ?"
		args = append(args, *facts.Latitude)
	}
	args = append(args, userID)

	_, err := s.db.ExecContext(ctx, "UPDATE users SET "+set+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update user facts: %w", err)
	}
	return nil
}

// CreateSession inserts a session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	unlock := s.locker.Lock(session.UserID)
	defer unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.Title, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession reads one session.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session := &models.Session{ID: sessionID}
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, title, created_at, updated_at FROM sessions WHERE id = ?`, sessionID).
		Scan(&session.UserID, &session.Title, &session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	return session, nil
}

// ListSessions returns the user's sessions ordered by last activity.
func (s *SQLiteStore) ListSessions(ctx context.Context, userID string) ([]models.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.title, s.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)
		FROM sessions s WHERE s.user_id = ?
		ORDER BY s.updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var result []models.SessionSummary
	for rows.Next() {
		var summary models.SessionSummary
		if err := rows.Scan(&summary.ID, &summary.Title, &summary.LastActivity, &summary.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		result = append(result, summary)
	}
	return result, rows.Err()
}

// DeleteSession removes a session and its messages.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	unlock := s.locker.Lock(session.UserID)
	defer unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// AppendMessage appends one immutable message to a session log.
func (s *SQLiteStore) AppendMessage(ctx context.Context, sessionID string, msg *models.Message) (string, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.SessionID = sessionID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	widget, err := marshalNullable(msg.Widget)
	if err != nil {
		return "", err
	}
	citations, err := marshalNullable(msg.Citations)
	if err != nil {
		return "", err
	}
	toolCalls, err := marshalNullable(msg.ToolCalls)
	if err != nil {
		return "", err
	}
	toolResults, err := marshalNullable(msg.ToolResults)
	if err != nil {
		return "", err
	}

	unlock := s.locker.Lock(session.UserID)
	defer unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, role, content, widget, citations, tool_calls, tool_results, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, sessionID, string(msg.Role), msg.Content, widget, citations, toolCalls, toolResults, msg.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to append message: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`,
		msg.CreatedAt, sessionID); err != nil {
		return "", fmt.Errorf("failed to touch session: %w", err)
	}
	return msg.ID, nil
}

// ReadRecent returns the last limit messages of a session in chronological
// order.
func (s *SQLiteStore) ReadRecent(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, widget, citations, tool_calls, tool_results, created_at
		FROM messages WHERE session_id = ?
		ORDER BY seq DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()

	var reversed []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows, sessionID)
		if err != nil {
			return nil, err
		}
		reversed = append(reversed, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]*models.Message, len(reversed))
	for i, msg := range reversed {
		result[len(reversed)-1-i] = msg
	}
	return result, nil
}

// SearchMessages finds past user/assistant snippets containing keyword.
func (s *SQLiteStore) SearchMessages(ctx context.Context, userID, keyword string, limit int) ([]*models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.role, m.content, m.widget, m.citations, m.tool_calls, m.tool_results, m.created_at, m.session_id
		FROM messages m JOIN sessions s ON m.session_id = s.id
		WHERE s.user_id = ? AND m.role IN ('user', 'assistant') AND m.content LIKE ?
		ORDER BY m.seq DESC LIMIT ?`, userID, "%"+keyword+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	defer rows.Close()

	var result []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		var widget, citations, toolCalls, toolResults sql.NullString
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &widget, &citations,
			&toolCalls, &toolResults, &msg.CreatedAt, &msg.SessionID); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if err := unmarshalMessageFields(msg, widget, citations, toolCalls, toolResults); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

// RecordFeedback stores (or replaces) a rating for one message.
func (s *SQLiteStore) RecordFeedback(ctx context.Context, messageID string, rating int, comment string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO message_feedback (message_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET rating = excluded.rating, comment = excluded.comment`,
		messageID, rating, comment, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}
	return nil
}

// ReadChartLock returns the latest lock for (user, kind), or ErrNotFound.
func (s *SQLiteStore) ReadChartLock(ctx context.Context, userID string, kind models.ChartKind) (*models.ChartLock, error) {
	lock := &models.ChartLock{UserID: userID, Kind: kind}
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload, created_at FROM chart_locks WHERE user_id = ? AND kind = ?`,
		userID, string(kind)).Scan(&payload, &lock.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read chart lock: %w", err)
	}
	lock.Payload = json.RawMessage(payload)
	return lock, nil
}

// ListChartLocks returns every lock the user holds.
func (s *SQLiteStore) ListChartLocks(ctx context.Context, userID string) ([]*models.ChartLock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, payload, created_at FROM chart_locks WHERE user_id = ? ORDER BY kind`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chart locks: %w", err)
	}
	defer rows.Close()

	var result []*models.ChartLock
	for rows.Next() {
		lock := &models.ChartLock{UserID: userID}
		var kind, payload string
		if err := rows.Scan(&kind, &payload, &lock.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chart lock: %w", err)
		}
		lock.Kind = models.ChartKind(kind)
		lock.Payload = json.RawMessage(payload)
		result = append(result, lock)
	}
	return result, rows.Err()
}

// WriteChartLock upserts the lock for (user, kind); the new payload
// supersedes any previous one.
func (s *SQLiteStore) WriteChartLock(ctx context.Context, userID string, kind models.ChartKind, payload []byte) error {
	if !models.ValidChartKind(kind) {
		return fmt.Errorf("unknown chart kind %q", kind)
	}
	unlock := s.locker.Lock(userID)
	defer unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chart_locks (user_id, kind, payload, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, kind) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		userID, string(kind), string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write chart lock: %w", err)
	}
	return nil
}

// ReadMemory loads the three memory layers for a user.
func (s *SQLiteStore) ReadMemory(ctx context.Context, userID string) (*models.MemorySnapshot, error) {
	snapshot := &models.MemorySnapshot{Profile: map[string]string{}}

	rows, err := s.db.QueryContext(ctx, `
		SELECT message FROM memory_episodic WHERE user_id = ? ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read episodic memory: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		msg := &models.Message{}
		if err := json.Unmarshal([]byte(raw), msg); err != nil {
			return nil, fmt.Errorf("failed to decode episodic message: %w", err)
		}
		snapshot.Episodic = append(snapshot.Episodic, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sumRows, err := s.db.QueryContext(ctx, `
		SELECT id, text, from_time, to_time, consumed, created_at
		FROM memory_summaries WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read summaries: %w", err)
	}
	defer sumRows.Close()
	for sumRows.Next() {
		summary := models.Summary{UserID: userID}
		if err := sumRows.Scan(&summary.ID, &summary.Text, &summary.From, &summary.To,
			&summary.Consumed, &summary.CreatedAt); err != nil {
			return nil, err
		}
		snapshot.Summaries = append(snapshot.Summaries, summary)
	}
	if err := sumRows.Err(); err != nil {
		return nil, err
	}

	profRows, err := s.db.QueryContext(ctx, `
		SELECT key, value FROM memory_profiles WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	defer profRows.Close()
	for profRows.Next() {
		var key, value string
		if err := profRows.Scan(&key, &value); err != nil {
			return nil, err
		}
		snapshot.Profile[key] = value
	}
	return snapshot, profRows.Err()
}

// AppendEpisodic adds messages to the episodic window.
func (s *SQLiteStore) AppendEpisodic(ctx context.Context, userID string, msgs ...*models.Message) error {
	unlock := s.locker.Lock(userID)
	defer unlock()
	for _, msg := range msgs {
		raw, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to encode episodic message: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO memory_episodic (user_id, message) VALUES (?, ?)`, userID, string(raw)); err != nil {
			return fmt.Errorf("failed to append episodic memory: %w", err)
		}
	}
	return nil
}

// TrimEpisodic removes and returns the oldest n window entries.
func (s *SQLiteStore) TrimEpisodic(ctx context.Context, userID string, n int) ([]*models.Message, error) {
	if n <= 0 {
		return nil, nil
	}
	unlock := s.locker.Lock(userID)
	defer unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, message FROM memory_episodic WHERE user_id = ? ORDER BY seq LIMIT ?`, userID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to read episodic overflow: %w", err)
	}
	defer rows.Close()

	var seqs []int64
	var removed []*models.Message
	for rows.Next() {
		var seq int64
		var raw string
		if err := rows.Scan(&seq, &raw); err != nil {
			return nil, err
		}
		msg := &models.Message{}
		if err := json.Unmarshal([]byte(raw), msg); err != nil {
			return nil, fmt.Errorf("failed to decode episodic message: %w", err)
		}
		seqs = append(seqs, seq)
		removed = append(removed, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, seq := range seqs {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM memory_episodic WHERE seq = ?`, seq); err != nil {
			return nil, fmt.Errorf("failed to trim episodic memory: %w", err)
		}
	}
	return removed, nil
}

// WriteSummary appends a condensed block to long-term memory.
func (s *SQLiteStore) WriteSummary(ctx context.Context, userID string, summary models.Summary) error {
	if summary.ID == "" {
		summary.ID = uuid.NewString()
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}
	unlock := s.locker.Lock(userID)
	defer unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_summaries (id, user_id, text, from_time, to_time, consumed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		summary.ID, userID, summary.Text, summary.From, summary.To, summary.Consumed, summary.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// WriteProfileFact upserts one stable fact.
func (s *SQLiteStore) WriteProfileFact(ctx context.Context, userID, key, value string) error {
	unlock := s.locker.Lock(userID)
	defer unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_profiles (user_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		userID, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write profile fact: %w", err)
	}
	return nil
}

func marshalNullable(v any) (sql.NullString, error) {
	switch t := v.(type) {
	case *models.Widget:
		if t == nil {
			return sql.NullString{}, nil
		}
	case []models.Citation:
		if len(t) == 0 {
			return sql.NullString{}, nil
		}
	case []models.ToolCall:
		if len(t) == 0 {
			return sql.NullString{}, nil
		}
	case []models.ToolResult:
		if len(t) == 0 {
			return sql.NullString{}, nil
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode message field: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(rows rowScanner, sessionID string) (*models.Message, error) {
	msg := &models.Message{SessionID: sessionID}
	var widget, citations, toolCalls, toolResults sql.NullString
	if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &widget, &citations,
		&toolCalls, &toolResults, &msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}
	if err := unmarshalMessageFields(msg, widget, citations, toolCalls, toolResults); err != nil {
		return nil, err
	}
	return msg, nil
}

func unmarshalMessageFields(msg *models.Message, widget, citations, toolCalls, toolResults sql.NullString) error {
	if widget.Valid && widget.String != "" {
		msg.Widget = &models.Widget{}
		if err := json.Unmarshal([]byte(widget.String), msg.Widget); err != nil {
			return fmt.Errorf("failed to decode widget: %w", err)
		}
	}
	if citations.Valid && citations.String != "" {
		if err := json.Unmarshal([]byte(citations.String), &msg.Citations); err != nil {
			return fmt.Errorf("failed to decode citations: %w", err)
		}
	}
	if toolCalls.Valid && toolCalls.String != "" {
		if err := json.Unmarshal([]byte(toolCalls.String), &msg.ToolCalls); err != nil {
			return fmt.Errorf("failed to decode tool calls: %w", err)
		}
	}
	if toolResults.Valid && toolResults.String != "" {
		if err := json.Unmarshal([]byte(toolResults.String), &msg.ToolResults); err != nil {
			return fmt.Errorf("failed to decode tool results: %w", err)
		}
	}
	return nil
}
