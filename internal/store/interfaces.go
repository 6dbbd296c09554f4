// Package store provides the repository behind the orchestration core:
// users, sessions, messages, chart locks, and the three memory layers.
package store

import (
	"context"
	"errors"

	"github.com/stevechen1112/aetheria/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the narrow repository interface the core depends on.
//
// Concurrency discipline: implementations serialise all writes for a single
// user (and their sessions); reads may run concurrently with writes and
// observe a consistent snapshot, with read-your-writes within a turn.
type Store interface {
	// Users.
	GetOrCreateUser(ctx context.Context, userID string) (*models.User, error)
	UpdateUserFacts(ctx context.Context, userID string, facts models.UserFacts) error

	// Sessions.
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	ListSessions(ctx context.Context, userID string) ([]models.SessionSummary, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Messages.
	AppendMessage(ctx context.Context, sessionID string, msg *models.Message) (string, error)
	ReadRecent(ctx context.Context, sessionID string, limit int) ([]*models.Message, error)
	SearchMessages(ctx context.Context, userID, keyword string, limit int) ([]*models.Message, error)
	RecordFeedback(ctx context.Context, messageID string, rating int, comment string) error

	// Chart locks, keyed by (user, kind); writes upsert.
	ReadChartLock(ctx context.Context, userID string, kind models.ChartKind) (*models.ChartLock, error)
	ListChartLocks(ctx context.Context, userID string) ([]*models.ChartLock, error)
	WriteChartLock(ctx context.Context, userID string, kind models.ChartKind, payload []byte) error

	// Memory layers.
	ReadMemory(ctx context.Context, userID string) (*models.MemorySnapshot, error)
	AppendEpisodic(ctx context.Context, userID string, msgs ...*models.Message) error
	// TrimEpisodic removes and returns the oldest n episodic entries.
	// The underlying messages remain in the session log.
	TrimEpisodic(ctx context.Context, userID string, n int) ([]*models.Message, error)
	WriteSummary(ctx context.Context, userID string, summary models.Summary) error
	WriteProfileFact(ctx context.Context, userID, key, value string) error

	Close() error
}
