package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stevechen1112/aetheria/pkg/models"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	sessions map[string]*models.Session
	messages map[string][]*models.Message // by session ID, append order
	feedback map[string]feedbackEntry
	locks    map[string]map[models.ChartKind]*models.ChartLock
	episodic map[string][]*models.Message
	summary  map[string][]models.Summary
	profile  map[string]map[string]string
}

type feedbackEntry struct {
	rating  int
	comment string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*models.User),
		sessions: make(map[string]*models.Session),
		messages: make(map[string][]*models.Message),
		feedback: make(map[string]feedbackEntry),
		locks:    make(map[string]map[models.ChartKind]*models.ChartLock),
		episodic: make(map[string][]*models.Message),
		summary:  make(map[string][]models.Summary),
		profile:  make(map[string]map[string]string),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) GetOrCreateUser(_ context.Context, userID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[userID]; ok {
		clone := *user
		return &clone, nil
	}
	now := time.Now().UTC()
	user := &models.User{ID: userID, CreatedAt: now, UpdatedAt: now}
	s.users[userID] = user
	clone := *user
	return &clone, nil
}

func (s *MemoryStore) UpdateUserFacts(_ context.Context, userID string, facts models.UserFacts) error {
	if facts.IsZero() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	if facts.Name != "" {
		user.Name = facts.Name
	}
	if facts.BirthDate != "" {
		user.BirthDate = facts.BirthDate
	}
	if facts.BirthTime != "" {
		user.BirthTime = facts.BirthTime
	}
	if facts.BirthLocation != "" {
		user.BirthLocation = facts.BirthLocation
	}
	if facts.Gender != "" {
		user.Gender = facts.Gender
	}
	if facts.Longitude != nil {
		v := *facts.Longitude
		user.Longitude = &v
	}
	if facts.Latitude != nil {
		v := *facts.Latitude
		user.Latitude = &v
	}
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) CreateSession(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	clone := *session
	s.sessions[session.ID] = &clone
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *session
	return &clone, nil
}

func (s *MemoryStore) ListSessions(_ context.Context, userID string) ([]models.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []models.SessionSummary
	for _, session := range s.sessions {
		if session.UserID != userID {
			continue
		}
		result = append(result, models.SessionSummary{
			ID:           session.ID,
			Title:        session.Title,
			LastActivity: session.UpdatedAt,
			MessageCount: len(s.messages[session.ID]),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastActivity.After(result[j].LastActivity)
	})
	return result, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, sessionID)
	delete(s.messages, sessionID)
	return nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, sessionID string, msg *models.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return "", ErrNotFound
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.SessionID = sessionID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	clone := *msg
	s.messages[sessionID] = append(s.messages[sessionID], &clone)
	session.UpdatedAt = msg.CreatedAt
	return msg.ID, nil
}

func (s *MemoryStore) ReadRecent(_ context.Context, sessionID string, limit int) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.messages[sessionID]
	start := 0
	if limit > 0 && len(log) > limit {
		start = len(log) - limit
	}
	result := make([]*models.Message, 0, len(log)-start)
	for _, msg := range log[start:] {
		clone := *msg
		result = append(result, &clone)
	}
	return result, nil
}

func (s *MemoryStore) SearchMessages(_ context.Context, userID, keyword string, limit int) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*models.Message
	for sessionID, log := range s.messages {
		session, ok := s.sessions[sessionID]
		if !ok || session.UserID != userID {
			continue
		}
		for _, msg := range log {
			if msg.Role != models.RoleUser && msg.Role != models.RoleAssistant {
				continue
			}
			if strings.Contains(msg.Content, keyword) {
				clone := *msg
				all = append(all, &clone)
			}
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemoryStore) RecordFeedback(_ context.Context, messageID string, rating int, comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback[messageID] = feedbackEntry{rating: rating, comment: comment}
	return nil
}

func (s *MemoryStore) ReadChartLock(_ context.Context, userID string, kind models.ChartKind) (*models.ChartLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lock, ok := s.locks[userID][kind]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *lock
	return &clone, nil
}

func (s *MemoryStore) ListChartLocks(_ context.Context, userID string) ([]*models.ChartLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.ChartLock
	for _, kind := range models.ChartKinds {
		if lock, ok := s.locks[userID][kind]; ok {
			clone := *lock
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (s *MemoryStore) WriteChartLock(_ context.Context, userID string, kind models.ChartKind, payload []byte) error {
	if !models.ValidChartKind(kind) {
		return fmt.Errorf("unknown chart kind %q", kind)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks[userID] == nil {
		s.locks[userID] = make(map[models.ChartKind]*models.ChartLock)
	}
	s.locks[userID][kind] = &models.ChartLock{
		UserID:    userID,
		Kind:      kind,
		Payload:   append([]byte(nil), payload...),
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (s *MemoryStore) ReadMemory(_ context.Context, userID string) (*models.MemorySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := &models.MemorySnapshot{Profile: map[string]string{}}
	for _, msg := range s.episodic[userID] {
		clone := *msg
		snapshot.Episodic = append(snapshot.Episodic, &clone)
	}
	snapshot.Summaries = append(snapshot.Summaries, s.summary[userID]...)
	for k, v := range s.profile[userID] {
		snapshot.Profile[k] = v
	}
	return snapshot, nil
}

func (s *MemoryStore) AppendEpisodic(_ context.Context, userID string, msgs ...*models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range msgs {
		clone := *msg
		s.episodic[userID] = append(s.episodic[userID], &clone)
	}
	return nil
}

func (s *MemoryStore) TrimEpisodic(_ context.Context, userID string, n int) ([]*models.Message, error) {
	if n <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	window := s.episodic[userID]
	if n > len(window) {
		n = len(window)
	}
	removed := window[:n]
	s.episodic[userID] = append([]*models.Message(nil), window[n:]...)
	return removed, nil
}

func (s *MemoryStore) WriteSummary(_ context.Context, userID string, summary models.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if summary.ID == "" {
		summary.ID = uuid.NewString()
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}
	summary.UserID = userID
	s.summary[userID] = append(s.summary[userID], summary)
	return nil
}

func (s *MemoryStore) WriteProfileFact(_ context.Context, userID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile[userID] == nil {
		s.profile[userID] = make(map[string]string)
	}
	s.profile[userID][key] = value
	return nil
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*SQLiteStore)(nil)
