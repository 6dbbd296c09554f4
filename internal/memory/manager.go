// Package memory maintains the three-layer user memory: the episodic
// window, the condensed summaries, and the stable profile facts. The
// summariser runs after a turn completes and never blocks the reply.
package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stevechen1112/aetheria/internal/llm"
	"github.com/stevechen1112/aetheria/internal/observability"
	"github.com/stevechen1112/aetheria/internal/store"
	"github.com/stevechen1112/aetheria/pkg/models"
)

const (
	// WindowThreshold triggers compaction when the episodic window grows
	// past it; WindowKeep is how many recent messages survive.
	WindowThreshold = 30
	WindowKeep      = 20

	summaryRuneCap = 500
)

const recapSystem = "你是一位諮詢記錄整理助手。請將以下命理諮詢對話濃縮成一段第三人稱摘要，" +
	"保留：對方的重要個人資訊、問過的主題、給出的關鍵建議、情緒狀態的變化。" +
	"不要逐句複述，不要加入對話中沒有的內容，長度不超過 250 字。"

// Manager owns the per-user memory lifecycle.
type Manager struct {
	store    store.Store
	provider llm.Provider
	logger   *observability.Logger
	metrics  *observability.Metrics

	threshold int
	keep      int
}

// Option adjusts manager behaviour.
type Option func(*Manager)

// WithWindow overrides the compaction threshold and how many recent
// messages survive a trim. Non-positive values keep the defaults.
func WithWindow(threshold, keep int) Option {
	return func(m *Manager) {
		if threshold > 0 {
			m.threshold = threshold
		}
		if keep > 0 && keep < m.threshold {
			m.keep = keep
		}
	}
}

// NewManager wires the manager. provider is used at the strong tier for
// summarisation; pass nil to disable compaction (tests).
func NewManager(st store.Store, provider llm.Provider, logger *observability.Logger, metrics *observability.Metrics, opts ...Option) *Manager {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}
	m := &Manager{
		store:     st,
		provider:  provider,
		logger:    logger,
		metrics:   metrics,
		threshold: WindowThreshold,
		keep:      WindowKeep,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot loads the user's memory view for prompt assembly.
func (m *Manager) Snapshot(ctx context.Context, userID string) (*models.MemorySnapshot, error) {
	return m.store.ReadMemory(ctx, userID)
}

// Observe appends the turn's user and assistant messages to the episodic
// window. Tool traffic is not remembered.
func (m *Manager) Observe(ctx context.Context, userID string, msgs ...*models.Message) error {
	var keep []*models.Message
	for _, msg := range msgs {
		if msg.Role == models.RoleUser || msg.Role == models.RoleAssistant {
			keep = append(keep, msg)
		}
	}
	if len(keep) == 0 {
		return nil
	}
	return m.store.AppendEpisodic(ctx, userID, keep...)
}

// Maintain compacts the window when it exceeds the threshold: the overflow
// is summarised at the strong tier and trimmed only after the summary is
// safely written. A failed summary is logged and retried on a later turn.
func (m *Manager) Maintain(ctx context.Context, userID string) {
	if m.provider == nil {
		return
	}
	snapshot, err := m.store.ReadMemory(ctx, userID)
	if err != nil {
		m.logger.Warn(ctx, "memory read failed, skipping compaction", "error", err)
		return
	}
	size := len(snapshot.Episodic)
	if size <= m.threshold {
		return
	}
	overflow := snapshot.Episodic[:size-m.keep]

	text, err := m.summarise(ctx, overflow)
	if err != nil {
		m.logger.Warn(ctx, "summarisation failed, window kept", "error", err, "overflow", len(overflow))
		return
	}

	summary := models.Summary{
		UserID:   userID,
		Text:     text,
		From:     overflow[0].CreatedAt,
		To:       overflow[len(overflow)-1].CreatedAt,
		Consumed: len(overflow),
	}
	if err := m.store.WriteSummary(ctx, userID, summary); err != nil {
		m.logger.Warn(ctx, "summary write failed, window kept", "error", err)
		return
	}
	if _, err := m.store.TrimEpisodic(ctx, userID, len(overflow)); err != nil {
		m.logger.Warn(ctx, "window trim failed after summary write", "error", err)
		return
	}
	m.metrics.SummariesWritten.Inc()
	m.logger.Info(ctx, "episodic window compacted", "consumed", len(overflow))
}

func (m *Manager) summarise(ctx context.Context, msgs []*models.Message) (string, error) {
	var b strings.Builder
	for _, msg := range msgs {
		tag := "使用者"
		if msg.Role == models.RoleAssistant {
			tag = "顧問"
		}
		fmt.Fprintf(&b, "%s：%s\n", tag, msg.Content)
	}

	ctx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	resp, err := llm.Collect(ctx, m.provider, &llm.Request{
		Tier:   llm.TierStrong,
		System: recapSystem,
		Messages: []llm.Message{
			{Role: models.RoleUser, Content: b.String()},
		},
		MaxTokens: 1024,
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("summariser returned empty text")
	}
	// Hard cap as a guard against a model ignoring the length limit.
	if runes := []rune(text); len(runes) > summaryRuneCap {
		text = string(runes[:summaryRuneCap])
	}
	return text, nil
}
