// Package agent implements the orchestration loop: one user message in, one
// sanitised assistant reply out, with bounded tool use in between.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/stevechen1112/aetheria/internal/config"
	"github.com/stevechen1112/aetheria/internal/llm"
	"github.com/stevechen1112/aetheria/internal/memory"
	"github.com/stevechen1112/aetheria/internal/observability"
	"github.com/stevechen1112/aetheria/internal/prompt"
	"github.com/stevechen1112/aetheria/internal/safety"
	"github.com/stevechen1112/aetheria/internal/sanitize"
	"github.com/stevechen1112/aetheria/internal/store"
	"github.com/stevechen1112/aetheria/internal/tools"
	"github.com/stevechen1112/aetheria/pkg/models"
)

// Reply templates for the error paths. The user never sees a raw provider
// or storage error.
const (
	apologyTemplate = "真的很抱歉，我這邊暫時連不上推算服務，請稍等一下再試一次。您剛剛說的內容我都有記下來。"
	storageTemplate = "系統暫時無法儲存這次的對話內容，為了資料安全，這一輪先不做記錄，請稍後再試。"
	retryTemplate   = "讓我再整理一下思緒，麻煩您把問題再說一次好嗎？"
)

// chartKindForTool maps calculator tools to the chart-lock kind they
// produce.
var chartKindForTool = map[string]models.ChartKind{
	"calculate_astrolabe":     models.ChartZiwei,
	"calculate_bazi":          models.ChartBazi,
	"calculate_western_chart": models.ChartWestern,
	"draw_tarot":              models.ChartTarot,
	"calculate_numerology":    models.ChartNumerology,
	"analyze_name":            models.ChartNameology,
}

var chartSystemLabels = map[models.ChartKind]string{
	models.ChartZiwei:      "紫微斗數",
	models.ChartBazi:       "八字",
	models.ChartWestern:    "西洋占星",
	models.ChartTarot:      "塔羅",
	models.ChartNumerology: "生命靈數",
	models.ChartNameology:  "姓名學",
}

// Loop orchestrates turns.
type Loop struct {
	store    store.Store
	provider llm.Provider
	registry *tools.Registry
	memory   *memory.Manager
	safety   *safety.Filter
	logger   *observability.Logger
	metrics  *observability.Metrics
	cfg      config.AgentConfig
}

// New wires a Loop.
func New(st store.Store, provider llm.Provider, registry *tools.Registry, mem *memory.Manager,
	filter *safety.Filter, logger *observability.Logger, metrics *observability.Metrics, cfg config.AgentConfig) *Loop {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}
	if filter == nil {
		filter = safety.New()
	}
	return &Loop{
		store:    st,
		provider: provider,
		registry: registry,
		memory:   mem,
		safety:   filter,
		logger:   logger,
		metrics:  metrics,
		cfg:      cfg,
	}
}

// Run executes one turn and streams its events. The channel closes after
// the terminal event. Cancelling ctx abandons the turn without persisting
// an assistant message.
func (l *Loop) Run(ctx context.Context, userID, sessionID, message string) <-chan models.TurnEvent {
	events := make(chan models.TurnEvent, 32)
	go func() {
		defer close(events)
		ctx, cancel := context.WithTimeout(ctx, l.cfg.TurnTimeout)
		defer cancel()
		l.run(ctx, userID, sessionID, message, events)
	}()
	return events
}

type turnState struct {
	userID    string
	sessionID string
	message   string
	user      *models.User
	userMsg   *models.Message

	text      strings.Builder
	madeCalls []models.ToolCall
	produced  []*models.ChartLock
	widget    *models.Widget
	citations []models.Citation
	fuseFired bool
}

func (l *Loop) run(ctx context.Context, userID, sessionID, message string, events chan<- models.TurnEvent) {
	start := time.Now()
	l.metrics.TurnsStarted.Inc()
	outcome := "ok"
	defer func() {
		l.metrics.TurnsCompleted.WithLabelValues(outcome).Inc()
		l.metrics.TurnDuration.Observe(time.Since(start).Seconds())
	}()
	ctx = observability.WithUserID(ctx, userID)

	user, err := l.store.GetOrCreateUser(ctx, userID)
	if err != nil {
		outcome = "storage_error"
		l.failStorage(ctx, events, sessionID, err)
		return
	}

	if sessionID == "" {
		session := &models.Session{UserID: userID, Title: titleFrom(message)}
		if err := l.store.CreateSession(ctx, session); err != nil {
			outcome = "storage_error"
			l.failStorage(ctx, events, sessionID, err)
			return
		}
		sessionID = session.ID
		events <- models.TurnEvent{Type: models.EventSession, SessionID: sessionID}
	} else if _, err := l.store.GetSession(ctx, sessionID); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			outcome = "storage_error"
			l.failStorage(ctx, events, sessionID, err)
			return
		}
		session := &models.Session{ID: sessionID, UserID: userID, Title: titleFrom(message)}
		if err := l.store.CreateSession(ctx, session); err != nil {
			outcome = "storage_error"
			l.failStorage(ctx, events, sessionID, err)
			return
		}
	}
	ctx = observability.WithSessionID(ctx, sessionID)

	st := &turnState{userID: userID, sessionID: sessionID, message: message, user: user}
	st.userMsg = &models.Message{Role: models.RoleUser, Content: message}
	if _, err := l.store.AppendMessage(ctx, sessionID, st.userMsg); err != nil {
		outcome = "storage_error"
		l.failStorage(ctx, events, sessionID, err)
		return
	}

	// Safety short-circuit: no LM, no tools.
	if hit := l.safety.Check(message); hit != nil {
		outcome = "safety"
		l.logger.Info(ctx, "safety filter triggered", "category", string(hit.Category))
		events <- models.TextEvent(hit.Reply)
		assistant := &models.Message{Role: models.RoleAssistant, Content: hit.Reply}
		if _, err := l.store.AppendMessage(ctx, sessionID, assistant); err != nil {
			outcome = "storage_error"
			l.failStorage(ctx, events, sessionID, err)
			return
		}
		events <- models.DoneEvent(sessionID)
		return
	}

	// Structured extraction: facts found in the user's own words persist.
	if facts := ExtractFacts(message); !facts.IsZero() {
		if err := l.store.UpdateUserFacts(ctx, userID, facts); err != nil {
			l.logger.Warn(ctx, "fact update failed", "error", err)
		} else {
			applyFacts(user, facts)
		}
	}

	history, err := l.store.ReadRecent(ctx, sessionID, l.cfg.HistoryLimit)
	if err != nil {
		l.logger.Warn(ctx, "history read failed, continuing without", "error", err)
	}
	locks, err := l.store.ListChartLocks(ctx, userID)
	if err != nil {
		l.logger.Warn(ctx, "chart lock read failed, continuing without", "error", err)
	}
	snapshot, err := l.memory.Snapshot(ctx, userID)
	if err != nil {
		l.logger.Warn(ctx, "memory read failed, continuing without", "error", err)
		snapshot = &models.MemorySnapshot{}
	}

	signals := DetectSignals(message, user, locks)
	system := prompt.Build(prompt.Input{
		User:           user,
		Locks:          locks,
		Memory:         snapshot,
		TurnCount:      assistantTurns(history),
		ToneHints:      signals.ToneHints,
		OffTopic:       signals.OffTopic,
		Closing:        signals.Closing,
		TargetLanguage: languageLabel(l.cfg.TargetLanguage),
	})

	req := &llm.Request{
		Tier:     llm.TierFast,
		System:   system,
		Messages: historyToContents(history),
		Tools:    l.toolSchemas(),
	}

	if done := l.iterate(ctx, st, signals, req, events, &outcome); done {
		return
	}

	final := st.text.String()
	if strings.TrimSpace(final) == "" {
		events <- models.TextEvent(retryTemplate)
		final = retryTemplate
	}
	if appendix := qualityAppendix(final, st.produced); appendix != "" {
		events <- models.TextEvent(appendix)
		final += appendix
	}

	assistant := &models.Message{
		Role:      models.RoleAssistant,
		Content:   final,
		ToolCalls: st.madeCalls,
		Widget:    st.widget,
		Citations: st.citations,
	}
	persistCtx, cancel := detachedContext(ctx)
	defer cancel()
	if _, err := l.store.AppendMessage(persistCtx, sessionID, assistant); err != nil {
		outcome = "storage_error"
		l.failStorage(ctx, events, sessionID, err)
		return
	}

	if err := l.memory.Observe(persistCtx, userID, st.userMsg, assistant); err != nil {
		l.logger.Warn(ctx, "episodic append failed", "error", err)
	}
	go func() {
		maintainCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		l.memory.Maintain(maintainCtx, userID)
	}()

	events <- models.DoneEvent(sessionID)
}

// iterate runs the bounded tool-use loop. It returns true when the turn
// already terminated (error paths emit their own events).
func (l *Loop) iterate(ctx context.Context, st *turnState, signals Signals, req *llm.Request,
	events chan<- models.TurnEvent, outcome *string) bool {
	for iteration := 0; iteration < l.cfg.MaxToolIterations; iteration++ {
		calls, err := l.streamOnce(ctx, st, req, events)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				// Client went away: nothing is persisted for this turn.
				*outcome = "cancelled"
				return true
			}
			*outcome = "lm_fatal"
			l.logger.Error(ctx, "generation failed after retries", "error", err)
			l.finishWithTemplate(ctx, st, events, apologyTemplate)
			return true
		}

		if shouldFuse(iteration, st.fuseFired, len(calls), signals, st.message) {
			if call, ok := buildFuseCall(st.user); ok {
				st.fuseFired = true
				l.metrics.FuseFirings.Inc()
				l.logger.Info(ctx, "fuse fired", "tool", call.Name)
				calls = append(calls, call)
			}
		}
		if len(calls) == 0 {
			return false
		}

		results, storageErr := l.executeCalls(ctx, st, calls, events)
		if storageErr != nil {
			*outcome = "storage_error"
			l.failStorage(ctx, events, st.sessionID, storageErr)
			return true
		}
		st.madeCalls = append(st.madeCalls, calls...)

		req.Messages = append(req.Messages,
			llm.Message{Role: models.RoleAssistant, ToolCalls: calls},
			llm.Message{Role: models.RoleTool, ToolResults: results},
		)
	}
	// Out of iterations: fall through with whatever text accumulated.
	l.logger.Warn(ctx, "tool iteration cap reached", "cap", l.cfg.MaxToolIterations)
	return false
}

// streamOnce performs one generate call, sanitising text into events and
// collecting tool calls (structured ones plus any recovered from leakage).
func (l *Loop) streamOnce(ctx context.Context, st *turnState, req *llm.Request,
	events chan<- models.TurnEvent) ([]models.ToolCall, error) {
	stream, err := l.provider.Stream(ctx, req)
	if err != nil {
		return nil, err
	}

	sz := sanitize.New(func(text string) {
		st.text.WriteString(text)
		events <- models.TextEvent(text)
	})
	var calls []models.ToolCall
	var streamErr error
	for chunk := range stream {
		if chunk.Error != nil {
			streamErr = chunk.Error
			continue
		}
		if chunk.Text != "" {
			sz.Write(chunk.Text)
		}
		if chunk.ToolCall != nil {
			calls = append(calls, *chunk.ToolCall)
		}
	}
	sz.Close()

	stats := sz.Stats()
	if n := stats.FencesSuppressed + stats.CallsSuppressed; n > 0 {
		l.metrics.SanitizerSuppressions.WithLabelValues("leakage").Add(float64(n))
		l.logger.Warn(ctx, "tool-call leakage suppressed", "count", n, "recovered", len(sz.Calls()))
	}
	if stats.GlyphsDropped > 0 {
		l.metrics.SanitizerSuppressions.WithLabelValues("glyph").Add(float64(stats.GlyphsDropped))
	}
	if streamErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, streamErr
	}
	return append(calls, sz.Calls()...), nil
}

// executeCalls invokes each call in order, emitting tool status events and
// persisting the tool message. A non-nil storage error fails the turn.
func (l *Loop) executeCalls(ctx context.Context, st *turnState, calls []models.ToolCall,
	events chan<- models.TurnEvent) ([]models.ToolResult, error) {
	var results []models.ToolResult
	for _, call := range calls {
		events <- models.TurnEvent{Type: models.EventTool, Tool: &models.ToolStatus{
			Name: call.Name, Status: models.ToolExecuting, Args: call.Input, FuseTriggered: call.FuseTriggered,
		}}
		if _, isChart := chartKindForTool[call.Name]; isChart {
			events <- models.TurnEvent{Type: models.EventProgress, Progress: &models.Progress{
				TaskName: call.Name, Status: "running", Message: "排盤中",
			}}
		}

		result, storageErr := l.executeOne(ctx, st, call, events)
		if storageErr != nil {
			return nil, storageErr
		}
		phase := models.ToolCompleted
		if result.IsError {
			phase = models.ToolFailed
		}
		if _, isChart := chartKindForTool[call.Name]; isChart {
			events <- models.TurnEvent{Type: models.EventProgress, Progress: &models.Progress{
				TaskName: call.Name, Status: string(phase), Progress: 1,
			}}
		}
		events <- models.TurnEvent{Type: models.EventTool, Tool: &models.ToolStatus{
			Name: call.Name, Status: phase, FuseTriggered: call.FuseTriggered,
		}}
		results = append(results, result)
	}

	toolMsg := &models.Message{Role: models.RoleTool, ToolResults: results}
	if _, err := l.store.AppendMessage(ctx, st.sessionID, toolMsg); err != nil {
		return nil, err
	}
	return results, nil
}

// executeOne runs a single call. Validation and execution failures become
// error results fed back to the model; only chart-lock write failures
// propagate as storage errors.
func (l *Loop) executeOne(ctx context.Context, st *turnState, call models.ToolCall,
	events chan<- models.TurnEvent) (models.ToolResult, error) {
	result := models.ToolResult{ToolCallID: call.ID, Name: call.Name}

	var args map[string]any
	if len(call.Input) > 0 {
		if err := json.Unmarshal(call.Input, &args); err != nil {
			result.IsError = true
			result.Content = "invalid arguments: " + err.Error()
			return result, nil
		}
	}

	out, err := l.registry.Invoke(ctx, call.Name, args, tools.TurnContext{
		UserID:    st.userID,
		SessionID: st.sessionID,
	})
	if err != nil {
		// The model sees the reason and can correct itself next iteration.
		result.IsError = true
		result.Content = err.Error()
		return result, nil
	}

	payload, err := json.Marshal(out)
	if err != nil {
		result.IsError = true
		result.Content = "unserialisable tool result"
		return result, nil
	}
	result.Content = string(payload)

	if kind, isChart := chartKindForTool[call.Name]; isChart {
		if err := l.store.WriteChartLock(ctx, st.userID, kind, payload); err != nil {
			return result, err
		}
		lock := &models.ChartLock{UserID: st.userID, Kind: kind, Payload: payload, CreatedAt: time.Now().UTC()}
		st.produced = append(st.produced, lock)
		st.widget = &models.Widget{Type: string(kind), Data: payload}
		events <- models.TurnEvent{Type: models.EventWidget, Widget: st.widget}
		if summary := lock.Summary(); summary != "" {
			st.citations = append(st.citations, models.Citation{
				System:  chartSystemLabels[kind],
				Excerpt: summary,
			})
		}
	}
	return result, nil
}

// finishWithTemplate ends the turn with a template reply after an
// unrecoverable LM failure. The turn still completes normally for the
// client.
func (l *Loop) finishWithTemplate(ctx context.Context, st *turnState, events chan<- models.TurnEvent, template string) {
	text := template
	if st.text.Len() > 0 {
		text = "\n\n" + template
	}
	events <- models.TextEvent(text)

	assistant := &models.Message{
		Role:      models.RoleAssistant,
		Content:   st.text.String() + text,
		ToolCalls: st.madeCalls,
		Widget:    st.widget,
		Citations: st.citations,
	}
	persistCtx, cancel := detachedContext(ctx)
	defer cancel()
	if _, err := l.store.AppendMessage(persistCtx, st.sessionID, assistant); err != nil {
		l.logger.Error(ctx, "assistant persist failed on template path", "error", err)
	} else if err := l.memory.Observe(persistCtx, st.userID, st.userMsg, assistant); err != nil {
		l.logger.Warn(ctx, "episodic append failed", "error", err)
	}
	events <- models.DoneEvent(st.sessionID)
}

// failStorage fails the turn closed: a warning reaches the client, nothing
// is persisted beyond what already was.
func (l *Loop) failStorage(ctx context.Context, events chan<- models.TurnEvent, sessionID string, err error) {
	l.logger.Error(ctx, "storage failure, turn failed closed", "error", err)
	events <- models.TextEvent(storageTemplate)
	events <- models.DoneEvent(sessionID)
}

func (l *Loop) toolSchemas() []llm.ToolSchema {
	descriptors := l.registry.List()
	schemas := make([]llm.ToolSchema, 0, len(descriptors))
	for _, d := range descriptors {
		schemas = append(schemas, llm.ToolSchema{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		})
	}
	return schemas
}

func historyToContents(history []*models.Message) []llm.Message {
	var contents []llm.Message
	for _, msg := range history {
		switch msg.Role {
		case models.RoleUser, models.RoleAssistant:
			contents = append(contents, llm.Message{
				Role:      msg.Role,
				Content:   msg.Content,
				ToolCalls: msg.ToolCalls,
			})
		case models.RoleTool:
			contents = append(contents, llm.Message{
				Role:        models.RoleTool,
				ToolResults: msg.ToolResults,
			})
		}
	}
	return contents
}

func assistantTurns(history []*models.Message) int {
	n := 0
	for _, msg := range history {
		if msg.Role == models.RoleAssistant {
			n++
		}
	}
	return n
}

func applyFacts(user *models.User, facts models.UserFacts) {
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
		user.Longitude = facts.Longitude
	}
	if facts.Latitude != nil {
		user.Latitude = facts.Latitude
	}
}

func languageLabel(code string) string {
	switch code {
	case "", "zh-Hant":
		return "繁體中文"
	default:
		return code
	}
}

func titleFrom(message string) string {
	runes := []rune(strings.TrimSpace(message))
	if len(runes) > 20 {
		runes = runes[:20]
	}
	return string(runes)
}

// detachedContext keeps persistence writes alive briefly even when the turn
// context was cancelled or timed out.
func detachedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
}
