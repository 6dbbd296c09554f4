package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stevechen1112/aetheria/internal/llm"
	"github.com/stevechen1112/aetheria/internal/store"
	"github.com/stevechen1112/aetheria/pkg/models"
)

type fakeProvider struct {
	text  string
	fail  bool
	calls int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Stream(ctx context.Context, req *llm.Request) (<-chan *llm.Chunk, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("provider down")
	}
	ch := make(chan *llm.Chunk, 2)
	ch <- &llm.Chunk{Text: f.text}
	ch <- &llm.Chunk{Done: true}
	close(ch)
	return ch, nil
}

func fillWindow(t *testing.T, st store.Store, userID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		if err := st.AppendEpisodic(context.Background(), userID,
			&models.Message{Role: role, Content: "訊息"}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestObserveFiltersToolTraffic(t *testing.T) {
	st := store.NewMemoryStore()
	m := NewManager(st, nil, nil, nil)

	err := m.Observe(context.Background(), "u1",
		&models.Message{Role: models.RoleUser, Content: "問題"},
		&models.Message{Role: models.RoleTool, Content: "raw tool json"},
		&models.Message{Role: models.RoleAssistant, Content: "回覆"},
	)
	if err != nil {
		t.Fatal(err)
	}
	snapshot, _ := st.ReadMemory(context.Background(), "u1")
	if len(snapshot.Episodic) != 2 {
		t.Errorf("tool message should be excluded, window = %d", len(snapshot.Episodic))
	}
}

func TestMaintainCompactsOverThreshold(t *testing.T) {
	st := store.NewMemoryStore()
	provider := &fakeProvider{text: "對方多次詢問事業運，顧問建議穩中求進。"}
	m := NewManager(st, provider, nil, nil)

	fillWindow(t, st, "u1", WindowThreshold+4)
	m.Maintain(context.Background(), "u1")

	snapshot, _ := st.ReadMemory(context.Background(), "u1")
	if len(snapshot.Episodic) != WindowKeep {
		t.Errorf("window should shrink to %d, got %d", WindowKeep, len(snapshot.Episodic))
	}
	if len(snapshot.Summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(snapshot.Summaries))
	}
	s := snapshot.Summaries[0]
	if s.Consumed != WindowThreshold+4-WindowKeep {
		t.Errorf("consumed = %d", s.Consumed)
	}
	if s.Text != provider.text {
		t.Errorf("summary text: %q", s.Text)
	}
}

func TestMaintainNoopUnderThreshold(t *testing.T) {
	st := store.NewMemoryStore()
	provider := &fakeProvider{text: "摘要"}
	m := NewManager(st, provider, nil, nil)

	fillWindow(t, st, "u1", WindowThreshold)
	m.Maintain(context.Background(), "u1")

	if provider.calls != 0 {
		t.Error("summariser should not run at or under the threshold")
	}
	snapshot, _ := st.ReadMemory(context.Background(), "u1")
	if len(snapshot.Episodic) != WindowThreshold {
		t.Errorf("window must be untouched, got %d", len(snapshot.Episodic))
	}
}

func TestMaintainKeepsWindowOnFailure(t *testing.T) {
	st := store.NewMemoryStore()
	provider := &fakeProvider{fail: true}
	m := NewManager(st, provider, nil, nil)

	fillWindow(t, st, "u1", WindowThreshold+6)
	m.Maintain(context.Background(), "u1")

	snapshot, _ := st.ReadMemory(context.Background(), "u1")
	if len(snapshot.Episodic) != WindowThreshold+6 {
		t.Errorf("window must survive a failed summary, got %d", len(snapshot.Episodic))
	}
	if len(snapshot.Summaries) != 0 {
		t.Error("no summary should be written on failure")
	}

	// Next turn retries and succeeds.
	provider.fail = false
	provider.text = "補上的摘要"
	m.Maintain(context.Background(), "u1")
	snapshot, _ = st.ReadMemory(context.Background(), "u1")
	if len(snapshot.Summaries) != 1 {
		t.Error("retry on a later turn should succeed")
	}
}
