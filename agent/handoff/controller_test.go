package handoff

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/contract"
	sessionx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/session"
)

type fakeStore struct {
	mu     sync.Mutex
	active map[string]contractx.SpecialistName
	setErr error
	sets   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{active: make(map[string]contractx.SpecialistName)}
}

func (f *fakeStore) Append(ctx context.Context, sessionID string, item contractx.Item) error {
	return nil
}

func (f *fakeStore) Items(ctx context.Context, sessionID string) ([]contractx.Item, error) {
	return nil, nil
}

func (f *fakeStore) Clear(ctx context.Context, sessionID string) error { return nil }

func (f *fakeStore) ActiveSpecialist(ctx context.Context, sessionID string) (contractx.SpecialistName, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name, ok := f.active[sessionID]; ok {
		return name, nil
	}
	return contractx.SpecialistTriage, nil
}

func (f *fakeStore) SetActiveSpecialist(ctx context.Context, sessionID string, name contractx.SpecialistName) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.active[sessionID] = name
	return nil
}

var _ sessionx.Store = (*fakeStore)(nil)

type spyObserver struct {
	mu      sync.Mutex
	records []contractx.HandoffData
}

func (s *spyObserver) HandoffOccurred(ctx context.Context, sessionID string, data contractx.HandoffData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, data)
}

type fakeSpecialist struct {
	name contractx.SpecialistName
}

func (f *fakeSpecialist) Name() contractx.SpecialistName { return f.name }

func (f *fakeSpecialist) Respond(ctx context.Context, cust contractx.CustomerContext, history []contractx.Item) (*schema.StreamReader[string], error) {
	return schema.StreamReaderFromArray([]string{"ok"}), nil
}

func (f *fakeSpecialist) OutputGate() contractx.OutputGate { return nil }

func billingHandoff() contractx.HandoffData {
	return contractx.HandoffData{
		ToAgentName:      contractx.SpecialistBilling,
		Reason:           "customer disputes an invoice",
		IssueType:        contractx.IssueBilling,
		IssueDescription: "double charge in march",
	}
}

func TestExecuteUpdatesPointerAndAuditsOnce(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	observer := &spyObserver{}
	ctrl, err := New(store, observer)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	history := []contractx.Item{
		{Role: contractx.RoleUser, Content: "I was charged twice"},
		{Role: contractx.RoleTool, Content: `{"tool":"lookup_invoice"}`},
		{Role: contractx.RoleAssistant, Content: "let me check"},
	}

	filtered, err := ctrl.Execute(context.Background(), "s1", &fakeSpecialist{name: contractx.SpecialistBilling}, billingHandoff(), history)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	active, _ := store.ActiveSpecialist(context.Background(), "s1")
	if active != contractx.SpecialistBilling {
		t.Fatalf("active = %q, want billing", active)
	}
	if len(observer.records) != 1 {
		t.Fatalf("audit records = %d, want exactly 1", len(observer.records))
	}
	if observer.records[0].Reason != "customer disputes an invoice" {
		t.Fatalf("audit reason = %q", observer.records[0].Reason)
	}

	if len(filtered) != 2 {
		t.Fatalf("filtered len = %d, want 2", len(filtered))
	}
	for _, item := range filtered {
		if item.Role == contractx.RoleTool {
			t.Fatalf("tool item leaked into filtered history: %+v", item)
		}
	}
}

func TestExecuteTargetMismatch(t *testing.T) {
	t.Parallel()

	ctrl, _ := New(newFakeStore(), nil)

	data := billingHandoff() // addressed to billing
	_, err := ctrl.Execute(context.Background(), "s1", &fakeSpecialist{name: contractx.SpecialistOrder}, data, nil)
	if !errors.Is(err, contractx.ErrHandoffViolation) {
		t.Fatalf("error = %v, want ErrHandoffViolation", err)
	}
}

func TestExecuteMissingReason(t *testing.T) {
	t.Parallel()

	ctrl, _ := New(newFakeStore(), nil)

	data := billingHandoff()
	data.Reason = "  "
	_, err := ctrl.Execute(context.Background(), "s1", &fakeSpecialist{name: contractx.SpecialistBilling}, data, nil)
	if !errors.Is(err, contractx.ErrHandoffViolation) {
		t.Fatalf("error = %v, want ErrHandoffViolation", err)
	}
}

func TestExecuteNilTarget(t *testing.T) {
	t.Parallel()

	ctrl, _ := New(newFakeStore(), nil)

	_, err := ctrl.Execute(context.Background(), "s1", nil, billingHandoff(), nil)
	if !errors.Is(err, contractx.ErrHandoffViolation) {
		t.Fatalf("error = %v, want ErrHandoffViolation", err)
	}
}

func TestExecuteEmptySession(t *testing.T) {
	t.Parallel()

	ctrl, _ := New(newFakeStore(), nil)

	_, err := ctrl.Execute(context.Background(), " ", &fakeSpecialist{name: contractx.SpecialistBilling}, billingHandoff(), nil)
	if !errors.Is(err, sessionx.ErrInvalidSession) {
		t.Fatalf("error = %v, want ErrInvalidSession", err)
	}
}

func TestExecuteStoreFailureEmitsNoAudit(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.setErr = errors.New("disk full")
	observer := &spyObserver{}
	ctrl, _ := New(store, observer)

	_, err := ctrl.Execute(context.Background(), "s1", &fakeSpecialist{name: contractx.SpecialistBilling}, billingHandoff(), nil)
	if err == nil {
		t.Fatal("Execute() error = nil, want store failure")
	}
	if len(observer.records) != 0 {
		t.Fatalf("audit records = %d, want 0 on failed handoff", len(observer.records))
	}
}

func TestFilterToolItems(t *testing.T) {
	t.Parallel()

	history := []contractx.Item{
		{Role: contractx.RoleUser, Content: "a"},
		{Role: contractx.RoleTool, Content: "t1"},
		{Role: contractx.RoleSystem, Content: "sys"},
		{Role: contractx.RoleAssistant, Content: "b"},
		{Role: contractx.RoleTool, Content: "t2"},
	}

	filtered := FilterToolItems(history)
	if len(filtered) != 2 {
		t.Fatalf("filtered len = %d, want 2", len(filtered))
	}
	if filtered[0].Content != "a" || filtered[1].Content != "b" {
		t.Fatalf("filtered = %+v", filtered)
	}
}
