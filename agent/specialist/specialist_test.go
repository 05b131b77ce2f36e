package specialist

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/contract"
)

type fakeStreamModel struct {
	chunks []string
	err    error
}

func (f *fakeStreamModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &schema.Message{Role: schema.Assistant, Content: strings.Join(f.chunks, "")}, nil
}

func (f *fakeStreamModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	if f.err != nil {
		return nil, f.err
	}
	msgs := make([]*schema.Message, 0, len(f.chunks))
	for _, chunk := range f.chunks {
		msgs = append(msgs, &schema.Message{Role: schema.Assistant, Content: chunk})
	}
	return schema.StreamReaderFromArray(msgs), nil
}

type fakeOutputGate struct {
	verdict contractx.OutputVerdict
}

func (f *fakeOutputGate) Evaluate(ctx context.Context, text string, cust contractx.CustomerContext) (contractx.OutputVerdict, error) {
	return f.verdict, nil
}

var testCustomer = contractx.CustomerContext{
	CustomerID: "42",
	Name:       "teddy",
	Email:      "teddy@example.com",
	Tier:       contractx.TierPremium,
}

func drain(t *testing.T, stream *schema.StreamReader[string]) []string {
	t.Helper()
	defer stream.Close()

	var fragments []string
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return fragments
		}
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		fragments = append(fragments, chunk)
	}
}

func TestRespondStreamsFragments(t *testing.T) {
	t.Parallel()

	model := &fakeStreamModel{chunks: []string{"Your invoice ", "", "was issued ", "on March 3."}}
	spec, err := newSpecialist(context.Background(), contractx.SpecialistBilling, model, "answer billing questions", &fakeOutputGate{})
	if err != nil {
		t.Fatalf("newSpecialist() error = %v", err)
	}

	history := []contractx.Item{
		{Role: contractx.RoleUser, Content: "when was my invoice issued"},
	}
	stream, err := spec.Respond(context.Background(), testCustomer, history)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}

	fragments := drain(t, stream)
	if len(fragments) != 3 {
		t.Fatalf("fragments = %d, want 3 (empty chunks skipped): %q", len(fragments), fragments)
	}
	full := strings.Join(fragments, "")
	if full != "Your invoice was issued on March 3." {
		t.Fatalf("joined = %q", full)
	}
}

func TestRespondModelError(t *testing.T) {
	t.Parallel()

	model := &fakeStreamModel{err: errors.New("upstream 503")}
	spec, err := newSpecialist(context.Background(), contractx.SpecialistOrder, model, "answer order questions", &fakeOutputGate{})
	if err != nil {
		t.Fatalf("newSpecialist() error = %v", err)
	}

	_, err = spec.Respond(context.Background(), testCustomer, nil)
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("error = %v, want ErrModelInvoke", err)
	}
}

func TestNewSpecialistValidation(t *testing.T) {
	t.Parallel()

	model := &fakeStreamModel{chunks: []string{"ok"}}

	if _, err := newSpecialist(context.Background(), contractx.SpecialistAccount, model, "  ", &fakeOutputGate{}); !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("empty prompt error = %v, want ErrPromptMissing", err)
	}
	if _, err := newSpecialist(context.Background(), contractx.SpecialistAccount, model, "prompt", nil); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("nil gate error = %v, want ErrValidation", err)
	}
}

func TestSpecialistAccessors(t *testing.T) {
	t.Parallel()

	gate := &fakeOutputGate{}
	spec, err := newSpecialist(context.Background(), contractx.SpecialistTechnical, &fakeStreamModel{chunks: []string{"ok"}}, "answer technical questions", gate)
	if err != nil {
		t.Fatalf("newSpecialist() error = %v", err)
	}
	if spec.Name() != contractx.SpecialistTechnical {
		t.Fatalf("Name() = %q", spec.Name())
	}
	if spec.OutputGate() != contractx.OutputGate(gate) {
		t.Fatal("OutputGate() did not return the wired gate")
	}
}

func TestRegistryLookup(t *testing.T) {
	t.Parallel()

	reg := &registryImpl{
		account:   &specialistImpl{name: contractx.SpecialistAccount},
		billing:   &specialistImpl{name: contractx.SpecialistBilling},
		order:     &specialistImpl{name: contractx.SpecialistOrder},
		technical: &specialistImpl{name: contractx.SpecialistTechnical},
	}

	for _, name := range []contractx.SpecialistName{
		contractx.SpecialistAccount,
		contractx.SpecialistBilling,
		contractx.SpecialistOrder,
		contractx.SpecialistTechnical,
	} {
		spec, ok := reg.Lookup(name)
		if !ok {
			t.Fatalf("Lookup(%q) not found", name)
		}
		if spec.Name() != name {
			t.Fatalf("Lookup(%q).Name() = %q", name, spec.Name())
		}
	}

	if _, ok := reg.Lookup(contractx.SpecialistTriage); ok {
		t.Fatal("Lookup(triage) = ok, triage is not a respondable specialist")
	}
}
