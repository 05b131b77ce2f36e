package contract

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// InputGate classifies raw user input against the on-topic rubric. Evaluate is
// stateless across calls. Implementations fail closed: if the underlying
// classifier cannot produce a structured verdict, the returned verdict has the
// tripwire set rather than an error leaking through as an accept.
type InputGate interface {
	Evaluate(ctx context.Context, text string, cust CustomerContext) (InputVerdict, error)
}

// OutputGate classifies a completed specialist response against that
// specialist's domain-leak rubric. Same fail-closed contract as InputGate.
type OutputGate interface {
	Evaluate(ctx context.Context, text string, cust CustomerContext) (OutputVerdict, error)
}

// Specialist generates a response as a finite, non-restartable stream of text
// fragments. The history it receives has already been filtered of tool records.
type Specialist interface {
	Name() SpecialistName
	Respond(ctx context.Context, cust CustomerContext, history []Item) (*schema.StreamReader[string], error)
	OutputGate() OutputGate
}

// Registry exposes the fixed set of specialists.
type Registry interface {
	Account() Specialist
	Billing() Specialist
	Order() Specialist
	Technical() Specialist
	Lookup(name SpecialistName) (Specialist, bool)
}

// Router classifies one utterance and joins it with the input gate verdict.
type Router interface {
	Route(ctx context.Context, text string, cust CustomerContext, history []Item) (Decision, error)
}

// HandoffController transfers active-specialist ownership for a session. It
// returns the history filtered for the target specialist. Emits exactly one
// audit record per completed handoff; on any failure neither the pointer nor
// the audit record is touched.
type HandoffController interface {
	Execute(ctx context.Context, sessionID string, target Specialist, data HandoffData, history []Item) ([]Item, error)
}

// AuditObserver receives handoff audit records. The UI is one implementation;
// the core only guarantees exactly-once delivery per completed handoff.
type AuditObserver interface {
	HandoffOccurred(ctx context.Context, sessionID string, data HandoffData)
}
