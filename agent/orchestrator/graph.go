package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
)

func (o *Orchestrator) compileTurnGraph(ctx context.Context) (compose.Runnable[GraphInput, *TurnResult], error) {
	graph := compose.NewGraph[GraphInput, *TurnResult]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in GraphInput) (*turnState, error) {
			return validateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_session",
		compose.InvokableLambda(o.loadSession),
	); err != nil {
		return nil, fmt.Errorf("add node load_session: %w", err)
	}

	if err := graph.AddLambdaNode("decide",
		compose.InvokableLambda(o.decide),
	); err != nil {
		return nil, fmt.Errorf("add node decide: %w", err)
	}

	if err := graph.AddLambdaNode("reject_turn",
		compose.InvokableLambda(o.rejectTurn),
	); err != nil {
		return nil, fmt.Errorf("add node reject_turn: %w", err)
	}

	if err := graph.AddLambdaNode("clarify_turn",
		compose.InvokableLambda(o.clarifyTurn),
	); err != nil {
		return nil, fmt.Errorf("add node clarify_turn: %w", err)
	}

	if err := graph.AddLambdaNode("perform_handoff",
		compose.InvokableLambda(o.performHandoff),
	); err != nil {
		return nil, fmt.Errorf("add node perform_handoff: %w", err)
	}

	if err := graph.AddLambdaNode("resume_specialist",
		compose.InvokableLambda(o.resumeSpecialist),
	); err != nil {
		return nil, fmt.Errorf("add node resume_specialist: %w", err)
	}

	if err := graph.AddLambdaNode("generate_reply",
		compose.InvokableLambda(o.generateReply),
	); err != nil {
		return nil, fmt.Errorf("add node generate_reply: %w", err)
	}

	if err := graph.AddLambdaNode("persist_turn",
		compose.InvokableLambda(o.persistTurn),
	); err != nil {
		return nil, fmt.Errorf("add node persist_turn: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_turn",
		compose.InvokableLambda(finalizeTurn),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_turn: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, st *turnState) (string, error) {
			switch st.route {
			case routeReject:
				return "reject_turn", nil
			case routeClarify:
				return "clarify_turn", nil
			case routeHandoff:
				return "perform_handoff", nil
			case routeResume:
				return "resume_specialist", nil
			default:
				return "", fmt.Errorf("unknown route %q", st.route)
			}
		},
		map[string]bool{
			"reject_turn":       true,
			"clarify_turn":      true,
			"perform_handoff":   true,
			"resume_specialist": true,
		},
	)

	if err := graph.AddEdge(compose.START, "validate_request"); err != nil {
		return nil, fmt.Errorf("add edge start->validate_request: %w", err)
	}
	if err := graph.AddEdge("validate_request", "load_session"); err != nil {
		return nil, fmt.Errorf("add edge validate_request->load_session: %w", err)
	}
	if err := graph.AddEdge("load_session", "decide"); err != nil {
		return nil, fmt.Errorf("add edge load_session->decide: %w", err)
	}
	if err := graph.AddBranch("decide", branch); err != nil {
		return nil, fmt.Errorf("add decide branch: %w", err)
	}
	if err := graph.AddEdge("perform_handoff", "generate_reply"); err != nil {
		return nil, fmt.Errorf("add edge perform_handoff->generate_reply: %w", err)
	}
	if err := graph.AddEdge("resume_specialist", "generate_reply"); err != nil {
		return nil, fmt.Errorf("add edge resume_specialist->generate_reply: %w", err)
	}
	for _, from := range []string{"reject_turn", "clarify_turn", "generate_reply"} {
		if err := graph.AddEdge(from, "persist_turn"); err != nil {
			return nil, fmt.Errorf("add edge %s->persist_turn: %w", from, err)
		}
	}
	if err := graph.AddEdge("persist_turn", "finalize_turn"); err != nil {
		return nil, fmt.Errorf("add edge persist_turn->finalize_turn: %w", err)
	}
	if err := graph.AddEdge("finalize_turn", compose.END); err != nil {
		return nil, fmt.Errorf("add edge finalize_turn->end: %w", err)
	}

	runner, err := graph.Compile(ctx,
		compose.WithGraphName("orchestrator.handle_turn"),
		compose.WithNodeTriggerMode(compose.AnyPredecessor),
	)
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}
