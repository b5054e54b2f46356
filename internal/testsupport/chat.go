package testsupport

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"nexus/internal/adapters/ai"
)

// ScriptedChat is an ai.ChatProvider that answers from a fixed script. By
// default responses are consumed in order; Route entries answer prompts
// containing a substring first, which keeps scripts stable when step order
// changes under different run configs.
type ScriptedChat struct {
	mu        sync.Mutex
	responses []string
	routes    []route
	failWith  error
	Calls     []string
}

type route struct {
	substr   string
	response string
}

func NewScriptedChat(responses ...string) *ScriptedChat {
	return &ScriptedChat{responses: responses}
}

// Route answers any prompt containing substr with response, checked before
// the ordered script.
func (s *ScriptedChat) Route(substr, response string) *ScriptedChat {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, route{substr: substr, response: response})
	return s
}

// FailWith makes every subsequent call return err.
func (s *ScriptedChat) FailWith(err error) *ScriptedChat {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
	return s
}

func (s *ScriptedChat) Name() string { return "scripted" }

func (s *ScriptedChat) Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var prompt string
	if len(req.Messages) > 0 {
		prompt = req.Messages[len(req.Messages)-1].Content
	}
	s.Calls = append(s.Calls, prompt)

	if s.failWith != nil {
		return nil, s.failWith
	}

	for _, r := range s.routes {
		if strings.Contains(prompt, r.substr) {
			return &ai.ChatResponse{Model: req.Model, Content: r.response}, nil
		}
	}

	if len(s.responses) == 0 {
		return nil, fmt.Errorf("scripted chat exhausted after %d calls", len(s.Calls))
	}
	out := s.responses[0]
	s.responses = s.responses[1:]
	return &ai.ChatResponse{Model: req.Model, Content: out}, nil
}

// CallCount returns the number of chat calls made so far.
func (s *ScriptedChat) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}

// EchoChat answers every prompt with a canned line naming the speaker it
// inferred from the prompt, enough for debate-flow tests that only count
// turns.
type EchoChat struct {
	mu    sync.Mutex
	calls int
}

func (e *EchoChat) Name() string { return "echo" }

func (e *EchoChat) Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.calls++
	n := e.calls
	e.mu.Unlock()

	return &ai.ChatResponse{
		Model:   req.Model,
		Content: fmt.Sprintf("Response %d: HOLD pending further evidence.", n),
	}, nil
}

func (e *EchoChat) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
