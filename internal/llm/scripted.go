package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Step is one scripted completion: a reply or an error.
type Step struct {
	Reply *Reply
	Err   error
}

// TextStep scripts a plain-text answer.
func TextStep(text string) Step {
	return Step{Reply: NewReply(text, nil)}
}

// CallStep scripts a single tool call with structured arguments.
func CallStep(name string, args map[string]any) Step {
	raw, _ := json.Marshal(args)
	return Step{Reply: NewReply("", []ToolCall{{ID: "call_1", Name: name, Arguments: args, Raw: string(raw)}})}
}

// RawCallStep scripts a tool call whose arguments arrive as raw text, possibly
// malformed.
func RawCallStep(name, raw string) Step {
	call := ToolCall{ID: "call_1", Name: name, Raw: raw}
	if err := json.Unmarshal([]byte(raw), &call.Arguments); err != nil {
		call.Arguments = nil
	}
	return Step{Reply: NewReply("", []ToolCall{call})}
}

// ErrorStep scripts a failed completion.
func ErrorStep(err error) Step {
	return Step{Err: err}
}

// ScriptedClient replays a fixed list of steps and records every request. It
// stands in for a provider in tests and offline runs.
type ScriptedClient struct {
	mu       sync.Mutex
	steps    []Step
	requests []Request
}

// NewScriptedClient returns a client that answers with steps in order.
func NewScriptedClient(steps ...Step) *ScriptedClient {
	return &ScriptedClient{steps: steps}
}

// Push appends more steps.
func (s *ScriptedClient) Push(steps ...Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, steps...)
}

func (s *ScriptedClient) Complete(ctx context.Context, req Request) (*Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.steps) == 0 {
		return nil, fmt.Errorf("scripted client: no step left for request %d", len(s.requests))
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	if step.Err != nil {
		return nil, step.Err
	}
	reply := *step.Reply
	return &reply, nil
}

func (s *ScriptedClient) Model() string {
	return "scripted"
}

// Requests returns the requests seen so far.
func (s *ScriptedClient) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Remaining reports how many steps have not been consumed.
func (s *ScriptedClient) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}
