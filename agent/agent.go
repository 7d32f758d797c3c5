package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
)

var _ adk.Agent = (*Agent)(nil)

// Agent exposes Sessions as an eino ADK agent. The session is taken from the
// context (see WithSessionID) and created on first use.
type Agent struct {
	name        string
	description string
	service     string
	sessions    *Sessions
}

func NewAgent(name, description, service string, sessions *Sessions) *Agent {
	return &Agent{
		name:        name,
		description: description,
		service:     service,
		sessions:    sessions,
	}
}

func (a *Agent) Name(ctx context.Context) string {
	return a.name
}

func (a *Agent) Description(ctx context.Context) string {
	return a.description
}

func (a *Agent) Run(ctx context.Context, input *adk.AgentInput, options ...adk.AgentRunOption) *adk.AsyncIterator[*adk.AgentEvent] {
	iter, gen := adk.NewAsyncIteratorPair[*adk.AgentEvent]()
	go func() {
		defer func() {
			if e := recover(); e != nil {
				gen.Send(&adk.AgentEvent{
					Err: fmt.Errorf("recover from panic: %v", e),
				})
			}
			gen.Close()
		}()
		replies, err := a.handle(ctx, input)
		if err != nil {
			gen.Send(&adk.AgentEvent{Err: err})
			return
		}
		for _, msg := range replies {
			gen.Send(&adk.AgentEvent{
				AgentName: a.name,
				Output: &adk.AgentOutput{
					MessageOutput: &adk.MessageVariant{
						IsStreaming: false,
						Message:     msg,
						Role:        schema.Assistant,
					},
				},
			})
		}
	}()
	return iter
}

func (a *Agent) handle(ctx context.Context, input *adk.AgentInput) ([]*schema.Message, error) {
	id, ok := SessionIDFromContext(ctx)
	if !ok {
		return nil, errors.New("no session id in context")
	}
	var replies []*schema.Message
	started, created, err := a.sessions.GetOrCreate(ctx, id, a.service)
	if err != nil {
		return nil, err
	}
	if created {
		replies = append(replies, started.Replies...)
	}

	text := lastUserText(input)
	if text == "" {
		return replies, nil
	}
	turn, err := a.sessions.Message(ctx, id, text)
	if err != nil {
		return nil, fmt.Errorf("handle message: %w", err)
	}
	return append(replies, turn.Replies...), nil
}

func lastUserText(input *adk.AgentInput) string {
	if input == nil {
		return ""
	}
	for i := len(input.Messages) - 1; i >= 0; i-- {
		if m := input.Messages[i]; m != nil && m.Role == schema.User {
			return m.Content
		}
	}
	return ""
}
