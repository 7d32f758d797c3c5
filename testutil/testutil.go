// Package testutil provides chat models for tests: a scripted fake and a live
// OpenAI-compatible model gated behind an environment variable.
package testutil

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const LiveTestsEnv = "ESTIMAGENT_RUN_LIVE_TESTS"

// LiveChatModel returns a real chat model, or skips the test unless
// ESTIMAGENT_RUN_LIVE_TESTS=1 and OPENAI_API_KEY are set.
func LiveChatModel(t *testing.T) model.ToolCallingChatModel {
	t.Helper()
	if os.Getenv(LiveTestsEnv) != "1" {
		t.Skipf("set %s=1 to run live LLM tests", LiveTestsEnv)
		return nil
	}
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY is empty")
		return nil
	}
	modelName := os.Getenv("OPENAI_MODEL")
	if modelName == "" {
		modelName = "gpt-4o"
	}
	cm, err := openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
		APIKey:  apiKey,
		Model:   modelName,
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
	})
	if err != nil {
		t.Fatalf("failed to init chat model: %v", err)
		return nil
	}
	return cm
}

// ScriptedReply is one canned model response.
type ScriptedReply struct {
	Content  string
	ToolName string
	ToolArgs string
	Err      error
}

// ScriptedChatModel replays replies in order and records every prompt it saw.
// Once the script is exhausted the last reply repeats.
type ScriptedChatModel struct {
	mu      sync.Mutex
	replies []ScriptedReply
	calls   [][]*schema.Message
}

var _ model.ToolCallingChatModel = (*ScriptedChatModel)(nil)

func NewScriptedChatModel(replies ...ScriptedReply) *ScriptedChatModel {
	return &ScriptedChatModel{replies: replies}
}

func (m *ScriptedChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, input)
	if len(m.replies) == 0 {
		return nil, errors.New("scripted model has no replies")
	}
	idx := len(m.calls) - 1
	if idx >= len(m.replies) {
		idx = len(m.replies) - 1
	}
	reply := m.replies[idx]
	if reply.Err != nil {
		return nil, reply.Err
	}
	msg := schema.AssistantMessage(reply.Content, nil)
	if reply.ToolName != "" {
		msg.ToolCalls = []schema.ToolCall{{
			ID:   "call_1",
			Type: "function",
			Function: schema.FunctionCall{
				Name:      reply.ToolName,
				Arguments: reply.ToolArgs,
			},
		}}
	}
	return msg, nil
}

func (m *ScriptedChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *ScriptedChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// Calls returns the prompts the model received so far.
func (m *ScriptedChatModel) Calls() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]*schema.Message(nil), m.calls...)
}
