package intent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/estimagent/structured"
)

const (
	classifyIntentToolName        = "classify_intent"
	classifyIntentToolDescription = "Classify a customer's follow-up message after an estimate was given."
)

const DefaultIntentSystemPrompt = `A customer has already received a price estimate and sent another message.
Classify the message into exactly one intent:
- greeting: a hello with no question.
- gratitude: thanks or appreciation.
- timeline_inquiry: asks when the work can start or how long it takes.
- material_inquiry: asks about materials, quality or brands.
- warranty_inquiry: asks about warranty or guarantees.
- other: anything else.
When several apply, prefer the one listed first.
Call the '` + classifyIntentToolName + `' tool with the result.`

type classifyIntentOutput struct {
	Intent Intent `json:"intent" jsonschema:"required,enum=greeting,enum=gratitude,enum=timeline_inquiry,enum=material_inquiry,enum=warranty_inquiry,enum=other,description=The customer's intent"`
}

type ToolBasedRecognizer struct {
	chain *structured.Chain[string, classifyIntentOutput]
}

func NewToolBasedRecognizer(chatModel model.ToolCallingChatModel) (*ToolBasedRecognizer, error) {
	chain, err := structured.NewChain[string, classifyIntentOutput](
		chatModel,
		func(ctx context.Context, text string) ([]*schema.Message, error) {
			return []*schema.Message{
				schema.SystemMessage(DefaultIntentSystemPrompt),
				schema.UserMessage(text),
			}, nil
		},
		classifyIntentToolName,
		classifyIntentToolDescription,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedRecognizer{chain: chain}, nil
}

func (r *ToolBasedRecognizer) RecognizeIntent(ctx context.Context, text string) (Intent, error) {
	result, err := r.chain.Invoke(ctx, text)
	if err != nil {
		return Other, err
	}
	if result == nil || !result.Intent.Valid() {
		return Other, fmt.Errorf("invalid intent returned by %s", classifyIntentToolName)
	}
	return result.Intent, nil
}
