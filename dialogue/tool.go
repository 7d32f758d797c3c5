package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/estimagent/types"
)

// DefaultSelectorSystemPromptTemplate is the system prompt used by
// ToolBasedSelector. The template may contain a single "%s" placeholder for
// the language.
const DefaultSelectorSystemPromptTemplate = `You are a friendly estimator collecting project details for a price quote.

Respond as if chatting with a customer:
- If required fields are missing, ask only for the first one listed, in one short sentence. Mention the accepted options when there are any.
- If an estimate was already given, answer the customer's latest message briefly and offer further help. Never invent prices.
- Acknowledge what they've already told you when it helps.
- Avoid lists or bullet points.
- Reply in %s.
`

type selectorOptions struct {
	lang                 string
	systemPromptTemplate string
}

type SelectorOption func(*selectorOptions)

func WithSelectorLang(lang string) SelectorOption {
	return func(o *selectorOptions) {
		o.lang = lang
	}
}

func WithSelectorSystemPromptTemplate(tpl string) SelectorOption {
	return func(o *selectorOptions) {
		o.systemPromptTemplate = tpl
	}
}

// ToolBasedSelector lets a chat model phrase questions and follow-ups. The
// ready-to-estimate signal stays deterministic.
type ToolBasedSelector struct {
	Lang         string
	systemPrompt string
	chatModel    model.ToolCallingChatModel
}

func NewToolBasedSelector(chatModel model.ToolCallingChatModel, opts ...SelectorOption) *ToolBasedSelector {
	options := selectorOptions{
		lang:                 "English",
		systemPromptTemplate: DefaultSelectorSystemPromptTemplate,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	systemPrompt := options.systemPromptTemplate
	if strings.Contains(systemPrompt, "%s") {
		systemPrompt = fmt.Sprintf(systemPrompt, options.lang)
	}
	return &ToolBasedSelector{
		Lang:         options.lang,
		systemPrompt: systemPrompt,
		chatModel:    chatModel,
	}
}

func (s *ToolBasedSelector) NextQuestion(ctx context.Context, req *Request) (string, error) {
	if req == nil {
		return "", fmt.Errorf("nil dialogue request")
	}
	if len(req.Missing) == 0 && !req.HasEstimate {
		return ReadyToEstimate, nil
	}
	message, err := types.FormatTurnRequest(&types.TurnRequest{
		Service:       req.Service,
		Facts:         req.Facts,
		MessagePair:   types.MessagePair{Answer: req.LastUserText},
		RecentHistory: req.RecentHistory,
		MissingFields: types.DescribeFields(req.Missing, true),
		HasEstimate:   req.HasEstimate,
	})
	if err != nil {
		return "", fmt.Errorf("build dialogue prompt: %w", err)
	}
	response, err := s.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(s.systemPrompt),
		schema.UserMessage(message),
	})
	if err != nil {
		return "", fmt.Errorf("LLM call failed: %w", err)
	}
	text := strings.TrimSpace(response.Content)
	if text == "" {
		return "", fmt.Errorf("empty dialogue returned by model")
	}
	return text, nil
}
