package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/estimagent/structured"
	"github.com/tbxark/estimagent/types"
)

const (
	extractFactsToolName        = "extract_project_facts"
	extractFactsToolDescription = "Record the project facts stated by the customer. Omit every field that was not stated."
)

// DefaultExtractSystemPromptTemplate is the system prompt used by
// ToolBasedExtractor. Its single "%s" placeholder is the tool name.
const DefaultExtractSystemPromptTemplate = `You collect facts for a home improvement price estimate.

Read the latest answer from the customer together with the question it replies to and the recent conversation.
Report only facts the customer actually stated. Never guess, never fill defaults, never repeat known facts unless the customer changed them.

- service_type: the kind of work, e.g. roofing.
- area: square footage as a number, without units.
- region: one of northeast, midwest, south, west. Map states and cities to their region.
- material: one of asphalt, metal, tile, slate. Shingles are asphalt, standing seam is metal, clay is tile.
- timeline: one of standard, expedited, emergency. Within two weeks is emergency, within about a month is expedited.

Call the '%s' tool with the result.
`

// extractedFacts uses pointers so the model can leave fields out.
type extractedFacts struct {
	ServiceType *string  `json:"service_type,omitempty" jsonschema:"description=Kind of work requested"`
	Area        *float64 `json:"area,omitempty" jsonschema:"description=Area in square feet"`
	Region      *string  `json:"region,omitempty" jsonschema:"enum=northeast,enum=midwest,enum=south,enum=west"`
	Material    *string  `json:"material,omitempty" jsonschema:"enum=asphalt,enum=metal,enum=tile,enum=slate"`
	Timeline    *string  `json:"timeline,omitempty" jsonschema:"enum=standard,enum=expedited,enum=emergency"`
}

type PromptBuilder func(systemPrompt string) structured.PromptBuilder[*types.TurnRequest]

type toolExtractorOptions struct {
	systemPromptTemplate string
	promptBuilder        PromptBuilder
}

type ToolOption func(*toolExtractorOptions)

func WithExtractSystemPromptTemplate(tpl string) ToolOption {
	return func(o *toolExtractorOptions) {
		o.systemPromptTemplate = tpl
	}
}

func WithExtractPromptBuilder(builder PromptBuilder) ToolOption {
	return func(o *toolExtractorOptions) {
		o.promptBuilder = builder
	}
}

func defaultPromptBuilder(systemPrompt string) structured.PromptBuilder[*types.TurnRequest] {
	return func(ctx context.Context, req *types.TurnRequest) ([]*schema.Message, error) {
		message, err := types.FormatTurnRequest(req)
		if err != nil {
			return nil, fmt.Errorf("convert to prompt message failed: %w", err)
		}
		return []*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(message),
		}, nil
	}
}

// ToolBasedExtractor asks a chat model for the facts through a forced tool
// call and folds its answer onto the canonical vocabulary.
type ToolBasedExtractor struct {
	chain *structured.Chain[*types.TurnRequest, extractedFacts]
}

func NewToolBasedExtractor(chatModel model.ToolCallingChatModel, opts ...ToolOption) (*ToolBasedExtractor, error) {
	options := toolExtractorOptions{
		systemPromptTemplate: DefaultExtractSystemPromptTemplate,
		promptBuilder:        defaultPromptBuilder,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	systemPrompt := options.systemPromptTemplate
	if strings.Contains(systemPrompt, "%s") {
		systemPrompt = fmt.Sprintf(systemPrompt, extractFactsToolName)
	}
	chain, err := structured.NewChain[*types.TurnRequest, extractedFacts](
		chatModel,
		options.promptBuilder(systemPrompt),
		extractFactsToolName,
		extractFactsToolDescription,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedExtractor{chain: chain}, nil
}

func (e *ToolBasedExtractor) Extract(ctx context.Context, req *types.TurnRequest) (types.Facts, error) {
	if req == nil || strings.TrimSpace(req.MessagePair.Answer) == "" {
		return types.Facts{}, nil
	}
	if req.FactsSchema == "" {
		if s, err := types.FactsSchema(); err == nil {
			withSchema := *req
			withSchema.FactsSchema = s
			req = &withSchema
		}
	}
	result, err := e.chain.Invoke(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("extract facts: %w", err)
	}
	return result.toFacts(), nil
}

func (f *extractedFacts) toFacts() types.Facts {
	out := types.Facts{}
	if f == nil {
		return out
	}
	if f.ServiceType != nil {
		if v := strings.ToLower(strings.TrimSpace(*f.ServiceType)); v != "" {
			if canonical, ok := NormalizeService(v); ok {
				v = canonical
			}
			out[types.FieldService] = v
		}
	}
	if f.Area != nil && *f.Area > 0 {
		out[types.FieldArea] = strconv.FormatFloat(*f.Area, 'f', -1, 64)
	}
	setNormalized(out, types.FieldRegion, f.Region, NormalizeRegion)
	setNormalized(out, types.FieldMaterial, f.Material, NormalizeMaterial)
	setNormalized(out, types.FieldTimeline, f.Timeline, NormalizeTimeline)
	return out
}

// setNormalized keeps values outside the vocabulary as given; pricing treats
// them as neutral.
func setNormalized(dst types.Facts, field string, value *string, normalize func(string) (string, bool)) {
	if value == nil {
		return
	}
	v := strings.ToLower(strings.TrimSpace(*value))
	if v == "" {
		return
	}
	if canonical, ok := normalize(v); ok {
		v = canonical
	}
	dst[field] = v
}
