package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/estimagent/structured"
	"github.com/tbxark/estimagent/types"
)

// DescriptionImageAnalyzer reads facts out of the caption or file
// description that came with an upload.
type DescriptionImageAnalyzer struct{}

func NewDescriptionImageAnalyzer() *DescriptionImageAnalyzer {
	return &DescriptionImageAnalyzer{}
}

func (a *DescriptionImageAnalyzer) AnalyzeImage(ctx context.Context, img *ImageInput) (types.Facts, error) {
	if img == nil {
		return types.Facts{}, nil
	}
	return General(img.Description), nil
}

const (
	analyzeImageToolName        = "analyze_project_image"
	analyzeImageToolDescription = "Record the project facts visible in a customer photo. Omit everything that cannot be seen."
)

const DefaultImageSystemPrompt = `You look at photos sent by customers who want a home improvement estimate.
Report only what the photo clearly shows: the kind of work (service_type), the roofing material, and the approximate area in square feet if it can be judged.
Leave out anything uncertain. Call the '` + analyzeImageToolName + `' tool with the result.`

// ToolBasedImageAnalyzer sends the image URL to a multimodal chat model.
type ToolBasedImageAnalyzer struct {
	chain *structured.Chain[*ImageInput, extractedFacts]
}

func NewToolBasedImageAnalyzer(chatModel model.ToolCallingChatModel) (*ToolBasedImageAnalyzer, error) {
	chain, err := structured.NewChain[*ImageInput, extractedFacts](
		chatModel,
		buildImagePrompt,
		analyzeImageToolName,
		analyzeImageToolDescription,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedImageAnalyzer{chain: chain}, nil
}

func buildImagePrompt(ctx context.Context, img *ImageInput) ([]*schema.Message, error) {
	if img == nil || img.URL == "" {
		return nil, fmt.Errorf("image url is required")
	}
	text := "Customer photo"
	if d := strings.TrimSpace(img.Description); d != "" {
		text = fmt.Sprintf("Customer photo, described as: %s", d)
	}
	user := &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: text},
			{Type: schema.ChatMessagePartTypeImageURL, ImageURL: &schema.ChatMessageImageURL{URL: img.URL}},
		},
	}
	return []*schema.Message{schema.SystemMessage(DefaultImageSystemPrompt), user}, nil
}

func (a *ToolBasedImageAnalyzer) AnalyzeImage(ctx context.Context, img *ImageInput) (types.Facts, error) {
	result, err := a.chain.Invoke(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("analyze image %s: %w", imageID(img), err)
	}
	return result.toFacts(), nil
}

type FailbackImageAnalyzer struct {
	analyzers []ImageAnalyzer
}

func NewFailbackImageAnalyzer(analyzers ...ImageAnalyzer) *FailbackImageAnalyzer {
	return &FailbackImageAnalyzer{analyzers: analyzers}
}

func (a *FailbackImageAnalyzer) AnalyzeImage(ctx context.Context, img *ImageInput) (types.Facts, error) {
	var lastErr error
	for _, analyzer := range a.analyzers {
		facts, err := analyzer.AnalyzeImage(ctx, img)
		if err == nil {
			return facts, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all image analyzers failed: %w", lastErr)
}

func imageID(img *ImageInput) string {
	if img == nil {
		return "<nil>"
	}
	return img.ID
}
