// Package extract turns free text and image descriptions into partial fact
// sets. Extractors never report a field they could not determine.
package extract

import (
	"context"

	"github.com/tbxark/estimagent/types"
)

type Extractor interface {
	Extract(ctx context.Context, req *types.TurnRequest) (types.Facts, error)
}

// ImageInput is an uploaded image as the analyzers see it. Decoding the
// image is left to the model behind ToolBasedImageAnalyzer.
type ImageInput struct {
	ID          string
	Description string
	URL         string
}

type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, img *ImageInput) (types.Facts, error)
}
