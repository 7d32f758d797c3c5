package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/estimagent/types"
)

// Merge combines the two tiers: primary wins, fallback fills what primary
// left unset. Blank values are dropped.
func Merge(primary, fallback types.Facts) types.Facts {
	out := types.Facts{}
	for k, v := range fallback {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	for k, v := range primary {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out
}

// LocalExtractor is the deterministic keyword and pattern extractor.
type LocalExtractor struct{}

func NewLocalExtractor() *LocalExtractor {
	return &LocalExtractor{}
}

func (e *LocalExtractor) Extract(ctx context.Context, req *types.TurnRequest) (types.Facts, error) {
	if req == nil {
		return types.Facts{}, nil
	}
	targeted := Targeted(req.MessagePair.Question, req.MessagePair.Answer)
	general := General(req.MessagePair.Answer)
	fillFromHistory(general, req.RecentHistory, req.Facts)
	return Merge(targeted, general), nil
}

// fillFromHistory scans earlier user messages, newest first, for fields that
// are neither extracted from the current input nor already known.
func fillFromHistory(dst types.Facts, history []*schema.Message, known types.Facts) {
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg == nil || msg.Role != schema.User {
			continue
		}
		for k, v := range General(msg.Content) {
			if _, ok := dst[k]; ok {
				continue
			}
			if strings.TrimSpace(known.Get(k)) != "" {
				continue
			}
			dst[k] = v
		}
	}
}

type FailbackExtractor struct {
	extractors []Extractor
}

func NewFailbackExtractor(extractors ...Extractor) *FailbackExtractor {
	return &FailbackExtractor{extractors: extractors}
}

func (e *FailbackExtractor) Extract(ctx context.Context, req *types.TurnRequest) (types.Facts, error) {
	var lastErr error
	for _, extractor := range e.extractors {
		facts, err := extractor.Extract(ctx, req)
		if err == nil {
			return facts, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all extractors failed: %w", lastErr)
}
