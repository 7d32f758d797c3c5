package dialogue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tbxark/estimagent/intent"
)

type LocalSelector struct {
	Recognizer intent.Recognizer
}

func NewLocalSelector(recognizer intent.Recognizer) *LocalSelector {
	if recognizer == nil {
		recognizer = intent.NewLocalRecognizer()
	}
	return &LocalSelector{Recognizer: recognizer}
}

func (s *LocalSelector) NextQuestion(ctx context.Context, req *Request) (string, error) {
	if req == nil {
		return "", fmt.Errorf("nil dialogue request")
	}
	if len(req.Missing) > 0 {
		return Prompt(req.Missing[0]), nil
	}
	if !req.HasEstimate {
		return ReadyToEstimate, nil
	}
	in, err := s.Recognizer.RecognizeIntent(ctx, req.LastUserText)
	if err != nil {
		slog.Warn("intent recognition failed", "error", err)
		in = intent.Other
	}
	return FollowUp(in), nil
}

type FailbackSelector struct {
	selectors []Selector
}

func NewFailbackSelector(selectors ...Selector) *FailbackSelector {
	return &FailbackSelector{selectors: selectors}
}

func (s *FailbackSelector) NextQuestion(ctx context.Context, req *Request) (string, error) {
	var lastErr error
	for _, selector := range s.selectors {
		text, err := selector.NextQuestion(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("all question selectors failed: %w", lastErr)
}
