package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

type rule struct {
	intent Intent
	re     *regexp.Regexp
}

// wordPattern matches any of the given words at a word start. A trailing "*"
// allows the word to continue, so "thank*" covers "thanks" and "thankful".
func wordPattern(words ...string) *regexp.Regexp {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if stem, ok := strings.CutSuffix(w, "*"); ok {
			parts = append(parts, regexp.QuoteMeta(stem)+`\w*`)
			continue
		}
		parts = append(parts, regexp.QuoteMeta(w))
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(parts, "|") + `)\b`)
}

var (
	imagePattern     = wordPattern("image*", "photo*", "picture*", "upload*", "pic", "pics")
	recomputePattern = wordPattern("new estimate", "recalculat*", "recomput*", "re-estimate", "redo", "different", "chang*")
)

// HasImageReference reports whether text talks about an uploaded image.
func HasImageReference(text string) bool {
	return imagePattern.MatchString(text)
}

// WantsRecompute reports whether text asks for the estimate to be redone.
func WantsRecompute(text string) bool {
	return recomputePattern.MatchString(text)
}

type LocalRecognizer struct {
	rules []rule
}

func NewLocalRecognizer() *LocalRecognizer {
	return &LocalRecognizer{rules: []rule{
		{Greeting, wordPattern("hi", "hello", "hey", "good morning", "good afternoon", "good evening")},
		{Gratitude, wordPattern("thank*", "thx", "ty", "appreciate*", "cheers")},
		{TimelineInquiry, wordPattern("how long", "timeline*", "when", "schedul*", "start date", "how soon")},
		{MaterialInquiry, wordPattern("material*", "quality", "brand*", "supplier*")},
		{WarrantyInquiry, wordPattern("warrant*", "guarantee*")},
	}}
}

func (r *LocalRecognizer) RecognizeIntent(ctx context.Context, text string) (Intent, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Other, nil
	}
	for _, rl := range r.rules {
		if rl.re.MatchString(text) {
			return rl.intent, nil
		}
	}
	return Other, nil
}

type FailbackRecognizer struct {
	recognizers []Recognizer
}

func NewFailbackRecognizer(recognizers ...Recognizer) *FailbackRecognizer {
	return &FailbackRecognizer{recognizers: recognizers}
}

func (r *FailbackRecognizer) RecognizeIntent(ctx context.Context, text string) (Intent, error) {
	var lastErr error
	for _, recognizer := range r.recognizers {
		in, err := recognizer.RecognizeIntent(ctx, text)
		if err == nil {
			return in, nil
		}
		lastErr = err
	}
	return Other, fmt.Errorf("all intent recognizers failed: %w", lastErr)
}
