// Package dialogue picks what the assistant says next: the prompt for the
// first missing field, the ready-to-estimate signal, or a follow-up answer.
package dialogue

import (
	"context"

	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/estimagent/types"
)

type Request struct {
	Service       string
	Missing       []string
	Facts         types.Facts
	HasEstimate   bool
	LastUserText  string
	RecentHistory []*schema.Message
}

type Selector interface {
	NextQuestion(ctx context.Context, req *Request) (string, error)
}

// IsReady reports whether a selector output is the ready-to-estimate signal
// rather than a question for the customer.
func IsReady(text string) bool {
	return text == ReadyToEstimate
}
