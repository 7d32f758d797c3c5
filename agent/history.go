package agent

import (
	"slices"

	"github.com/cloudwego/eino/schema"
)

// Trimmer narrows the conversation handed to model-backed collaborators.
type Trimmer interface {
	Trim(history []*schema.Message) []*schema.Message
}

// LastNTrimmer keeps the last N user and assistant messages. Nil entries and
// other roles are dropped. N <= 0 keeps nothing.
type LastNTrimmer struct {
	N int
}

func (t LastNTrimmer) Trim(history []*schema.Message) []*schema.Message {
	if t.N <= 0 || len(history) == 0 {
		return nil
	}
	out := make([]*schema.Message, 0, t.N)
	for i := len(history) - 1; i >= 0 && len(out) < t.N; i-- {
		m := history[i]
		if m == nil || (m.Role != schema.User && m.Role != schema.Assistant) {
			continue
		}
		out = append(out, m)
	}
	slices.Reverse(out)
	return out
}
