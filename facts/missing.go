// Package facts decides what is known about a project and commits new facts.
package facts

import (
	"strings"

	"github.com/tbxark/estimagent/types"
)

// Missing returns the required fields that are absent or blank in known, in the
// order they are required.
func Missing(required []string, known types.Facts) []string {
	missing := make([]string, 0, len(required))
	for _, field := range required {
		if strings.TrimSpace(known.Get(field)) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

func Complete(required []string, known types.Facts) bool {
	return len(Missing(required, known)) == 0
}
