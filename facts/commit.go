package facts

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/tbxark/estimagent/types"
)

const (
	OperationAdd     = "add"
	OperationReplace = "replace"
)

type Operation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// Diff builds the RFC6902 operations that commit partial onto current. Blank
// values and values equal to the current one produce no operation, so an
// existing fact is never overwritten with an empty value.
func Diff(current, partial types.Facts) []Operation {
	keys := make([]string, 0, len(partial))
	for k := range partial {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	ops := make([]Operation, 0, len(keys))
	for _, key := range keys {
		value := strings.TrimSpace(partial[key])
		if key == "" || value == "" {
			continue
		}
		old, exists := current[key]
		if exists && old == value {
			continue
		}
		op := OperationAdd
		if exists {
			op = OperationReplace
		}
		ops = append(ops, Operation{Op: op, Path: "/" + escapeJSONPointer(key), Value: value})
	}
	return ops
}

// Commit applies the non-empty values of partial to current and reports which
// fields changed. current is not modified.
func Commit(current, partial types.Facts) (types.Facts, []string, error) {
	ops := Diff(current, partial)
	if len(ops) == 0 {
		return current.Clone(), nil, nil
	}
	if current == nil {
		current = types.Facts{}
	}

	currentJSON, err := json.Marshal(current)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal current facts: %w", err)
	}
	patchJSON, err := json.Marshal(ops)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal patch operations: %w", err)
	}
	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode patch: %w", err)
	}
	modifiedJSON, err := patch.Apply(currentJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to apply patch: %w", err)
	}

	var result types.Facts
	if err := json.Unmarshal(modifiedJSON, &result); err != nil {
		return nil, nil, fmt.Errorf("patched facts are not a string map: %w", err)
	}

	changed := make([]string, 0, len(ops))
	for _, op := range ops {
		changed = append(changed, unescapeJSONPointer(strings.TrimPrefix(op.Path, "/")))
	}
	return result, changed, nil
}

func escapeJSONPointer(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

func unescapeJSONPointer(token string) string {
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}
