// Package pricing computes deterministic price estimates from a service profile
// and a complete fact set.
package pricing

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/tbxark/estimagent/facts"
	"github.com/tbxark/estimagent/types"
)

var ErrIncomplete = errors.New("estimate requires more information")

// IncompleteError lists the facts that prevented pricing.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrIncomplete.Error(), strings.Join(e.Missing, ", "))
}

func (e *IncompleteError) Is(target error) bool {
	return target == ErrIncomplete
}

// Multiplier looks up key case-insensitively. Unknown or blank keys are neutral.
func Multiplier(table map[string]float64, key string) float64 {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return 1.0
	}
	if m, ok := table[key]; ok {
		return m
	}
	for k, m := range table {
		if strings.ToLower(strings.TrimSpace(k)) == key {
			return m
		}
	}
	return 1.0
}

// ParseArea reads an area fact such as "2000" or "2,000".
func ParseArea(value string) (float64, bool) {
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	area, err := strconv.ParseFloat(value, 64)
	if err != nil || area <= 0 {
		return 0, false
	}
	return area, true
}

// RequiredFields returns the facts a profile needs before it can be priced.
// Area is always among them since the base cost is charged per square foot.
func RequiredFields(profile types.ServiceProfile) []string {
	if slices.Contains(profile.RequiredFields, types.FieldArea) {
		return slices.Clone(profile.RequiredFields)
	}
	return append([]string{types.FieldArea}, profile.RequiredFields...)
}

// Price computes the estimate for known. It returns an *IncompleteError when a
// required fact is missing or the area cannot be read as a positive number.
func Price(profile types.ServiceProfile, known types.Facts) (*types.EstimateResult, error) {
	if missing := facts.Missing(RequiredFields(profile), known); len(missing) > 0 {
		return nil, &IncompleteError{Missing: missing}
	}
	area, ok := ParseArea(known.Get(types.FieldArea))
	if !ok {
		return nil, &IncompleteError{Missing: []string{types.FieldArea}}
	}

	base := profile.BaseRate * area
	material := base * Multiplier(profile.MaterialMultipliers, known.Get(types.FieldMaterial))
	regionAdj := material*Multiplier(profile.RegionMultipliers, known.Get(types.FieldRegion)) - material
	adjusted := material + regionAdj
	timelineAdj := adjusted*Multiplier(profile.TimelineMultipliers, known.Get(types.FieldTimeline)) - adjusted
	total := base + (material - base) + regionAdj + timelineAdj + profile.FixedFee

	return &types.EstimateResult{
		Service:            profile.Name,
		BaseCost:           base,
		MaterialCost:       material - base,
		RegionAdjustment:   regionAdj,
		TimelineAdjustment: timelineAdj,
		FixedFee:           profile.FixedFee,
		Total:              total,
		Low:                total * (1 - profile.RangeFraction),
		High:               total * (1 + profile.RangeFraction),
		Facts:              known.Clone(),
	}, nil
}
