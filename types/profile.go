package types

// ServiceProfile is the pricing and required-field configuration for one
// service category. Profiles are shared read-only between sessions.
type ServiceProfile struct {
	Name                string             `json:"name" yaml:"name"`
	RequiredFields      []string           `json:"required_info" yaml:"required_info" validate:"min=1,dive,required"`
	BaseRate            float64            `json:"base_rate_per_sqft" yaml:"base_rate_per_sqft" validate:"gt=0"`
	MaterialMultipliers map[string]float64 `json:"materials" yaml:"materials" validate:"dive,gt=0"`
	RegionMultipliers   map[string]float64 `json:"regions" yaml:"regions" validate:"dive,gt=0"`
	TimelineMultipliers map[string]float64 `json:"timeline_multipliers" yaml:"timeline_multipliers" validate:"dive,gt=0"`
	FixedFee            float64            `json:"permit_fee" yaml:"permit_fee" validate:"gte=0"`
	RangeFraction       float64            `json:"price_range_percentage" yaml:"price_range_percentage" validate:"gte=0,lt=1"`
}

// DefaultProfile is the built-in roofing profile used when no catalog file is
// configured.
func DefaultProfile() ServiceProfile {
	return ServiceProfile{
		Name:           "roofing",
		RequiredFields: []string{FieldArea, FieldRegion, FieldMaterial, FieldTimeline},
		BaseRate:       4.5,
		MaterialMultipliers: map[string]float64{
			"asphalt": 1.0,
			"metal":   1.8,
			"tile":    2.2,
			"slate":   3.0,
		},
		RegionMultipliers: map[string]float64{
			"northeast": 1.2,
			"midwest":   1.0,
			"south":     0.9,
			"west":      1.3,
		},
		TimelineMultipliers: map[string]float64{
			"standard":  1.0,
			"expedited": 1.5,
			"emergency": 2.0,
		},
		FixedFee:      500,
		RangeFraction: 0.15,
	}
}
