package types

import (
	"strings"
)

const (
	FieldService  = "service_type"
	FieldArea     = "area"
	FieldRegion   = "region"
	FieldMaterial = "material"
	FieldTimeline = "timeline"
)

type FieldInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

var knownFields = map[string]FieldInfo{
	FieldService: {
		Name:        FieldService,
		DisplayName: "Service",
		Description: "Type of service requested, e.g. roofing",
	},
	FieldArea: {
		Name:        FieldArea,
		DisplayName: "Square footage",
		Description: "Area of the project in square feet",
	},
	FieldRegion: {
		Name:        FieldRegion,
		DisplayName: "Region",
		Description: "One of northeast, midwest, south, west",
	},
	FieldMaterial: {
		Name:        FieldMaterial,
		DisplayName: "Material",
		Description: "Preferred material, e.g. asphalt, metal, tile, slate",
	},
	FieldTimeline: {
		Name:        FieldTimeline,
		DisplayName: "Timeline",
		Description: "One of standard, expedited, emergency",
	},
}

// DescribeField returns display information for a field name. Unknown names get
// a display name derived from the name itself.
func DescribeField(name string) FieldInfo {
	if info, ok := knownFields[name]; ok {
		return info
	}
	return FieldInfo{
		Name:        name,
		DisplayName: strings.ReplaceAll(name, "_", " "),
	}
}

func DescribeFields(names []string, required bool) []FieldInfo {
	out := make([]FieldInfo, 0, len(names))
	for _, name := range names {
		info := DescribeField(name)
		info.Required = required
		out = append(out, info)
	}
	return out
}

// Facts maps field names to canonical values. Unset fields are absent.
type Facts map[string]string

func (f Facts) Get(name string) string {
	if f == nil {
		return ""
	}
	return f[name]
}

func (f Facts) Clone() Facts {
	if f == nil {
		return nil
	}
	out := make(Facts, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// FactSheet documents the fact set for model-backed collaborators.
type FactSheet struct {
	ServiceType string  `json:"service_type,omitempty" jsonschema:"description=Type of service requested (e.g. roofing)"`
	Area        float64 `json:"area,omitempty" jsonschema:"description=Square footage of the area"`
	Region      string  `json:"region,omitempty" jsonschema:"enum=northeast,enum=midwest,enum=south,enum=west,description=Region of the project"`
	Material    string  `json:"material,omitempty" jsonschema:"description=Material type (e.g. asphalt, metal, tile, slate for roofing)"`
	Timeline    string  `json:"timeline,omitempty" jsonschema:"enum=standard,enum=expedited,enum=emergency,description=Timeline preference"`
}
