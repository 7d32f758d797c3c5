package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/estimagent/testutil"
	"github.com/tbxark/estimagent/types"
)

const (
	areaQuestion     = "What is the approximate square footage of the area?"
	regionQuestion   = "In which region are you located? (Northeast, Midwest, South, or West)"
	materialQuestion = "What type of material would you prefer? For roofing, options include asphalt, metal, tile, or slate."
	timelineQuestion = "What is your preferred timeline? (standard, expedited, or emergency)"
	serviceQuestion  = "What type of service are you looking for? (e.g., roofing)"
)

func TestGeneralFullSentence(t *testing.T) {
	got := General("2000 sq ft house in the northeast with asphalt shingles, standard timeline")
	assert.Equal(t, types.Facts{
		types.FieldArea:     "2000",
		types.FieldRegion:   RegionNortheast,
		types.FieldMaterial: MaterialAsphalt,
		types.FieldTimeline: TimelineStandard,
	}, got)
}

func TestGeneralArea(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"about 1,800 square feet", "1800"},
		{"12,000sqft warehouse", "12000"},
		{"1500.5 sq. ft.", "1500.5"},
		{"a 900 square foot garage", "900"},
		{"roughly 2500 ft2", "2500"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, General(tt.text)[types.FieldArea])
		})
	}

	for _, text := range []string{"0 sq ft", "2000 houses", "two thousand square feet"} {
		_, ok := General(text)[types.FieldArea]
		assert.False(t, ok, text)
	}
}

func TestNormalizeRegion(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Northeast", RegionNortheast},
		{"NE", RegionNortheast},
		{"we are in boston", RegionNortheast},
		{"mw", RegionMidwest},
		{"near Chicago", RegionMidwest},
		{"south dakota", RegionMidwest},
		{"I live in West Virginia", RegionSouth},
		{"north carolina", RegionSouth},
		{"Houston, TX", RegionSouth},
		{"Seattle", RegionWest},
		{"the pacific northwest", RegionWest},
		{"washington dc", RegionSouth},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := NormalizeRegion(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := NormalizeRegion("somewhere nice")
	assert.False(t, ok)
}

func TestNormalizeMaterial(t *testing.T) {
	tests := map[string]string{
		"architectural shingles": MaterialAsphalt,
		"composition":            MaterialAsphalt,
		"standing seam":          MaterialMetal,
		"steel panels":           MaterialMetal,
		"clay":                   MaterialTile,
		"terracotta tiles":       MaterialTile,
		"Slate":                  MaterialSlate,
	}
	for text, want := range tests {
		got, ok := NormalizeMaterial(text)
		require.True(t, ok, text)
		assert.Equal(t, want, got, text)
	}
	_, ok := NormalizeMaterial("wood")
	assert.False(t, ok)
}

func TestNormalizeTimeline(t *testing.T) {
	tests := map[string]string{
		"rush":            TimelineExpedited,
		"urgent":          TimelineExpedited,
		"normal":          TimelineStandard,
		"no rush":         TimelineStandard,
		"not urgent":      TimelineStandard,
		"ASAP":            TimelineEmergency,
		"7 days":          TimelineEmergency,
		"within a week":   TimelineEmergency,
		"2 weeks":         TimelineEmergency,
		"within 3 weeks":  TimelineExpedited,
		"30 days":         TimelineExpedited,
		"1 month":         TimelineExpedited,
		"60 days":         TimelineStandard,
		"2 months":        TimelineStandard,
		"in three months": TimelineStandard,
	}
	for text, want := range tests {
		got, ok := NormalizeTimeline(text)
		require.True(t, ok, text)
		assert.Equal(t, want, got, text)
	}
	_, ok := NormalizeTimeline("later today")
	assert.False(t, ok)
}

func TestTargetField(t *testing.T) {
	assert.Equal(t, types.FieldArea, TargetField(areaQuestion))
	assert.Equal(t, types.FieldRegion, TargetField(regionQuestion))
	assert.Equal(t, types.FieldMaterial, TargetField(materialQuestion))
	assert.Equal(t, types.FieldTimeline, TargetField(timelineQuestion))
	assert.Equal(t, types.FieldService, TargetField(serviceQuestion))
	assert.Equal(t, "", TargetField(""))
	assert.Equal(t, "", TargetField("Where is it and what material is it?"))
	assert.Equal(t, "", TargetField("Anything else?"))
}

func TestTargeted(t *testing.T) {
	tests := []struct {
		name     string
		question string
		reply    string
		want     types.Facts
	}{
		{"area with separator", areaQuestion, "2,500", types.Facts{types.FieldArea: "2500"}},
		{"area with unit", areaQuestion, "1800 sqft", types.Facts{types.FieldArea: "1800"}},
		{"region abbreviation", regionQuestion, "NE", types.Facts{types.FieldRegion: RegionNortheast}},
		{"material synonym", materialQuestion, "shingles", types.Facts{types.FieldMaterial: MaterialAsphalt}},
		{"timeline rush", timelineQuestion, "rush", types.Facts{types.FieldTimeline: TimelineExpedited}},
		{"timeline normal", timelineQuestion, "normal please", types.Facts{types.FieldTimeline: TimelineStandard}},
		{"service keyword", serviceQuestion, "Roof", types.Facts{types.FieldService: "roofing"}},
		{"service bare word", serviceQuestion, "gutters", types.Facts{types.FieldService: "gutters"}},
		{"long reply", areaQuestion, "it is about 2000 I think", types.Facts{}},
		{"no target", "Anything else?", "metal", types.Facts{}},
		{"unparseable", areaQuestion, "big", types.Facts{}},
		{"empty", areaQuestion, "  ", types.Facts{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Targeted(tt.question, tt.reply))
		})
	}
}

func TestMerge(t *testing.T) {
	got := Merge(
		types.Facts{types.FieldRegion: RegionWest, types.FieldMaterial: " "},
		types.Facts{types.FieldRegion: RegionSouth, types.FieldArea: "10", types.FieldMaterial: MaterialTile},
	)
	assert.Equal(t, types.Facts{
		types.FieldRegion:   RegionWest,
		types.FieldArea:     "10",
		types.FieldMaterial: MaterialTile,
	}, got)
}

func TestLocalExtractorUsesHistory(t *testing.T) {
	history := []*schema.Message{
		schema.UserMessage("I need a roof on a 2000 sq ft house"),
		schema.AssistantMessage(regionQuestion, nil),
	}
	req := &types.TurnRequest{
		MessagePair:   types.MessagePair{Question: regionQuestion, Answer: "West"},
		RecentHistory: history,
	}
	got, err := NewLocalExtractor().Extract(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, types.Facts{
		types.FieldService: "roofing",
		types.FieldArea:    "2000",
		types.FieldRegion:  RegionWest,
	}, got)

	req.Facts = types.Facts{types.FieldArea: "2500"}
	got, err = NewLocalExtractor().Extract(context.Background(), req)
	require.NoError(t, err)
	_, ok := got[types.FieldArea]
	assert.False(t, ok, "history must not override a known fact")
}

func TestLocalExtractorCurrentInputWins(t *testing.T) {
	req := &types.TurnRequest{
		MessagePair: types.MessagePair{Answer: "recalculate with metal roofing"},
		RecentHistory: []*schema.Message{
			schema.UserMessage("asphalt shingles please"),
		},
	}
	got, err := NewLocalExtractor().Extract(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, MaterialMetal, got[types.FieldMaterial])
	assert.Equal(t, "roofing", got[types.FieldService])
}

func TestLocalExtractorNil(t *testing.T) {
	got, err := NewLocalExtractor().Extract(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestToolBasedExtractor(t *testing.T) {
	cm := testutil.NewScriptedChatModel(testutil.ScriptedReply{
		ToolName: extractFactsToolName,
		ToolArgs: `{"region":"Washington","area":1800,"material":"Standing Seam","timeline":"whenever"}`,
	})
	extractor, err := NewToolBasedExtractor(cm)
	require.NoError(t, err)

	req := &types.TurnRequest{
		MessagePair: types.MessagePair{Question: areaQuestion, Answer: "1800 sq ft standing seam in Washington, whenever"},
	}
	got, err := extractor.Extract(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, types.Facts{
		types.FieldArea:     "1800",
		types.FieldRegion:   RegionWest,
		types.FieldMaterial: MaterialMetal,
		types.FieldTimeline: TimelineStandard,
	}, got)

	calls := cm.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0][0].Content, extractFactsToolName)
	assert.Contains(t, calls[0][1].Content, "# Facts schema JSON:")
	assert.Empty(t, req.FactsSchema)
}

func TestToolBasedExtractorSkipsEmptyInput(t *testing.T) {
	cm := testutil.NewScriptedChatModel(testutil.ScriptedReply{Err: errors.New("unexpected call")})
	extractor, err := NewToolBasedExtractor(cm)
	require.NoError(t, err)

	got, err := extractor.Extract(context.Background(), &types.TurnRequest{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, cm.Calls())
}

func TestFailbackExtractor(t *testing.T) {
	cm := testutil.NewScriptedChatModel(testutil.ScriptedReply{Err: errors.New("timeout")})
	tool, err := NewToolBasedExtractor(cm)
	require.NoError(t, err)

	extractor := NewFailbackExtractor(tool, NewLocalExtractor())
	got, err := extractor.Extract(context.Background(), &types.TurnRequest{
		MessagePair: types.MessagePair{Answer: "metal"},
	})
	require.NoError(t, err)
	assert.Equal(t, types.Facts{types.FieldMaterial: MaterialMetal}, got)

	_, err = NewFailbackExtractor(tool).Extract(context.Background(), &types.TurnRequest{
		MessagePair: types.MessagePair{Answer: "metal"},
	})
	assert.ErrorContains(t, err, "all extractors failed")
}

func TestDescriptionImageAnalyzer(t *testing.T) {
	got, err := NewDescriptionImageAnalyzer().AnalyzeImage(context.Background(), &ImageInput{
		ID:          "image_1",
		Description: "photo of the old slate roof",
	})
	require.NoError(t, err)
	assert.Equal(t, types.Facts{
		types.FieldService:  "roofing",
		types.FieldMaterial: MaterialSlate,
	}, got)
}

func TestToolBasedImageAnalyzer(t *testing.T) {
	cm := testutil.NewScriptedChatModel(testutil.ScriptedReply{
		ToolName: analyzeImageToolName,
		ToolArgs: `{"service_type":"roof","material":"clay"}`,
	})
	analyzer, err := NewToolBasedImageAnalyzer(cm)
	require.NoError(t, err)

	got, err := analyzer.AnalyzeImage(context.Background(), &ImageInput{ID: "image_1", URL: "https://example.com/roof.jpg"})
	require.NoError(t, err)
	assert.Equal(t, types.Facts{
		types.FieldService:  "roofing",
		types.FieldMaterial: MaterialTile,
	}, got)

	calls := cm.Calls()
	require.Len(t, calls, 1)
	parts := calls[0][1].MultiContent
	require.Len(t, parts, 2)
	assert.Equal(t, schema.ChatMessagePartTypeImageURL, parts[1].Type)
	assert.Equal(t, "https://example.com/roof.jpg", parts[1].ImageURL.URL)

	_, err = analyzer.AnalyzeImage(context.Background(), &ImageInput{ID: "image_2"})
	assert.ErrorContains(t, err, "image_2")

	fallback := NewFailbackImageAnalyzer(analyzer, NewDescriptionImageAnalyzer())
	got, err = fallback.AnalyzeImage(context.Background(), &ImageInput{ID: "image_3", Description: "metal roof"})
	require.NoError(t, err)
	assert.Equal(t, MaterialMetal, got[types.FieldMaterial])
}
