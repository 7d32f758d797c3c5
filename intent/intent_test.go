package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/estimagent/testutil"
)

func TestLocalRecognizer(t *testing.T) {
	tests := []struct {
		text string
		want Intent
	}{
		{"Hi there", Greeting},
		{"hello!", Greeting},
		{"Thanks!", Gratitude},
		{"thank you so much", Gratitude},
		{"I appreciate it", Gratitude},
		{"How long will the job take?", TimelineInquiry},
		{"when can you start", TimelineInquiry},
		{"What brands do you use?", MaterialInquiry},
		{"is the material good quality", MaterialInquiry},
		{"Is there a warranty?", WarrantyInquiry},
		{"do you guarantee the work", WarrantyInquiry},
		{"this is great", Other},
		{"", Other},
		// greeting outranks gratitude
		{"hey, thanks", Greeting},
	}
	r := NewLocalRecognizer()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := r.RecognizeIntent(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHasImageReference(t *testing.T) {
	assert.True(t, HasImageReference("I uploaded a photo of the roof"))
	assert.True(t, HasImageReference("see the pictures"))
	assert.True(t, HasImageReference("Image attached"))
	assert.False(t, HasImageReference("2000 sq ft in the northeast"))
	assert.False(t, HasImageReference("imagine that"))
}

func TestWantsRecompute(t *testing.T) {
	assert.True(t, WantsRecompute("recalculate with metal roofing"))
	assert.True(t, WantsRecompute("Can I get a new estimate?"))
	assert.True(t, WantsRecompute("what about a different material"))
	assert.True(t, WantsRecompute("I changed my mind"))
	assert.False(t, WantsRecompute("Thanks!"))
	assert.False(t, WantsRecompute("exchange rates"))
}

func TestToolBasedRecognizer(t *testing.T) {
	cm := testutil.NewScriptedChatModel(
		testutil.ScriptedReply{ToolName: classifyIntentToolName, ToolArgs: `{"intent":"warranty_inquiry"}`},
		testutil.ScriptedReply{ToolName: classifyIntentToolName, ToolArgs: `{"intent":"complaint"}`},
	)
	r, err := NewToolBasedRecognizer(cm)
	require.NoError(t, err)

	got, err := r.RecognizeIntent(context.Background(), "how long is the coverage?")
	require.NoError(t, err)
	assert.Equal(t, WarrantyInquiry, got)

	got, err = r.RecognizeIntent(context.Background(), "this is bad")
	assert.Error(t, err)
	assert.Equal(t, Other, got)
}

func TestFailbackRecognizer(t *testing.T) {
	cm := testutil.NewScriptedChatModel(testutil.ScriptedReply{Err: errors.New("unavailable")})
	tool, err := NewToolBasedRecognizer(cm)
	require.NoError(t, err)

	got, err := NewFailbackRecognizer(tool, NewLocalRecognizer()).RecognizeIntent(context.Background(), "thx")
	require.NoError(t, err)
	assert.Equal(t, Gratitude, got)

	_, err = NewFailbackRecognizer(tool).RecognizeIntent(context.Background(), "thx")
	assert.ErrorContains(t, err, "all intent recognizers failed")
}
