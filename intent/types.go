// Package intent classifies what a customer wants once every fact is known.
package intent

import (
	"context"
)

type Intent string

const (
	Greeting        Intent = "greeting"
	Gratitude       Intent = "gratitude"
	TimelineInquiry Intent = "timeline_inquiry"
	MaterialInquiry Intent = "material_inquiry"
	WarrantyInquiry Intent = "warranty_inquiry"
	Other           Intent = "other"
)

// Ordered is the precedence used when a message matches several intents.
var Ordered = []Intent{Greeting, Gratitude, TimelineInquiry, MaterialInquiry, WarrantyInquiry}

func (i Intent) Valid() bool {
	switch i {
	case Greeting, Gratitude, TimelineInquiry, MaterialInquiry, WarrantyInquiry, Other:
		return true
	}
	return false
}

type Recognizer interface {
	RecognizeIntent(ctx context.Context, text string) (Intent, error)
}
