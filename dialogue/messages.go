package dialogue

import (
	"fmt"
	"strings"

	"github.com/tbxark/estimagent/intent"
	"github.com/tbxark/estimagent/types"
)

const (
	WelcomeMessage       = "Welcome to the Interactive Estimation System! I'm here to help you get an estimate for your project. I'll ask you a series of questions, and you can also upload images if needed. Let's get started!"
	ReadyToEstimate      = "I have all the information I need. Let me prepare your estimate."
	ImageAcknowledgement = "I've received your image. This will help with the estimation process."
	ApologyMessage       = "I'm sorry, something went wrong while processing your message. Could you please try again?"
	EstimateApology      = "I'm sorry, I wasn't able to prepare an estimate with the information provided. Could you please check your details?"
)

var fieldPrompts = map[string]string{
	types.FieldService:  "What type of service are you looking for? (e.g., roofing)",
	types.FieldArea:     "What is the approximate square footage of the area?",
	types.FieldRegion:   "In which region are you located? (Northeast, Midwest, South, or West)",
	types.FieldMaterial: "What type of material would you prefer? For roofing, options include asphalt, metal, tile, or slate.",
	types.FieldTimeline: "What is your preferred timeline? (standard, expedited, or emergency)",
}

var followUps = map[intent.Intent]string{
	intent.Greeting:        "Hello! Is there anything specific you'd like to know about your estimate?",
	intent.Gratitude:       "You're welcome! If you have any other questions about your estimate or our services, feel free to ask.",
	intent.TimelineInquiry: "Based on your selected timeline, we can typically schedule the work within our standard processing times. Would you like me to provide more details on scheduling?",
	intent.MaterialInquiry: "We use high-quality materials from trusted suppliers. The estimate is based on the material type you've selected. Would you like more information about the specific brands we work with?",
	intent.WarrantyInquiry: "We offer a standard warranty on all our work. The exact terms depend on the service and materials selected. Would you like me to explain our warranty policy in more detail?",
	intent.Other:           "Thank you for your question. Is there anything specific about the estimate you'd like me to clarify or explain further?",
}

// Prompt returns the canned question for a field. Unknown fields get a
// generic request.
func Prompt(field string) string {
	if p, ok := fieldPrompts[field]; ok {
		return p
	}
	return fmt.Sprintf("Please provide information about %s.", strings.ReplaceAll(field, "_", " "))
}

// FollowUp returns the canned answer for an intent.
func FollowUp(in intent.Intent) string {
	if r, ok := followUps[in]; ok {
		return r
	}
	return followUps[intent.Other]
}
