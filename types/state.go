package types

import (
	"maps"
	"slices"

	"github.com/cloudwego/eino/schema"
)

// EstimateResult is an immutable priced snapshot of the facts it was computed from.
type EstimateResult struct {
	Service            string   `json:"service_type"`
	BaseCost           float64  `json:"base_cost"`
	MaterialCost       float64  `json:"material_cost"`
	RegionAdjustment   float64  `json:"region_adjustment"`
	TimelineAdjustment float64  `json:"timeline_adjustment"`
	FixedFee           float64  `json:"permit_fee"`
	Total              float64  `json:"total_estimate"`
	Low                float64  `json:"price_range_low"`
	High               float64  `json:"price_range_high"`
	Facts              Facts    `json:"facts"`
	Images             []string `json:"image_references,omitempty"`
}

// ConversationState is everything a session carries between turns.
type ConversationState struct {
	SessionID       string            `json:"session_id"`
	Service         string            `json:"service"`
	History         []*schema.Message `json:"history"`
	Facts           Facts             `json:"facts"`
	RequiredFields  []string          `json:"required_fields"`
	PendingQuestion string            `json:"pending_question,omitempty"`
	ImageNotes      map[string]string `json:"image_notes,omitempty"`
	Estimate        *EstimateResult   `json:"estimate,omitempty"`
	TurnInput       string            `json:"turn_input,omitempty"`

	// Route is the next internal step. It is never persisted.
	Route string `json:"-"`
}

func NewConversationState(sessionID string) *ConversationState {
	return &ConversationState{
		SessionID:  sessionID,
		Facts:      Facts{},
		ImageNotes: map[string]string{},
	}
}

func (s *ConversationState) AddMessage(role schema.RoleType, content string) {
	s.History = append(s.History, &schema.Message{Role: role, Content: content})
}

// LastMessage returns the most recent message with the given role, or nil.
func (s *ConversationState) LastMessage(role schema.RoleType) *schema.Message {
	for i := len(s.History) - 1; i >= 0; i-- {
		if m := s.History[i]; m != nil && m.Role == role {
			return m
		}
	}
	return nil
}

// ImageIDs returns the recorded image ids, sorted.
func (s *ConversationState) ImageIDs() []string {
	ids := make([]string, 0, len(s.ImageNotes))
	for id := range s.ImageNotes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Clone returns a deep copy suitable for restoring after a failed step.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	out := *s
	out.History = make([]*schema.Message, 0, len(s.History))
	for _, m := range s.History {
		if m == nil {
			continue
		}
		cp := *m
		out.History = append(out.History, &cp)
	}
	out.Facts = s.Facts.Clone()
	out.RequiredFields = append([]string(nil), s.RequiredFields...)
	out.ImageNotes = maps.Clone(s.ImageNotes)
	if s.Estimate != nil {
		est := *s.Estimate
		est.Facts = s.Estimate.Facts.Clone()
		est.Images = append([]string(nil), s.Estimate.Images...)
		out.Estimate = &est
	}
	return &out
}
