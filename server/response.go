package server

import (
	"errors"
	"net/http"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/tbxark/estimagent/agent"
	"github.com/tbxark/estimagent/facts"
	"github.com/tbxark/estimagent/types"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// TurnResponse is returned by every endpoint that advances a conversation.
type TurnResponse struct {
	SessionID            string                `json:"session_id"`
	Message              string                `json:"message"`
	Estimate             *types.EstimateResult `json:"estimate,omitempty"`
	MissingInfo          []string              `json:"missing_info"`
	ConversationComplete bool                  `json:"conversation_complete"`
}

type MessageView struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ConversationResponse struct {
	SessionID            string                `json:"session_id"`
	Service              string                `json:"service"`
	History              []MessageView         `json:"history"`
	Facts                types.Facts           `json:"facts"`
	ImageNotes           map[string]string     `json:"image_notes,omitempty"`
	Estimate             *types.EstimateResult `json:"estimate,omitempty"`
	MissingInfo          []string              `json:"missing_info"`
	ConversationComplete bool                  `json:"conversation_complete"`
}

type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func newTurnResponse(turn *agent.Turn) TurnResponse {
	state := turn.State
	return TurnResponse{
		SessionID:            state.SessionID,
		Message:              turn.LastReply(),
		Estimate:             state.Estimate,
		MissingInfo:          facts.Missing(state.RequiredFields, state.Facts),
		ConversationComplete: state.Estimate != nil,
	}
}

func newConversationResponse(state *types.ConversationState) ConversationResponse {
	history := make([]MessageView, 0, len(state.History))
	for _, m := range state.History {
		if m == nil || (m.Role != schema.User && m.Role != schema.Assistant) {
			continue
		}
		history = append(history, MessageView{Role: string(m.Role), Content: m.Content})
	}
	return ConversationResponse{
		SessionID:            state.SessionID,
		Service:              state.Service,
		History:              history,
		Facts:                state.Facts,
		ImageNotes:           state.ImageNotes,
		Estimate:             state.Estimate,
		MissingInfo:          facts.Missing(state.RequiredFields, state.Facts),
		ConversationComplete: state.Estimate != nil,
	}
}

func writeError(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// bindError answers a request whose body failed binding or validation.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		writeError(c, http.StatusBadRequest, "invalid request", details)
		return
	}
	writeError(c, http.StatusBadRequest, "invalid request body", nil)
}

// handleError maps session errors to HTTP statuses.
func (s *Server) handleError(c *gin.Context, err error) {
	if errors.Is(err, agent.ErrSessionNotFound) {
		writeError(c, http.StatusNotFound, "session not found", nil)
		return
	}
	s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	writeError(c, http.StatusInternalServerError, "internal error", nil)
}
