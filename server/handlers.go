package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tbxark/estimagent/extract"
	"github.com/tbxark/estimagent/types"
)

type createSessionRequest struct {
	Service string `json:"service" binding:"omitempty,max=64"`
}

type chatRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required,max=4000"`
}

type uploadRequest struct {
	SessionID   string            `json:"session_id" binding:"required"`
	Description string            `json:"description" binding:"max=4000"`
	URL         string            `json:"url" binding:"omitempty,url"`
	Facts       map[string]string `json:"facts"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) createSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	turn, err := s.sessions.Create(c.Request.Context(), req.Service)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTurnResponse(turn))
}

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	turn, err := s.sessions.Message(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTurnResponse(turn))
}

func (s *Server) upload(c *gin.Context) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if strings.TrimSpace(req.Description) == "" && req.URL == "" && len(req.Facts) == 0 {
		writeError(c, http.StatusBadRequest, "description, url or facts is required", nil)
		return
	}

	var imageFacts types.Facts
	if len(req.Facts) > 0 {
		imageFacts = types.Facts(req.Facts)
	}
	img := extract.ImageInput{Description: req.Description, URL: req.URL}
	turn, err := s.sessions.Image(c.Request.Context(), req.SessionID, img, imageFacts)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTurnResponse(turn))
}

func (s *Server) conversation(c *gin.Context) {
	state, err := s.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newConversationResponse(state))
}
