package server

import (
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/kontexthq/kontext/internal/core"
	"github.com/kontexthq/kontext/internal/core/model"
	"github.com/kontexthq/kontext/internal/llm"
)

type Server struct {
	engine *core.Engine
	llm    llm.Client
	logger *log.Logger
}

// New builds the HTTP surface. client may be nil; /turn then returns the
// assembled prompt without a generated reply.
func New(engine *core.Engine, client llm.Client, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{engine: engine, llm: client, logger: logger}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/turn", s.Turn)
	r.GET("/knowledge", s.Knowledge)
	r.POST("/cleanup", s.Cleanup)
	r.POST("/clear", s.Clear)
	r.GET("/healthz", s.Health)

	return r
}

type TurnRequest struct {
	UserID   string              `json:"user_id" binding:"required"`
	Message  string              `json:"message" binding:"required"`
	Profile  *model.ProfileFacts `json:"profile"`
	Generate bool                `json:"generate"`
}

type TurnResponse struct {
	TurnID string `json:"turn_id"`
	Prompt string `json:"prompt"`
	Reply  string `json:"reply,omitempty"`
}

func (s *Server) Turn(c *gin.Context) {
	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := s.engine.ProcessTurn(c.Request.Context(), req.UserID, req.Message, req.Profile)
	if err != nil {
		s.logger.Error("turn aborted", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message"})
		return
	}

	resp := TurnResponse{TurnID: result.TurnID, Prompt: result.Prompt}
	if req.Generate && s.llm != nil {
		reply, err := s.llm.Generate(c.Request.Context(), result.Prompt)
		if err != nil {
			s.logger.Warn("generation failed, returning prompt only", "turn", result.TurnID, "err", err)
		} else {
			resp.Reply = reply
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) Knowledge(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	minConfidence := 0.0
	if v := c.Query("min_confidence"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			minConfidence = f
		}
	}

	entities, rels, err := s.engine.Knowledge(c.Request.Context(), userID, minConfidence)
	if err != nil {
		s.logger.Error("knowledge query failed", "user", userID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query knowledge"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entities": entities, "relationships": rels})
}

type CleanupRequest struct {
	UserID string `json:"user_id"`
}

// Cleanup sweeps one user, or every known user when user_id is omitted.
func (s *Server) Cleanup(c *gin.Context) {
	var req CleanupRequest
	_ = c.ShouldBindJSON(&req)

	var (
		removed int
		err     error
	)
	if req.UserID != "" {
		removed, err = s.engine.CleanupUser(c.Request.Context(), req.UserID)
	} else {
		removed, err = s.engine.CleanupAll(c.Request.Context())
	}
	if err != nil {
		s.logger.Error("cleanup failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cleanup failed", "removed": removed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

type ClearRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (s *Server) Clear(c *gin.Context) {
	var req ClearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	if err := s.engine.ClearUser(c.Request.Context(), req.UserID); err != nil {
		s.logger.Error("clear failed", "user", req.UserID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear user data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (s *Server) Health(c *gin.Context) {
	if err := s.engine.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "degraded", "store": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
