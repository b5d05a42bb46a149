package server

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/randalmurphal/querybot/internal/intent"
	"github.com/randalmurphal/querybot/internal/session"
	"github.com/randalmurphal/querybot/internal/workflow"
	"github.com/randalmurphal/querybot/pkg/flowgraph/checkpoint"
)

// QueryRequest is the body of POST /api/query. UserID doubles as the
// session key.
type QueryRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
}

// QueryResponse is the body of a successful POST /api/query.
type QueryResponse struct {
	Answer               string         `json:"answer"`
	RetrievedDocs        []string       `json:"retrieved_docs"`
	ConfidenceScore      float64        `json:"confidence_score"`
	Intent               session.Intent `json:"intent"`
	ProcessingSuccessful bool           `json:"processing_successful"`
	RoutingStats         intent.Stats   `json:"routing_stats"`
}

func (s *Server) handleQuery(c *fiber.Ctx) error {
	var req QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if strings.TrimSpace(req.UserID) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "user_id is required")
	}

	res := s.engine.Process(c.UserContext(), req.UserID, req.Query)
	st := res.State
	if !st.ProcessingSuccessful {
		return fiber.NewError(fiber.StatusInternalServerError, "Query processing failed: "+st.ProcessingError)
	}

	docs := make([]string, len(st.Documents))
	for i, d := range st.Documents {
		docs[i] = d.Content
	}
	return c.JSON(QueryResponse{
		Answer:               st.Answer,
		RetrievedDocs:        docs,
		ConfidenceScore:      st.Confidence,
		Intent:               st.Intent,
		ProcessingSuccessful: st.ProcessingSuccessful,
		RoutingStats:         res.Stats,
	})
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.engine.Stats())
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	return c.JSON(s.engine.Reset())
}

func (s *Server) handleCheckpoint(c *fiber.Ctx) error {
	snap, err := s.engine.Checkpoint(c.UserContext(), c.Params("id"))
	switch {
	case err == nil:
		return c.JSON(snap)
	case errors.Is(err, checkpoint.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "no checkpoint for session")
	case errors.Is(err, workflow.ErrNoCheckpointStore):
		return fiber.NewError(fiber.StatusNotFound, "checkpointing is disabled")
	default:
		return err
	}
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy", "service": ServiceName})
}

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Product Query Bot API", "health": "/api/health"})
}
