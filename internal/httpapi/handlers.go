package httpapi

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/marketpulse/core/internal/stream"
)

// handleRecommend implements §4.1's synchronous query path: POST
// /api/v1/recommend/:subject with an optional JSON body overriding the
// retrieval query.
func (s *Server) handleRecommend(c *fiber.Ctx) error {
	subject := c.Params("subject")
	if subject == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "bad_request", Message: "subject is required"})
	}

	var req recommendRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "bad_request", Message: "malformed body"})
		}
		if err := s.validate.Struct(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "validation_failed", Message: err.Error()})
		}
	}

	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()

	verdict := s.recommend.Recommend(ctx, subject, req.Query)
	return c.JSON(verdict)
}

// handleIngest implements §6's external ingest RPC: dedupe against C2's
// persistent seen-set, then admit through the same coordinator path a
// driver-fetched article takes.
func (s *Server) handleIngest(c *fiber.Ctx) error {
	var req ingestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "bad_request", Message: "malformed body"})
	}
	if err := s.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "validation_failed", Message: err.Error()})
	}

	article, ok := s.dedupe.DedupeOne(req.toArticle())
	if !ok {
		return c.Status(fiber.StatusConflict).JSON(errorResponse{Error: "duplicate", Message: "article already ingested"})
	}

	s.ingest.Admit(c.Context(), stream.ArticleAdmitted{Article: article})
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": article.ID, "fingerprint": article.Fingerprint})
}

// handleSubscribe implements §4.11's subject-scoped WebSocket push feed.
// Runs inside websocket.New, which hands us an already-upgraded
// connection; registers a wsSink with the hub and blocks reading (to
// notice client-initiated close) until the connection drops, then
// unsubscribes.
func (s *Server) handleSubscribe(conn *websocket.Conn) {
	subject := conn.Params("subject")
	sink := newWSSink(conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id := s.hub.Subscribe(ctx, subject, sink)
	defer s.hub.Unsubscribe(subject, id)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
