// Package httpapi is the thin REST+WS façade over C10/C11: recommend,
// ingest, subscribe, and health. Grounded on the teacher's routes.go/
// main.go fiber wiring (cors/helmet/limiter/recover/logger middleware
// stack, route groups under /api/v1) adapted to this domain's three
// RPCs instead of the teacher's news/auth/search surface.
package httpapi

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlog "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/marketpulse/core/internal/hub"
	"github.com/marketpulse/core/internal/httpapi/authmw"
	"github.com/marketpulse/core/internal/model"
	"github.com/marketpulse/core/internal/stream"
	"github.com/marketpulse/core/pkg/logger"
)

// Recommender is the narrow surface the façade needs from C10's
// synchronous query path.
type Recommender interface {
	Recommend(ctx context.Context, subject, query string) model.Verdict
}

// Dedupe is the narrow surface the façade needs from C2 for the
// external ingest RPC.
type Dedupe interface {
	DedupeOne(article model.Article) (model.Article, bool)
}

// Ingestor is the narrow surface the façade needs from C8.
type Ingestor interface {
	Admit(ctx context.Context, event stream.ArticleAdmitted)
}

// SubscribeHub is the narrow surface the façade needs from C11.
type SubscribeHub interface {
	Subscribe(ctx context.Context, subject string, sink hub.Sink) string
	Unsubscribe(subject, id string)
}

// Server wires the composition root's collaborators into a fiber.App.
type Server struct {
	app       *fiber.App
	recommend Recommender
	dedupe    Dedupe
	ingest    Ingestor
	hub       SubscribeHub
	jwt       *authmw.Manager
	static    *authmw.StaticTokenAuthenticator
	authMode  string
	validate  *validator.Validate
	log       *logger.Logger
}

type Config struct {
	AllowedOrigins string
	AuthMode       string // "jwt" | "static-token"
}

func New(cfg Config, recommend Recommender, dedupe Dedupe, ingest Ingestor, hub SubscribeHub, jwt *authmw.Manager, static *authmw.StaticTokenAuthenticator, log *logger.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
	})

	app.Use(recover.New())
	app.Use(fiberlog.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.AllowedOrigins}))
	app.Use(limiter.New(limiter.Config{Max: 120, Expiration: time.Minute}))

	s := &Server{
		app:       app,
		recommend: recommend,
		dedupe:    dedupe,
		ingest:    ingest,
		hub:       hub,
		jwt:       jwt,
		static:    static,
		authMode:  cfg.AuthMode,
		validate:  validator.New(),
		log:       log.Named("httpapi"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/healthz", s.handleHealth)

	api := s.app.Group("/api/v1")
	api.Post("/recommend/:subject", s.handleRecommend)

	protected := api.Group("", s.requireAuth)
	protected.Post("/ingest", s.handleIngest)

	api.Use("/subscribe/:subject", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	}, s.requireAuth)
	api.Get("/subscribe/:subject", websocket.New(s.handleSubscribe))
}

func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) ShutdownWithContext(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// healthChecker is the optional surface a collaborator exposes to
// contribute to the aggregate /healthz response. C2, C8, and C11 all
// implement it with the teacher's status+issues map idiom; it's checked
// via type assertion here rather than added to Dedupe/Ingestor/
// SubscribeHub, since those stay narrow to the one method each route
// handler actually calls.
type healthChecker interface {
	HealthCheck() map[string]interface{}
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	components := fiber.Map{}
	status := "healthy"

	for name, collaborator := range map[string]interface{}{
		"aggregator":  s.dedupe,
		"coordinator": s.ingest,
		"hub":         s.hub,
	} {
		checker, ok := collaborator.(healthChecker)
		if !ok {
			continue
		}
		report := checker.HealthCheck()
		components[name] = report
		if issues, ok := report["issues"].([]string); ok && len(issues) > 0 {
			status = "degraded"
		}
	}

	return c.JSON(fiber.Map{"status": status, "components": components})
}

// requireAuth guards /ingest and /subscribe per the configured auth mode.
func (s *Server) requireAuth(c *fiber.Ctx) error {
	switch s.authMode {
	case "static-token":
		token := c.Get("X-Ingest-Token")
		if err := s.static.Check(token); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Error: "unauthorized", Message: err.Error()})
		}
	default:
		if _, err := s.jwt.Validate(c.Get("Authorization")); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Error: "unauthorized", Message: err.Error()})
		}
	}
	return c.Next()
}
