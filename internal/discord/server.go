package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"l2-tipbot/internal/bot"
	"l2-tipbot/internal/command"
	"l2-tipbot/internal/logging"
	"l2-tipbot/internal/observability"
)

// Defaults for the interaction server.
const (
	DefaultEndpoint      = "/interactions"
	DefaultHandleTimeout = 2 * time.Minute
	requestIDHeader      = "X-Request-ID"
	requestIDLocal       = "request_id"
)

// CommandHandler answers a command. Satisfied by *bot.Handler.
type CommandHandler interface {
	Handle(ctx context.Context, raw command.Raw) bot.Response
}

// ResponseEditor replaces a deferred response. Satisfied by *WebhookClient.
type ResponseEditor interface {
	EditOriginal(ctx context.Context, interactionToken string, msg bot.Message) error
}

// Server receives interactions over HTTP, acknowledges them with a deferred
// response and edits in the answer once the command completes.
type Server struct {
	app      *fiber.App
	handler  CommandHandler
	editor   ResponseEditor
	verifier *Verifier
	endpoint string
	timeout  time.Duration
	logger   *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// ServerOption configures Server.
type ServerOption func(*Server)

// WithVerifier enables request signature checks.
func WithVerifier(v *Verifier) ServerOption {
	return func(s *Server) {
		s.verifier = v
	}
}

// WithEndpoint sets the interaction route.
func WithEndpoint(path string) ServerOption {
	return func(s *Server) {
		if path != "" {
			s.endpoint = path
		}
	}
}

// WithHandleTimeout bounds command handling, including the edit.
func WithHandleTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.timeout = d
	}
}

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logging.OrNop(l)
	}
}

// NewServer creates a Server and registers its routes.
func NewServer(handler CommandHandler, editor ResponseEditor, opts ...ServerOption) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		handler:  handler,
		editor:   editor,
		endpoint: DefaultEndpoint,
		timeout:  DefaultHandleTimeout,
		logger:   zap.NewNop(),
		baseCtx:  ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.app.Use(s.requestID, s.accessLog)
	s.app.Get("/health", s.health)
	s.app.Get("/metrics", adaptor.HTTPHandler(observability.Handler()))
	s.app.Post(s.endpoint, s.interaction)
	return s
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("interaction server listening",
		zap.String("addr", addr),
		zap.String("endpoint", s.endpoint),
		zap.Bool("verify_signatures", s.verifier != nil),
	)
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight commands.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.cancel()
		<-done
	}
	s.cancel()
	return err
}

// Wait blocks until every accepted command has been answered.
func (s *Server) Wait() { s.wg.Wait() }

func (s *Server) requestID(c *fiber.Ctx) error {
	id := c.Get(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Locals(requestIDLocal, id)
	c.Set(requestIDHeader, id)
	return c.Next()
}

func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("http request",
		zap.String("request_id", requestIDFrom(c)),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("latency", time.Since(start)),
	)
	return err
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if fe, ok := err.(*fiber.Error); ok {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("request_id", requestIDFrom(c)), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func requestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDLocal).(string)
	return id
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) interaction(c *fiber.Ctx) error {
	body := append([]byte(nil), c.Body()...)

	if s.verifier != nil && !s.verifier.Verify(c.Get(HeaderSignature), c.Get(HeaderTimestamp), body) {
		observability.RecordInteraction("rejected")
		return fiber.NewError(fiber.StatusUnauthorized, "invalid request signature")
	}

	var in Interaction
	if err := json.Unmarshal(body, &in); err != nil {
		observability.RecordInteraction("malformed")
		return fiber.NewError(fiber.StatusBadRequest, "malformed interaction")
	}

	switch in.Type {
	case InteractionPing:
		observability.RecordInteraction("ping")
		return c.JSON(InteractionResponse{Type: ResponsePong})

	case InteractionApplicationCommand:
		observability.RecordInteraction("command")
		s.wg.Add(1)
		go s.process(in, body, requestIDFrom(c))
		return c.JSON(InteractionResponse{Type: ResponseDeferredMessage})
	}

	observability.RecordInteraction("unsupported")
	return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unsupported interaction type %d", in.Type))
}

// process answers one command and edits the deferred response. Any fault
// ends in a "Server Error." edit with the interaction dumped to the log.
func (s *Server) process(in Interaction, body []byte, requestID string) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.baseCtx, s.timeout)
	defer cancel()

	log := s.logger.With(
		zap.String("request_id", requestID),
		zap.String("interaction_id", in.ID),
		zap.String("actor_id", in.ActorID()),
	)

	msg := s.answer(ctx, in, log, body)
	err := s.editor.EditOriginal(ctx, in.Token, msg)
	if err == nil {
		return
	}
	log.Error("edit original response failed", zap.Error(err), zap.ByteString("interaction", body))
	if msg.Content == bot.ServerErrorText {
		return
	}
	if err := s.editor.EditOriginal(ctx, in.Token, bot.Message{Content: bot.ServerErrorText}); err != nil {
		log.Error("edit server error response failed", zap.Error(err))
	}
}

func (s *Server) answer(ctx context.Context, in Interaction, log *zap.Logger, body []byte) (msg bot.Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("command panicked", zap.Any("panic", r), zap.ByteString("interaction", body))
			msg = bot.Message{Content: bot.ServerErrorText}
		}
	}()

	resp := s.handler.Handle(ctx, in.Command())
	msg = bot.Render(resp)
	if resp.Failed() && resp.Failure == bot.FailServerError {
		log.Error("command ended in server error", zap.ByteString("interaction", body))
	}
	return msg
}
