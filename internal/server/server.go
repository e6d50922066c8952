// Package server assembles the webhook service from configuration and owns
// its lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/go-multierror"

	"github.com/lewisedginton/whatsapp_router/internal/completion"
	appconfig "github.com/lewisedginton/whatsapp_router/internal/config"
	"github.com/lewisedginton/whatsapp_router/internal/conversation"
	"github.com/lewisedginton/whatsapp_router/internal/delivery"
	"github.com/lewisedginton/whatsapp_router/internal/dispatcher"
	"github.com/lewisedginton/whatsapp_router/internal/events"
	"github.com/lewisedginton/whatsapp_router/internal/middleware"
	"github.com/lewisedginton/whatsapp_router/internal/models"
	"github.com/lewisedginton/whatsapp_router/internal/pipeline"
	"github.com/lewisedginton/whatsapp_router/internal/responder"
	"github.com/lewisedginton/whatsapp_router/internal/webhook"
	"github.com/lewisedginton/whatsapp_router/pkg/health"
	"github.com/lewisedginton/whatsapp_router/pkg/health/checkers"
	"github.com/lewisedginton/whatsapp_router/pkg/httpmiddleware"
	"github.com/lewisedginton/whatsapp_router/pkg/logger"
	"github.com/lewisedginton/whatsapp_router/pkg/metrics"
	"github.com/lewisedginton/whatsapp_router/pkg/utils"
)

// Server encapsulates the router components and lifecycle management
type Server struct {
	cfg *appconfig.AppConfig
	log logger.Logger

	metrics     *metrics.Metrics
	store       *conversation.MemoryStore
	completer   *completion.Guarded
	publisher   events.Publisher
	pipeline    *pipeline.Pipeline
	health      *health.HealthChecker
	rateLimiter *httpmiddleware.RateLimiter

	httpServer *http.Server
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// Options lets callers replace outbound collaborators, mainly in tests.
type Options struct {
	Sender    delivery.Sender
	Completer completion.Completer
	Publisher events.Publisher
}

// New creates a Server with all components initialized. Nothing listens
// until Listen is called.
func New(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger, opts Options) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		log:     log,
		metrics: metrics.NewMetrics(cfg.Metrics.EnableHTTPMetrics, log),
	}

	var err error
	s.store, err = conversation.New(conversation.Config{
		Shards:        cfg.Store.Shards,
		ShardCapacity: cfg.Store.ShardCapacity,
		TTL:           cfg.Store.TTL,
		Logger:        log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation store: %w", err)
	}

	sender := opts.Sender
	if sender == nil {
		sender, err = delivery.NewClient(delivery.Config{
			BaseURL:       cfg.WhatsApp.APIBaseURL,
			APIVersion:    cfg.WhatsApp.APIVersion,
			PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
			Token:         cfg.WhatsApp.Token,
			Timeout:       cfg.WhatsApp.SendTimeout,
			Logger:        log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create delivery client: %w", err)
		}
	}

	completer, err := s.createCompleter(opts.Completer)
	if err != nil {
		return nil, err
	}

	s.publisher, err = s.createPublisher(ctx, opts.Publisher)
	if err != nil {
		return nil, err
	}
	feed := events.NewFeed(s.publisher, cfg.Events.Producer, s.metrics, log, events.WithPublishTimeout(cfg.Events.PublishTimeout))

	router := responder.New(responder.Config{
		AIFallbackEnabled: cfg.Router.AIFallbackEnabled,
		SystemPrompt:      cfg.Router.SystemPrompt,
		MaxOutputTokens:   cfg.Router.MaxOutputTokens,
		FormURL:           cfg.Router.FormURL,
	}, completer, s.metrics, log)

	s.pipeline = pipeline.New(pipeline.Deps{
		Store:      s.store,
		Router:     router,
		Dispatcher: dispatcher.New(sender, feed, s.metrics, log),
		Feed:       feed,
		Metrics:    s.metrics,
		Logger:     log,
	})

	s.health = s.createHealthChecker()

	if cfg.Security.RateLimitEnabled {
		s.rateLimiter = httpmiddleware.NewRateLimiter(httpmiddleware.RateLimitConfig{
			RPS:   cfg.Security.RateLimitRPS,
			Burst: cfg.Security.RateLimitBurst,
			// Meta redelivers anything but a 200, so throttled notifications are
			// dropped and still acknowledged.
			Rejected: http.HandlerFunc(s.throttled),
		})
	}

	s.httpServer = &http.Server{
		Addr:           cfg.HTTP.Addr(),
		Handler:        s.Router(),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	log.Info("Webhook server initialized",
		logger.IntField("http_port", cfg.HTTP.Port),
		logger.BoolField("ai_fallback", cfg.Router.AIFallbackEnabled),
		logger.BoolField("events", cfg.Events.Enabled),
		logger.BoolField("signature_check", cfg.WhatsApp.AppSecret != ""))

	return s, nil
}

// createCompleter returns nil when the AI fallback is disabled.
func (s *Server) createCompleter(override completion.Completer) (completion.Completer, error) {
	if !s.cfg.Router.AIFallbackEnabled {
		return nil, nil
	}
	if override != nil {
		return override, nil
	}
	guarded, err := models.NewCompleter(s.cfg.LLM, s.log)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion backend: %w", err)
	}
	s.completer = guarded
	return guarded, nil
}

func (s *Server) createPublisher(ctx context.Context, override events.Publisher) (events.Publisher, error) {
	if override != nil {
		return override, nil
	}
	if !s.cfg.Events.Enabled {
		return events.NopPublisher{}, nil
	}
	pub, err := events.NewAMQPPublisher(ctx, events.Options{
		Connection: events.ConnectionOptions{
			URL:           s.cfg.Events.URL,
			RetryAttempts: s.cfg.Events.DialAttempts,
			Delay:         s.cfg.Events.DialDelay,
			Logger:        s.log,
		},
		Exchange: s.cfg.Events.Exchange,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}
	return pub, nil
}

func (s *Server) createHealthChecker() *health.HealthChecker {
	h := health.New(
		health.WithTimeout(s.cfg.Health.Timeout),
		health.WithFailureThreshold(s.cfg.Health.FailureThreshold),
		health.WithLogger(s.log),
	)

	if check, ok := s.publisher.(health.Check); ok {
		h.AddReadinessCheck(check)
	}
	if s.completer != nil && s.completer.Breaker() != nil {
		breaker := s.completer.Breaker()
		h.AddDegradedCheck(health.NewCheckFunc("completion_breaker", func(context.Context) error {
			if state := breaker.State(); state == completion.StateOpen {
				return fmt.Errorf("completion breaker is %s", state)
			}
			return nil
		}))
	}
	if s.cfg.Health.CheckGraph {
		h.AddReadinessCheck(checkers.NewHTTPChecker(s.cfg.WhatsApp.APIBaseURL, "graph_api"))
	}
	return h
}

func (s *Server) throttled(w http.ResponseWriter, r *http.Request) {
	if s.metrics != nil {
		s.metrics.MessagesThrottled.Inc()
	}
	logger.GetLoggerFromContext(r.Context(), s.log).Warn("Webhook rate limit exceeded, notification dropped",
		logger.ClientIPField(r.RemoteAddr))
	webhook.Ack(w, r)
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	mwConfig := httpmiddleware.DefaultConfig()
	mwConfig.Logger = s.log
	mwConfig.EnableLogging = true
	mwConfig.Recoverer = middleware.Recovery(middleware.DefaultRecoveryConfig(s.log))
	mwConfig.Metrics = s.metrics.HTTPMiddleware()
	mwConfig.Timeout = s.cfg.HTTP.RequestTimeout
	cors := httpmiddleware.DefaultCORSConfig()
	cors.AllowedOrigins = s.cfg.Security.CORSAllowedOrigins
	mwConfig.CORS = &cors
	httpmiddleware.ApplyToRouter(r, mwConfig)

	r.Get("/", webhook.Index)
	r.Get("/health/live", s.health.LivenessHandler())
	r.Get("/health/ready", s.health.ReadinessHandler())

	postMiddleware := []func(http.Handler) http.Handler{httpmiddleware.MaxBody(s.cfg.Security.MaxRequestSize)}
	if s.rateLimiter != nil {
		postMiddleware = append(postMiddleware, s.rateLimiter.Middleware)
	}

	webhook.NewHandler(webhook.HandlerConfig{
		VerifyToken: s.cfg.WhatsApp.VerifyToken,
		AppSecret:   s.cfg.WhatsApp.AppSecret,
		Process: func(ctx context.Context, payload []byte) {
			s.pipeline.Process(ctx, payload)
		},
		Logger: s.log,
	}).Routes(r, postMiddleware...)

	return r
}

// Pipeline exposes the message pipeline for local tooling.
func (s *Server) Pipeline() *pipeline.Pipeline {
	return s.pipeline
}

// Listen starts the HTTP server, the metrics listener and the background
// workers. It returns an error channel plus forced and graceful closers.
func (s *Server) Listen() (chan error, func(), func(), error) {
	errChan := make(chan error, 1)

	workerCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.store.Run(workerCtx, s.cfg.Store.JanitorInterval)
	}()
	if s.rateLimiter != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.rateLimiter.Run(workerCtx, time.Minute)
		}()
	}

	go func() {
		s.log.Info("Starting HTTP server", logger.StringField("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var metricsErr chan error
	if s.cfg.Metrics.Expose {
		metricsErr = s.metrics.Listen(s.cfg.Metrics.Port)
	}

	closer := func() {
		s.log.Info("Forcefully closing HTTP server")
		if err := s.Close(); err != nil {
			s.log.Error("Error during forced shutdown", logger.ErrorField(err))
		}
	}

	gracefulCloser := func() {
		s.log.Info("Gracefully closing HTTP server")
		if err := s.GracefulShutdown(); err != nil {
			s.log.Error("Error during graceful shutdown", logger.ErrorField(err))
		}
	}

	return utils.MergeErrorChans(errChan, metricsErr), closer, gracefulCloser, nil
}

// GracefulShutdown drains in-flight webhooks, then stops workers and closes
// the publisher.
func (s *Server) GracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	var result error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("server shutdown error: %w", err))
	}
	if s.cfg.Metrics.Expose {
		if err := s.metrics.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("metrics shutdown error: %w", err))
		}
	}
	s.stopWorkers()
	return result
}

// Close forcefully shuts down the server
func (s *Server) Close() error {
	err := s.httpServer.Close()
	s.stopWorkers()
	return err
}

func (s *Server) stopWorkers() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.log.Warn("Failed to close event publisher", logger.ErrorField(err))
		}
	}
}
