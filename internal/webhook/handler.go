package webhook

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lewisedginton/whatsapp_router/pkg/logger"
)

// Response bodies returned to Meta and to uptime probes.
const (
	LivenessText          = "✅ Bot de WhatsApp corriendo y respondiendo"
	VerificationErrorText = "Error de verificación"
	AckText               = "ok"
)

// ProcessFunc runs one webhook body through the message pipeline.
type ProcessFunc func(ctx context.Context, payload []byte)

// HandlerConfig wires the handlers to the pipeline and credentials.
type HandlerConfig struct {
	VerifyToken string
	// AppSecret enables X-Hub-Signature-256 checks when set.
	AppSecret string
	Process   ProcessFunc
	Logger    logger.Logger
}

// Handler serves the webhook endpoints.
type Handler struct {
	cfg HandlerConfig
	log logger.Logger
}

// NewHandler creates a webhook Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	if cfg.Process == nil {
		cfg.Process = func(context.Context, []byte) {}
	}
	return &Handler{cfg: cfg, log: log}
}

// Routes mounts GET and POST /webhook on r. extra is applied to POST only.
func (h *Handler) Routes(r chi.Router, extra ...func(http.Handler) http.Handler) {
	r.Get("/webhook", h.Verify)
	r.With(extra...).Post("/webhook", h.Receive)
}

// Index is the dependency free liveness endpoint served at GET /.
func Index(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, LivenessText)
}

// Verify answers the subscription handshake.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	challenge, err := Verify(q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge"), h.cfg.VerifyToken)
	if err != nil {
		logger.GetLoggerFromContext(r.Context(), h.log).Warn("Webhook verification rejected",
			logger.StringField("mode", q.Get("hub.mode")),
			logger.ErrorField(err))
		writeText(w, http.StatusForbidden, VerificationErrorText)
		return
	}

	logger.GetLoggerFromContext(r.Context(), h.log).Info("Webhook verified")
	writeText(w, http.StatusOK, challenge)
}

// Receive acknowledges every notification with 200 "ok" once the pipeline
// has run. Meta retries anything else, so errors are only logged.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	log := logger.GetLoggerFromContext(r.Context(), h.log)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("Failed to read webhook body", logger.ErrorField(err))
		writeText(w, http.StatusOK, AckText)
		return
	}

	if h.cfg.AppSecret != "" && !ValidSignature(body, r.Header.Get(SignatureHeader), h.cfg.AppSecret) {
		log.Warn("Webhook signature mismatch, notification skipped",
			logger.IntField("body_bytes", len(body)))
		writeText(w, http.StatusOK, AckText)
		return
	}

	h.cfg.Process(r.Context(), body)
	writeText(w, http.StatusOK, AckText)
}

// Ack answers a notification with 200 "ok" without processing it.
func Ack(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, AckText)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
