package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Waterproof82/smart-connect-assistant/internal/domain"
	"github.com/Waterproof82/smart-connect-assistant/internal/logger"
	healthuc "github.com/Waterproof82/smart-connect-assistant/internal/usecase/health"
)

// Assistant is the single request/response contract the core surfaces.
type Assistant interface {
	Answer(ctx context.Context, text string, caller domain.CallerContext) (domain.Answer, error)
}

// HealthService reports component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server is the HTTP API for the assistant.
type Server struct {
	assistant Assistant
	health    HealthService
	logger    *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(assistant Assistant, health HealthService, logger *zap.Logger) *Server {
	return &Server{assistant: assistant, health: health, logger: logger}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	RequestID string      `json:"request_id"`
	Answer    string      `json:"answer"`
	Sources   []sourceDTO `json:"sources"`
}

type sourceDTO struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	Similarity float64 `json:"similarity"`
	FinalScore float64 `json:"final_score"`
	Reason     string  `json:"reason"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Chat handles POST /chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	caller := callerFromRequest(r)

	answer, err := s.assistant.Answer(r.Context(), req.Message, caller)
	if err != nil {
		s.handleAnswerError(w, r, err)
		return
	}

	sources := make([]sourceDTO, len(answer.UsedDocuments))
	for i, d := range answer.UsedDocuments {
		sources[i] = sourceDTO{
			ID:         d.Document().ID(),
			Source:     d.Document().Source(),
			Similarity: d.Similarity(),
			FinalScore: d.FinalScore(),
			Reason:     d.Reason(),
		}
	}

	writeJSON(w, http.StatusOK, chatResponse{
		RequestID: caller.RequestID,
		Answer:    answer.Text,
		Sources:   sources,
	})
}

// handleAnswerError maps the two caller-visible failure kinds. Anything else
// escaping the orchestrator is a bug and maps to 500.
func (s *Server) handleAnswerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", "the question is empty or malformed")
	case errors.Is(err, domain.ErrCancelled):
		writeError(w, http.StatusRequestTimeout, "cancelled", "the request was cancelled")
	default:
		logger.FromContext(r.Context()).Error("Unexpected pipeline error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// Health handles GET /health. Degraded components report 503 so the embed
// widget can switch to its offline banner.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for name, result := range report.Checks {
		checks[name] = string(result)
	}

	writeJSON(w, status, map[string]any{
		"status": string(report.Status),
		"checks": checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
