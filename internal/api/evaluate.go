package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/TimurManjosov/flagship-core/internal/rollout"
	"github.com/TimurManjosov/flagship-core/internal/telemetry"
)

// evaluateRequest represents the request body for POST /v1/rollout/evaluate
type evaluateRequest struct {
	Parameters map[string]any  `json:"parameters"`
	Context    rollout.Context `json:"context"`
}

// evaluateResponse is the evaluator's result plus the evaluation time
type evaluateResponse struct {
	rollout.Result
	EvaluatedAt string `json:"evaluatedAt"`
}

// handleEvaluate handles POST /v1/rollout/evaluate
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RequestTooLargeError(w, r, "request body too large")
			return
		}
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON")
		return
	}

	if req.Parameters == nil {
		BadRequestErrorWithFields(w, r, ErrCodeMissingField, "parameters is required",
			map[string]string{"parameters": "required"})
		return
	}

	params := rollout.ParseParameters(req.Parameters)
	result := s.evaluator.Evaluate(params, req.Context)
	telemetry.ObserveEvaluation(params.Stickiness.MetricLabel(), result.Enabled)

	writeJSON(w, http.StatusOK, evaluateResponse{
		Result:      result,
		EvaluatedAt: time.Now().UTC().Format(time.RFC3339),
	})
}
