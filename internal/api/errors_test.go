package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(http.StatusBadRequest, ErrCodeInvalidJSON, "invalid JSON")

	if resp.Error != "Bad Request" {
		t.Errorf("Expected Error 'Bad Request', got '%s'", resp.Error)
	}
	if resp.Message != "invalid JSON" {
		t.Errorf("Expected Message 'invalid JSON', got '%s'", resp.Message)
	}
	if resp.Code != ErrCodeInvalidJSON {
		t.Errorf("Expected Code INVALID_JSON, got '%s'", resp.Code)
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter, r *http.Request)
		wantStatus int
		wantCode   ErrorCode
	}{
		{"bad request", func(w http.ResponseWriter, r *http.Request) { BadRequestError(w, r, ErrCodeBadRequest, "x") }, http.StatusBadRequest, ErrCodeBadRequest},
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) { UnauthorizedError(w, r, "x") }, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"forbidden", func(w http.ResponseWriter, r *http.Request) { ForbiddenError(w, r, "x") }, http.StatusForbidden, ErrCodeForbidden},
		{"internal", func(w http.ResponseWriter, r *http.Request) { InternalError(w, r, "x") }, http.StatusInternalServerError, ErrCodeInternal},
		{"not implemented", func(w http.ResponseWriter, r *http.Request) { NotImplementedError(w, r, "x") }, http.StatusNotImplemented, ErrCodeNotImplemented},
		{"too large", func(w http.ResponseWriter, r *http.Request) { RequestTooLargeError(w, r, "x") }, http.StatusRequestEntityTooLarge, ErrCodeRequestTooLarge},
		{"rate limited", func(w http.ResponseWriter, r *http.Request) { RateLimitedError(w, r, "x") }, http.StatusTooManyRequests, ErrCodeRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.write(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected JSON content type, got %s", ct)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("Expected code %s, got %s", tt.wantCode, resp.Code)
			}
			if resp.Error != http.StatusText(tt.wantStatus) {
				t.Errorf("Expected error text %q, got %q", http.StatusText(tt.wantStatus), resp.Error)
			}
		})
	}
}

func TestBadRequestErrorWithFields(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/rollout/evaluate", nil)

	BadRequestErrorWithFields(w, r, ErrCodeMissingField, "parameters is required", map[string]string{"parameters": "required"})

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if resp.Fields["parameters"] != "required" {
		t.Errorf("Expected field error, got %v", resp.Fields)
	}
}
