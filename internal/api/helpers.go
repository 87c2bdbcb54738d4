package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/TimurManjosov/flagship-core/internal/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// jobDTO is the wire form of a store.Job.
type jobDTO struct {
	Name       string  `json:"name"`
	Bucket     string  `json:"bucket"`
	Stage      string  `json:"stage"`
	FinishedAt *string `json:"finishedAt,omitempty"`
}

// toJobDTO formats timestamps as RFC3339 UTC.
func toJobDTO(j store.Job) jobDTO {
	dto := jobDTO{
		Name:   j.Name,
		Bucket: j.Bucket.UTC().Format(time.RFC3339),
		Stage:  string(j.Stage),
	}
	if j.FinishedAt != nil {
		formatted := j.FinishedAt.UTC().Format(time.RFC3339)
		dto.FinishedAt = &formatted
	}
	return dto
}
