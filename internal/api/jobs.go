package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/TimurManjosov/flagship-core/internal/store"
)

const (
	defaultJobsLimit = 50
	maxJobsLimit     = 500
)

// listJobsResponse represents the response for GET /v1/jobs
type listJobsResponse struct {
	Jobs []jobDTO `json:"jobs"`
}

// handleListJobs handles GET /v1/jobs?name=&limit=
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	lister, ok := s.jobs.(store.JobLister)
	if !ok {
		NotImplementedError(w, r, "the configured job store cannot list records")
		return
	}

	limit := defaultJobsLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxJobsLimit {
			BadRequestErrorWithFields(w, r, ErrCodeInvalidLimit, "limit must be an integer between 1 and 500",
				map[string]string{"limit": raw})
			return
		}
		limit = n
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))

	jobs, err := lister.ListJobs(r.Context(), name, limit)
	if err != nil {
		s.logger.Error("listing jobs failed", "name", name, "error", err)
		InternalError(w, r, "failed to list jobs")
		return
	}

	resp := listJobsResponse{Jobs: make([]jobDTO, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, toJobDTO(j))
	}
	writeJSON(w, http.StatusOK, resp)
}
