package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/progress-relay/internal/progress"
)

var (
	// ErrMissingKind is returned when an update request omits its kind.
	ErrMissingKind = errors.New("kind is required")
	// ErrInvalidInterval is returned for a malformed or negative min_interval.
	ErrInvalidInterval = errors.New("min_interval must be a non-negative duration")
	// ErrInvalidAutoDone is returned when auto_done is not a boolean.
	ErrInvalidAutoDone = errors.New("auto_done must be a boolean")
)

type updateRequest struct {
	Kind   string `json:"kind"`
	Amount int64  `json:"amount"`
}

type statusResponse struct {
	Report      *progress.Report `json:"report"`
	Emitted     uint64           `json:"emitted"`
	Subscribers int              `json:"subscribers"`
}

func (req updateRequest) toUpdate() (progress.Update, error) {
	name := strings.TrimSpace(req.Kind)
	if name == "" {
		return progress.Update{}, ErrMissingKind
	}
	kind, err := progress.ParseKind(name)
	if err != nil {
		return progress.Update{}, fmt.Errorf("parse update: %w", err)
	}
	return progress.Update{Kind: kind, Amount: req.Amount}, nil
}

// applyUpdate handles POST /v1/progress/updates. The update is queued and 202
// returned; the resulting report is observed through the stream or status.
func (s *Server) applyUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	u, err := req.toUpdate()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.tracker.Apply(u)
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"kind":   u.Kind.String(),
		"amount": u.Amount,
	})
}

// lastReport handles GET /v1/progress.
func (s *Server) lastReport(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Emitted:     s.tracker.Emitted(),
		Subscribers: s.tracker.Subscribers(),
	}
	if last, ok := s.tracker.Last(); ok {
		resp.Report = &last
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// streamReports handles GET /v1/progress/stream?min_interval=&auto_done= as
// Server-Sent Events. Each report is one "report" event; an "end" event
// follows when the subscription finishes on its own.
func (s *Server) streamReports(w http.ResponseWriter, r *http.Request) {
	opts, err := streamOptions(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := s.tracker.Subscribe(r.Context(), opts...)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger := s.logger.With(
		zap.String("request_id", RequestID(r.Context())),
		zap.String("subscription_id", sub.ID()),
	)
	var seq uint64
	for report := range sub.Reports() {
		seq++
		payload, err := json.Marshal(report)
		if err != nil {
			logger.Error("encode report failed", zap.Error(err))
			return
		}
		if err := writeEvent(w, seq, "report", payload); err != nil {
			logger.Debug("stream client gone", zap.Error(err))
			return
		}
		flusher.Flush()
	}
	if r.Context().Err() != nil {
		return
	}
	if err := writeEvent(w, seq+1, "end", []byte("{}")); err != nil {
		logger.Debug("stream client gone", zap.Error(err))
		return
	}
	flusher.Flush()
}

func streamOptions(r *http.Request) ([]progress.Option, error) {
	q := r.URL.Query()
	var opts []progress.Option
	if raw := strings.TrimSpace(q.Get("min_interval")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return nil, ErrInvalidInterval
		}
		opts = append(opts, progress.WithMinInterval(d))
	}
	if raw := strings.TrimSpace(q.Get("auto_done")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, ErrInvalidAutoDone
		}
		opts = append(opts, progress.WithAutoDone(v))
	}
	return opts, nil
}

func writeEvent(w http.ResponseWriter, id uint64, event string, data []byte) error {
	if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, event, data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}
