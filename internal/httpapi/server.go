package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkarlsen/sunwatch/internal/sunwatch/service"
	"github.com/mkarlsen/sunwatch/internal/sunwatch/store"
	"github.com/mkarlsen/sunwatch/internal/sunwatch/types"
)

// defaultUpcomingHorizon is the /v1/upcoming horizon when the caller does
// not pass look_ahead_minutes.  Distinct from the monitor's own 30 minute
// cadence: status readers usually want the whole day ahead.
const defaultUpcomingHorizon = 24 * time.Hour

type Dependencies struct {
	Logger  *log.Logger
	Addr    string
	Monitor *service.Monitor

	// Events backs the timelapse planner; the monitor's snapshot is the
	// source of truth for everything else.
	Events store.EventStore
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	mux        *http.ServeMux
	monitor    *service.Monitor
	events     store.EventStore
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:  d.Logger,
		mux:     mux,
		monitor: d.Monitor,
		events:  d.Events,
	}

	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/current", s.handleCurrent)
	mux.HandleFunc("GET /v1/upcoming", s.handleUpcoming)
	mux.HandleFunc("POST /v1/timelapse", s.handleTimelapse)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type statusResponse struct {
	State    string          `json:"state"`
	Snapshot *types.Snapshot `json:"snapshot,omitempty"`
}

// handleStatus reports the monitor's run state and last snapshot.  It never
// triggers a resolve: the monitor is the single source of truth.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{State: s.monitor.State().String()}
	if snap, ok := s.monitor.Current(); ok {
		resp.Snapshot = &snap
	}
	writeJSON(w, http.StatusOK, resp)
}

type currentResponse struct {
	Active bool          `json:"active"`
	Period *types.Period `json:"period,omitempty"`
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.monitor.Current()
	if !ok || snap.Current == nil {
		writeJSON(w, http.StatusOK, currentResponse{Active: false})
		return
	}
	writeJSON(w, http.StatusOK, currentResponse{Active: true, Period: snap.Current})
}

type upcomingResponse struct {
	Upcoming *types.Period `json:"upcoming"`
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	horizon := defaultUpcomingHorizon
	if raw := r.URL.Query().Get("look_ahead_minutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_look_ahead", "look_ahead_minutes must be a positive integer")
			return
		}
		horizon = time.Duration(n) * time.Minute
	}

	p, err := s.monitor.Upcoming(r.Context(), horizon)
	if err != nil {
		s.logger.Printf("upcoming error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeJSON(w, http.StatusOK, upcomingResponse{Upcoming: p})
}

type timelapseRequest struct {
	PeriodType           string  `json:"period_type"`
	VideoDurationSeconds int     `json:"video_duration_seconds"`
	VideoFPS             int     `json:"video_fps"`
	PhotoSizeMB          float64 `json:"photo_size_mb"`
}

func (s *Server) handleTimelapse(w http.ResponseWriter, r *http.Request) {
	var req timelapseRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	kind := types.PeriodKind(req.PeriodType)
	if kind != types.PeriodSunrise && kind != types.PeriodSunset {
		writeError(w, http.StatusBadRequest, "bad_period_type", "period_type must be \"sunrise\" or \"sunset\"")
		return
	}

	opts := service.DefaultTimelapseOptions()
	if req.VideoDurationSeconds != 0 {
		opts.VideoDurationSeconds = req.VideoDurationSeconds
	}
	if req.VideoFPS != 0 {
		opts.VideoFPS = req.VideoFPS
	}
	if req.PhotoSizeMB != 0 {
		opts.PhotoSizeMB = req.PhotoSizeMB
	}

	ev, err := s.events.GetByDate(r.Context(), time.Now())
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no_event_data", "no sun event data for today")
		return
	}
	if err != nil {
		s.logger.Printf("timelapse lookup error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	sunrise, sunset, err := service.PeriodsFor(ev)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "bad_event_data", err.Error())
		return
	}

	period := sunrise
	if kind == types.PeriodSunset {
		period = sunset
	}

	plan, err := service.PlanTimelapse(period, opts)
	if err != nil {
		if errors.Is(err, service.ErrBadTimelapseParams) {
			writeError(w, http.StatusBadRequest, "bad_parameters", err.Error())
			return
		}
		s.logger.Printf("timelapse error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, plan)
}
