package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"sales-forecast-lab/internal/config"
	"sales-forecast-lab/internal/domain"
	"sales-forecast-lab/internal/pipeline"
	"sales-forecast-lab/internal/reporting"
)

// Server holds the HTTP handlers of the analysis service.
type Server struct {
	analyzer *pipeline.Analyzer
	cfg      config.ServerConfig
	logger   *slog.Logger
	metrics  http.Handler
	locks    *projectLocks
	started  time.Time
}

// NewServer creates a server around analyzer. metrics serves /metrics.
func NewServer(analyzer *pipeline.Analyzer, cfg config.ServerConfig, logger *slog.Logger, metrics http.Handler) *Server {
	return &Server{
		analyzer: analyzer,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		locks:    newProjectLocks(),
		started:  time.Now(),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Post("/upload", s.handleUpload)
		r.Get("/data", s.handleData)
		r.Get("/predict", s.handlePredict)
		r.Get("/data-with-outliers", s.handleDataWithOutliers)
		r.Get("/forecasts", s.handleForecasts)
	})
	return r
}

// HealthResponse is the JSON response for /health.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{Status: "ok", Uptime: time.Since(s.started).Round(time.Second).String()})
}

// UploadResponse is the JSON response for /api/upload.
type UploadResponse struct {
	Project    string                    `json:"project"`
	Files      int                       `json:"files"`
	Rows       int                       `json:"rows"`
	Warnings   []string                  `json:"warnings,omitempty"`
	FileErrors []reporting.FileErrorJSON `json:"file_errors,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	project, ok := s.project(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		s.badRequest(w, r, fmt.Errorf("parse upload: %w", err))
		return
	}
	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		s.badRequest(w, r, errors.New("no file uploaded"))
		return
	}

	inputs := make([]pipeline.Input, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			s.badRequest(w, r, fmt.Errorf("open %s: %w", h.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.badRequest(w, r, fmt.Errorf("read %s: %w", h.Filename, err))
			return
		}
		inputs = append(inputs, pipeline.Input{Filename: h.Filename, Data: data})
	}

	unlock := s.locks.Lock(project)
	report, err := s.analyzer.Ingest(r.Context(), project, inputs)
	unlock()

	if err != nil {
		s.failure(w, r, &domain.Failure{
			Kind:    pipeline.ErrorKind(err),
			Message: err.Error(),
			Details: report.FileErrors,
		})
		return
	}

	status := http.StatusCreated
	if report.Files == 0 {
		status = http.StatusUnprocessableEntity
	}
	resp := UploadResponse{Project: project, Files: report.Files, Rows: report.Rows, Warnings: report.Warnings}
	for _, fe := range report.FileErrors {
		resp.FileErrors = append(resp.FileErrors, reporting.FileErrorJSON{Filename: fe.Filename, Kind: fe.Kind, Message: fe.Message})
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}

// RowJSON is one stored observed row.
type RowJSON struct {
	RowID      string         `json:"row_id"`
	Source     string         `json:"source"`
	UploadedAt time.Time      `json:"uploaded_at"`
	Payload    map[string]any `json:"payload"`
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	project, ok := s.project(w, r)
	if !ok {
		return
	}
	start, err := parseDay(r.URL.Query().Get("start"))
	if err != nil {
		s.badRequest(w, r, fmt.Errorf("start: %w", err))
		return
	}
	end, err := parseDay(r.URL.Query().Get("end"))
	if err != nil {
		s.badRequest(w, r, fmt.Errorf("end: %w", err))
		return
	}
	if !end.IsZero() {
		// end is inclusive of the whole day
		end = end.Add(24*time.Hour - time.Microsecond)
	}

	rows, err := s.analyzer.ObservedRows(r.Context(), project, start, end)
	if err != nil {
		s.failure(w, r, &domain.Failure{Kind: pipeline.ErrorKind(err), Message: err.Error()})
		return
	}
	resp := make([]RowJSON, len(rows))
	for i, row := range rows {
		resp[i] = RowJSON{RowID: row.RowID, Source: row.Source, UploadedAt: row.UploadedAt, Payload: row.Payload}
	}
	render.JSON(w, r, resp)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	project, ok := s.project(w, r)
	if !ok {
		return
	}

	unlock := s.locks.Lock(project)
	out := s.analyzer.AnalyzeProject(r.Context(), project, nil)
	unlock()

	if !out.OK() {
		s.failure(w, r, out.Failure)
		return
	}
	render.JSON(w, r, reporting.NewResultJSON(out.Result))
}

// RecordJSON is one coerced record with its outlier flag.
type RecordJSON struct {
	Date    string `json:"date"`
	Amount  string `json:"amount"`
	Source  string `json:"source"`
	Outlier bool   `json:"outlier"`
}

// RecordsResponse is the JSON response for /api/data-with-outliers.
type RecordsResponse struct {
	Records  []RecordJSON `json:"records"`
	Outliers int          `json:"outliers"`
}

func (s *Server) handleDataWithOutliers(w http.ResponseWriter, r *http.Request) {
	project, ok := s.project(w, r)
	if !ok {
		return
	}

	records, outliers, err := s.analyzer.ProjectRecords(r.Context(), project)
	if err != nil {
		s.failure(w, r, &domain.Failure{Kind: pipeline.ErrorKind(err), Message: err.Error()})
		return
	}

	type key struct {
		source string
		row    int
	}
	flagged := make(map[key]bool, len(outliers))
	for _, o := range outliers {
		flagged[key{o.Source, o.Row}] = true
	}
	resp := RecordsResponse{Records: make([]RecordJSON, len(records)), Outliers: len(outliers)}
	for i, rec := range records {
		resp.Records[i] = RecordJSON{
			Date:    rec.DateKey(),
			Amount:  rec.Amount.String(),
			Source:  rec.Source,
			Outlier: flagged[key{rec.Source, rec.Row}],
		}
	}
	render.JSON(w, r, resp)
}

// RunJSON is one archived forecast run.
type RunJSON struct {
	RunID          string           `json:"run_id"`
	GeneratedAt    time.Time        `json:"generated_at"`
	TrainingPoints int              `json:"training_points"`
	LastTrainDate  string           `json:"last_train_date"`
	Forecast       map[string]int64 `json:"forecast"`
}

func (s *Server) handleForecasts(w http.ResponseWriter, r *http.Request) {
	project, ok := s.project(w, r)
	if !ok {
		return
	}

	runs, err := s.analyzer.Runs(r.Context(), project)
	if errors.Is(err, pipeline.ErrNoRunStore) {
		render.Status(r, http.StatusNotImplemented)
		render.JSON(w, r, reporting.FailureJSON{Error: err.Error(), Kind: "unavailable"})
		return
	}
	if err != nil {
		s.failure(w, r, &domain.Failure{Kind: pipeline.ErrorKind(err), Message: err.Error()})
		return
	}

	resp := make([]RunJSON, len(runs))
	for i, run := range runs {
		forecast := make(map[string]int64, len(run.Forecast))
		for _, p := range run.Forecast {
			forecast[p.Date.Format(domain.DateLayout)] = p.Predicted
		}
		resp[i] = RunJSON{
			RunID:          run.RunID,
			GeneratedAt:    run.GeneratedAt,
			TrainingPoints: run.TrainingPoints,
			LastTrainDate:  run.LastTrainDate.Format(domain.DateLayout),
			Forecast:       forecast,
		}
	}
	render.JSON(w, r, resp)
}

func (s *Server) project(w http.ResponseWriter, r *http.Request) (string, bool) {
	project := r.URL.Query().Get("project")
	if project == "" {
		s.badRequest(w, r, errors.New("project query parameter is required"))
		return "", false
	}
	return project, true
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, reporting.FailureJSON{Error: err.Error(), Kind: "bad_request"})
}

func (s *Server) failure(w http.ResponseWriter, r *http.Request, f *domain.Failure) {
	status := statusFor(f.Kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("kind", f.Kind),
			slog.String("error", f.Message),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
	render.Status(r, status)
	render.JSON(w, r, reporting.NewFailureJSON(f))
}

func statusFor(kind string) int {
	switch kind {
	case "insufficient_data", "schema_inference_error", "format_error", "decode_error":
		return http.StatusUnprocessableEntity
	case "persistence_error":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(domain.DateLayout, s)
}
