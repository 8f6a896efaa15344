// Package server exposes the loaded dataset, its filters and statistics
// over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/KaramelBytes/vitals-cli/internal/analysis"
	"github.com/KaramelBytes/vitals-cli/internal/export"
	"github.com/KaramelBytes/vitals-cli/internal/parser"
	"github.com/KaramelBytes/vitals-cli/internal/store"
	"github.com/KaramelBytes/vitals-cli/internal/vitals"
)

// Options configures a Server.
type Options struct {
	Addr           string
	MaxUploadBytes int64
	// UploadRate is uploads per second; 0 disables limiting.
	UploadRate float64
	Parse      parser.Options
	Chart      export.ChartOptions
	Logger     *slog.Logger
}

// Server serves one Session backed by a Store.
type Server struct {
	opts     Options
	session  *Session
	store    *store.Store
	cache    *analysis.Cache
	limiter  *rate.Limiter
	validate *validator.Validate
	logger   *slog.Logger
}

// New builds a server around an already restored session.
func New(opts Options, sess *Session, st *store.Store, cache *analysis.Cache) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	limit := rate.Inf
	if opts.UploadRate > 0 {
		limit = rate.Limit(opts.UploadRate)
	}
	if opts.Parse.Logger == nil {
		opts.Parse.Logger = opts.Logger
	}
	return &Server{
		opts:     opts,
		session:  sess,
		store:    st,
		cache:    cache,
		limiter:  rate.NewLimiter(limit, 1),
		validate: validator.New(),
		logger:   opts.Logger.With(slog.String("component", "server")),
	}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.With(s.rateLimit).Post("/upload", s.upload)
		r.Get("/records", s.records)
		r.Get("/stats", s.stats)
		r.Get("/brands", s.brands)
		r.Get("/releases", s.releases)
		r.Get("/criteria", s.getCriteria)
		r.Put("/criteria", s.putCriteria)
		r.Get("/metric", s.getMetric)
		r.Put("/metric", s.putMetric)
		r.Get("/export.csv", s.exportCSV)
		r.Get("/chart/{metric}", s.chart)
		r.Delete("/data", s.reset)
	})
	return r
}

// ListenAndServe runs until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("addr", s.opts.Addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.DebugContext(r.Context(), "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.logger.WarnContext(r.Context(), "upload rate limit exceeded",
				slog.String("remote_addr", r.RemoteAddr))
			w.Header().Set("Retry-After", "1")
			renderError(w, r, errRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ds, _, _ := s.session.Snapshot()
	render.JSON(w, r, map[string]any{"status": "ok", "records": ds.Len()})
}

type uploadResponse struct {
	Message     string             `json:"message"`
	DatasetID   string             `json:"dataset_id"`
	Count       int                `json:"count"`
	Brand       string             `json:"brand,omitempty"`
	Criteria    criteriaBody       `json:"criteria"`
	Diagnostics parser.Diagnostics `json:"diagnostics"`
	Warning     string             `json:"warning,omitempty"`
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			renderError(w, r, err)
			return
		}
		renderError(w, r, badRequest("expected a multipart form with a file field", err.Error()))
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		renderError(w, r, badRequest("missing file field", err.Error()))
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		renderError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	res, err := parser.ParseBytes(hdr.Filename, hdr.Header.Get("Content-Type"), content, s.opts.Parse)
	if err != nil {
		s.logger.WarnContext(r.Context(), "upload rejected",
			slog.String("file", hdr.Filename), slog.String("error", err.Error()))
		renderError(w, r, err)
		return
	}
	res.Dataset.Source = hdr.Filename
	crit := s.session.Replace(res.Dataset)

	resp := uploadResponse{
		Message:     res.Summary(),
		DatasetID:   res.Dataset.ID,
		Count:       res.Dataset.Len(),
		Brand:       res.Brand,
		Criteria:    toBody(crit),
		Diagnostics: res.Diagnostics,
	}
	if err := s.persist(res.Dataset, crit); err != nil {
		if !errors.Is(err, store.ErrQuotaExceeded) {
			renderError(w, r, err)
			return
		}
		// The data stays usable in memory.
		ae := fromError(err)
		ae.Details = resp
		renderError(w, r, ae)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

func (s *Server) persist(ds *vitals.Dataset, c vitals.Criteria) error {
	if err := s.store.SaveCriteria(c); err != nil {
		return err
	}
	return s.store.SaveDataset(ds)
}

// view resolves the session criteria, applying any start/end/brand query
// overrides for this request only.
func (s *Server) view(r *http.Request) (*vitals.Dataset, *analysis.View, error) {
	ds, crit, _ := s.session.Snapshot()
	q := r.URL.Query()
	var err error
	if v := q.Get("start"); v != "" {
		if crit.Start, err = time.Parse(vitals.ISODate, v); err != nil {
			return nil, nil, badRequest("start must be YYYY-MM-DD", v)
		}
	}
	if v := q.Get("end"); v != "" {
		if crit.End, err = time.Parse(vitals.ISODate, v); err != nil {
			return nil, nil, badRequest("end must be YYYY-MM-DD", v)
		}
	}
	if q.Has("brand") {
		crit.Brand = strings.TrimSpace(q.Get("brand"))
	}
	if !crit.Start.IsZero() && !crit.End.IsZero() && crit.End.Before(crit.Start) {
		return nil, nil, badRequest("end date is before start date", nil)
	}
	return ds, s.cache.View(ds, crit), nil
}

func (s *Server) records(w http.ResponseWriter, r *http.Request) {
	_, v, err := s.view(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{
		"criteria": toBody(v.Criteria),
		"count":    len(v.Records),
		"records":  v.Records,
	})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	ds, v, err := s.view(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	if ds.Len() == 0 {
		renderError(w, r, errNoDataset)
		return
	}
	_, _, metric := s.session.Snapshot()
	render.JSON(w, r, map[string]any{
		"criteria": toBody(v.Criteria),
		"metric":   metric,
		"count":    len(v.Records),
		"stats":    v.Stats,
	})
}

func (s *Server) brands(w http.ResponseWriter, r *http.Request) {
	ds, _, _ := s.session.Snapshot()
	render.JSON(w, r, map[string]any{"brands": ds.Brands()})
}

func (s *Server) releases(w http.ResponseWriter, r *http.Request) {
	_, v, err := s.view(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"releases": vitals.Releases(v.Records)})
}

// criteriaBody is the wire form of vitals.Criteria.
type criteriaBody struct {
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Brand     string `json:"brand" validate:"max=200"`
}

func toBody(c vitals.Criteria) criteriaBody {
	b := criteriaBody{Brand: c.Brand}
	if !c.Start.IsZero() {
		b.StartDate = c.Start.Format(vitals.ISODate)
	}
	if !c.End.IsZero() {
		b.EndDate = c.End.Format(vitals.ISODate)
	}
	if c.AnyBrand() {
		b.Brand = vitals.AllBrands
	}
	return b
}

func (s *Server) getCriteria(w http.ResponseWriter, r *http.Request) {
	_, c, _ := s.session.Snapshot()
	render.JSON(w, r, toBody(c))
}

func (s *Server) putCriteria(w http.ResponseWriter, r *http.Request) {
	var body criteriaBody
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		renderError(w, r, badRequest("invalid JSON body", err.Error()))
		return
	}
	if err := s.validate.Struct(body); err != nil {
		renderError(w, r, badRequest("invalid criteria", err.Error()))
		return
	}
	c, err := vitals.ParseCriteria(body.StartDate, body.EndDate, body.Brand)
	if err != nil {
		renderError(w, r, badRequest(err.Error(), nil))
		return
	}
	s.session.SetCriteria(c)
	if err := s.store.SaveCriteria(c); err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, toBody(c))
}

type metricBody struct {
	Metric string `json:"metric" validate:"required"`
}

func (s *Server) getMetric(w http.ResponseWriter, r *http.Request) {
	_, _, m := s.session.Snapshot()
	render.JSON(w, r, metricBody{Metric: string(m)})
}

func (s *Server) putMetric(w http.ResponseWriter, r *http.Request) {
	var body metricBody
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		renderError(w, r, badRequest("invalid JSON body", err.Error()))
		return
	}
	if err := s.validate.Struct(body); err != nil {
		renderError(w, r, badRequest("metric is required", err.Error()))
		return
	}
	m, err := vitals.ParseMetric(body.Metric)
	if err != nil {
		renderError(w, r, badRequest(err.Error(), nil))
		return
	}
	s.session.SetMetric(m)
	if err := s.store.SaveMetric(m); err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, metricBody{Metric: string(m)})
}

func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	_, v, err := s.view(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, v.Records); err != nil {
		renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.CSVFileName(v.Criteria)))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) chart(w http.ResponseWriter, r *http.Request) {
	m, err := vitals.ParseMetric(chi.URLParam(r, "metric"))
	if err != nil || m == vitals.MetricBoth {
		renderError(w, r, badRequest("chart metric must be lcp or cls", chi.URLParam(r, "metric")))
		return
	}
	_, v, err := s.view(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	if len(v.Records) == 0 {
		renderError(w, r, newAPIError(http.StatusNotFound, "NO_DATA", "No records match the current filters."))
		return
	}
	var buf bytes.Buffer
	if err := export.WriteChart(&buf, v.Records, m, s.opts.Chart); err != nil {
		renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", export.ChartFileName(m, v.Criteria)))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.session.Clear()
	s.cache.Purge()
	if err := s.store.Reset(); err != nil {
		renderError(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "session reset")
	render.NoContent(w, r)
}
