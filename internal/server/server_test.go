package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/vitals-cli/internal/analysis"
	"github.com/KaramelBytes/vitals-cli/internal/dates"
	"github.com/KaramelBytes/vitals-cli/internal/export"
	"github.com/KaramelBytes/vitals-cli/internal/logging"
	"github.com/KaramelBytes/vitals-cli/internal/parser"
	"github.com/KaramelBytes/vitals-cli/internal/store"
	"github.com/KaramelBytes/vitals-cli/internal/vitals"
)

const acmeCSV = "# Brand: Acme,,,\n" +
	"date,largestContentfulPaint,cumulativeLayoutShift,Release\n" +
	"1/3/2025,2000,0.05,\n" +
	"2/3/2025,3000,0.1,v1.0\n" +
	"3/3/2025,1000,0.2,\n" +
	"bogus,1,1,\n"

type fixture struct {
	srv     *Server
	handler http.Handler
	backend *store.MemoryBackend
}

func newFixture(t *testing.T, uploadRate float64) *fixture {
	t.Helper()
	n := dates.New()
	n.Location = time.UTC
	logger := logging.Discard()
	backend := store.NewMemoryBackend()
	st := store.New(backend, 0, logger)
	srv := New(Options{
		UploadRate: uploadRate,
		Parse:      parser.Options{Layout: parser.LayoutAdjacent, Normalizer: n, Logger: logger},
		Chart:      export.ChartOptions{Width: 600, Height: 400},
		Logger:     logger,
	}, NewSession(nil, vitals.Criteria{}, ""), st, analysis.NewCache(analysis.NewEngine(7), 8))
	return &fixture{srv: srv, handler: srv.Routes(), backend: backend}
}

func (f *fixture) do(t *testing.T, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) upload(t *testing.T, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return f.do(t, http.MethodPost, "/api/upload", buf.Bytes(), mw.FormDataContentType())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestUploadThenStats(t *testing.T) {
	f := newFixture(t, 0)

	rec := f.upload(t, "acme.csv", acmeCSV)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var up uploadResponse
	decode(t, rec, &up)
	assert.Equal(t, 3, up.Count)
	assert.Equal(t, "Acme", up.Brand)
	assert.Equal(t, 1, up.Diagnostics.Rejected)
	assert.Equal(t, criteriaBody{StartDate: "2025-03-01", EndDate: "2025-03-03", Brand: "all"}, up.Criteria)
	assert.Contains(t, up.Message, "Successfully loaded 3 data points!")

	rec = f.do(t, http.MethodGet, "/api/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Count int            `json:"count"`
		Stats analysis.Stats `json:"stats"`
	}
	decode(t, rec, &out)
	assert.Equal(t, 3, out.Count)
	assert.Equal(t, analysis.LCPStats{P80: 3000, Min: 1000, Max: 3000}, out.Stats.LCP)
	assert.Equal(t, "0.2000", out.Stats.CLS.P80.String())
	assert.Equal(t, 2000, out.Stats.LastWeek.LCPAvg)
	assert.Equal(t, 3, out.Stats.LastWeek.SampleCount)

	_, err := f.backend.Get(store.KeyData)
	assert.NoError(t, err, "dataset persisted")
}

func TestQueryOverridesCriteria(t *testing.T) {
	f := newFixture(t, 0)
	require.Equal(t, http.StatusCreated, f.upload(t, "acme.csv", acmeCSV).Code)

	rec := f.do(t, http.MethodGet, "/api/records?start=2025-03-02&end=2025-03-02", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Count   int             `json:"count"`
		Records []vitals.Record `json:"records"`
	}
	decode(t, rec, &out)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "v1.0", out.Records[0].Release)

	// The override does not stick.
	rec = f.do(t, http.MethodGet, "/api/criteria", nil, "")
	var c criteriaBody
	decode(t, rec, &c)
	assert.Equal(t, "2025-03-01", c.StartDate)

	rec = f.do(t, http.MethodGet, "/api/records?start=2025-03-03&end=2025-03-01", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/records?start=03/01/2025", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPutCriteriaAndMetric(t *testing.T) {
	f := newFixture(t, 0)
	require.Equal(t, http.StatusCreated, f.upload(t, "acme.csv", acmeCSV).Code)

	rec := f.do(t, http.MethodPut, "/api/criteria", []byte(`{"start_date":"2025-03-02","end_date":"","brand":"Acme"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/releases", nil, "")
	var rel struct {
		Releases []vitals.Record `json:"releases"`
	}
	decode(t, rec, &rel)
	require.Len(t, rel.Releases, 1)

	rec = f.do(t, http.MethodPut, "/api/criteria", []byte(`{"start_date":"March 2"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/metric", []byte(`{"metric":"CLS"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	var m metricBody
	decode(t, rec, &m)
	assert.Equal(t, "cls", m.Metric)

	rec = f.do(t, http.MethodPut, "/api/metric", []byte(`{"metric":"fid"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var ae APIError
	decode(t, rec, &ae)
	assert.Equal(t, http.StatusBadRequest, ae.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", ae.ErrorCode)
}

func TestUploadErrors(t *testing.T) {
	f := newFixture(t, 0)

	rec := f.upload(t, "notes.csv", "hello\nworld\n")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var ae APIError
	decode(t, rec, &ae)
	assert.Equal(t, "HEADER_NOT_FOUND", ae.ErrorCode)

	rec = f.upload(t, "empty.csv", "date,lcp,cls,release\nnope,1,1,\n")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	decode(t, rec, &ae)
	assert.Equal(t, "EMPTY_RESULT", ae.ErrorCode)

	rec = f.upload(t, "slides.pdf", "%PDF")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/upload", []byte("x"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Failed uploads never replace the session.
	rec = f.do(t, http.MethodGet, "/healthz", nil, "")
	assert.JSONEq(t, `{"status":"ok","records":0}`, rec.Body.String())
}

func TestUploadRateLimited(t *testing.T) {
	f := newFixture(t, 0.001)
	require.Equal(t, http.StatusCreated, f.upload(t, "acme.csv", acmeCSV).Code)
	rec := f.upload(t, "acme.csv", acmeCSV)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestExportsAndReset(t *testing.T) {
	f := newFixture(t, 0)
	require.Equal(t, http.StatusCreated, f.upload(t, "acme.csv", acmeCSV).Code)

	rec := f.do(t, http.MethodGet, "/api/export.csv", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "web-vitals-filtered-2025-03-01-to-2025-03-03.csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Date,LCP,CLS,Release,BrandName\n01/03/2025,2000,0.05,,Acme"))

	rec = f.do(t, http.MethodGet, "/api/chart/lcp", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "LCP-chart-2025-03-01-to-2025-03-03.png")

	rec = f.do(t, http.MethodGet, "/api/chart/both", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/brands", nil, "")
	assert.JSONEq(t, `{"brands":["Acme"]}`, rec.Body.String())

	rec = f.do(t, http.MethodDelete, "/api/data", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err := f.backend.Get(store.KeyData)
	assert.ErrorIs(t, err, store.ErrNotFound)

	rec = f.do(t, http.MethodGet, "/api/stats", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuotaKeepsDataInMemory(t *testing.T) {
	f := newFixture(t, 0)
	f.srv.store = store.New(f.backend, 1024, logging.Discard())

	var b strings.Builder
	b.WriteString("date,lcp,cls,release\n")
	for d := 1; d <= 28; d++ {
		b.WriteString(time.Date(2025, 2, d, 0, 0, 0, 0, time.UTC).Format("2/1/2006"))
		b.WriteString(",2000,0.05,release-with-a-long-label\n")
	}
	rec := f.upload(t, "big.csv", b.String())
	assert.Equal(t, http.StatusInsufficientStorage, rec.Code)

	rec = f.do(t, http.MethodGet, "/healthz", nil, "")
	assert.JSONEq(t, `{"status":"ok","records":28}`, rec.Body.String())
}
