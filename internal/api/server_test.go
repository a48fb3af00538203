package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgx-risk-server/internal/domain"
	"github.com/pgx-risk-server/internal/report"
	"github.com/pgx-risk-server/internal/service"
	"github.com/pgx-risk-server/internal/vcf"
)

const testVCF = "##fileformat=VCFv4.2\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tSAMPLE1\n" +
	"10\t94781859\trs4244285\tG\tA\t100\tPASS\tGENE=CYP2C19;RS=rs4244285\tGT\t1/1\n" +
	"22\t42130692\trs3892097\tG\tA\t100\tPASS\tGENE=CYP2D6;RS=rs3892097\tGT\t0/0\n"

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type stubExplainer struct{}

func (stubExplainer) Explain(_ context.Context, _ *domain.Report) map[string]any {
	return map[string]any{"summary": "stub explanation"}
}

func newTestServer(t *testing.T) (*Server, report.Store) {
	t.Helper()
	logger := testLogger()

	store, err := report.NewSQLiteStore(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cache, err := NewResultCache(domain.CacheConfig{Enabled: true, LRUSize: 16, TTL: time.Minute}, logger)
	require.NoError(t, err)

	cfg := domain.Config{
		Server:  domain.ServerConfig{MaxUploadBytes: 1 << 20},
		Logging: domain.LoggingConfig{Level: "info"},
	}

	srv := NewServer(cfg, logger, vcf.NewParser(logger), service.NewAnnotator(logger), store, cache, stubExplainer{})
	return srv, store
}

func analyzeRequest(t *testing.T, fields map[string]string, vcfBody string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if vcfBody != "" {
		part, err := writer.CreateFormFile("vcf_file", "sample.vcf")
		require.NoError(t, err)
		_, err = part.Write([]byte(vcfBody))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestIndexListsSupportedDrugs(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "CLOPIDOGREL")
}

func TestAnalyzeReturnsReports(t *testing.T) {
	srv, store := newTestServer(t)

	req := analyzeRequest(t, map[string]string{
		"patient_id": "P42",
		"drugs":      "clopidogrel,codeine",
	}, testVCF)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Status  string           `json:"status"`
		Cached  bool             `json:"cached"`
		Results []*domain.Report `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.False(t, resp.Cached)
	require.Len(t, resp.Results, 2)

	clop := resp.Results[0]
	assert.Equal(t, "CLOPIDOGREL", clop.Drug)
	assert.Equal(t, "P42", clop.PatientID)
	assert.Equal(t, "*2/*2", clop.Profile.Diplotype)
	assert.Equal(t, domain.PoorMetabolizer, clop.Profile.Phenotype)
	assert.NotEmpty(t, clop.ID)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestAnalyzeStripsInternalProfileFields(t *testing.T) {
	srv, _ := newTestServer(t)

	// Codeine always carries the CNV flag, so the raw report has flags,
	// notes and an activity score before delivery.
	req := analyzeRequest(t, map[string]string{
		"patient_id": "P1",
		"drugs":      "codeine",
	}, testVCF)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)

	profile, ok := resp.Results[0]["pharmacogenomic_profile"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, profile, "flags")
	assert.NotContains(t, profile, "notes")
	assert.NotContains(t, profile, "activity_score")

	// The composed notes survive in the recommendation section
	rec, ok := resp.Results[0]["clinical_recommendation"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, rec["data_quality_notes"], "copy number")
}

func TestAnalyzeSecondCallHitsCache(t *testing.T) {
	srv, _ := newTestServer(t)

	fields := map[string]string{"patient_id": "P42", "drugs": "codeine"}

	w1 := httptest.NewRecorder()
	srv.Router().ServeHTTP(w1, analyzeRequest(t, fields, testVCF))
	require.Equal(t, http.StatusOK, w1.Code)

	w2 := httptest.NewRecorder()
	srv.Router().ServeHTTP(w2, analyzeRequest(t, fields, testVCF))
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Contains(t, w2.Body.String(), `"cached":true`)
}

func TestAnalyzeWithExplanation(t *testing.T) {
	srv, _ := newTestServer(t)

	req := analyzeRequest(t, map[string]string{
		"drugs":      "codeine",
		"enable_llm": "true",
	}, testVCF)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stub explanation")
}

func TestAnalyzeJSONDrugList(t *testing.T) {
	srv, _ := newTestServer(t)

	req := analyzeRequest(t, map[string]string{
		"drugs": `["warfarin", "simvastatin"]`,
	}, testVCF)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []*domain.Report `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "WARFARIN", resp.Results[0].Drug)
	assert.Equal(t, "SIMVASTATIN", resp.Results[1].Drug)
}

func TestAnalyzeRejectsMissingFile(t *testing.T) {
	srv, _ := newTestServer(t)

	req := analyzeRequest(t, map[string]string{"drugs": "codeine"}, "")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrCodeInvalidInput)
}

func TestAnalyzeRejectsMissingDrugs(t *testing.T) {
	srv, _ := newTestServer(t)

	req := analyzeRequest(t, map[string]string{}, testVCF)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "at least one drug")
}

func TestAnalyzeRejectsNonVCF(t *testing.T) {
	srv, _ := newTestServer(t)

	req := analyzeRequest(t, map[string]string{"drugs": "codeine"}, "this is not a vcf at all")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "does not look like a VCF")
}

func TestReportRetrievalAndDeletion(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, analyzeRequest(t, map[string]string{
		"patient_id": "P7",
		"drugs":      "codeine",
	}, testVCF))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []*domain.Report `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	id := resp.Results[0].ID

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports/"+id, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"patient_id":"P7"`)

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports?patient_id=P7", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/reports/"+id, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports/"+id, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportExport(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, analyzeRequest(t, map[string]string{"drugs": "codeine"}, testVCF))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports/export", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var export report.Export
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &export))
	assert.Equal(t, 1, export.Count)
}

func TestCacheStatsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cache/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"enabled":true`)
}
