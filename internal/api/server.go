package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pgx-risk-server/internal/domain"
	"github.com/pgx-risk-server/internal/reference"
	"github.com/pgx-risk-server/internal/report"
	"github.com/pgx-risk-server/internal/service"
	"github.com/pgx-risk-server/internal/vcf"
)

const defaultListLimit = 50

// Explainer produces a narrative explanation for a completed report.
// Implementations must degrade gracefully, analysis never depends on them.
type Explainer interface {
	Explain(ctx context.Context, rpt *domain.Report) map[string]any
}

// Server is the HTTP front end for the annotation pipeline.
type Server struct {
	cfg       domain.Config
	logger    *logrus.Logger
	router    *gin.Engine
	server    *http.Server
	parser    *vcf.Parser
	annotator *service.Annotator
	store     report.Store
	cache     *ResultCache
	explainer Explainer
}

// NewServer wires the pipeline services behind the HTTP routes.
func NewServer(
	cfg domain.Config,
	logger *logrus.Logger,
	parser *vcf.Parser,
	annotator *service.Annotator,
	store report.Store,
	cache *ResultCache,
	explainer Explainer,
) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		router:    router,
		parser:    parser,
		annotator: annotator,
		store:     store,
		cache:     cache,
		explainer: explainer,
	}
	s.setupRoutes()
	return s
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start runs the server until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.cfg.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/health", s.handleHealth)
	s.router.POST("/analyze", s.handleAnalyze)
	s.router.GET("/reports", s.handleListReports)
	s.router.GET("/reports/export", s.handleExportReports)
	s.router.GET("/reports/:id", s.handleGetReport)
	s.router.DELETE("/reports/:id", s.handleDeleteReport)
	s.router.GET("/cache/stats", s.handleCacheStats)
}

func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":         "pgx-risk-server",
		"supported_drugs": reference.SupportedDrugs(),
		"endpoints":       []string{"/health", "/analyze", "/reports", "/reports/:id", "/reports/export", "/cache/stats"},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleAnalyze accepts a multipart VCF upload plus a drug list and returns
// one report per requested drug.
func (s *Server) handleAnalyze(c *gin.Context) {
	if s.cfg.Server.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Server.MaxUploadBytes)
	}

	fileHeader, err := c.FormFile("vcf_file")
	if err != nil {
		s.errorResponse(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "missing vcf_file upload")
		return
	}

	drugs := parseDrugList(c.PostForm("drugs"))
	if len(drugs) == 0 {
		s.errorResponse(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "at least one drug is required")
		return
	}

	patientCtx, err := parsePatientContext(c.PostForm("patient_context"))
	if err != nil {
		s.errorResponse(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid patient_context JSON")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		s.errorResponse(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "failed to open upload")
		return
	}
	defer file.Close()

	vcfData, err := io.ReadAll(file)
	if err != nil {
		s.errorResponse(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "failed to read upload")
		return
	}
	if !vcf.LooksLikeVCF(vcfData) {
		s.errorResponse(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "uploaded file does not look like a VCF")
		return
	}

	enableLLM := strings.EqualFold(c.PostForm("enable_llm"), "true")

	cacheKey := ""
	if s.cache != nil && !enableLLM {
		cacheKey = s.cache.Key(vcfData, drugs, patientCtx)
		if cached, ok := s.cache.Get(c.Request.Context(), cacheKey); ok {
			c.JSON(http.StatusOK, gin.H{"status": "success", "cached": true, "results": cached})
			return
		}
	}

	table, err := s.parser.Parse(bytes.NewReader(vcfData))
	parseOK := err == nil
	if err != nil {
		s.logger.WithError(err).Warn("VCF parsing failed")
		table = domain.NewVariantTable()
	}

	results := s.annotator.Annotate(service.AnnotateParams{
		Table:     table,
		ParseOK:   parseOK,
		PatientID: c.PostForm("patient_id"),
		Drugs:     drugs,
		Context:   patientCtx,
	})
	reports := make([]*domain.Report, len(results))
	for i := range results {
		reports[i] = &results[i]
	}

	if enableLLM && s.explainer != nil {
		for _, rpt := range reports {
			rpt.Explanation = s.explainer.Explain(c.Request.Context(), rpt)
		}
	}

	// Internal working fields are stripped once the explanation has been
	// grounded on them
	for _, rpt := range reports {
		rpt.Finalize()
	}

	for _, rpt := range reports {
		if rpt.ID == "" {
			rpt.ID = uuid.NewString()
		}
		if err := s.store.Save(c.Request.Context(), rpt); err != nil {
			s.logger.WithError(err).WithField("report_id", rpt.ID).Error("Failed to persist report")
		}
	}

	if cacheKey != "" {
		s.cache.Set(c.Request.Context(), cacheKey, reports)
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "cached": false, "results": reports})
}

func (s *Server) handleListReports(c *gin.Context) {
	limit := intQuery(c, "limit", defaultListLimit)
	offset := intQuery(c, "offset", 0)
	patientID := c.Query("patient_id")

	var (
		reports []*domain.Report
		err     error
	)
	if patientID != "" {
		reports, err = s.store.ListByPatient(c.Request.Context(), patientID, limit, offset)
	} else {
		reports, err = s.store.List(c.Request.Context(), limit, offset)
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to list reports")
		s.errorResponse(c, http.StatusInternalServerError, domain.ErrCodeStorageFailure, "failed to list reports")
		return
	}

	count, err := s.store.Count(c.Request.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to count reports")
		s.errorResponse(c, http.StatusInternalServerError, domain.ErrCodeStorageFailure, "failed to count reports")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   count,
		"limit":   limit,
		"offset":  offset,
		"reports": reports,
	})
}

func (s *Server) handleGetReport(c *gin.Context) {
	rpt, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.logger.WithError(err).Error("Failed to load report")
		s.errorResponse(c, http.StatusInternalServerError, domain.ErrCodeStorageFailure, "failed to load report")
		return
	}
	if rpt == nil {
		s.errorResponse(c, http.StatusNotFound, domain.ErrCodeInvalidInput, "report not found")
		return
	}
	c.JSON(http.StatusOK, rpt)
}

func (s *Server) handleDeleteReport(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.logger.WithError(err).Error("Failed to delete report")
		s.errorResponse(c, http.StatusInternalServerError, domain.ErrCodeStorageFailure, "failed to delete report")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleExportReports(c *gin.Context) {
	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", `attachment; filename="reports_export.json"`)
	if err := s.store.ExportJSON(c.Request.Context(), c.Writer); err != nil {
		s.logger.WithError(err).Error("Failed to export reports")
	}
}

func (s *Server) handleCacheStats(c *gin.Context) {
	if s.cache == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": true, "stats": s.cache.Stats()})
}

func (s *Server) errorResponse(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"status": "error",
		"error":  gin.H{"code": code, "message": message},
	})
}

// parseDrugList accepts either a JSON array or a comma separated string.
func parseDrugList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var drugs []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &drugs); err != nil {
			return nil
		}
	} else {
		drugs = strings.Split(raw, ",")
	}

	out := make([]string, 0, len(drugs))
	for _, d := range drugs {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func parsePatientContext(raw string) (*domain.PatientContext, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var pctx domain.PatientContext
	if err := json.Unmarshal([]byte(raw), &pctx); err != nil {
		return nil, err
	}
	return &pctx, nil
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}
