// Package chi exposes the ingestion and recommendation pipelines over HTTP.
package chi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/courserec/internal/domain"
	doming "github.com/kailas-cloud/courserec/internal/domain/ingest"
	domrec "github.com/kailas-cloud/courserec/internal/domain/recommendation"
	logpkg "github.com/kailas-cloud/courserec/internal/logger"
	healthuc "github.com/kailas-cloud/courserec/internal/usecase/health"
	"github.com/kailas-cloud/courserec/internal/version"
)

const (
	// maxBodyBytes bounds request bodies.
	maxBodyBytes = 1 << 20
	// DefaultK is the number of matches requested when the k parameter is absent.
	DefaultK = 5
)

// Ingester indexes the catalog.
type Ingester interface {
	IndexCatalog(ctx context.Context) (doming.Summary, error)
}

// Recommender answers recommendation queries.
type Recommender interface {
	Recommend(ctx context.Context, query string, k int) (domrec.Result, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the HTTP API.
type Server struct {
	ingest        Ingester
	recommend     Recommender
	health        HealthChecker
	logger        *zap.Logger
	defaultK      int
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(ingest Ingester, recommend Recommender, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		ingest:    ingest,
		recommend: recommend,
		health:    health,
		logger:    logger,
		defaultK:  DefaultK,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeInvalidQuery),
		sentinelHandler(domain.ErrCatalogEmpty, http.StatusNotFound, ErrorCodeCatalogEmpty),
		sentinelHandler(domain.ErrCatalogUnavailable, http.StatusBadGateway, ErrorCodeCatalogUnavailable),
		// generation errors may wrap a provider 429; the generation code wins
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, ErrorCodeGenerationFailed),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrVectorDimMismatch,
			http.StatusInternalServerError, ErrorCodeVectorDimMismatch),
		sentinelHandler(domain.ErrVectorStoreRead,
			http.StatusServiceUnavailable, ErrorCodeVectorStoreUnavailable),
	}
	return s
}

// WithDefaultK sets the k used when a request omits it. Non-positive values are ignored.
func (s *Server) WithDefaultK(k int) *Server {
	if k > 0 {
		s.defaultK = k
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/ingest", s.Ingest)
	r.Post("/recommendations", s.Recommend)
	r.Post("/rag", s.Recommend)
}

// Ingest handles POST /ingest.
func (s *Server) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx, usage := domain.NewContextWithUsage(r.Context())
	summary, err := s.ingest.IndexCatalog(ctx)
	interrupted := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	if err != nil && !interrupted {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	msg := "Catalog embedded into the vector store"
	switch {
	case interrupted:
		msg = "Ingestion interrupted before all batches were embedded"
		logpkg.FromContextOr(r.Context(), s.logger).Warn("Ingestion interrupted",
			zap.Int("failed_batches", summary.FailedBatches), zap.Error(err))
	case summary.FailedBatches > 0:
		msg = "Catalog embedded with failed batches"
	}
	failed := summary.FailedItemIDs
	if failed == nil {
		failed = []int64{}
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, IngestResponse{
		Message:          msg,
		Total:            summary.Submitted,
		SucceededBatches: summary.SucceededBatches,
		FailedBatches:    summary.FailedBatches,
		FailedItemIDs:    failed,
	})
}

// Recommend handles POST /recommendations and its /rag alias.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var kParam *int
	if err := runtime.BindQueryParameter("form", true, false, "k", r.URL.Query(), &kParam); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid query parameter k")
		return
	}
	k := s.defaultK
	if kParam != nil {
		k = *kParam
	}

	var req RecommendationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid request body")
		return
	}
	if err := validateRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeInvalidQuery, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.recommend.Recommend(ctx, req.Query, k)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	recs := res.Recommendations
	if recs == nil {
		recs = []domrec.Recommendation{}
	}
	w.Header().Set("X-Recommendation-Status", string(res.Status))
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, RecommendationResponse{Recommendations: recs, Status: res.Status})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Version: version.Version,
		Checks:  checks,
	})
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.Usage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.EmbeddingTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrCatalogEmpty,
		domain.ErrCatalogUnavailable,
		domain.ErrGenerationFailed,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrVectorDimMismatch,
		domain.ErrVectorStoreRead,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := logpkg.FromContextOr(ctx, s.logger)
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
