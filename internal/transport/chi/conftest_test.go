package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/courserec/internal/domain"
	doming "github.com/kailas-cloud/courserec/internal/domain/ingest"
	domrec "github.com/kailas-cloud/courserec/internal/domain/recommendation"
	healthuc "github.com/kailas-cloud/courserec/internal/usecase/health"
)

// --- Mocks ---

type mockIngester struct {
	summary doming.Summary
	err     error
	tokens  int
	calls   int
}

func (m *mockIngester) IndexCatalog(ctx context.Context) (doming.Summary, error) {
	m.calls++
	domain.UsageFromContext(ctx).AddEmbeddingTokens(m.tokens)
	return m.summary, m.err
}

type mockRecommender struct {
	result domrec.Result
	err    error
	tokens int
	calls  int
	query  string
	k      int
}

func (m *mockRecommender) Recommend(ctx context.Context, query string, k int) (domrec.Result, error) {
	m.calls++
	m.query = query
	m.k = k
	if m.tokens > 0 {
		domain.UsageFromContext(ctx).AddEmbeddingTokens(m.tokens)
	}
	return m.result, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// --- Helpers ---

func newTestRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	s.Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func newServer(ing Ingester, rec Recommender) *Server {
	return NewServer(ing, rec, &mockHealth{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
	}}, zap.NewNop())
}
