package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flashflowhq/ingest/internal/dedup"
	"github.com/flashflowhq/ingest/internal/domain"
	mockpub "github.com/flashflowhq/ingest/internal/events/mock"
	"github.com/flashflowhq/ingest/internal/normalize"
	"github.com/flashflowhq/ingest/internal/pipeline"
	mockrepo "github.com/flashflowhq/ingest/internal/repository/mock"
	"github.com/flashflowhq/ingest/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRouter() (*gin.Engine, *mockrepo.MockJobRepository, *mockpub.MockPublisher) {
	jobs := mockrepo.NewMockJobRepository()
	rawRows := mockrepo.NewMockRawRowRepository()
	outcomes := mockrepo.NewMockOutcomeRepository()
	store := mockrepo.NewMockVideoStore()
	locks := mockrepo.NewMockKeyLock()
	pub := mockpub.NewMockPublisher()
	logger := zap.NewNop()

	processor := pipeline.NewProcessor(normalize.New(nil), dedup.New(store), store, locks, 0, 2, logger)

	submitUC := usecase.NewSubmitJobUsecase(jobs, rawRows, pub, 0, logger)
	validateUC := usecase.NewValidateJobUsecase(jobs, rawRows, outcomes, processor, pub, logger)
	commitUC := usecase.NewCommitJobUsecase(jobs, rawRows, outcomes, processor, pub, logger)
	retryUC := usecase.NewRetryJobUsecase(jobs, rawRows, outcomes, processor, pub, logger)
	getJobUC := usecase.NewGetJobUsecase(jobs, logger)
	reportUC := usecase.NewReportUsecase(jobs, outcomes, logger)

	router := gin.New()
	jobHandler := NewJobHandler(submitUC, validateUC, commitUC, retryUC, getJobUC, logger)
	reportHandler := NewReportHandler(reportUC, logger)

	router.POST("/api/v1/jobs", jobHandler.Submit)
	router.GET("/api/v1/jobs/:id", jobHandler.GetByID)
	router.POST("/api/v1/jobs/:id/validate", jobHandler.Validate)
	router.POST("/api/v1/jobs/:id/commit", jobHandler.Commit)
	router.POST("/api/v1/jobs/:id/retry", jobHandler.Retry)
	router.GET("/api/v1/jobs/:id/report", reportHandler.Reconciliation)
	router.GET("/api/v1/jobs/:id/failed.csv", reportHandler.FailedRowsCSV)

	return router, jobs, pub
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func submitBatch(t *testing.T, router *gin.Engine, rows []map[string]string) domain.SubmitResponse {
	t.Helper()
	w := postJSON(router, "/api/v1/jobs", map[string]interface{}{
		"source": "csv",
		"rows":   rows,
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("submit: expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	var resp domain.SubmitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp
}

func TestSubmitHandler_Success(t *testing.T) {
	router, jobs, pub := setupTestRouter()

	resp := submitBatch(t, router, []map[string]string{
		{"external_id": "1", "caption": "first"},
		{"external_id": "2", "caption": "second"},
	})

	if resp.Status != domain.StatusPending {
		t.Errorf("expected status pending, got %s", resp.Status)
	}
	if len(jobs.GetAll()) != 1 {
		t.Errorf("expected 1 job in repo, got %d", len(jobs.GetAll()))
	}
	if len(pub.Published) != 1 {
		t.Errorf("expected 1 published event, got %d", len(pub.Published))
	}
}

func TestSubmitHandler_InvalidSource(t *testing.T) {
	router, _, _ := setupTestRouter()

	w := postJSON(router, "/api/v1/jobs", map[string]interface{}{
		"source": "instagram",
		"rows":   []map[string]string{{"caption": "x"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSubmitHandler_EmptyBody(t *testing.T) {
	router, _, _ := setupTestRouter()

	w := postJSON(router, "/api/v1/jobs", map[string]interface{}{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestValidateHandler_FullFlow(t *testing.T) {
	router, _, _ := setupTestRouter()

	resp := submitBatch(t, router, []map[string]string{
		{"external_id": "1", "caption": "first"},
		{}, // no content anchor
	})

	w := postJSON(router, "/api/v1/jobs/"+resp.JobID.String()+"/validate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var result domain.ProcessResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	if result.Status != domain.StatusPartial {
		t.Errorf("expected partial, got %s", result.Status)
	}
	if result.SuccessCount != 1 || result.FailureCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", result.SuccessCount, result.FailureCount)
	}
}

func TestCommitHandler_RejectedFromPending(t *testing.T) {
	router, _, _ := setupTestRouter()

	resp := submitBatch(t, router, []map[string]string{{"external_id": "1", "caption": "x"}})

	w := postJSON(router, "/api/v1/jobs/"+resp.JobID.String()+"/commit", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCommitHandler_AfterValidation(t *testing.T) {
	router, _, _ := setupTestRouter()

	resp := submitBatch(t, router, []map[string]string{{"external_id": "1", "caption": "x"}})
	if w := postJSON(router, "/api/v1/jobs/"+resp.JobID.String()+"/validate", nil); w.Code != http.StatusOK {
		t.Fatalf("validate: got %d: %s", w.Code, w.Body.String())
	}

	w := postJSON(router, "/api/v1/jobs/"+resp.JobID.String()+"/commit", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var result domain.ProcessResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	if result.Status != domain.StatusCommitted {
		t.Errorf("expected committed, got %s", result.Status)
	}
}

func TestRetryHandler_RejectedWhenNothingFailed(t *testing.T) {
	router, _, _ := setupTestRouter()

	resp := submitBatch(t, router, []map[string]string{{"external_id": "1", "caption": "x"}})
	postJSON(router, "/api/v1/jobs/"+resp.JobID.String()+"/validate", nil)
	postJSON(router, "/api/v1/jobs/"+resp.JobID.String()+"/commit", nil)

	w := postJSON(router, "/api/v1/jobs/"+resp.JobID.String()+"/retry", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetByIDHandler_NotFound(t *testing.T) {
	router, _, _ := setupTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/00000000-0000-0000-0000-000000000001", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetByIDHandler_InvalidUUID(t *testing.T) {
	router, _, _ := setupTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestFrameFor_CountsProcessedRows(t *testing.T) {
	job := &domain.Job{
		ID:             uuid.UUID{1},
		Status:         domain.StatusPartial,
		Phase:          domain.PhaseCommit,
		TotalRows:      10,
		SuccessCount:   5,
		FailureCount:   2,
		DuplicateCount: 1,
	}

	frame := frameFor(job)
	if frame.ProcessedRows != 8 {
		t.Errorf("processed = %d, want 8 (success+failed+duplicate)", frame.ProcessedRows)
	}
	if frame.Status != domain.StatusPartial || frame.TotalRows != 10 {
		t.Errorf("frame = %+v, want status/totals carried over", frame)
	}
}

func TestReportHandler_FullFlow(t *testing.T) {
	router, _, _ := setupTestRouter()

	resp := submitBatch(t, router, []map[string]string{
		{"external_id": "1", "caption": "good"},
		{},
	})
	postJSON(router, "/api/v1/jobs/"+resp.JobID.String()+"/validate", nil)
	postJSON(router, "/api/v1/jobs/"+resp.JobID.String()+"/commit", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+resp.JobID.String()+"/report", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var rep domain.ReconciliationReport
	if err := json.Unmarshal(w.Body.Bytes(), &rep); err != nil {
		t.Fatalf("failed to unmarshal report: %v", err)
	}
	if len(rep.CommittedRows) != 1 || len(rep.FailedRows) != 1 {
		t.Errorf("buckets = %d committed / %d failed, want 1/1",
			len(rep.CommittedRows), len(rep.FailedRows))
	}

	csvReq := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+resp.JobID.String()+"/failed.csv", nil)
	csvW := httptest.NewRecorder()
	router.ServeHTTP(csvW, csvReq)

	if csvW.Code != http.StatusOK {
		t.Fatalf("csv export: expected status 200, got %d", csvW.Code)
	}
	if ct := csvW.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q, want text/csv", ct)
	}
	if !bytes.Contains(csvW.Body.Bytes(), []byte("missing_required_field")) {
		t.Errorf("csv export missing error type:\n%s", csvW.Body.String())
	}
}
