package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flashflowhq/ingest/internal/domain"
	"github.com/flashflowhq/ingest/internal/usecase"
)

// JobHandler handles HTTP requests for batch ingestion jobs.
type JobHandler struct {
	submitUC   *usecase.SubmitJobUsecase
	validateUC *usecase.ValidateJobUsecase
	commitUC   *usecase.CommitJobUsecase
	retryUC    *usecase.RetryJobUsecase
	getJobUC   *usecase.GetJobUsecase
	logger     *zap.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(
	submitUC *usecase.SubmitJobUsecase,
	validateUC *usecase.ValidateJobUsecase,
	commitUC *usecase.CommitJobUsecase,
	retryUC *usecase.RetryJobUsecase,
	getJobUC *usecase.GetJobUsecase,
	logger *zap.Logger,
) *JobHandler {
	return &JobHandler{
		submitUC:   submitUC,
		validateUC: validateUC,
		commitUC:   commitUC,
		retryUC:    retryUC,
		getJobUC:   getJobUC,
		logger:     logger,
	}
}

// Submit handles POST /api/v1/jobs
func (h *JobHandler) Submit(c *gin.Context) {
	var req domain.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	resp, err := h.submitUC.Execute(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSource):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrEmptyBatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrBatchTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Submit job failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// Validate handles POST /api/v1/jobs/:id/validate
func (h *JobHandler) Validate(c *gin.Context) {
	h.runPass(c, "validate", func(c *gin.Context, id uuid.UUID) (*domain.ProcessResult, error) {
		return h.validateUC.Execute(c.Request.Context(), id, nil)
	})
}

// Commit handles POST /api/v1/jobs/:id/commit
func (h *JobHandler) Commit(c *gin.Context) {
	h.runPass(c, "commit", func(c *gin.Context, id uuid.UUID) (*domain.ProcessResult, error) {
		return h.commitUC.Execute(c.Request.Context(), id, nil)
	})
}

// Retry handles POST /api/v1/jobs/:id/retry
func (h *JobHandler) Retry(c *gin.Context) {
	h.runPass(c, "retry", func(c *gin.Context, id uuid.UUID) (*domain.ProcessResult, error) {
		return h.retryUC.Execute(c.Request.Context(), id, nil)
	})
}

func (h *JobHandler) runPass(c *gin.Context, op string, run func(*gin.Context, uuid.UUID) (*domain.ProcessResult, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job ID format"})
		return
	}

	result, err := run(c, id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		case errors.Is(err, domain.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Job pass failed",
				zap.String("operation", op),
				zap.String("job_id", id.String()),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetByID handles GET /api/v1/jobs/:id
func (h *JobHandler) GetByID(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job ID format"})
		return
	}

	job, err := h.getJobUC.Execute(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		h.logger.Error("Get job failed", zap.Error(err), zap.String("job_id", idStr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, job)
}
