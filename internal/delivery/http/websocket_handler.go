package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/flashflowhq/ingest/internal/domain"
	"github.com/flashflowhq/ingest/internal/usecase"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Origin filtering happens at the edge proxy; the service itself
		// accepts any upgrade.
		return true
	},
}

// jobFrame is the progress snapshot pushed to the console on each tick.
// It carries only what the progress bar needs, not the full job record.
type jobFrame struct {
	JobID          uuid.UUID        `json:"job_id"`
	Status         domain.JobStatus `json:"status"`
	Phase          domain.Phase     `json:"phase,omitempty"`
	TotalRows      int              `json:"total_rows"`
	ProcessedRows  int              `json:"processed_rows"`
	SuccessCount   int              `json:"success_count"`
	FailureCount   int              `json:"failure_count"`
	DuplicateCount int              `json:"duplicate_count"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func frameFor(job *domain.Job) jobFrame {
	return jobFrame{
		JobID:          job.ID,
		Status:         job.Status,
		Phase:          job.Phase,
		TotalRows:      job.TotalRows,
		ProcessedRows:  job.SuccessCount + job.FailureCount + job.DuplicateCount,
		SuccessCount:   job.SuccessCount,
		FailureCount:   job.FailureCount,
		DuplicateCount: job.DuplicateCount,
		UpdatedAt:      job.UpdatedAt,
	}
}

// WebSocketHandler streams job snapshots so the console can show live
// progress while a batch is being validated or committed.
type WebSocketHandler struct {
	getJobUC *usecase.GetJobUsecase
	logger   *zap.Logger
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(getJobUC *usecase.GetJobUsecase, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		getJobUC: getJobUC,
		logger:   logger,
	}
}

// Stream handles GET /api/v1/jobs/:id/stream (WebSocket upgrade)
func (h *WebSocketHandler) Stream(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job ID format"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Debug("WebSocket connection opened", zap.String("job_id", idStr))

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	// First frame goes out immediately so the console never waits a full
	// tick to render the initial state.
	for {
		job, err := h.getJobUC.Execute(c.Request.Context(), id)
		if err != nil {
			conn.WriteJSON(gin.H{"error": "Job not found"})
			return
		}

		if err := conn.WriteJSON(frameFor(job)); err != nil {
			h.logger.Debug("WebSocket write failed (client disconnected)", zap.Error(err))
			return
		}

		// Stop streaming once the current pass has settled; the client
		// reopens the stream when it launches a commit or retry.
		if job.Status.IsSettled() {
			h.logger.Debug("Job settled, closing WebSocket", zap.String("job_id", idStr))
			return
		}

		select {
		case <-ticker.C:
		case <-c.Request.Context().Done():
			return
		}
	}
}
