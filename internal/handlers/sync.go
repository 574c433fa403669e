package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/requestdata"
	"github.com/yungbote/gradebridge-backend/internal/services"
)

type SyncHandler struct {
	log     *logger.Logger
	syncSvc services.SyncService
}

func NewSyncHandler(log *logger.Logger, syncSvc services.SyncService) *SyncHandler {
	return &SyncHandler{
		log:     log.With("handler", "SyncHandler"),
		syncSvc: syncSvc,
	}
}

// POST /api/classroom/connect
// Store the OAuth grant for the authenticated user.
func (h *SyncHandler) Connect(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("no request data"))
		return
	}

	var input services.ConnectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	integration, err := h.syncSvc.Connect(c.Request.Context(), rd.UserID, input)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "connect_failed", err)
		return
	}
	RespondOK(c, gin.H{
		"id":          integration.ID,
		"provider":    integration.Provider,
		"sync_status": integration.SyncStatus,
	})
}

// POST /api/classroom/sync
// Run a full pull for the authenticated user.
func (h *SyncHandler) Sync(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("no request data"))
		return
	}

	result, err := h.syncSvc.Run(c.Request.Context(), rd.UserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSyncInProgress):
			RespondError(c, http.StatusConflict, "sync_in_progress", err)
		case errors.Is(err, services.ErrNoIntegration):
			RespondError(c, http.StatusNotFound, "no_integration", err)
		default:
			RespondError(c, http.StatusInternalServerError, "sync_failed", err)
		}
		return
	}

	RespondOK(c, gin.H{
		"success":             true,
		"synced":              result.Synced,
		"skipped":             result.Skipped,
		"errors":              result.Errors,
		"total":               result.Total,
		"studentsSynced":      result.StudentsSynced,
		"assignmentsSynced":   result.AssignmentsSynced,
		"submissionsSynced":   result.SubmissionsSynced,
		"quizzesSynced":       result.QuizzesSynced,
		"announcementsSynced": result.AnnouncementsSynced,
	})
}

// GET /api/classroom/sync/status
func (h *SyncHandler) Status(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("no request data"))
		return
	}

	integration, err := h.syncSvc.Status(c.Request.Context(), rd.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNoIntegration) {
			RespondError(c, http.StatusNotFound, "no_integration", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "status_failed", err)
		return
	}
	RespondOK(c, gin.H{
		"sync_status":  integration.SyncStatus,
		"last_sync_at": integration.LastSyncAt,
	})
}
