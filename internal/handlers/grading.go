package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/requestdata"
	"github.com/yungbote/gradebridge-backend/internal/services"
)

type GradingHandler struct {
	log        *logger.Logger
	gradingSvc services.GradingService
}

func NewGradingHandler(log *logger.Logger, gradingSvc services.GradingService) *GradingHandler {
	return &GradingHandler{
		log:        log.With("handler", "GradingHandler"),
		gradingSvc: gradingSvc,
	}
}

// POST /api/classroom/courses/:courseId/coursework
// Publish new coursework to the external course.
func (h *GradingHandler) PublishCourseWork(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("no request data"))
		return
	}

	courseID, err := uuid.Parse(c.Param("courseId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}

	var input services.PublishCourseWorkInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	assignment, err := h.gradingSvc.PublishCourseWork(c.Request.Context(), rd.UserID, courseID, input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCourseNotFound):
			RespondError(c, http.StatusNotFound, "course_not_found", err)
		case errors.Is(err, services.ErrNoIntegration):
			RespondError(c, http.StatusNotFound, "no_integration", err)
		default:
			RespondError(c, http.StatusInternalServerError, "publish_failed", err)
		}
		return
	}
	RespondOK(c, assignment)
}

// POST /api/classroom/submissions/grade
// Push a grade to the external submission, optionally returning it.
func (h *GradingHandler) GradeSubmission(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("no request data"))
		return
	}

	var body struct {
		SubmissionID uuid.UUID `json:"submission_id" binding:"required"`
		Grade        float64   `json:"grade"`
		Return       bool      `json:"return"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	if err := h.gradingSvc.GradeSubmission(c.Request.Context(), rd.UserID, body.SubmissionID, body.Grade, body.Return); err != nil {
		switch {
		case errors.Is(err, services.ErrSubmissionNotFound), errors.Is(err, services.ErrCourseNotFound):
			RespondError(c, http.StatusNotFound, "not_found", err)
		case errors.Is(err, services.ErrNotLinked):
			RespondError(c, http.StatusConflict, "not_linked", err)
		default:
			RespondError(c, http.StatusInternalServerError, "grade_failed", err)
		}
		return
	}
	RespondOK(c, gin.H{"success": true})
}
