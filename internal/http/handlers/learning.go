package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/courseflow-backend/internal/domain/aggregates"
	"github.com/yungbote/courseflow-backend/internal/http/response"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
	"github.com/yungbote/courseflow-backend/internal/services"
)

// LearningHandler covers enrollment and progress for the current student.
type LearningHandler struct {
	log        *logger.Logger
	enrollment services.EnrollmentService
	progress   services.ProgressService
}

type LearningHandlerDeps struct {
	Log        *logger.Logger
	Enrollment services.EnrollmentService
	Progress   services.ProgressService
}

func NewLearningHandlerWithDeps(deps LearningHandlerDeps) *LearningHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &LearningHandler{
		log:        log.With("handler", "LearningHandler"),
		enrollment: deps.Enrollment,
		progress:   deps.Progress,
	}
}

// POST /api/courses/:id/enroll
func (h *LearningHandler) Enroll(c *gin.Context) {
	courseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	res, err := h.enrollment.Enroll(c.Request.Context(), viewerFrom(c), courseID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"enrollment": services.NewEnrollmentView(res.Enrollment),
		"created":    res.Created,
	})
}

// GET /api/me/enrollments
func (h *LearningHandler) ListMyEnrollments(c *gin.Context) {
	views, err := h.enrollment.ListMine(c.Request.Context(), viewerFrom(c))
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"enrollments": views})
}

// POST /api/items/:id/consume
func (h *LearningHandler) MarkConsumed(c *gin.Context) {
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	res, err := h.progress.MarkConsumed(c.Request.Context(), viewerFrom(c), itemID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"item_id":    res.ItemID,
		"first_time": res.FirstTime,
		"progress":   snapshotBody(res.Snapshot),
	})
}

// GET /api/courses/:id/progress
func (h *LearningHandler) GetProgress(c *gin.Context) {
	courseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	view, err := h.progress.Get(c.Request.Context(), viewerFrom(c), courseID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"enrollment": view})
}

// POST /api/courses/:id/progress/refresh
func (h *LearningHandler) RefreshProgress(c *gin.Context) {
	courseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	snap, err := h.progress.Refresh(c.Request.Context(), viewerFrom(c), courseID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": snapshotBody(snap)})
}

func snapshotBody(s domainagg.ProgressSnapshot) gin.H {
	return gin.H{
		"enrollment_id": s.EnrollmentID,
		"course_id":     s.CourseID,
		"previous":      s.Previous,
		"progress":      s.Progress,
		"completed":     s.Progress >= 100,
	}
}
