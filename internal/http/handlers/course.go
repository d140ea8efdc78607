package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/courseflow-backend/internal/domain/aggregates"
	"github.com/yungbote/courseflow-backend/internal/http/response"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
	"github.com/yungbote/courseflow-backend/internal/services"
)

type CourseHandler struct {
	log       *logger.Logger
	catalog   services.CatalogService
	structure services.StructureService
}

type CourseHandlerDeps struct {
	Log       *logger.Logger
	Catalog   services.CatalogService
	Structure services.StructureService
}

func NewCourseHandlerWithDeps(deps CourseHandlerDeps) *CourseHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &CourseHandler{
		log:       log.With("handler", "CourseHandler"),
		catalog:   deps.Catalog,
		structure: deps.Structure,
	}
}

// GET /api/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.catalog.ListCourses(c.Request.Context(), services.ListCoursesInput{
		Viewer: viewerFrom(c),
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	})
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}

// GET /api/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	courseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	course, err := h.catalog.GetCourse(c.Request.Context(), viewerFrom(c), courseID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

// GET /api/courses/:id/structure
func (h *CourseHandler) GetStructure(c *gin.Context) {
	courseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	st, err := h.catalog.GetStructure(c.Request.Context(), viewerFrom(c), courseID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": st.Course, "sections": st.Sections})
}

type createCourseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
}

// POST /api/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req createCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.structure.CreateCourse(c.Request.Context(), domainagg.CreateCourseInput{
		Viewer:      viewerFrom(c),
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"course": course})
}

type updateCourseRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
}

// PATCH /api/courses/:id
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	courseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req updateCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.structure.UpdateCourse(c.Request.Context(), domainagg.UpdateCourseInput{
		Viewer:      viewerFrom(c),
		CourseID:    courseID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

// POST /api/courses/:id/publish
func (h *CourseHandler) PublishCourse(c *gin.Context) { h.setPublished(c, true) }

// POST /api/courses/:id/unpublish
func (h *CourseHandler) UnpublishCourse(c *gin.Context) { h.setPublished(c, false) }

func (h *CourseHandler) setPublished(c *gin.Context, published bool) {
	courseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	course, err := h.structure.SetPublished(c.Request.Context(), domainagg.SetPublishedInput{
		Viewer:    viewerFrom(c),
		CourseID:  courseID,
		Published: published,
	})
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

// DELETE /api/courses/:id
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	courseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.structure.DeleteCourse(c.Request.Context(), viewerFrom(c), courseID); err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
