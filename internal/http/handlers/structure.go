package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	domainagg "github.com/yungbote/courseflow-backend/internal/domain/aggregates"
	"github.com/yungbote/courseflow-backend/internal/domain/learning"
	"github.com/yungbote/courseflow-backend/internal/http/response"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
	"github.com/yungbote/courseflow-backend/internal/services"
)

// StructureHandler edits sections and content items of a course.
type StructureHandler struct {
	log       *logger.Logger
	catalog   services.CatalogService
	structure services.StructureService
}

type StructureHandlerDeps struct {
	Log       *logger.Logger
	Catalog   services.CatalogService
	Structure services.StructureService
}

func NewStructureHandlerWithDeps(deps StructureHandlerDeps) *StructureHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &StructureHandler{
		log:       log.With("handler", "StructureHandler"),
		catalog:   deps.Catalog,
		structure: deps.Structure,
	}
}

type titleRequest struct {
	Title string `json:"title"`
}

type reorderRequest struct {
	OrderedIDs []uuid.UUID `json:"ordered_ids"`
}

// POST /api/courses/:id/sections
func (h *StructureHandler) AddSection(c *gin.Context) {
	courseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req titleRequest
	if !bindJSON(c, &req) {
		return
	}
	section, err := h.structure.AddSection(c.Request.Context(), domainagg.AddSectionInput{
		Viewer:   viewerFrom(c),
		CourseID: courseID,
		Title:    req.Title,
	})
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"section": section})
}

// PUT /api/courses/:id/sections/order
func (h *StructureHandler) ReorderSections(c *gin.Context) {
	courseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req reorderRequest
	if !bindJSON(c, &req) {
		return
	}
	sections, err := h.structure.ReorderSections(c.Request.Context(), domainagg.ReorderInput{
		Viewer:     viewerFrom(c),
		ScopeID:    courseID,
		OrderedIDs: req.OrderedIDs,
	})
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sections": sections})
}

// PATCH /api/sections/:id
func (h *StructureHandler) RenameSection(c *gin.Context) {
	sectionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req titleRequest
	if !bindJSON(c, &req) {
		return
	}
	section, err := h.structure.RenameSection(c.Request.Context(), domainagg.RenameSectionInput{
		Viewer:    viewerFrom(c),
		SectionID: sectionID,
		Title:     req.Title,
	})
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"section": section})
}

// DELETE /api/sections/:id
func (h *StructureHandler) DeleteSection(c *gin.Context) {
	sectionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	res, err := h.structure.DeleteSection(c.Request.Context(), viewerFrom(c), sectionID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, structureChangeBody(res))
}

type addItemRequest struct {
	Title       string               `json:"title"`
	ContentType learning.ContentType `json:"content_type"`
	ContentData datatypes.JSON       `json:"content_data"`
}

// POST /api/sections/:id/items
func (h *StructureHandler) AddContentItem(c *gin.Context) {
	sectionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req addItemRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.structure.AddContentItem(c.Request.Context(), domainagg.AddContentItemInput{
		Viewer:      viewerFrom(c),
		SectionID:   sectionID,
		Title:       req.Title,
		ContentType: req.ContentType,
		ContentData: req.ContentData,
	})
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"item": item})
}

// PUT /api/sections/:id/items/order
func (h *StructureHandler) ReorderContentItems(c *gin.Context) {
	sectionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req reorderRequest
	if !bindJSON(c, &req) {
		return
	}
	items, err := h.structure.ReorderContentItems(c.Request.Context(), domainagg.ReorderInput{
		Viewer:     viewerFrom(c),
		ScopeID:    sectionID,
		OrderedIDs: req.OrderedIDs,
	})
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}

// GET /api/items/:id
func (h *StructureHandler) GetContentItem(c *gin.Context) {
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	item, err := h.catalog.GetItem(c.Request.Context(), viewerFrom(c), itemID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"item": item})
}

type updateItemRequest struct {
	Title       *string               `json:"title"`
	ContentType *learning.ContentType `json:"content_type"`
	ContentData datatypes.JSON        `json:"content_data"`
}

// PATCH /api/items/:id
func (h *StructureHandler) UpdateContentItem(c *gin.Context) {
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req updateItemRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.structure.UpdateContentItem(c.Request.Context(), domainagg.UpdateContentItemInput{
		Viewer:      viewerFrom(c),
		ItemID:      itemID,
		Title:       req.Title,
		ContentType: req.ContentType,
		ContentData: req.ContentData,
	})
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"item": item})
}

// DELETE /api/items/:id
func (h *StructureHandler) DeleteContentItem(c *gin.Context) {
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	res, err := h.structure.DeleteContentItem(c.Request.Context(), viewerFrom(c), itemID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, structureChangeBody(res))
}

func structureChangeBody(res domainagg.StructureChangeResult) gin.H {
	return gin.H{
		"course_id":   res.CourseID,
		"removed_ids": res.RemovedIDs,
		"recomputed":  len(res.Recomputed),
	}
}

