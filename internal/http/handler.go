package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"maintenance-service/internal/client"
	"maintenance-service/internal/http/middleware"
	"maintenance-service/internal/model"
	"maintenance-service/internal/repository"
	"maintenance-service/internal/service"
)

type Handler struct {
	taskService         *service.TaskService
	propertyService     *service.PropertyService
	problemService      *service.ProblemService
	availabilityService *service.AvailabilityService
	wsHandler           *WSHandler
	log                 zerolog.Logger
}

func NewHandler(
	taskService *service.TaskService,
	propertyService *service.PropertyService,
	problemService *service.ProblemService,
	availabilityService *service.AvailabilityService,
	wsHandler *WSHandler,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		taskService:         taskService,
		propertyService:     propertyService,
		problemService:      problemService,
		availabilityService: availabilityService,
		wsHandler:           wsHandler,
		log:                 log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	api := r.Group("/api")
	api.Use(authMiddleware)

	api.GET("/availability/:propertyId", h.getAvailability)

	api.GET("/properties", h.listProperties)
	api.GET("/properties/:id", h.getProperty)
	api.POST("/properties", h.createProperty)
	api.PUT("/properties/:id", h.updateProperty)
	api.POST("/properties/sync", h.syncProperties)

	api.GET("/tasks", h.listTasks)
	api.POST("/tasks", h.createTask)
	api.GET("/tasks/:id", h.getTask)
	api.DELETE("/tasks/:id", h.deleteTask)
	api.PUT("/tasks/:id/assign", h.assignHandyman)
	api.POST("/tasks/:id/timeslots", h.proposeTimeslots)
	api.PUT("/tasks/:id/submit", h.submitForApproval)
	api.PUT("/tasks/:id/timeslots/:index/approve", h.approveTimeslot)
	api.PUT("/tasks/:id/timeslots/:index/reject", h.rejectTimeslot)
	api.PUT("/tasks/:id/done", h.markDone)

	api.GET("/users/handymen", h.listHandymen)

	api.GET("/problems", h.listProblems)
	api.POST("/problems", h.createProblem)
	api.PUT("/problems/:id/convert", h.convertProblem)
	api.PUT("/problems/:id/dismiss", h.dismissProblem)

	ws := r.Group("/ws")
	ws.Use(authMiddleware)
	ws.GET("", h.wsHandler.Serve)
}

func (h *Handler) getAvailability(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	propertyID := strings.TrimSpace(c.Param("propertyId"))
	if propertyID == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid property id"))
		return
	}

	// Accept either the local uuid or the rentals listing id.
	externalID := propertyID
	if property, err := h.propertyService.Get(c.Request.Context(), principal, propertyID); err == nil {
		externalID = property.ExternalID
	}

	result, err := h.availabilityService.GetAvailability(c.Request.Context(), externalID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) listProperties(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	properties, err := h.propertyService.List(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(properties))
}

func (h *Handler) getProperty(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	property, err := h.propertyService.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(property))
}

func (h *Handler) createProperty(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		ExternalID string `json:"external_id" binding:"required"`
		Name       string `json:"name" binding:"required"`
		Address    string `json:"address"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	property, err := h.propertyService.Create(c.Request.Context(), principal, service.CreatePropertyInput{
		ExternalID: req.ExternalID,
		Name:       req.Name,
		Address:    req.Address,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(property))
}

func (h *Handler) updateProperty(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	property, err := h.propertyService.Update(c.Request.Context(), principal, c.Param("id"), service.UpdatePropertyInput{
		Name:    req.Name,
		Address: req.Address,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(property))
}

func (h *Handler) syncProperties(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	count, err := h.propertyService.Sync(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"synced": count}))
}

func (h *Handler) listTasks(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var filter repository.TaskListFilter
	if raw := c.Query("status"); raw != "" {
		status := model.TaskStatus(strings.ToUpper(strings.TrimSpace(raw)))
		filter.Status = &status
	}
	if raw := c.Query("property_id"); raw != "" {
		filter.PropertyID = &raw
	}
	if raw := c.Query("priority"); raw != "" {
		priority := model.TaskPriority(strings.ToLower(strings.TrimSpace(raw)))
		filter.Priority = &priority
	}

	tasks, err := h.taskService.List(c.Request.Context(), principal, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(tasks))
}

func (h *Handler) createTask(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		PropertyID  string   `json:"property_id" binding:"required"`
		Description string   `json:"description"`
		Priority    string   `json:"priority"`
		ImageURLs   []string `json:"image_urls"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), principal, service.CreateTaskInput{
		PropertyID:  req.PropertyID,
		Description: req.Description,
		Priority:    req.Priority,
		ImageURLs:   req.ImageURLs,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(task))
}

func (h *Handler) getTask(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	task, err := h.taskService.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(task))
}

func (h *Handler) deleteTask(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), principal, c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"deleted": true}))
}

func (h *Handler) assignHandyman(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		HandymanID string `json:"handyman_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	task, err := h.taskService.AssignHandyman(c.Request.Context(), principal, c.Param("id"), req.HandymanID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(task))
}

func (h *Handler) proposeTimeslots(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		Timeslots []struct {
			Date    string   `json:"date" binding:"required"`
			Hours   []string `json:"hours"`
			FullDay bool     `json:"full_day"`
		} `json:"timeslots" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	slots := make([]service.TimeslotInput, 0, len(req.Timeslots))
	for _, t := range req.Timeslots {
		slots = append(slots, service.TimeslotInput{
			Date:    t.Date,
			Hours:   t.Hours,
			FullDay: t.FullDay,
		})
	}

	task, err := h.taskService.ProposeTimeslots(c.Request.Context(), principal, c.Param("id"), slots)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(task))
}

func (h *Handler) submitForApproval(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	task, err := h.taskService.SubmitForApproval(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(task))
}

func (h *Handler) approveTimeslot(c *gin.Context) {
	h.resolveTimeslot(c, true)
}

func (h *Handler) rejectTimeslot(c *gin.Context) {
	h.resolveTimeslot(c, false)
}

func (h *Handler) resolveTimeslot(c *gin.Context, approve bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid timeslot index"))
		return
	}

	var task *model.Task
	if approve {
		task, err = h.taskService.ApproveTimeslot(c.Request.Context(), principal, c.Param("id"), index)
	} else {
		task, err = h.taskService.RejectTimeslot(c.Request.Context(), principal, c.Param("id"), index)
	}
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(task))
}

func (h *Handler) markDone(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	task, err := h.taskService.MarkDone(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(task))
}

func (h *Handler) listHandymen(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	handymen, err := h.taskService.ListHandymen(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(handymen))
}

func (h *Handler) listProblems(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var filter repository.ProblemListFilter
	if raw := c.Query("status"); raw != "" {
		status := model.ProblemStatus(strings.ToUpper(strings.TrimSpace(raw)))
		filter.Status = &status
	}
	if raw := c.Query("property_id"); raw != "" {
		filter.PropertyID = &raw
	}

	problems, err := h.problemService.List(c.Request.Context(), principal, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(problems))
}

func (h *Handler) createProblem(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		Title       string   `json:"title" binding:"required"`
		Description string   `json:"description"`
		PropertyID  string   `json:"property_id" binding:"required"`
		Priority    string   `json:"priority"`
		ImageURLs   []string `json:"image_urls"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	problem, err := h.problemService.Create(c.Request.Context(), principal, service.CreateProblemInput{
		Title:       req.Title,
		Description: req.Description,
		PropertyID:  req.PropertyID,
		Priority:    req.Priority,
		ImageURLs:   req.ImageURLs,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(problem))
}

func (h *Handler) convertProblem(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	task, err := h.problemService.Convert(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(task))
}

func (h *Handler) dismissProblem(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	problem, err := h.problemService.Dismiss(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(problem))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var upstreamErr *client.UpstreamError

	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	case errors.As(err, &upstreamErr):
		// Upstream failures pass through status and message verbatim.
		c.JSON(http.StatusBadGateway, gin.H{
			"error":           "upstream fetch failed",
			"upstream_status": upstreamErr.StatusCode,
			"upstream_body":   upstreamErr.Body,
		})
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
