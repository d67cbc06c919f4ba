package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/umuve/dispatch-engine/internal/geofence"
	"github.com/umuve/dispatch-engine/internal/http/middleware"
	"github.com/umuve/dispatch-engine/internal/model"
	"github.com/umuve/dispatch-engine/internal/pricing"
	"github.com/umuve/dispatch-engine/internal/service"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Handler struct {
	bookings      *service.BookingService
	jobs          *service.JobService
	drivers       *service.DriverService
	volumes       *service.VolumeService
	reports       *service.ReportService
	notifications *service.NotificationService
	checker       *geofence.Checker
	pricer        *pricing.Calculator
	log           zerolog.Logger
}

func NewHandler(
	bookings *service.BookingService,
	jobs *service.JobService,
	drivers *service.DriverService,
	volumes *service.VolumeService,
	reports *service.ReportService,
	notifications *service.NotificationService,
	checker *geofence.Checker,
	pricer *pricing.Calculator,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		bookings:      bookings,
		jobs:          jobs,
		drivers:       drivers,
		volumes:       volumes,
		reports:       reports,
		notifications: notifications,
		checker:       checker,
		pricer:        pricer,
		log:           log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	api := router.Group("/api")

	// Public surface: quoting and tracking need no account.
	api.POST("/booking/estimate", h.estimate)
	api.GET("/jobs/lookup/:code", h.lookup)
	api.GET("/service-area", h.serviceArea)
	api.GET("/pricing/config", h.pricingConfig)
	api.GET("/pricing/categories", h.pricingCategories)

	protected := api.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/booking", h.createBooking)
	protected.POST("/payments/confirm", h.confirmPayment)
	protected.GET("/jobs", h.listJobs)
	protected.GET("/jobs/:id", h.getJob)
	protected.POST("/jobs/:id/cancel", h.cancelJob)
	protected.PUT("/jobs/:id/reschedule", h.rescheduleJob)
	protected.POST("/jobs/:id/volume/approve", h.approveVolume)
	protected.POST("/jobs/:id/volume/decline", h.declineVolume)
	protected.GET("/jobs/:id/receipt", h.receipt)
	protected.GET("/notifications", h.listNotifications)
	protected.POST("/notifications/:id/read", h.markNotificationRead)

	protected.PUT("/drivers/location", h.updateLocation)
	protected.PUT("/drivers/availability", h.updateAvailability)
	protected.GET("/drivers/jobs", h.listDriverJobs)
	protected.PUT("/drivers/jobs/:id/status", h.updateJobStatus)
	protected.POST("/drivers/jobs/:id/decline", h.declineJob)
	protected.POST("/drivers/jobs/:id/volume", h.proposeVolume)

	protected.PUT("/operator/jobs/:id/delegate", h.delegateJob)
	protected.GET("/operator/jobs/export", h.exportFleetJobs)

	protected.POST("/admin/jobs/:id/assign", h.adminAssign)
}

type itemRequest struct {
	Category string `json:"category" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
	Size     string `json:"size"`
}

func toItemInputs(items []itemRequest) []pricing.ItemInput {
	out := make([]pricing.ItemInput, len(items))
	for i, item := range items {
		out[i] = pricing.ItemInput{
			Category: item.Category,
			Quantity: item.Quantity,
			Size:     item.Size,
		}
	}
	return out
}

type estimateRequest struct {
	Items       []itemRequest `json:"items" binding:"required"`
	ScheduledAt string        `json:"scheduled_at"`
	Lat         *float64      `json:"lat"`
	Lng         *float64      `json:"lng"`
}

func (h *Handler) estimate(c *gin.Context) {
	var req estimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scheduledAt, err := parseOptionalTime(req.ScheduledAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scheduled_at"})
		return
	}

	result, err := h.bookings.Estimate(c.Request.Context(), service.EstimateInput{
		Items:       toItemInputs(req.Items),
		ScheduledAt: scheduledAt,
		Lat:         req.Lat,
		Lng:         req.Lng,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type createBookingRequest struct {
	Address        string        `json:"address" binding:"required"`
	Lat            *float64      `json:"lat" binding:"required"`
	Lng            *float64      `json:"lng" binding:"required"`
	Items          []itemRequest `json:"items" binding:"required"`
	ScheduledAt    string        `json:"scheduled_at"`
	Notes          string        `json:"notes"`
	VolumeEstimate *float64      `json:"volume_estimate"`
	Photos         []string      `json:"photos"`
}

func (h *Handler) createBooking(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scheduledAt, err := parseOptionalTime(req.ScheduledAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scheduled_at"})
		return
	}

	job, err := h.bookings.CreateBooking(c.Request.Context(), service.CreateBookingInput{
		Principal:      principal,
		Address:        req.Address,
		Lat:            req.Lat,
		Lng:            req.Lng,
		Items:          toItemInputs(req.Items),
		ScheduledAt:    scheduledAt,
		Notes:          req.Notes,
		VolumeEstimate: req.VolumeEstimate,
		Photos:         req.Photos,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

type confirmPaymentRequest struct {
	JobID string `json:"job_id" binding:"required"`
}

func (h *Handler) confirmPayment(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	jobID, err := uuid.Parse(strings.TrimSpace(req.JobID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job_id"})
		return
	}

	job, err := h.bookings.ConfirmPayment(c.Request.Context(), service.ConfirmPaymentInput{
		Principal: principal,
		JobID:     jobID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) lookup(c *gin.Context) {
	result, err := h.jobs.Lookup(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) serviceArea(c *gin.Context) {
	info := h.checker.Info()

	if latStr, lngStr := c.Query("lat"), c.Query("lng"); latStr != "" && lngStr != "" {
		lat, errLat := parseFloat(latStr)
		lng, errLng := parseFloat(lngStr)
		if errLat != nil || errLng != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coordinates"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"service_area":         info,
			"in_service_area":      h.checker.InServiceArea(lat, lng),
			"distance_to_boundary": h.checker.DistanceToBoundary(lat, lng),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"service_area": info})
}

func (h *Handler) pricingConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.pricer.PublicConfig(c.Request.Context()))
}

func (h *Handler) pricingCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": pricing.CategoryNames()})
}

func (h *Handler) listJobs(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var status *model.JobStatus
	if raw := c.Query("status"); raw != "" {
		s := model.JobStatus(raw)
		status = &s
	}

	jobs, err := h.jobs.ListCustomerJobs(c.Request.Context(), principal, status)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *Handler) getJob(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), principal, jobID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelJob(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	var req cancelRequest
	_ = c.ShouldBindJSON(&req)

	job, err := h.jobs.Cancel(c.Request.Context(), service.CancelInput{
		Principal: principal,
		JobID:     jobID,
		Reason:    req.Reason,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

type rescheduleRequest struct {
	ScheduledAt string `json:"scheduled_at" binding:"required"`
}

func (h *Handler) rescheduleJob(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	scheduledAt, err := parseTime(req.ScheduledAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scheduled_at"})
		return
	}

	job, err := h.jobs.Reschedule(c.Request.Context(), service.RescheduleInput{
		Principal:   principal,
		JobID:       jobID,
		ScheduledAt: scheduledAt,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) approveVolume(c *gin.Context) {
	h.volumeDecision(c, h.volumes.Approve)
}

func (h *Handler) declineVolume(c *gin.Context) {
	h.volumeDecision(c, h.volumes.Decline)
}

func (h *Handler) volumeDecision(
	c *gin.Context,
	decide func(ctx context.Context, input service.VolumeDecisionInput) (*model.Job, error),
) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	job, err := decide(c.Request.Context(), service.VolumeDecisionInput{
		Principal: principal,
		JobID:     jobID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) receipt(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	result, err := h.reports.Receipt(c.Request.Context(), principal, jobID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, contentTypePDF, result.Content)
}

func (h *Handler) listNotifications(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := parseInt(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	notifications, err := h.notifications.List(c.Request.Context(), principal, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type locationRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

func (h *Handler) updateLocation(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.drivers.UpdateLocation(c.Request.Context(), principal, *req.Lat, *req.Lng); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type availabilityRequest struct {
	Online *bool `json:"online" binding:"required"`
}

func (h *Handler) updateAvailability(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.drivers.UpdateAvailability(c.Request.Context(), principal, *req.Online); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) listDriverJobs(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	jobs, err := h.drivers.ListJobs(c.Request.Context(), principal, c.Query("active") == "true")
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

type statusRequest struct {
	Status       string   `json:"status" binding:"required"`
	BeforePhotos []string `json:"before_photos"`
	AfterPhotos  []string `json:"after_photos"`
}

func (h *Handler) updateJobStatus(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.jobs.UpdateStatus(c.Request.Context(), service.UpdateStatusInput{
		Principal:    principal,
		JobID:        jobID,
		NewStatus:    model.JobStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		BeforePhotos: req.BeforePhotos,
		AfterPhotos:  req.AfterPhotos,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) declineJob(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	job, err := h.jobs.Decline(c.Request.Context(), service.DeclineInput{
		Principal: principal,
		JobID:     jobID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

type volumeRequest struct {
	MeasuredVolume *float64 `json:"measured_volume" binding:"required"`
}

func (h *Handler) proposeVolume(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	var req volumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.volumes.Propose(c.Request.Context(), service.ProposeInput{
		Principal:      principal,
		JobID:          jobID,
		MeasuredVolume: *req.MeasuredVolume,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) delegateJob(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	job, err := h.jobs.Delegate(c.Request.Context(), service.DelegateInput{
		Principal: principal,
		JobID:     jobID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) exportFleetJobs(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	start, err := parseTime(c.Query("period_start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_start"})
		return
	}
	end, err := parseTime(c.Query("period_end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_end"})
		return
	}

	result, err := h.reports.FleetExport(c.Request.Context(), service.FleetExportInput{
		Principal:   principal,
		PeriodStart: start,
		PeriodEnd:   end,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, contentTypeXLSX, result.Content)
}

type assignRequest struct {
	DriverID string `json:"driver_id"`
}

func (h *Handler) adminAssign(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	var req assignRequest
	_ = c.ShouldBindJSON(&req)

	input := service.AdminAssignInput{Principal: principal, JobID: jobID}
	if req.DriverID != "" {
		driverID, err := uuid.Parse(strings.TrimSpace(req.DriverID))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid driver_id"})
			return
		}
		input.DriverID = &driverID
	}

	job, err := h.jobs.AdminAssign(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrOutOfServiceArea):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}

func parseFloat(raw string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}

func parseInt(raw string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(raw))
}

func parseOptionalTime(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parsed, err := parseTime(raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
