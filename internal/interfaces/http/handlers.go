package http

import (
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/fund-review/internal/application/service"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	health   HealthFunc
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, health HealthFunc, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		health:   health,
		logger:   logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	healthy, components := true, interface{}(nil)
	if h.health != nil {
		healthy, components = h.health()
	}

	response := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	}
	if !healthy {
		response.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Data: response})
		return
	}
	respond(c, http.StatusOK, response)
}

// SubmitApplication handles POST /api/applications
func (h *Handlers) SubmitApplication(c *gin.Context) {
	actor, _ := actorFrom(c)

	var req applicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	app, err := h.services.Applications.Submit(c.Request.Context(), actor, service.SubmitInput{
		Kind:    req.Type,
		Details: req.Details,
		Items:   req.lineItems(),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, app)
}

// GetApplication handles GET /api/applications/:id
func (h *Handlers) GetApplication(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, _ := actorFrom(c)

	view, err := h.services.Applications.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

// EditApplication handles PUT /api/applications/:id
func (h *Handlers) EditApplication(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, _ := actorFrom(c)

	var req applicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	app, err := h.services.Applications.EditAndResubmit(c.Request.Context(), actor, service.EditInput{
		ApplicationID: id,
		Details:       req.Details,
		Items:         req.lineItems(),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, app)
}

// DeleteApplication handles DELETE /api/applications/:id
func (h *Handlers) DeleteApplication(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, _ := actorFrom(c)

	if err := h.services.Applications.Delete(c.Request.Context(), actor, id); err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// DecideApplication handles POST /api/applications/:id/decisions
func (h *Handlers) DecideApplication(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, _ := actorFrom(c)

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	result, err := h.services.Applications.Decide(c.Request.Context(), actor, service.DecideInput{
		ApplicationID: id,
		Decision:      req.Decision,
		Comment:       req.Comment,
		Amount:        req.AmountApproved.float(),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// ResubmitApplication handles POST /api/applications/:id/resubmit
func (h *Handlers) ResubmitApplication(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, _ := actorFrom(c)

	var req resubmitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.writeBindError(c, err)
			return
		}
	}

	app, err := h.services.Applications.Resubmit(c.Request.Context(), actor, id, req.Comment)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, app)
}

// CreateReimbursement handles POST /api/applications/:id/reimbursement
func (h *Handlers) CreateReimbursement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, _ := actorFrom(c)

	form, err := parseReimbursementForm(c)
	if err != nil {
		h.writeBindError(c, err)
		return
	}

	reimb, err := h.services.Reimbursements.Create(c.Request.Context(), actor, service.CreateReimbursementInput{
		ApplicationID:  id,
		Items:          form.Items,
		ActivityPhotos: form.ActivityPhotos,
		FeedbackPhotos: form.FeedbackPhotos,
		Comment:        form.Comment,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, reimb)
}

// ListMyApplications handles GET /api/me/applications
func (h *Handlers) ListMyApplications(c *gin.Context) {
	actor, _ := actorFrom(c)

	apps, err := h.services.Applications.ListMine(c.Request.Context(), actor)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"applications": apps, "count": len(apps)})
}

// ListMyReviews handles GET /api/me/reviews
func (h *Handlers) ListMyReviews(c *gin.Context) {
	actor, _ := actorFrom(c)

	reviews, err := h.services.Applications.ListReviewed(c.Request.Context(), actor)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"reviews": reviews, "count": len(reviews)})
}

// ListPendingApplications handles GET /api/queue/applications
func (h *Handlers) ListPendingApplications(c *gin.Context) {
	actor, _ := actorFrom(c)

	apps, err := h.services.Applications.ListPending(c.Request.Context(), actor)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"applications": apps, "count": len(apps)})
}

// ListPendingReimbursements handles GET /api/queue/reimbursements
func (h *Handlers) ListPendingReimbursements(c *gin.Context) {
	actor, _ := actorFrom(c)

	reimbs, err := h.services.Reimbursements.ListPending(c.Request.Context(), actor)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"reimbursements": reimbs, "count": len(reimbs)})
}

// GetReimbursement handles GET /api/reimbursements/:id
func (h *Handlers) GetReimbursement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, _ := actorFrom(c)

	view, err := h.services.Reimbursements.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

// GetReimbursementPhoto handles GET /api/reimbursements/:id/photos/:photoId
func (h *Handlers) GetReimbursementPhoto(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	photoID, ok := pathID(c, "photoId")
	if !ok {
		return
	}
	actor, _ := actorFrom(c)

	photo, content, err := h.services.Reimbursements.ReadPhoto(c.Request.Context(), actor, id, photoID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Disposition", "inline; filename="+strconv.Quote(path.Base(photo.Path)))
	c.Data(http.StatusOK, http.DetectContentType(content), content)
}

// EditReimbursement handles PUT /api/reimbursements/:id
func (h *Handlers) EditReimbursement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, _ := actorFrom(c)

	form, err := parseReimbursementForm(c)
	if err != nil {
		h.writeBindError(c, err)
		return
	}

	reimb, err := h.services.Reimbursements.EditAndResubmit(c.Request.Context(), actor, service.EditReimbursementInput{
		ReimbursementID: id,
		Items:           form.Items,
		ActivityPhotos:  form.ActivityPhotos,
		FeedbackPhotos:  form.FeedbackPhotos,
		Comment:         form.Comment,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, reimb)
}

// DeleteReimbursement handles DELETE /api/reimbursements/:id
func (h *Handlers) DeleteReimbursement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, _ := actorFrom(c)

	if err := h.services.Reimbursements.Delete(c.Request.Context(), actor, id); err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// DecideReimbursement handles POST /api/reimbursements/:id/decisions
func (h *Handlers) DecideReimbursement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, _ := actorFrom(c)

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	result, err := h.services.Reimbursements.Decide(c.Request.Context(), actor, service.ReimbursementDecideInput{
		ReimbursementID: id,
		Decision:        req.Decision,
		Comment:         req.Comment,
		Amount:          req.AmountApproved.float(),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// AssignTeacher handles PUT /api/organizations/:id/teacher
func (h *Handlers) AssignTeacher(c *gin.Context) {
	orgID, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, _ := actorFrom(c)

	var req assignTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	assignment, err := h.services.Assignments.AssignTeacher(c.Request.Context(), actor, orgID, req.TeacherID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, assignment)
}

// pathID parses a positive integer path parameter, answering 400 otherwise
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "invalid_id", "invalid "+name)
		return 0, false
	}
	return id, true
}
