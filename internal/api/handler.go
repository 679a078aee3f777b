// Package api provides the REST handlers for the obligation lifecycle:
// registration, tasks, completions, catalogs, assignments, and thresholds.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/strictd/taskwarden/internal/models"
	"github.com/strictd/taskwarden/internal/repository"
	"github.com/strictd/taskwarden/internal/service/obligation"
	"github.com/strictd/taskwarden/internal/service/review"
	"github.com/strictd/taskwarden/internal/taskerr"
	"github.com/strictd/taskwarden/pkg/logger"
)

// ObligationService is the lifecycle surface the handlers call.
type ObligationService interface {
	RegisterUser(identity, username, role, timezone string) (*models.User, error)
	Link(supervisorID, assigneeID uint) (*models.Relationship, error)
	CreateTask(p obligation.CreateTaskParams) (*models.Task, error)
	SubmitCompletion(taskID, assigneeID uint, proofURL string) (*models.TaskCompletion, error)
	DeleteTask(taskID, supervisorID uint) error
	CreateReward(supervisorID uint, title, description string, pointCost int) (*models.Reward, error)
	CreatePunishment(supervisorID uint, title, description string) (*models.Punishment, error)
	DeleteReward(rewardID, supervisorID uint) error
	DeletePunishment(punishmentID, supervisorID uint) error
	AssignReward(supervisorID, assigneeID, rewardID uint, reason string) (*models.Assignment, error)
	AssignPunishment(p obligation.AssignPunishmentParams) (*models.Assignment, error)
	CreateThreshold(supervisorID uint, assigneeID *uint, thresholdPoints, punishmentID int) (*models.PointThreshold, error)
	DeleteThreshold(thresholdID, supervisorID uint) error
	GetUser(userID uint) (*models.User, error)
	PrimarySupervisor(assigneeID uint) (*models.User, error)
	ListTasks(assigneeID uint, activeOnly bool) ([]models.Task, error)
	ListAssignments(assigneeID uint, assignmentType string) ([]models.Assignment, error)
	ListRewards(supervisorID uint) ([]models.Reward, error)
	ListPunishments(supervisorID uint) ([]models.Punishment, error)
	ListThresholds(supervisorID uint) ([]models.PointThreshold, error)
	PendingCompletions(supervisorID uint) ([]models.TaskCompletion, error)
	Stats(assigneeID uint, windowDays int) (*repository.TaskStats, error)
}

// ReviewService is the review surface the handlers call.
type ReviewService interface {
	ReviewCompletion(completionID, reviewerID uint, approve, resetDeadline bool) (int, error)
	SubmitProof(assignmentID, assigneeID uint, proofURL string) error
	ReviewProof(assignmentID, reviewerID uint, approve bool) error
	Cancel(assignmentID, supervisorID uint) error
}

// Handler handles lifecycle API requests.
type Handler struct {
	obligations ObligationService
	reviews     ReviewService
	log         *logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(obligationService *obligation.Service, reviewService *review.Service, log *logger.Logger) *Handler {
	return &Handler{
		obligations: obligationService,
		reviews:     reviewService,
		log:         log,
	}
}

// NewHandlerWithInterfaces creates a handler with interface dependencies
// (useful for testing).
func NewHandlerWithInterfaces(obligations ObligationService, reviews ReviewService, log *logger.Logger) *Handler {
	return &Handler{
		obligations: obligations,
		reviews:     reviews,
		log:         log,
	}
}

// RegisterUser registers an identity with a fixed role.
// POST /api/v1/users.
func (h *Handler) RegisterUser(c *gin.Context) {
	var req struct {
		Identity string `json:"identity" binding:"required"`
		Username string `json:"username" binding:"required"`
		Role     string `json:"role" binding:"required"`
		Timezone string `json:"timezone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.obligations.RegisterUser(req.Identity, req.Username, req.Role, req.Timezone)
	if err != nil {
		h.serviceError(c, err, "Failed to register user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// GetUser returns one user with their current balance.
// GET /api/v1/users/:id.
func (h *Handler) GetUser(c *gin.Context) {
	userID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.obligations.GetUser(userID)
	if err != nil {
		h.serviceError(c, err, "Failed to get user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// GetSupervisor returns an assignee's primary supervisor.
// GET /api/v1/users/:id/supervisor.
func (h *Handler) GetSupervisor(c *gin.Context) {
	assigneeID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	supervisor, err := h.obligations.PrimarySupervisor(assigneeID)
	if err != nil {
		h.serviceError(c, err, "Failed to get supervisor")
		return
	}

	c.JSON(http.StatusOK, gin.H{"supervisor": supervisor})
}

// CreateRelationship links a supervisor with an assignee.
// POST /api/v1/relationships.
func (h *Handler) CreateRelationship(c *gin.Context) {
	var req struct {
		SupervisorID uint `json:"supervisor_id" binding:"required"`
		AssigneeID   uint `json:"assignee_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	rel, err := h.obligations.Link(req.SupervisorID, req.AssigneeID)
	if err != nil {
		h.serviceError(c, err, "Failed to create relationship")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"relationship": rel})
}

// CreateTask creates a task for a linked assignee.
// POST /api/v1/tasks.
func (h *Handler) CreateTask(c *gin.Context) {
	var req struct {
		SupervisorID      uint       `json:"supervisor_id" binding:"required"`
		AssigneeID        uint       `json:"assignee_id" binding:"required"`
		Title             string     `json:"title" binding:"required"`
		Description       string     `json:"description"`
		Frequency         string     `json:"frequency"`
		PointValue        int        `json:"point_value"`
		Deadline          *time.Time `json:"deadline"`
		RecurrenceEnabled bool       `json:"recurrence_enabled"`
		IntervalHours     int        `json:"interval_hours"`
		Weekdays          string     `json:"weekdays"`
		TimeOfDay         string     `json:"time_of_day"`
		DeadlineAnchor    string     `json:"deadline_anchor"`
		AutoPunishmentID  int        `json:"auto_punishment_id"`
		ReminderMinutes   int        `json:"reminder_minutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.obligations.CreateTask(obligation.CreateTaskParams{
		SupervisorID:      req.SupervisorID,
		AssigneeID:        req.AssigneeID,
		Title:             req.Title,
		Description:       req.Description,
		Frequency:         req.Frequency,
		PointValue:        req.PointValue,
		Deadline:          req.Deadline,
		RecurrenceEnabled: req.RecurrenceEnabled,
		IntervalHours:     req.IntervalHours,
		Weekdays:          req.Weekdays,
		TimeOfDay:         req.TimeOfDay,
		DeadlineAnchor:    req.DeadlineAnchor,
		AutoPunishmentID:  req.AutoPunishmentID,
		ReminderMinutes:   req.ReminderMinutes,
	})
	if err != nil {
		h.serviceError(c, err, "Failed to create task")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"task": task})
}

// ListTasks returns an assignee's tasks.
// GET /api/v1/users/:id/tasks?active=true.
func (h *Handler) ListTasks(c *gin.Context) {
	assigneeID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	activeOnly := c.Query("active") == "true"

	tasks, err := h.obligations.ListTasks(assigneeID, activeOnly)
	if err != nil {
		h.serviceError(c, err, "Failed to list tasks")
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "total": len(tasks)})
}

// DeleteTask removes a task and its completions.
// DELETE /api/v1/tasks/:id?supervisor_id=N.
func (h *Handler) DeleteTask(c *gin.Context) {
	taskID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	supervisorID, err := h.parseQueryID(c, "supervisor_id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.obligations.DeleteTask(taskID, supervisorID); err != nil {
		h.serviceError(c, err, "Failed to delete task")
		return
	}

	c.Status(http.StatusNoContent)
}

// SubmitCompletion records a pending submission for a task.
// POST /api/v1/tasks/:id/completions.
func (h *Handler) SubmitCompletion(c *gin.Context) {
	taskID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		AssigneeID uint   `json:"assignee_id" binding:"required"`
		ProofURL   string `json:"proof_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	completion, err := h.obligations.SubmitCompletion(taskID, req.AssigneeID, req.ProofURL)
	if err != nil {
		h.serviceError(c, err, "Failed to submit completion")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"completion": completion})
}

// PendingCompletions returns submissions awaiting a supervisor's review.
// GET /api/v1/supervisors/:id/completions.
func (h *Handler) PendingCompletions(c *gin.Context) {
	supervisorID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	completions, err := h.obligations.PendingCompletions(supervisorID)
	if err != nil {
		h.serviceError(c, err, "Failed to list pending completions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"completions": completions, "total": len(completions)})
}

// ReviewCompletion approves or rejects a pending submission.
// POST /api/v1/completions/:id/review.
func (h *Handler) ReviewCompletion(c *gin.Context) {
	completionID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		ReviewerID    uint `json:"reviewer_id" binding:"required"`
		Approve       bool `json:"approve"`
		ResetDeadline bool `json:"reset_deadline"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	awarded, err := h.reviews.ReviewCompletion(completionID, req.ReviewerID, req.Approve, req.ResetDeadline)
	if err != nil {
		h.serviceError(c, err, "Failed to review completion")
		return
	}

	c.JSON(http.StatusOK, gin.H{"approved": req.Approve, "points_awarded": awarded})
}

// CreateReward adds a catalog reward.
// POST /api/v1/rewards.
func (h *Handler) CreateReward(c *gin.Context) {
	var req struct {
		SupervisorID uint   `json:"supervisor_id" binding:"required"`
		Title        string `json:"title" binding:"required"`
		Description  string `json:"description"`
		PointCost    int    `json:"point_cost"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	reward, err := h.obligations.CreateReward(req.SupervisorID, req.Title, req.Description, req.PointCost)
	if err != nil {
		h.serviceError(c, err, "Failed to create reward")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"reward": reward})
}

// ListRewards returns a supervisor's reward catalog.
// GET /api/v1/supervisors/:id/rewards.
func (h *Handler) ListRewards(c *gin.Context) {
	supervisorID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	rewards, err := h.obligations.ListRewards(supervisorID)
	if err != nil {
		h.serviceError(c, err, "Failed to list rewards")
		return
	}

	c.JSON(http.StatusOK, gin.H{"rewards": rewards, "total": len(rewards)})
}

// DeleteReward removes a catalog reward.
// DELETE /api/v1/rewards/:id?supervisor_id=N.
func (h *Handler) DeleteReward(c *gin.Context) {
	rewardID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	supervisorID, err := h.parseQueryID(c, "supervisor_id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.obligations.DeleteReward(rewardID, supervisorID); err != nil {
		h.serviceError(c, err, "Failed to delete reward")
		return
	}

	c.Status(http.StatusNoContent)
}

// CreatePunishment adds a catalog punishment.
// POST /api/v1/punishments.
func (h *Handler) CreatePunishment(c *gin.Context) {
	var req struct {
		SupervisorID uint   `json:"supervisor_id" binding:"required"`
		Title        string `json:"title" binding:"required"`
		Description  string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	punishment, err := h.obligations.CreatePunishment(req.SupervisorID, req.Title, req.Description)
	if err != nil {
		h.serviceError(c, err, "Failed to create punishment")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"punishment": punishment})
}

// ListPunishments returns a supervisor's punishment catalog.
// GET /api/v1/supervisors/:id/punishments.
func (h *Handler) ListPunishments(c *gin.Context) {
	supervisorID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	punishments, err := h.obligations.ListPunishments(supervisorID)
	if err != nil {
		h.serviceError(c, err, "Failed to list punishments")
		return
	}

	c.JSON(http.StatusOK, gin.H{"punishments": punishments, "total": len(punishments)})
}

// DeletePunishment removes a catalog punishment.
// DELETE /api/v1/punishments/:id?supervisor_id=N.
func (h *Handler) DeletePunishment(c *gin.Context) {
	punishmentID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	supervisorID, err := h.parseQueryID(c, "supervisor_id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.obligations.DeletePunishment(punishmentID, supervisorID); err != nil {
		h.serviceError(c, err, "Failed to delete punishment")
		return
	}

	c.Status(http.StatusNoContent)
}

// AssignReward grants a reward, deducting its cost.
// POST /api/v1/assignments/rewards.
func (h *Handler) AssignReward(c *gin.Context) {
	var req struct {
		SupervisorID uint   `json:"supervisor_id" binding:"required"`
		AssigneeID   uint   `json:"assignee_id" binding:"required"`
		RewardID     uint   `json:"reward_id" binding:"required"`
		Reason       string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	assignment, err := h.obligations.AssignReward(req.SupervisorID, req.AssigneeID, req.RewardID, req.Reason)
	if err != nil {
		h.serviceError(c, err, "Failed to assign reward")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"assignment": assignment})
}

// AssignPunishment creates a punishment assignment.
// POST /api/v1/assignments/punishments.
func (h *Handler) AssignPunishment(c *gin.Context) {
	var req struct {
		SupervisorID    uint       `json:"supervisor_id" binding:"required"`
		AssigneeID      uint       `json:"assignee_id" binding:"required"`
		PunishmentID    uint       `json:"punishment_id" binding:"required"`
		Reason          string     `json:"reason"`
		Deadline        *time.Time `json:"deadline"`
		Penalty         int        `json:"penalty"`
		ForwardTo       string     `json:"forward_to"`
		ReminderMinutes int        `json:"reminder_minutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	assignment, err := h.obligations.AssignPunishment(obligation.AssignPunishmentParams{
		SupervisorID:    req.SupervisorID,
		AssigneeID:      req.AssigneeID,
		PunishmentID:    req.PunishmentID,
		Reason:          req.Reason,
		Deadline:        req.Deadline,
		Penalty:         req.Penalty,
		ForwardTo:       req.ForwardTo,
		ReminderMinutes: req.ReminderMinutes,
	})
	if err != nil {
		h.serviceError(c, err, "Failed to assign punishment")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"assignment": assignment})
}

// ListAssignments returns an assignee's recent assignments.
// GET /api/v1/users/:id/assignments?type=punishment.
func (h *Handler) ListAssignments(c *gin.Context) {
	assigneeID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	assignments, err := h.obligations.ListAssignments(assigneeID, c.Query("type"))
	if err != nil {
		h.serviceError(c, err, "Failed to list assignments")
		return
	}

	c.JSON(http.StatusOK, gin.H{"assignments": assignments, "total": len(assignments)})
}

// SubmitProof attaches proof to a punishment assignment.
// POST /api/v1/assignments/:id/proof.
func (h *Handler) SubmitProof(c *gin.Context) {
	assignmentID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		AssigneeID uint   `json:"assignee_id" binding:"required"`
		ProofURL   string `json:"proof_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.reviews.SubmitProof(assignmentID, req.AssigneeID, req.ProofURL); err != nil {
		h.serviceError(c, err, "Failed to submit proof")
		return
	}

	c.JSON(http.StatusOK, gin.H{"submitted": true})
}

// ReviewProof approves or rejects a submitted proof.
// POST /api/v1/assignments/:id/review.
func (h *Handler) ReviewProof(c *gin.Context) {
	assignmentID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		ReviewerID uint `json:"reviewer_id" binding:"required"`
		Approve    bool `json:"approve"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.reviews.ReviewProof(assignmentID, req.ReviewerID, req.Approve); err != nil {
		h.serviceError(c, err, "Failed to review proof")
		return
	}

	c.JSON(http.StatusOK, gin.H{"approved": req.Approve})
}

// CancelAssignment cancels a punishment assignment, settling as an approval.
// POST /api/v1/assignments/:id/cancel.
func (h *Handler) CancelAssignment(c *gin.Context) {
	assignmentID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		SupervisorID uint `json:"supervisor_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.reviews.Cancel(assignmentID, req.SupervisorID); err != nil {
		h.serviceError(c, err, "Failed to cancel assignment")
		return
	}

	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// CreateThreshold adds a standing point-threshold rule.
// POST /api/v1/thresholds.
func (h *Handler) CreateThreshold(c *gin.Context) {
	var req struct {
		SupervisorID    uint  `json:"supervisor_id" binding:"required"`
		AssigneeID      *uint `json:"assignee_id"`
		ThresholdPoints int   `json:"threshold_points"`
		PunishmentID    int   `json:"punishment_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	threshold, err := h.obligations.CreateThreshold(req.SupervisorID, req.AssigneeID, req.ThresholdPoints, req.PunishmentID)
	if err != nil {
		h.serviceError(c, err, "Failed to create threshold")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"threshold": threshold})
}

// ListThresholds returns a supervisor's threshold rules.
// GET /api/v1/supervisors/:id/thresholds.
func (h *Handler) ListThresholds(c *gin.Context) {
	supervisorID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	thresholds, err := h.obligations.ListThresholds(supervisorID)
	if err != nil {
		h.serviceError(c, err, "Failed to list thresholds")
		return
	}

	c.JSON(http.StatusOK, gin.H{"thresholds": thresholds, "total": len(thresholds)})
}

// DeleteThreshold removes a threshold rule.
// DELETE /api/v1/thresholds/:id?supervisor_id=N.
func (h *Handler) DeleteThreshold(c *gin.Context) {
	thresholdID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	supervisorID, err := h.parseQueryID(c, "supervisor_id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.obligations.DeleteThreshold(thresholdID, supervisorID); err != nil {
		h.serviceError(c, err, "Failed to delete threshold")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetStats returns an assignee's completion aggregates.
// GET /api/v1/users/:id/stats?days=7.
func (h *Handler) GetStats(c *gin.Context) {
	assigneeID, err := h.parseID(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	days := 7
	if daysStr := c.Query("days"); daysStr != "" {
		days, err = strconv.Atoi(daysStr)
		if err != nil || days < 1 {
			h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid days parameter: %s", daysStr))
			return
		}
	}

	stats, err := h.obligations.Stats(assigneeID, days)
	if err != nil {
		h.serviceError(c, err, "Failed to get stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":        stats,
		"window_days":  days,
		"generated_at": time.Now().UTC(),
	})
}

// Helper functions

// parseID extracts and validates a numeric URL parameter.
func (h *Handler) parseID(c *gin.Context, name string) (uint, error) {
	idStr := c.Param(name)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", name, idStr)
	}
	return uint(id), nil
}

// parseQueryID extracts and validates a numeric query parameter.
func (h *Handler) parseQueryID(c *gin.Context, name string) (uint, error) {
	idStr := c.Query(name)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", name, idStr)
	}
	return uint(id), nil
}

// serviceError maps service error kinds to HTTP responses.
func (h *Handler) serviceError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, taskerr.ErrNotFound):
		h.errorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, taskerr.ErrUnauthorized):
		h.errorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, taskerr.ErrAlreadyReviewed),
		errors.Is(err, taskerr.ErrDuplicateRegistration),
		errors.Is(err, taskerr.ErrDuplicateRelationship),
		errors.Is(err, taskerr.ErrDuplicateTitle),
		errors.Is(err, taskerr.ErrPendingCompletion),
		errors.Is(err, taskerr.ErrInsufficientPoints):
		h.errorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, taskerr.ErrInvalidRecurrenceRule),
		errors.Is(err, taskerr.ErrInvalidTimezone):
		h.errorResponse(c, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg(logMsg)
		h.errorResponse(c, http.StatusInternalServerError, logMsg)
	}
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
