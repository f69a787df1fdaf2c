package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "centavo/internal/errors"
	"centavo/internal/pagination"
	"centavo/internal/services"
)

// GoalHandler handles savings-goal requests.
type GoalHandler struct {
	goalService services.GoalServicer
}

// NewGoalHandler creates a new GoalHandler.
func NewGoalHandler(goalService services.GoalServicer) *GoalHandler {
	return &GoalHandler{goalService: goalService}
}

// CreateGoalRequest represents the request payload for creating a savings goal.
// AccountID links the goal to an account whose balance it mirrors.
type CreateGoalRequest struct {
	Name            string  `json:"name" binding:"required,min=1,max=100"`
	Description     string  `json:"description" binding:"max=500"`
	TargetBaseMinor int64   `json:"target_base_minor" binding:"required,gt=0"`
	TargetDate      *string `json:"target_date"`
	AccountID       *string `json:"account_id" binding:"omitempty,uuid"`
}

// UpdateGoalRequest represents the request payload for updating a goal
type UpdateGoalRequest struct {
	Name            *string `json:"name" binding:"omitempty,min=1,max=100"`
	TargetBaseMinor *int64  `json:"target_base_minor" binding:"omitempty,gt=0"`
	TargetDate      *string `json:"target_date"`
	IsActive        *bool   `json:"is_active"`
}

// ContributionRequest represents a manual contribution or withdrawal.
type ContributionRequest struct {
	AmountBaseMinor int64 `json:"amount_base_minor" binding:"required,gt=0"`
}

// CreateGoal handles the creation of a new savings goal
// @Summary     Create a savings goal
// @Description Create a savings goal, optionally linked to an account whose balance it mirrors
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateGoalRequest true "Goal details"
// @Success     201 {object} models.SavingsGoal "Goal created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Linked account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals [post]
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	input := services.CreateGoalInput{
		Name:            req.Name,
		Description:     req.Description,
		TargetBaseMinor: req.TargetBaseMinor,
		AccountID:       req.AccountID,
	}
	if req.TargetDate != nil {
		date, err := parseDate(*req.TargetDate)
		if err != nil {
			respondWithError(c, err)
			return
		}
		input.TargetDate = &date
	}

	goal, err := h.goalService.CreateGoal(userID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"goal": goal})
}

// GetUserGoals handles the retrieval of goals for a user
// @Summary     Get user goals
// @Description Get a paginated list of savings goals for the authenticated user
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.SavingsGoal] "Paginated goals"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals [get]
func (h *GoalHandler) GetUserGoals(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.goalService.GetUserGoals(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetGoalWithProgress handles the retrieval of one goal with progress
// @Summary     Get goal progress
// @Description Get a goal with derived progress, pace and suggested monthly contribution
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} services.GoalProgress "Goal with progress"
// @Failure     400 {object} ErrorResponse "Invalid goal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id} [get]
func (h *GoalHandler) GetGoalWithProgress(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	progress, err := h.goalService.GetGoalWithProgress(userID, goalID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goal": progress})
}

// AddContribution handles a manual contribution to a goal
// @Summary     Contribute to a goal
// @Description Add a manual contribution to an unlinked savings goal
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Param       request body ContributionRequest true "Contribution amount"
// @Success     200 {object} models.SavingsGoal "Updated goal"
// @Failure     400 {object} ErrorResponse "Invalid input or linked goal"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id}/contribute [post]
func (h *GoalHandler) AddContribution(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	goal, err := h.goalService.AddContribution(userID, goalID, req.AmountBaseMinor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// RemoveContribution handles a manual withdrawal from a goal
// @Summary     Withdraw from a goal
// @Description Remove a manual contribution from an unlinked savings goal
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Param       request body ContributionRequest true "Withdrawal amount"
// @Success     200 {object} models.SavingsGoal "Updated goal"
// @Failure     400 {object} ErrorResponse "Invalid input, linked goal, or withdrawal over saved amount"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id}/withdraw [post]
func (h *GoalHandler) RemoveContribution(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	goal, err := h.goalService.RemoveContribution(userID, goalID, req.AmountBaseMinor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// SyncLinkedGoals handles re-syncing linked goals from account balances
// @Summary     Sync linked goals
// @Description Refresh every linked goal's saved amount from its account balance
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]int "Number of goals updated"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/sync [post]
func (h *GoalHandler) SyncLinkedGoals(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	updated, err := h.goalService.SyncLinkedGoals(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// GetGoalsSummary handles the goals summary aggregation
// @Summary     Get goals summary
// @Description Get totals and average progress across all active goals
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.GoalsSummary "Goals summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/summary [get]
func (h *GoalHandler) GetGoalsSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.goalService.GetGoalsSummary(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// GetGoalsNearingDeadline handles the nearing-deadline listing
// @Summary     Get goals nearing deadline
// @Description Get unfinished goals whose target date falls within the given number of days (default 30)
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       days query int false "Window in days"
// @Success     200 {array} services.GoalProgress "Goals nearing their deadline"
// @Failure     400 {object} ErrorResponse "Invalid days"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/deadlines [get]
func (h *GoalHandler) GetGoalsNearingDeadline(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	days := 30
	if v := c.Query("days"); v != "" {
		days, err = strconv.Atoi(v)
		if err != nil || days <= 0 {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid days"))
			return
		}
	}

	goals, err := h.goalService.GetGoalsNearingDeadline(userID, days)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goals": goals})
}

// UpdateGoal handles updating a goal
// @Summary     Update goal
// @Description Update a goal's name, target, deadline or active flag
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Param       request body UpdateGoalRequest true "Updated goal fields"
// @Success     200 {object} models.SavingsGoal "Updated goal"
// @Failure     400 {object} ErrorResponse "Invalid input or goal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id} [put]
func (h *GoalHandler) UpdateGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var targetDate *time.Time
	if req.TargetDate != nil {
		date, err := parseDate(*req.TargetDate)
		if err != nil {
			respondWithError(c, err)
			return
		}
		targetDate = &date
	}

	goal, err := h.goalService.UpdateGoal(userID, goalID, req.Name, req.TargetBaseMinor, targetDate, req.IsActive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// DeleteGoal handles deleting a goal
// @Summary     Delete goal
// @Description Delete a savings goal
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     204 "Goal deleted"
// @Failure     400 {object} ErrorResponse "Invalid goal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id} [delete]
func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.goalService.DeleteGoal(userID, goalID); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
