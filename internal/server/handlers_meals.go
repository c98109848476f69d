package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/meals"
	"github.com/gin-gonic/gin"
)

type assignmentPayload struct {
	ID             uint       `json:"id"`
	UserID         uint       `json:"user_id"`
	Meal           meals.Meal `json:"meal"`
	AssignmentDate string     `json:"assignment_date"`
	DeliveryStatus string     `json:"delivery_status"`
	DeliveredAt    *time.Time `json:"delivered_at"`
}

type createAssignmentRequestPayload struct {
	UserID         uint   `json:"user_id" binding:"required"`
	MealID         uint   `json:"meal_id" binding:"required"`
	AssignmentDate string `json:"assignment_date" binding:"required"`
}

func newAssignmentPayload(assignment meals.Assignment) assignmentPayload {
	return assignmentPayload{
		ID:             assignment.ID,
		UserID:         assignment.UserID,
		Meal:           assignment.Meal,
		AssignmentDate: assignment.Day(),
		DeliveryStatus: assignment.DeliveryStatus,
		DeliveredAt:    assignment.DeliveredAt,
	}
}

func newAssignmentPayloads(rows []meals.Assignment) []assignmentPayload {
	payloads := make([]assignmentPayload, 0, len(rows))
	for _, row := range rows {
		payloads = append(payloads, newAssignmentPayload(row))
	}
	return payloads
}

// pathID parses a positive numeric path parameter.
func pathID(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || value == 0 {
		abortWithDetail(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(value), true
}

func (h *httpHandler) handleTodayMeals(c *gin.Context) {
	rows, err := h.meals.TodayFor(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondInternal(c, "loading today's meals failed", err)
		return
	}
	c.JSON(http.StatusOK, newAssignmentPayloads(rows))
}

func (h *httpHandler) handleUpcomingMeals(c *gin.Context) {
	days := meals.DefaultUpcomingDays
	if raw, present := c.GetQuery("days"); present {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			abortWithDetail(c, http.StatusBadRequest, meals.ErrInvalidDayRange.Error())
			return
		}
		days = parsed
	}
	rows, err := h.meals.UpcomingFor(c.Request.Context(), currentUser(c).ID, days)
	if errors.Is(err, meals.ErrInvalidDayRange) {
		abortWithDetail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.respondInternal(c, "loading upcoming meals failed", err)
		return
	}
	c.JSON(http.StatusOK, newAssignmentPayloads(rows))
}

func (h *httpHandler) handleConfirmDelivery(c *gin.Context) {
	assignmentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	err := h.meals.ConfirmDelivery(c.Request.Context(), currentUser(c).ID, assignmentID)
	if errors.Is(err, meals.ErrAssignmentNotFound) {
		abortWithDetail(c, http.StatusNotFound, "Assignment not found")
		return
	}
	if err != nil {
		h.respondInternal(c, "confirming delivery failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Delivery confirmed"})
}

func (h *httpHandler) handleListMeals(c *gin.Context) {
	rows, err := h.meals.ListMeals(c.Request.Context())
	if err != nil {
		h.respondInternal(c, "listing meals failed", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *httpHandler) handleCreateMeal(c *gin.Context) {
	var request meals.NewMeal
	if err := c.ShouldBindJSON(&request); err != nil {
		abortWithDetail(c, http.StatusBadRequest, err.Error())
		return
	}
	meal, err := h.meals.CreateMeal(c.Request.Context(), request)
	if err != nil {
		h.respondInternal(c, "creating meal failed", err)
		return
	}
	c.JSON(http.StatusCreated, meal)
}

func (h *httpHandler) handleUpdateMeal(c *gin.Context) {
	mealID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var update meals.MealUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		abortWithDetail(c, http.StatusBadRequest, err.Error())
		return
	}
	meal, err := h.meals.UpdateMeal(c.Request.Context(), mealID, update)
	if errors.Is(err, meals.ErrMealNotFound) {
		abortWithDetail(c, http.StatusNotFound, "Meal not found")
		return
	}
	if err != nil {
		h.respondInternal(c, "updating meal failed", err)
		return
	}
	c.JSON(http.StatusOK, meal)
}

func (h *httpHandler) handleCreateAssignment(c *gin.Context) {
	var request createAssignmentRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		abortWithDetail(c, http.StatusBadRequest, err.Error())
		return
	}
	day, err := meals.ParseDay(request.AssignmentDate)
	if err != nil {
		abortWithDetail(c, http.StatusBadRequest, "assignment_date must be YYYY-MM-DD")
		return
	}
	assignment, err := h.meals.AssignMeal(c.Request.Context(), request.UserID, request.MealID, day)
	if errors.Is(err, meals.ErrMealNotFound) {
		abortWithDetail(c, http.StatusNotFound, "Meal not found")
		return
	}
	if err != nil {
		h.respondInternal(c, "creating assignment failed", err)
		return
	}
	c.JSON(http.StatusCreated, newAssignmentPayload(*assignment))
}
