package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/subscriptions"
	"github.com/gin-gonic/gin"
)

const dayLayout = "2006-01-02"

type subscribeRequestPayload struct {
	PlanID uint `json:"plan_id" binding:"required"`
}

type subscriptionPayload struct {
	ID        uint               `json:"id"`
	UserID    uint               `json:"user_id"`
	Plan      subscriptions.Plan `json:"plan"`
	StartDate string             `json:"start_date"`
	EndDate   string             `json:"end_date"`
	Status    string             `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}

func newSubscriptionPayload(subscription *subscriptions.Subscription) *subscriptionPayload {
	if subscription == nil {
		return nil
	}
	return &subscriptionPayload{
		ID:        subscription.ID,
		UserID:    subscription.UserID,
		Plan:      subscription.Plan,
		StartDate: subscription.StartDate.UTC().Format(dayLayout),
		EndDate:   subscription.EndDate.UTC().Format(dayLayout),
		Status:    subscription.Status,
		CreatedAt: subscription.CreatedAt,
	}
}

func (h *httpHandler) handleListPlans(c *gin.Context) {
	plans, err := h.subscriptions.ListActivePlans(c.Request.Context())
	if err != nil {
		h.respondInternal(c, "listing plans failed", err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

func (h *httpHandler) handleSubscribe(c *gin.Context) {
	var request subscribeRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		abortWithDetail(c, http.StatusBadRequest, err.Error())
		return
	}
	subscription, err := h.subscriptions.Subscribe(c.Request.Context(), currentUser(c).ID, request.PlanID)
	if errors.Is(err, subscriptions.ErrPlanNotFound) {
		abortWithDetail(c, http.StatusNotFound, "Plan not found")
		return
	}
	if err != nil {
		h.respondInternal(c, "subscribing failed", err)
		return
	}
	c.JSON(http.StatusOK, newSubscriptionPayload(subscription))
}

func (h *httpHandler) handleCurrentSubscription(c *gin.Context) {
	subscription, err := h.subscriptions.Current(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondInternal(c, "loading current subscription failed", err)
		return
	}
	c.JSON(http.StatusOK, newSubscriptionPayload(subscription))
}

func (h *httpHandler) handlePayments(c *gin.Context) {
	payments, err := h.subscriptions.PaymentsFor(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondInternal(c, "listing payments failed", err)
		return
	}
	c.JSON(http.StatusOK, payments)
}
