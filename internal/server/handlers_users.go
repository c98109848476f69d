package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/users"
	"github.com/gin-gonic/gin"
)

type quizResponsePayload struct {
	Message     string    `json:"message"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func (h *httpHandler) handleProfile(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (h *httpHandler) handleUpdateProfile(c *gin.Context) {
	var update users.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		abortWithDetail(c, http.StatusBadRequest, err.Error())
		return
	}
	user, err := h.users.ApplyProfileUpdate(c.Request.Context(), currentUser(c).ID, update)
	if errors.Is(err, users.ErrUserNotFound) {
		abortWithDetail(c, http.StatusUnauthorized, detailInvalidCredentials)
		return
	}
	if err != nil {
		h.respondInternal(c, "profile update failed", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *httpHandler) handleQuiz(c *gin.Context) {
	var quiz users.QuizSubmission
	if err := c.ShouldBindJSON(&quiz); err != nil {
		abortWithDetail(c, http.StatusBadRequest, err.Error())
		return
	}
	submittedAt, err := h.users.ApplyQuiz(c.Request.Context(), currentUser(c).ID, quiz)
	if errors.Is(err, users.ErrUserNotFound) {
		abortWithDetail(c, http.StatusUnauthorized, detailInvalidCredentials)
		return
	}
	if err != nil {
		h.respondInternal(c, "quiz submission failed", err)
		return
	}
	c.JSON(http.StatusOK, quizResponsePayload{Message: "Quiz submitted successfully", SubmittedAt: submittedAt})
}
