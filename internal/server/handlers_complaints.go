package server

import (
	"errors"
	"net/http"

	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/complaints"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/meals"
	"github.com/gin-gonic/gin"
)

func (h *httpHandler) handleSubmitComplaint(c *gin.Context) {
	var submission complaints.Submission
	if err := c.ShouldBindJSON(&submission); err != nil {
		abortWithDetail(c, http.StatusBadRequest, err.Error())
		return
	}
	complaint, err := h.complaints.Submit(c.Request.Context(), currentUser(c).ID, submission)
	if errors.Is(err, meals.ErrAssignmentNotFound) {
		abortWithDetail(c, http.StatusNotFound, "Assignment not found")
		return
	}
	if err != nil {
		h.respondInternal(c, "submitting complaint failed", err)
		return
	}
	c.JSON(http.StatusCreated, complaint)
}

func (h *httpHandler) handleListComplaints(c *gin.Context) {
	rows, err := h.complaints.ListFor(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondInternal(c, "listing complaints failed", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *httpHandler) handleListAllComplaints(c *gin.Context) {
	rows, err := h.complaints.ListAll(c.Request.Context())
	if err != nil {
		h.respondInternal(c, "listing complaints failed", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *httpHandler) handleResolveComplaint(c *gin.Context) {
	complaintID, ok := pathID(c, "id")
	if !ok {
		return
	}
	complaint, err := h.complaints.Resolve(c.Request.Context(), complaintID)
	if errors.Is(err, complaints.ErrComplaintNotFound) {
		abortWithDetail(c, http.StatusNotFound, "Complaint not found")
		return
	}
	if err != nil {
		h.respondInternal(c, "resolving complaint failed", err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}
