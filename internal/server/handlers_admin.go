package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *httpHandler) handleDashboard(c *gin.Context) {
	dashboard, err := h.admin.Dashboard(c.Request.Context())
	if err != nil {
		h.respondInternal(c, "loading dashboard failed", err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (h *httpHandler) handleCustomers(c *gin.Context) {
	customers, err := h.admin.Customers(c.Request.Context())
	if err != nil {
		h.respondInternal(c, "listing customers failed", err)
		return
	}
	c.JSON(http.StatusOK, customers)
}
