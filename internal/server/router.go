package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/admin"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/complaints"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/meals"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/metrics"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/subscriptions"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	currentUserContextKey = "vitalplate_user"
	requestIDContextKey   = "vitalplate_request_id"
	requestIDHeader       = "X-Request-ID"
	defaultAllowedOrigin  = "http://localhost:3000"

	detailInvalidCredentials = "Could not validate credentials"
	detailAdminRequired      = "Admin access required"
	detailInternal           = "Internal server error"
)

var (
	errMissingAuthenticator = errors.New("authenticator dependency required")
	errMissingServices      = errors.New("users, meals, subscriptions, complaints and admin services are required")
)

// SessionAuthenticator is the authentication flow the router delegates to.
type SessionAuthenticator interface {
	Login(ctx context.Context, assertion string) (auth.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	ResolveIdentity(ctx context.Context, accessToken string) (*users.User, error)
}

// Dependencies collects everything the HTTP layer needs.
type Dependencies struct {
	Authenticator  SessionAuthenticator
	Users          *users.Service
	Meals          *meals.Service
	Subscriptions  *subscriptions.Service
	Complaints     *complaints.Service
	Admin          *admin.Service
	Metrics        *metrics.Metrics
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewHTTPHandler builds the gin engine with every route registered.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Authenticator == nil {
		return nil, errMissingAuthenticator
	}
	if deps.Users == nil || deps.Meals == nil || deps.Subscriptions == nil || deps.Complaints == nil || deps.Admin == nil {
		return nil, errMissingServices
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	collectors := deps.Metrics
	if collectors == nil {
		collectors = metrics.New()
	}

	handler := &httpHandler{
		authenticator: deps.Authenticator,
		users:         deps.Users,
		meals:         deps.Meals,
		subscriptions: deps.Subscriptions,
		complaints:    deps.Complaints,
		admin:         deps.Admin,
		metrics:       collectors,
		logger:        logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.observeRequest)
	router.Use(corsMiddleware(deps.AllowedOrigins))

	router.GET("/", handler.handleRoot)
	router.GET("/health", handler.handleHealth)
	router.GET("/metrics", gin.WrapH(collectors.Handler()))

	api := router.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.POST("/google", handler.handleGoogleAuth)
	authRoutes.POST("/refresh", handler.handleRefresh)
	authRoutes.GET("/me", handler.authorizeRequest, handler.handleProfile)

	api.GET("/subscriptions/plans", handler.handleListPlans)

	protected := api.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.GET("/users/profile", handler.handleProfile)
	protected.PUT("/users/profile", handler.handleUpdateProfile)
	protected.POST("/users/quiz", handler.handleQuiz)
	protected.GET("/meals/today", handler.handleTodayMeals)
	protected.GET("/meals/upcoming", handler.handleUpcomingMeals)
	protected.POST("/meals/:id/confirm-delivery", handler.handleConfirmDelivery)
	protected.POST("/subscriptions/subscribe", handler.handleSubscribe)
	protected.GET("/subscriptions/current", handler.handleCurrentSubscription)
	protected.GET("/subscriptions/payments", handler.handlePayments)
	protected.POST("/complaints", handler.handleSubmitComplaint)
	protected.GET("/complaints", handler.handleListComplaints)

	adminRoutes := api.Group("/admin")
	adminRoutes.Use(handler.authorizeRequest, handler.requireAdmin)
	adminRoutes.GET("/dashboard", handler.handleDashboard)
	adminRoutes.GET("/customers", handler.handleCustomers)
	adminRoutes.GET("/meals", handler.handleListMeals)
	adminRoutes.POST("/meals", handler.handleCreateMeal)
	adminRoutes.PUT("/meals/:id", handler.handleUpdateMeal)
	adminRoutes.POST("/assignments", handler.handleCreateAssignment)
	adminRoutes.GET("/complaints", handler.handleListAllComplaints)
	adminRoutes.PUT("/complaints/:id/resolve", handler.handleResolveComplaint)

	return router, nil
}

type httpHandler struct {
	authenticator SessionAuthenticator
	users         *users.Service
	meals         *meals.Service
	subscriptions *subscriptions.Service
	complaints    *complaints.Service
	admin         *admin.Service
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		origins = []string{defaultAllowedOrigin}
	}
	allowed := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin == "*" {
			config.AllowAllOrigins = true
			config.AllowCredentials = false
			allowed = nil
			break
		}
		allowed = append(allowed, origin)
	}
	if !config.AllowAllOrigins {
		config.AllowOrigins = allowed
	}
	return cors.New(config)
}

// observeRequest assigns the request id, then records the access log line
// and request metrics once the handler chain has finished.
func (h *httpHandler) observeRequest(c *gin.Context) {
	start := time.Now()
	requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	c.Header(requestIDHeader, requestID)

	c.Next()

	status := c.Writer.Status()
	h.metrics.ObserveRequest(c.Request.Method, c.FullPath(), status, start)
	h.logger.Info("http request",
		zap.String("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", status),
		zap.Duration("latency", time.Since(start)),
	)
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		abortWithDetail(c, http.StatusUnauthorized, detailInvalidCredentials)
		return
	}
	user, err := h.authenticator.ResolveIdentity(c.Request.Context(), token)
	if err != nil {
		fields := []zap.Field{zap.String("request_id", c.GetString(requestIDContextKey)), zap.Error(err)}
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			h.logger.Info("token validation failed", fields...)
		case auth.IsAuthenticationFailure(err):
			h.logger.Warn("token validation failed", fields...)
		default:
			h.logger.Error("identity lookup failed", fields...)
			abortWithDetail(c, http.StatusInternalServerError, detailInternal)
			return
		}
		abortWithDetail(c, http.StatusUnauthorized, detailInvalidCredentials)
		return
	}
	c.Set(currentUserContextKey, user)
	c.Next()
}

func (h *httpHandler) requireAdmin(c *gin.Context) {
	if _, err := auth.RequireAdmin(currentUser(c)); err != nil {
		abortWithDetail(c, http.StatusForbidden, detailAdminRequired)
		return
	}
	c.Next()
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func currentUser(c *gin.Context) *users.User {
	value, exists := c.Get(currentUserContextKey)
	if !exists {
		return nil
	}
	user, _ := value.(*users.User)
	return user
}

func abortWithDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// respondInternal logs an unexpected failure and answers 500.
func (h *httpHandler) respondInternal(c *gin.Context, message string, err error) {
	h.logger.Error(message,
		zap.String("request_id", c.GetString(requestIDContextKey)),
		zap.Error(err),
	)
	abortWithDetail(c, http.StatusInternalServerError, detailInternal)
}

func (h *httpHandler) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Meal Personalization API is running"})
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
