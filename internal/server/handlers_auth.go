package server

import (
	"errors"
	"net/http"

	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const bearerTokenType = "bearer"

type googleAuthRequestPayload struct {
	GoogleToken string `json:"google_token" binding:"required"`
}

type refreshRequestPayload struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type tokenResponsePayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type authResponsePayload struct {
	tokenResponsePayload
	User *users.User `json:"user"`
}

func newTokenResponse(pair auth.TokenPair) tokenResponsePayload {
	return tokenResponsePayload{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    bearerTokenType,
	}
}

func (h *httpHandler) handleGoogleAuth(c *gin.Context) {
	var request googleAuthRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		abortWithDetail(c, http.StatusBadRequest, "google_token is required")
		return
	}

	result, err := h.authenticator.Login(c.Request.Context(), request.GoogleToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingSubject):
			abortWithDetail(c, http.StatusBadRequest, "Google token missing subject")
		case errors.Is(err, auth.ErrMissingEmail):
			abortWithDetail(c, http.StatusBadRequest, "Google token missing email")
		case errors.Is(err, auth.ErrEmailConflict):
			abortWithDetail(c, http.StatusConflict, "Email already registered to another account")
		case errors.Is(err, auth.ErrAudienceMismatch):
			h.logger.Warn("google token verification failed", zap.Error(err))
			abortWithDetail(c, http.StatusUnauthorized, "Token audience mismatch")
		case errors.Is(err, auth.ErrInvalidAssertion):
			h.logger.Warn("google token verification failed", zap.Error(err))
			abortWithDetail(c, http.StatusUnauthorized, "Invalid Google token")
		default:
			h.respondInternal(c, "google sign-in failed", err)
		}
		return
	}

	c.JSON(http.StatusOK, authResponsePayload{
		tokenResponsePayload: newTokenResponse(result.Tokens),
		User:                 result.User,
	})
}

func (h *httpHandler) handleRefresh(c *gin.Context) {
	var request refreshRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		abortWithDetail(c, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := h.authenticator.Refresh(c.Request.Context(), request.RefreshToken)
	if err != nil {
		if auth.IsAuthenticationFailure(err) {
			h.logger.Info("refresh rejected", zap.Error(err))
			abortWithDetail(c, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		h.respondInternal(c, "token refresh failed", err)
		return
	}
	c.JSON(http.StatusOK, newTokenResponse(pair))
}
