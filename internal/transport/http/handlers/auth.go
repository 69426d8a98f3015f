package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pvolkov/accounts-service/internal/usecase"
)

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth *usecase.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes binds authentication routes, applying optional middleware ahead of the login handler.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares ...gin.HandlerFunc) {
	if len(loginMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
		chain = append(chain, h.login)
		r.POST("/login", chain...)
		return
	}
	r.POST("/login", h.login)
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	ip := strings.TrimSpace(c.ClientIP())
	token, account, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, ip)
	if err != nil {
		h.respondLoginError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		Account:     newAccountSummary(account),
	})
}

// respondLoginError maps authentication failures to responses. Unknown,
// deleted, and wrong-password outcomes share one indistinguishable 401 so the
// endpoint cannot be used to enumerate accounts.
func (h *AuthHandler) respondLoginError(c *gin.Context, err error) {
	var locked *usecase.AccountLockedError
	if errors.As(err, &locked) {
		c.JSON(http.StatusForbidden, NewErrorResponse(c,
			fmt.Sprintf("account is locked, try again in %d minutes", locked.RetryAfterMinutes)))
		return
	}

	switch {
	case errors.Is(err, usecase.ErrInvalidCredentials),
		errors.Is(err, usecase.ErrUnknownAccount),
		errors.Is(err, usecase.ErrAccountDeleted):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid credentials"))
	case errors.Is(err, usecase.ErrAccountBlocked):
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "account is blocked"))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "authentication failed"))
	}
}
