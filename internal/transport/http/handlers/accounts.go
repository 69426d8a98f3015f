package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pvolkov/accounts-service/internal/core/domain"
	"github.com/pvolkov/accounts-service/internal/infra/security"
	"github.com/pvolkov/accounts-service/internal/transport/http/middleware"
	"github.com/pvolkov/accounts-service/internal/usecase"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// AccountHandler exposes the account lifecycle endpoints.
type AccountHandler struct {
	accounts *usecase.AccountService
}

// NewAccountHandler constructs AccountHandler.
func NewAccountHandler(accounts *usecase.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// RegisterRoutes binds account routes. Creation is open for self-registration;
// reads and profile updates require a session; listing and lifecycle
// transitions are restricted to administrators.
func (h *AccountHandler) RegisterRoutes(r *gin.RouterGroup, authOptional, authRequired, adminRequired gin.HandlerFunc) {
	r.POST("", authOptional, h.create)
	r.GET("/:id", authRequired, h.get)
	r.PATCH("/:id", authRequired, h.update)

	r.GET("", authRequired, adminRequired, h.list)
	r.GET("/deleted", authRequired, adminRequired, h.listDeleted)
	r.GET("/blocked", authRequired, adminRequired, h.listBlocked)
	r.DELETE("/:id", authRequired, adminRequired, h.softDelete)
	r.POST("/:id/restore", authRequired, adminRequired, h.restore)
	r.POST("/:id/block", authRequired, adminRequired, h.block)
	r.POST("/:id/unblock", authRequired, adminRequired, h.unblock)
}

func (h *AccountHandler) create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid account payload"))
		return
	}

	actor := actorFromContext(c)

	role := domain.RoleUser
	if req.Role != "" {
		if !isAdmin(c) {
			c.JSON(http.StatusForbidden, NewErrorResponse(c, "only administrators can assign roles"))
			return
		}
		role = domain.Role(req.Role)
	}

	input := usecase.CreateInput{
		Email:    req.Email,
		Name:     strings.TrimSpace(req.Name),
		Surname:  strings.TrimSpace(req.Surname),
		Age:      req.Age,
		Role:     role,
		Password: req.Password,
	}

	if req.BirthDate != "" {
		birth, err := time.Parse("2006-01-02", req.BirthDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "birth_date must be formatted as YYYY-MM-DD"))
			return
		}
		input.BirthDate = birth
	}

	account, err := h.accounts.Create(c.Request.Context(), input, actor)
	if err != nil {
		h.respondAccountError(c, err, "failed to create account")
		return
	}

	c.JSON(http.StatusCreated, newAccountSummary(account))
}

func (h *AccountHandler) get(c *gin.Context) {
	id := c.Param("id")
	if !h.canAccess(c, id) {
		return
	}

	account, err := h.accounts.GetAccount(c.Request.Context(), id)
	if err != nil {
		h.respondAccountError(c, err, "failed to load account")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(account))
}

func (h *AccountHandler) update(c *gin.Context) {
	id := c.Param("id")
	if !h.canAccess(c, id) {
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid account payload"))
		return
	}

	if req.Role != nil && !isAdmin(c) {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "only administrators can change roles"))
		return
	}

	patch := domain.ProfilePatch{
		Email:    req.Email,
		Name:     req.Name,
		Surname:  req.Surname,
		Age:      req.Age,
		Password: req.Password,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		patch.Role = &role
	}
	if req.BirthDate != nil {
		birth, err := time.Parse("2006-01-02", *req.BirthDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "birth_date must be formatted as YYYY-MM-DD"))
			return
		}
		patch.BirthDate = &birth
	}

	account, err := h.accounts.Update(c.Request.Context(), id, patch, actorFromContext(c))
	if err != nil {
		h.respondAccountError(c, err, "failed to update account")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(account))
}

func (h *AccountHandler) softDelete(c *gin.Context) {
	if err := h.accounts.SoftDelete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		h.respondAccountError(c, err, "failed to delete account")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AccountHandler) restore(c *gin.Context) {
	account, err := h.accounts.Restore(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		h.respondAccountError(c, err, "failed to restore account")
		return
	}
	c.JSON(http.StatusOK, newAccountSummary(account))
}

func (h *AccountHandler) block(c *gin.Context) {
	account, err := h.accounts.Block(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		h.respondAccountError(c, err, "failed to block account")
		return
	}
	c.JSON(http.StatusOK, newAccountSummary(account))
}

func (h *AccountHandler) unblock(c *gin.Context) {
	account, err := h.accounts.Unblock(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		h.respondAccountError(c, err, "failed to unblock account")
		return
	}
	c.JSON(http.StatusOK, newAccountSummary(account))
}

func (h *AccountHandler) list(c *gin.Context) {
	h.respondList(c, h.accounts.ListAccounts)
}

func (h *AccountHandler) listDeleted(c *gin.Context) {
	h.respondList(c, h.accounts.ListDeleted)
}

func (h *AccountHandler) listBlocked(c *gin.Context) {
	h.respondList(c, h.accounts.ListBlocked)
}

func (h *AccountHandler) respondList(c *gin.Context, load func(ctx context.Context, limit, offset int) ([]domain.Account, error)) {
	limit, offset := pagination(c)

	accounts, err := load(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list accounts"))
		return
	}

	summaries := make([]AccountSummary, 0, len(accounts))
	for _, account := range accounts {
		summaries = append(summaries, newAccountSummary(account))
	}

	c.JSON(http.StatusOK, AccountListResponse{Accounts: summaries, Limit: limit, Offset: offset})
}

func (h *AccountHandler) respondAccountError(c *gin.Context, err error, fallback string) {
	var validation *security.PasswordValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, validation.Message))
		return
	}

	respondMapped(c, err, []errorMapping{
		{sentinel: usecase.ErrAccountNotFound, status: http.StatusNotFound, message: "account not found"},
		{sentinel: usecase.ErrDuplicateEmail, status: http.StatusConflict, message: "email already registered"},
		{sentinel: usecase.ErrInvalidRole, status: http.StatusBadRequest, message: "invalid role"},
	}, http.StatusInternalServerError, fallback)
}

// canAccess permits the account owner and administrators. Everyone else gets
// 404 rather than 403 so account IDs cannot be probed.
func (h *AccountHandler) canAccess(c *gin.Context, id string) bool {
	claims := middleware.GetSessionClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return false
	}
	if claims.AccountID == id || isAdminRole(claims.Role) {
		return true
	}
	c.JSON(http.StatusNotFound, NewErrorResponse(c, "account not found"))
	return false
}

func actorFromContext(c *gin.Context) domain.Actor {
	claims := middleware.GetSessionClaims(c)
	if claims == nil {
		return domain.Actor{}
	}
	return domain.Actor{ID: claims.AccountID, Email: claims.Email}
}

func isAdmin(c *gin.Context) bool {
	claims := middleware.GetSessionClaims(c)
	return claims != nil && isAdminRole(claims.Role)
}

func isAdminRole(role domain.Role) bool {
	return role == domain.RoleAdmin || role == domain.RoleSuperAdmin
}

func pagination(c *gin.Context) (int, int) {
	limit := defaultPageLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	offset := 0
	if raw := c.Query("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}
