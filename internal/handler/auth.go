package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seminars/internal/config"
	"github.com/iliyamo/seminars/internal/model"
	"github.com/iliyamo/seminars/internal/repository"
	"github.com/iliyamo/seminars/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Username  string `json:"username" validate:"required,max=255"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"max=255"`
	LastName  string `json:"last_name" validate:"max=255"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID       uint64 `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// issue creates a token pair and stores the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u userPart) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.Store(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// Register: create user and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := decode(c, &req); err != nil {
		return failure(c, err, "")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	role := model.RoleFrontEnd
	if h.Cfg.BackEndEmails[req.Email] {
		role = model.RoleBackEnd
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	uid, err := h.Users.Create(ctx, repository.NewUser{
		Username:  strings.TrimSpace(req.Username),
		Email:     req.Email,
		Password:  req.Password,
		Role:      role,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email or username already exists"})
		}
		return failure(c, err, "create user failed")
	}

	resp, err := h.issue(ctx, userPart{ID: uid, Username: req.Username, Email: req.Email, Role: role})
	if err != nil {
		return failure(c, err, "issue tokens failed")
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login: verify and return new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := decode(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return failure(c, err, "query failed")
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	resp, err := h.issue(ctx, userPart{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role})
	if err != nil {
		return failure(c, err, "issue tokens failed")
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh: rotate the presented refresh token and issue a new pair.  A
// token that was already rotated is rejected.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	next, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return failure(c, err, "issue refresh failed")
	}
	userID, err := h.Tokens.Rotate(ctx, hash, utils.HashRefreshRaw(next.Raw), next.Exp, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrTokenInvalid) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return failure(c, err, "rotate refresh failed")
	}

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return failure(c, err, "load user failed")
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return failure(c, err, "issue access failed")
	}
	return c.JSON(http.StatusOK, authResp{
		User:    userPart{ID: userID, Username: u.Username, Email: u.Email, Role: u.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: next.Raw, Expires: next.Exp},
	})
}

// Logout revokes the refresh token given in the body.  Without one, a
// valid bearer token revokes every session of its user.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if raw != "" {
		if err := h.Tokens.Revoke(ctx, utils.HashRefreshRaw(raw)); err != nil {
			return failure(c, err, "revoke failed")
		}
		return c.NoContent(http.StatusNoContent)
	}

	bearer, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token or bearer token required"})
	}
	claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimSpace(bearer))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}
	uid, err := claims.UserID()
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}
	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return failure(c, err, "revoke failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return failure(c, err, "load user failed")
	}
	out := echo.Map{
		"id":         u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"role":       u.Role,
		"name":       u.DisplayName(),
		"created_at": u.CreatedAt,
	}
	if u.Role == model.RoleBackEnd {
		be, err := h.Users.GetBackEndUser(ctx, uid)
		if err != nil {
			return failure(c, err, "load user failed")
		}
		out["folders"] = echo.Map{
			"events":            be.EventsFolder(),
			"registrations":     be.RegistrationsFolder(),
			"auxiliary_records": be.AuxiliaryFolder(),
		}
	}
	return c.JSON(http.StatusOK, out)
}
