package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      Session   `json:"user"`
}

// Handler serves login, session lookup and logout.
type Handler struct {
	dir     *Directory
	tokens  *Tokens
	revoked *Revocations
}

func NewHandler(dir *Directory, tokens *Tokens, revoked *Revocations) *Handler {
	return &Handler{dir: dir, tokens: tokens, revoked: revoked}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/auth")
	g.POST("/login", h.Login)
	g.GET("/session", h.Current)
	g.POST("/logout", h.Logout)
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sess, err := h.dir.Authenticate(req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}
	token, exp, err := h.tokens.Issue(sess)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, ExpiresAt: exp, User: sess})
}

func (h *Handler) Current(c echo.Context) error {
	sess, ok := SessionFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
	}
	return c.JSON(http.StatusOK, sess)
}

// Logout revokes the presented token until it expires.
func (h *Handler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	jti := TokenIDFromContext(ctx)
	if jti == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
	}
	exp, ok := TokenExpiryFromContext(ctx)
	if !ok {
		exp = h.tokens.now().Add(h.tokens.ttl)
	}
	h.revoked.Revoke(jti, exp)
	return c.NoContent(http.StatusNoContent)
}
