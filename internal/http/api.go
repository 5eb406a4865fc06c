package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"credential-gate/internal/domain"
	"credential-gate/internal/service"
)

const sessionKey = "gate.session"

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// Handler wires HTTP routes to the credential gate.
type Handler struct {
	gate        service.Gate
	users       service.UserService
	cookie      CookieConfig
	loginPath   string
	landingPath string
	log         logrus.FieldLogger
}

func NewHandler(gate service.Gate, users service.UserService, cookie CookieConfig, loginPath, landingPath string, logger logrus.FieldLogger) *Handler {
	if cookie.Name == "" {
		cookie.Name = "gate_session"
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		gate:        gate,
		users:       users,
		cookie:      cookie,
		loginPath:   loginPath,
		landingPath: landingPath,
		log:         logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(noStoreMiddleware())

	router.GET(h.loginPath, h.showLogin)
	router.POST(h.loginPath, h.login)
	router.POST("/logout", h.logout)

	gated := router.Group("/")
	gated.Use(h.requireSession())
	{
		gated.GET(h.landingPath, h.welcome)
		gated.POST("/password/reset", h.resetPassword)
	}

	router.GET("/api/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})
}

type loginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

type resetPasswordRequest struct {
	NewPassword     string `form:"new_password" json:"new_password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// auth pages must never be served from a shared cache
func noStoreMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Cache-Control", "no-store")
		c.Next()
	}
}

// requireSession stops the chain with a redirect to the login page unless the
// request carries a live session.
func (h *Handler) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(h.cookie.Name)
		outcome, err := h.gate.RequireSession(c.Request.Context(), token)
		if err != nil {
			h.abortUnavailable(c)
			return
		}
		if outcome.Kind != service.OutcomeAuthenticated {
			h.clearCookie(c)
			c.Redirect(http.StatusFound, outcome.RedirectTo)
			c.Abort()
			return
		}
		c.Set(sessionKey, outcome.Session)
		c.Next()
	}
}

func (h *Handler) showLogin(c *gin.Context) {
	if h.alreadyAuthenticated(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"fields": []string{service.FieldUsername, service.FieldPassword}})
}

func (h *Handler) login(c *gin.Context) {
	if h.alreadyAuthenticated(c) {
		return
	}

	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request"})
		return
	}

	outcome, err := h.gate.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.abortUnavailable(c)
		return
	}

	switch outcome.Kind {
	case service.OutcomeAuthenticated:
		h.setCookie(c, outcome.Token)
		c.Redirect(http.StatusFound, outcome.RedirectTo)
	case service.OutcomeValidationFailed:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": outcome.Fields, "username": req.Username})
	default:
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.MsgInvalidCredentials, "username": req.Username})
	}
}

func (h *Handler) welcome(c *gin.Context) {
	sess := currentSession(c)

	resp := gin.H{"id": sess.UserID, "username": sess.Username}
	if h.users != nil {
		user, err := h.users.GetByID(c.Request.Context(), sess.UserID)
		switch {
		case err == nil:
			resp["member_since"] = user.CreatedAt.Format(time.RFC3339)
		case errors.Is(err, service.ErrStoreUnavailable):
			h.abortUnavailable(c)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request"})
		return
	}

	outcome, err := h.gate.ResetPassword(c.Request.Context(), currentSession(c), req.NewPassword, req.ConfirmPassword)
	if err != nil {
		h.abortUnavailable(c)
		return
	}

	switch outcome.Kind {
	case service.OutcomeValidationFailed:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": outcome.Fields})
	default:
		h.clearCookie(c)
		c.Redirect(http.StatusFound, outcome.RedirectTo)
	}
}

func (h *Handler) logout(c *gin.Context) {
	token, _ := c.Cookie(h.cookie.Name)
	outcome, err := h.gate.Logout(c.Request.Context(), token)
	if err != nil {
		h.abortUnavailable(c)
		return
	}
	h.clearCookie(c)
	c.Redirect(http.StatusFound, outcome.RedirectTo)
}

// alreadyAuthenticated redirects live sessions to the landing page before any
// login form is evaluated.
func (h *Handler) alreadyAuthenticated(c *gin.Context) bool {
	token, err := c.Cookie(h.cookie.Name)
	if err != nil || token == "" {
		return false
	}
	outcome, err := h.gate.RequireSession(c.Request.Context(), token)
	if err != nil {
		h.abortUnavailable(c)
		return true
	}
	if outcome.Kind != service.OutcomeAuthenticated {
		return false
	}
	c.Redirect(http.StatusFound, h.landingPath)
	return true
}

func (h *Handler) abortUnavailable(c *gin.Context) {
	h.log.WithField("path", c.FullPath()).WithField("remote_addr", c.ClientIP()).Warn("request failed on store error")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": service.MsgStoreUnavailable})
}

func (h *Handler) setCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.cookie.TTL.Seconds()), "/", "", h.cookie.Secure, true)
}

func (h *Handler) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}

func currentSession(c *gin.Context) *domain.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*domain.Session)
	return sess
}
