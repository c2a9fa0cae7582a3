package httpserver

import (
	"net/http"
	"strings"
	"time"

	"noor-storefront/internal/domain"
	authsvc "noor-storefront/internal/service/auth"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	// Name is split into first and last name when those are empty.
	Name string `json:"name"`
}

type sessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	Hydrated      bool         `json:"hydrated"`
	User          *domain.User `json:"user"`
	ExpiresAt     *time.Time   `json:"accessTokenExpiresAt,omitempty"`
}

func toSessionResponse(sess sessionView) sessionResponse {
	st := sess.Snapshot()
	resp := sessionResponse{Authenticated: st.Authenticated(), Hydrated: st.Hydrated, User: st.User}
	if exp, ok := sess.AccessTokenExpiry(); ok && st.Authenticated() {
		resp.ExpiresAt = &exp
	}
	return resp
}

func sessionHandler(sess sessionView) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, toSessionResponse(sess))
	}
}

func profileHandler(sess sessionView, auth authService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !sess.Snapshot().Authenticated() {
			writeError(c, domain.ErrLoginRequired)
			return
		}
		user, err := auth.Profile(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

func loginHandler(auth authService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "email and password required")
			return
		}
		user, err := auth.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

func registerHandler(auth authService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "email and password required")
			return
		}
		in := authsvc.RegisterInput{Email: req.Email, Password: req.Password, FirstName: req.FirstName, LastName: req.LastName}
		if in.FirstName == "" && in.LastName == "" && strings.TrimSpace(req.Name) != "" {
			in.FirstName, in.LastName = authsvc.SplitName(req.Name)
		}
		user, err := auth.Register(c.Request.Context(), in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"user": user})
	}
}

func logoutHandler(auth authService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth.Logout(c.Request.Context())
		c.Status(http.StatusNoContent)
	}
}
