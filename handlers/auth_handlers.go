package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"crc-quiz-server/auth"
	"crc-quiz-server/db"
	"crc-quiz-server/middleware"
	"crc-quiz-server/session"
)

type loginRequest struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

// Login exchanges a user id and login code for a session token.
// POST /api/v1/auth/login
func Login(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		id, err := env.Users.Authenticate(req.UserID, req.Code)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrMissingFields):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, auth.ErrUnknownUser), errors.Is(err, auth.ErrInactive), errors.Is(err, auth.ErrInvalidCredentials):
				log.Printf("Login rejected for %q: %v", req.UserID, err)
				c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
			}
			return
		}

		token, exp, err := middleware.IssueToken(id, env.Auth.JWTSigningKey, env.Auth.Issuer, env.Auth.TokenTTL)
		if err != nil {
			log.Printf("Error issuing token for %s: %v", id.UserID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.TokenCookie, token, int(env.Auth.TokenTTL.Seconds()), "/", "", false, true)
		env.Audit.LogAdminEvent(c.Request.Context(), id.UserID, db.ActionLogin, id.UserID, "")
		c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": exp, "user": id})
	}
}

// Logout clears the token cookie and drops the user's exam session.
// POST /api/v1/auth/logout
func Logout(exams *session.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		if err := exams.Clear(c.Request.Context(), userID); err != nil {
			log.Printf("Error clearing session for %s: %v", userID, err)
		}
		c.SetCookie(middleware.TokenCookie, "", -1, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

// Me returns the authenticated identity.
// GET /api/v1/me
func Me() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := ""
		if roles, ok := c.Get(middleware.CtxRoles); ok {
			if rs, ok := roles.([]string); ok && len(rs) > 0 {
				role = rs[0]
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"user_id": middleware.UserID(c),
			"name":    c.GetString(middleware.CtxUserName),
			"role":    role,
		})
	}
}
