package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"zenfocus/backend/internal/identity"
	"zenfocus/backend/internal/middleware"
)

type AuthHandler struct {
	svc    identity.Service
	issuer *identity.TokenIssuer
}

type CredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string            `json:"access_token"`
	TokenType   string            `json:"token_type"`
	ExpiresAt   time.Time         `json:"expires_at"`
	User        identity.Identity `json:"user"`
	Greeting    string            `json:"greeting"`
}

func NewAuthHandler(svc identity.Service, issuer *identity.TokenIssuer) *AuthHandler {
	return &AuthHandler{svc: svc, issuer: issuer}
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id, err := h.svc.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondToken(c, http.StatusCreated, id)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id, err := h.svc.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondToken(c, http.StatusOK, id)
}

// Logout ends the signed-in session. Tokens are stateless; the client
// discards its copy.
func (h *AuthHandler) Logout(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		respondError(c, identity.NewAuthError(identity.CodeInvalidToken, nil))
		return
	}

	h.svc.SignOut(c.Request.Context(), id)
	identity.EndSession(c.Writer, c.Request)
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		respondError(c, identity.NewAuthError(identity.CodeInvalidToken, nil))
		return
	}

	current, err := h.svc.Lookup(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":     current,
		"greeting": current.GreetingName(),
	})
}

func (h *AuthHandler) respondToken(c *gin.Context, status int, id identity.Identity) {
	token, expiresAt, err := h.issuer.Issue(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        id,
		Greeting:    id.GreetingName(),
	})
}
