package handlers

import (
	"log/slog"
	"net/http"

	"task-platform/backend/internal/middleware"
	"task-platform/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	responder
	authService         services.AuthService
	verificationService services.VerificationService
	exposeVerification  bool
}

// NewAuthHandler builds the auth endpoints. exposeVerification puts the raw
// verification token in register and resend responses; it must be off in
// production.
func NewAuthHandler(authService services.AuthService, verificationService services.VerificationService, exposeVerification bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		responder:           responder{logger: logger},
		authService:         authService,
		verificationService: verificationService,
		exposeVerification:  exposeVerification,
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var input services.RegisterInput
	if !h.bindJSON(c, &input) {
		return
	}

	registration, err := h.authService.Register(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}

	data := gin.H{
		"user":                        registration.User,
		"email_verification_required": true,
	}
	if h.exposeVerification {
		data["verification_token"] = registration.Ticket.Token
		data["verification_url"] = registration.Ticket.URL
	}
	h.ok(c, http.StatusCreated, data, "User registered successfully. Please verify your email using the token provided.")
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input services.LoginInput
	if !h.bindJSON(c, &input) {
		return
	}

	session, err := h.authService.Authenticate(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, sessionData(session), "Login successful")
}

func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	input := services.VerifyEmailInput{
		Email: c.Query("email"),
		Token: c.Query("token"),
	}

	user, err := h.verificationService.Verify(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{"user": user}, "Email verified successfully")
}

func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var input services.ResendVerificationInput
	if !h.bindJSON(c, &input) {
		return
	}

	ticket, err := h.verificationService.Resend(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}

	var data interface{}
	if h.exposeVerification {
		data = ticket
	}
	h.ok(c, http.StatusOK, data, "Verification email sent successfully")
}

func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.UserFrom(c)
	if user == nil {
		h.message(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	h.ok(c, http.StatusOK, user, "User retrieved successfully")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Invalidate(c.Request.Context(), middleware.TokenFrom(c)); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, nil, "Successfully logged out")
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var input refreshRequest
	if !h.bindJSON(c, &input) {
		return
	}
	if input.RefreshToken == "" {
		h.fail(c, services.FieldError("refresh_token", "The refresh token field is required."))
		return
	}

	session, err := h.authService.Refresh(c.Request.Context(), input.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, sessionData(session), "Token refreshed successfully")
}

func sessionData(session *services.Session) gin.H {
	return gin.H{
		"user":          session.User,
		"access_token":  session.Tokens.AccessToken,
		"refresh_token": session.Tokens.RefreshToken,
		"token_type":    session.Tokens.TokenType,
		"expires_in":    session.Tokens.ExpiresIn,
	}
}
