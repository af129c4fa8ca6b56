package controllers

import (
	"context"
	"net/http"
	"time"

	"civicbridge-be/middlewares"
	"civicbridge-be/models"
	"civicbridge-be/services"
	"civicbridge-be/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CookieSettings controls the session cookie written on login.
type CookieSettings struct {
	Domain string
	Secure bool
}

type AuthController struct {
	users     *services.UserService
	jwtSecret string
	tokenTTL  time.Duration
	cookie    CookieSettings
	timeout   time.Duration
	logger    *zap.Logger
}

func NewAuthController(users *services.UserService, jwtSecret string, tokenTTL time.Duration, cookie CookieSettings, timeout time.Duration, logger *zap.Logger) *AuthController {
	return &AuthController{
		users:     users,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		cookie:    cookie,
		timeout:   timeout,
		logger:    logger,
	}
}

func userResponse(u *models.User) gin.H {
	return gin.H{
		"id":        u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"role":      u.Role,
		"createdAt": u.CreatedAt,
	}
}

// RegisterUser handles user registration
func (ac *AuthController) RegisterUser(c *gin.Context) {
	var input struct {
		Name     string      `json:"name"`
		Email    string      `json:"email"`
		Password string      `json:"password"`
		Role     models.Role `json:"role"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ac.timeout)
	defer cancel()

	user, err := ac.users.Register(ctx, services.RegisterInput{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
		Role:     input.Role,
	})
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusCreated, userResponse(user))
}

// LoginUser checks credentials, sets the auth cookie and returns the token.
func (ac *AuthController) LoginUser(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ac.timeout)
	defer cancel()

	user, err := ac.users.Login(ctx, input.Email, input.Password)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	token, err := utils.GenerateToken(ac.jwtSecret, user, ac.tokenTTL)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	// cross-origin cookies in production carry no domain
	domain := ac.cookie.Domain
	if ac.cookie.Secure {
		domain = ""
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middlewares.AuthCookie,
		Value:    token,
		MaxAge:   int(ac.tokenTTL.Seconds()),
		Path:     "/",
		Domain:   domain,
		Secure:   ac.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})

	resp := userResponse(user)
	resp["token"] = token
	c.JSON(http.StatusOK, resp)
}

// GetMe retrieves the authenticated user's information
func (ac *AuthController) GetMe(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ac.timeout)
	defer cancel()

	user, err := ac.users.Get(ctx, caller.ID)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

// LogoutUser handles user logout by clearing the auth_token cookie
func (ac *AuthController) LogoutUser(c *gin.Context) {
	c.SetCookie(middlewares.AuthCookie, "", -1, "/", ac.cookie.Domain, ac.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}
