package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"patientsummary/internal/model"
	"patientsummary/internal/pkg/errcode"
	"patientsummary/internal/pkg/response"
	"patientsummary/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type signupRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
}

type signinRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
	Token   string      `json:"token"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "username and password are required")
		return
	}
	user, token, err := h.auth.Signup(c.Request.Context(), req.Username, req.Password, req.FullName)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, authResponse{Message: "user created", User: user, Token: token})
}

func (h *AuthHandler) Signin(c *gin.Context) {
	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "username and password are required")
		return
	}
	user, token, err := h.auth.Signin(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, authResponse{Message: "signed in", User: user, Token: token})
}
