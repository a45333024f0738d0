package controllers

import (
	"scamazon_go/middleware"
	"scamazon_go/models"
	"scamazon_go/services"
	"scamazon_go/utils"

	"github.com/gin-gonic/gin"
)

// AuthController 认证控制器
type AuthController struct {
	authService *services.AuthService
}

// NewAuthController 创建认证控制器实例
func NewAuthController(authService *services.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

func userPayload(user *models.User, token string) gin.H {
	return gin.H{
		"token": token,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"role":     user.Role,
		},
	}
}

// Register 用户注册
// @Summary 用户注册
// @Description 创建买家或卖家账号
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.RegisterRequest true "注册信息"
// @Router /api/auth/register [post]
func (ac *AuthController) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err)
		return
	}

	user, token, err := ac.authService.Register(c.Request.Context(), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, userPayload(user, token))
}

// Login 用户登录
// @Summary 用户登录
// @Description 用户登录获取JWT token
// @Tags auth
// @Param request body services.LoginRequest true "登录信息"
// @Router /api/auth/login [post]
func (ac *AuthController) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err)
		return
	}

	user, token, err := ac.authService.Login(c.Request.Context(), &req, c.ClientIP())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Login successful", userPayload(user, token))
}

// Logout 用户登出
func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.authService.Logout(c.Request.Context(), c.GetString(middleware.ContextToken)); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Logout successful", nil)
}

// Me 当前登录用户
func (ac *AuthController) Me(c *gin.Context) {
	utils.Success(c, gin.H{
		"id":       middleware.UserID(c),
		"username": c.GetString(middleware.ContextUsername),
		"role":     c.GetString(middleware.ContextRole),
	})
}
