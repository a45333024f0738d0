package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"scamazon_go/config"
	"scamazon_go/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrInvalidCredentials 邮箱或密码错误
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserExists 用户名或邮箱已被注册
	ErrUserExists = errors.New("username or email already exists")
	// ErrTooManyAttempts 登录失败次数过多
	ErrTooManyAttempts = errors.New("too many login attempts, please try again later")
	// ErrTokenRevoked token已登出
	ErrTokenRevoked = errors.New("token has been revoked")
)

// AuthConfig 认证配置
type AuthConfig struct {
	MaxLoginAttempts   int           // 最大登录失败次数
	LoginBlockDuration time.Duration // 登录封禁时长
}

// AuthService 认证服务
type AuthService struct {
	db         *gorm.DB
	rdb        *redis.Client // 可为nil，黑名单与限流自动降级
	jwtService *config.JWTService
	authConfig AuthConfig
	logger     *zap.Logger
}

// NewAuthService 创建认证服务实例
func NewAuthService(db *gorm.DB, rdb *redis.Client, jwtService *config.JWTService, logger *zap.Logger) *AuthService {
	return &AuthService{
		db:         db,
		rdb:        rdb,
		jwtService: jwtService,
		authConfig: AuthConfig{
			MaxLoginAttempts:   5,
			LoginBlockDuration: 15 * time.Minute,
		},
		logger: logger,
	}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,username"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=100"`
	Role     string `json:"role" binding:"omitempty,oneof=Buyer Seller"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register 用户注册，返回用户与token
func (as *AuthService) Register(ctx context.Context, req *RegisterRequest) (*models.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	if err := as.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", req.Username, email).
		Count(&count).Error; err != nil {
		return nil, "", fmt.Errorf("failed to check user: %w", err)
	}
	if count > 0 {
		return nil, "", ErrUserExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = models.RoleBuyer
	}

	user := models.User{
		Username: req.Username,
		Email:    email,
		Password: string(hashedPassword),
		Role:     role,
	}
	if err := as.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := as.jwtService.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	as.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("role", user.Role))
	return &user, token, nil
}

// Login 用户登录
func (as *AuthService) Login(ctx context.Context, req *LoginRequest, clientIP string) (*models.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	limitKey := fmt.Sprintf("login:limit:%s:%s", email, clientIP)

	if as.rdb != nil {
		attempts, _ := as.rdb.Get(ctx, limitKey).Int64()
		if attempts >= int64(as.authConfig.MaxLoginAttempts) {
			return nil, "", ErrTooManyAttempts
		}
	}

	var user models.User
	if err := as.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", fmt.Errorf("failed to load user: %w", err)
		}
		as.recordLoginFailure(ctx, limitKey, email, clientIP)
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		as.recordLoginFailure(ctx, limitKey, email, clientIP)
		return nil, "", ErrInvalidCredentials
	}

	now := time.Now()
	if err := as.db.WithContext(ctx).Model(&user).UpdateColumn("last_login", &now).Error; err != nil {
		as.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	if as.rdb != nil {
		as.rdb.Del(ctx, limitKey)
	}

	token, err := as.jwtService.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return &user, token, nil
}

// Logout 将token加入黑名单直到过期
func (as *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := as.jwtService.ValidateToken(tokenString)
	if err != nil {
		return err
	}
	if as.rdb == nil {
		return nil
	}

	expiration := time.Until(claims.ExpiresAt.Time)
	if expiration <= 0 {
		return nil
	}
	return as.rdb.Set(ctx, blacklistKey(tokenString), "1", expiration).Err()
}

// Authenticate 校验token并检查黑名单，供认证中间件使用
func (as *AuthService) Authenticate(ctx context.Context, tokenString string) (*config.Claims, error) {
	if as.rdb != nil {
		exists, err := as.rdb.Exists(ctx, blacklistKey(tokenString)).Result()
		if err == nil && exists > 0 {
			return nil, ErrTokenRevoked
		}
	}
	return as.jwtService.ValidateToken(tokenString)
}

func (as *AuthService) recordLoginFailure(ctx context.Context, limitKey, email, clientIP string) {
	as.logger.Warn("login failed", zap.String("email", email), zap.String("ip", clientIP))
	if as.rdb == nil {
		return
	}
	pipe := as.rdb.TxPipeline()
	pipe.Incr(ctx, limitKey)
	pipe.Expire(ctx, limitKey, as.authConfig.LoginBlockDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		as.logger.Warn("failed to record login failure", zap.Error(err))
	}
}

func blacklistKey(token string) string {
	return "token:blacklist:" + token
}
