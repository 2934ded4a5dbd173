package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ashwinyue/next-arena/internal/config"
	"github.com/ashwinyue/next-arena/internal/model"
	"github.com/ashwinyue/next-arena/internal/repository"
)

var (
	// ErrUserExists 用户名已存在
	ErrUserExists = errors.New("user with this username already exists")
	// ErrInvalidCredentials 用户名或密码错误
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrProtectedUser 内置管理员不能被删除或重置密码
	ErrProtectedUser = errors.New("user is protected")
	// ErrInvalidRole 角色非法
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidToken 令牌无效、过期或已撤销
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingField 必填字段为空
	ErrMissingField = errors.New("all fields are required")
)

// UserStore 用户与令牌存储
type UserStore interface {
	CreateUser(user *model.User) error
	GetUserByID(id string) (*model.User, error)
	GetUserByUsername(username string) (*model.User, error)
	ListUsers() ([]*model.User, error)
	UpdateUser(user *model.User) error
	DeleteUser(user *model.User) error
	CreateToken(token *model.AuthToken) error
	GetTokenByValue(tokenValue string) (*model.AuthToken, error)
	RevokeToken(tokenID string) error
	RevokeTokensByUserID(userID string) error
	DeleteExpiredTokens() error
}

// resolveSecret 依次使用配置、JWT_SECRET 环境变量、随机生成的密钥
func resolveSecret(configured string) string {
	if s := strings.TrimSpace(configured); s != "" {
		return s
	}
	if envSecret := strings.TrimSpace(os.Getenv("JWT_SECRET")); envSecret != "" {
		return envSecret
	}

	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		panic(fmt.Sprintf("failed to generate JWT secret: %v", err))
	}
	log.Printf("Warning: no JWT secret configured, tokens will not survive a restart")
	return base64.StdEncoding.EncodeToString(randomBytes)
}

// Service 认证服务
type Service struct {
	store  UserStore
	cfg    config.AuthConfig
	secret []byte
}

// NewService 创建认证服务
func NewService(store UserStore, cfg config.AuthConfig) *Service {
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 24
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 7 * 24
	}
	if cfg.AdminUsername == "" {
		cfg.AdminUsername = "admin"
	}
	return &Service{
		store:  store,
		cfg:    cfg,
		secret: []byte(resolveSecret(cfg.JWTSecret)),
	}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=80"`
	Username string `json:"username" binding:"required,min=3,max=80"`
	Password string `json:"password" binding:"required,min=6"`
}

// AddUserRequest 管理员添加用户请求
type AddUserRequest struct {
	Name     string     `json:"name" binding:"required,max=80"`
	Username string     `json:"username" binding:"required,min=3,max=80"`
	Password string     `json:"password" binding:"required,min=6"`
	Role     model.Role `json:"role"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message,omitempty"`
	User         *model.UserInfo `json:"user,omitempty"`
	Token        string          `json:"token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
}

// ChangePasswordRequest 凭姓名、用户名和当前密码修改密码
type ChangePasswordRequest struct {
	Name            string `json:"name" binding:"required"`
	Username        string `json:"username" binding:"required"`
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

// Register 注册普通用户
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*model.User, error) {
	return s.createUser(req.Name, req.Username, req.Password, model.RoleUser)
}

// AddUser 管理员添加任意角色的用户
func (s *Service) AddUser(ctx context.Context, req *AddUserRequest) (*model.User, error) {
	role := req.Role
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return s.createUser(req.Name, req.Username, req.Password, role)
}

func (s *Service) createUser(name, username, password string, role model.Role) (*model.User, error) {
	name = strings.TrimSpace(name)
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if name == "" || username == "" || password == "" {
		return nil, ErrMissingField
	}

	// 检查用户名是否已存在
	if existing, _ := s.store.GetUserByUsername(username); existing != nil {
		return nil, ErrUserExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Username:     username,
		PasswordHash: string(hashedPassword),
		Role:         role,
		IsActive:     true,
	}
	if err := s.store.CreateUser(user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// EnsureAdmin 内置超级管理员不存在时创建它
func (s *Service) EnsureAdmin(ctx context.Context) error {
	existing, err := s.store.GetUserByUsername(s.cfg.AdminUsername)
	if err == nil && existing != nil {
		return nil
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	password := s.cfg.AdminPassword
	if password == "" {
		randomBytes := make([]byte, 12)
		if _, err := rand.Read(randomBytes); err != nil {
			return fmt.Errorf("failed to generate admin password: %w", err)
		}
		password = base64.RawURLEncoding.EncodeToString(randomBytes)
		log.Printf("Generated password for %q: %s", s.cfg.AdminUsername, password)
	}

	name := s.cfg.AdminName
	if name == "" {
		name = s.cfg.AdminUsername
	}
	if _, err := s.createUser(name, s.cfg.AdminUsername, password, model.RoleSuperAdmin); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	log.Printf("Seeded superadmin %q", s.cfg.AdminUsername)
	return nil
}

// Login 用户登录
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.store.GetUserByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		return &LoginResponse{
			Success: false,
			Message: "Invalid username or password",
		}, nil
	}

	// 检查用户是否激活
	if !user.IsActive {
		return &LoginResponse{
			Success: false,
			Message: "Account is disabled",
		}, nil
	}

	// 验证密码
	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(strings.TrimSpace(req.Password)))
	if err != nil {
		return &LoginResponse{
			Success: false,
			Message: "Invalid username or password",
		}, nil
	}

	accessToken, refreshToken, err := s.generateTokens(user)
	if err != nil {
		return &LoginResponse{
			Success: false,
			Message: "Login failed",
		}, err
	}

	return &LoginResponse{
		Success:      true,
		Message:      "Login successful",
		User:         user.ToUserInfo(),
		Token:        accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// parse 校验签名和类型，返回用户 ID 与令牌记录
func (s *Service) parse(tokenString, wantType string) (string, *model.AuthToken, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", nil, ErrInvalidToken
	}
	if tokenType, _ := claims["type"].(string); tokenType != wantType {
		return "", nil, fmt.Errorf("%w: not an %s token", ErrInvalidToken, wantType)
	}
	userID, ok := claims["user_id"].(string)
	if !ok {
		return "", nil, ErrInvalidToken
	}

	// 检查令牌是否被撤销
	record, err := s.store.GetTokenByValue(tokenString)
	if err != nil || record == nil || record.IsRevoked {
		return "", nil, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}
	return userID, record, nil
}

// ValidateToken 验证访问令牌
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*model.User, error) {
	userID, _, err := s.parse(tokenString, "access")
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUserByID(userID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account disabled", ErrInvalidToken)
	}
	return user, nil
}

// RefreshToken 用刷新令牌换取新的令牌对，旧刷新令牌作废
func (s *Service) RefreshToken(ctx context.Context, refreshTokenString string) (string, string, error) {
	userID, record, err := s.parse(refreshTokenString, "refresh")
	if err != nil {
		return "", "", err
	}
	user, err := s.store.GetUserByID(userID)
	if err != nil {
		return "", "", ErrInvalidToken
	}

	// 撤销旧的刷新令牌
	_ = s.store.RevokeToken(record.ID)

	return s.generateTokens(user)
}

// RevokeToken 撤销令牌
func (s *Service) RevokeToken(ctx context.Context, tokenString string) error {
	record, err := s.store.GetTokenByValue(tokenString)
	if err != nil {
		return ErrInvalidToken
	}
	return s.store.RevokeToken(record.ID)
}

// ChangePassword 姓名、用户名和当前密码全部匹配时修改密码
func (s *Service) ChangePassword(ctx context.Context, req *ChangePasswordRequest) error {
	user, err := s.store.GetUserByUsername(strings.TrimSpace(req.Username))
	if err != nil || user.Name != strings.TrimSpace(req.Name) {
		return ErrInvalidCredentials
	}
	return s.changePassword(user, req.CurrentPassword, req.NewPassword)
}

// ChangeOwnPassword 已登录用户修改自己的密码
func (s *Service) ChangeOwnPassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.store.GetUserByID(userID)
	if err != nil {
		return ErrUserNotFound
	}
	return s.changePassword(user, oldPassword, newPassword)
}

func (s *Service) changePassword(user *model.User, oldPassword, newPassword string) error {
	err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(strings.TrimSpace(oldPassword)))
	if err != nil {
		return ErrInvalidCredentials
	}
	return s.setPassword(user, newPassword)
}

func (s *Service) setPassword(user *model.User, password string) error {
	password = strings.TrimSpace(password)
	if password == "" {
		return ErrMissingField
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hashedPassword)
	if err := s.store.UpdateUser(user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	// 修改密码后旧令牌全部作废
	return s.store.RevokeTokensByUserID(user.ID)
}

// ========== 用户管理 ==========

// ListUsers 列出全部用户
func (s *Service) ListUsers(ctx context.Context) ([]*model.UserInfo, error) {
	users, err := s.store.ListUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	out := make([]*model.UserInfo, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToUserInfo())
	}
	return out, nil
}

// DeleteUser 删除用户及其全部项目副本，内置管理员不可删除
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	user, err := s.store.GetUserByID(id)
	if err != nil {
		return ErrUserNotFound
	}
	if user.Username == s.cfg.AdminUsername {
		return ErrProtectedUser
	}
	if err := s.store.DeleteUser(user); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	log.Printf("user %q deleted", user.Username)
	return nil
}

// ResetPassword 管理员重置密码，内置管理员只能自己修改
func (s *Service) ResetPassword(ctx context.Context, id, newPassword string) error {
	user, err := s.store.GetUserByID(id)
	if err != nil {
		return ErrUserNotFound
	}
	if user.Username == s.cfg.AdminUsername {
		return ErrProtectedUser
	}
	return s.setPassword(user, newPassword)
}

// PurgeExpiredTokens 清理过期和已撤销的令牌
func (s *Service) PurgeExpiredTokens(ctx context.Context) error {
	return s.store.DeleteExpiredTokens()
}

// generateTokens 生成访问令牌和刷新令牌
func (s *Service) generateTokens(user *model.User) (string, string, error) {
	now := time.Now()
	accessExp := now.Add(s.cfg.AccessTTL())
	refreshExp := now.Add(s.cfg.RefreshTTL())

	accessClaims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     string(user.Role),
		"exp":      accessExp.Unix(),
		"iat":      now.Unix(),
		"jti":      uuid.New().String(),
		"type":     "access",
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(s.secret)
	if err != nil {
		return "", "", err
	}

	refreshClaims := jwt.MapClaims{
		"user_id": user.ID,
		"exp":     refreshExp.Unix(),
		"iat":     now.Unix(),
		"jti":     uuid.New().String(),
		"type":    "refresh",
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(s.secret)
	if err != nil {
		return "", "", err
	}

	// 存储令牌到数据库
	records := []*model.AuthToken{
		{ID: uuid.New().String(), UserID: user.ID, Token: accessToken, TokenType: "access_token", ExpiresAt: accessExp},
		{ID: uuid.New().String(), UserID: user.ID, Token: refreshToken, TokenType: "refresh_token", ExpiresAt: refreshExp},
	}
	for _, r := range records {
		if err := s.store.CreateToken(r); err != nil {
			return "", "", fmt.Errorf("failed to store token: %w", err)
		}
	}

	return accessToken, refreshToken, nil
}
