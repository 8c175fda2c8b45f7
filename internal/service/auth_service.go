package service

import (
	"context"
	"course_player_backend/internal/config"
	"course_player_backend/internal/model"
	"course_player_backend/internal/util"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthEventKind string

const (
	AuthSignedIn AuthEventKind = "signed_in"
	AuthSignedUp AuthEventKind = "signed_up"
)

// AuthEvent 认证状态变化，通过 Subscribe 显式投递给订阅者
type AuthEvent struct {
	Kind     AuthEventKind
	Identity Identity
}

type AuthListener func(ctx context.Context, event AuthEvent)

type AuthService struct {
	UserRepo UserStore
	Cfg      *config.Config

	mu        sync.RWMutex
	nextID    int
	listeners map[int]AuthListener
}

func NewAuthService(userRepo UserStore, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo:  userRepo,
		Cfg:       cfg,
		listeners: make(map[int]AuthListener),
	}
}

// Subscribe 注册认证事件监听，返回取消订阅函数
func (s *AuthService) Subscribe(listener AuthListener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *AuthService) publish(ctx context.Context, event AuthEvent) {
	s.mu.RLock()
	listeners := make([]AuthListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		l(ctx, event)
	}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	_, err := s.UserRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: string(hashedPassword),
		Role:     model.Student,
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, AuthEvent{Kind: AuthSignedUp, Identity: identityOf(user)})
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.UserRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, util.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}

	s.publish(ctx, AuthEvent{Kind: AuthSignedIn, Identity: identityOf(user)})
	return token, user, nil
}

// EnsureAdmin 启动时按配置创建管理员账号，已存在则跳过
func (s *AuthService) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		return nil
	}
	email := strings.ToLower(strings.TrimSpace(cfg.Email))
	_, err := s.UserRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	name := cfg.Name
	if name == "" {
		name = "admin"
	}
	return s.UserRepo.Create(ctx, &model.User{
		Name:     name,
		Email:    email,
		Password: string(hashedPassword),
		Role:     model.Admin,
	})
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func identityOf(user *model.User) Identity {
	return Identity{UserID: user.ID, Name: user.Name, Role: user.Role}
}

// IdentityFromClaims 将 JWT 声明转换为服务层身份
func IdentityFromClaims(claims *util.Claims) Identity {
	if claims == nil {
		return Identity{}
	}
	return Identity{UserID: claims.UserID, Name: claims.Name, Role: claims.Role}
}
