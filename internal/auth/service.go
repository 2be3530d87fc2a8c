package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"invest-platform-go/internal/collections"
	"invest-platform-go/internal/models"
	"invest-platform-go/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Claims is the token payload carried on every authenticated request.
type Claims struct {
	UserId string `json:"sub"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Service handles account registration, login and token verification.
type Service struct {
	secret []byte
	ttl    time.Duration
	docs   *collections.Service
}

func NewService(cfg models.AuthConfig, docs *collections.Service) (*Service, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret is not set - %w", store.ErrConfiguration)
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Service{secret: []byte(cfg.JWTSecret), ttl: ttl, docs: docs}, nil
}

// Register creates a client account with a bcrypt password hash. Email must
// be unique across the users collection.
func (s *Service) Register(ctx context.Context, email, password, fullName string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("a valid email is required - %w", store.ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters - %w", store.ErrValidation)
	}

	if existing, err := s.findByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("email %s already registered - %w", email, store.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	record, err := s.docs.Create(ctx, "users", store.Record{
		"email":         email,
		"password_hash": string(hash),
		"role":          "client",
		"status":        "active",
		"full_name":     fullName,
	})
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := models.FromRecord(record, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	user.PasswordHash = ""
	return &user, nil
}

// Login checks the credentials and issues a signed token. Suspended accounts
// cannot log in.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, fmt.Errorf("unknown email or password - %w", store.ErrAuth)
	}
	if user.Status == "suspended" {
		return "", nil, fmt.Errorf("account suspended - %w", store.ErrAuth)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("unknown email or password - %w", store.ErrAuth)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}

	user.PasswordHash = ""
	return token, user, nil
}

// ValidateToken parses and verifies a bearer token, returning its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token - %w", store.ErrAuth)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token - %w", store.ErrAuth)
	}
	return claims, nil
}

func (s *Service) generateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserId: user.Id,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// findByEmail scans the users collection. Nil without error means no match.
func (s *Service) findByEmail(ctx context.Context, email string) (*models.User, error) {
	records, err := s.docs.List(ctx, "users", collections.Filter{})
	if err != nil {
		return nil, err
	}

	for _, record := range records {
		if record["email"] == email {
			var user models.User
			if err := models.FromRecord(record, &user); err != nil {
				return nil, fmt.Errorf("failed to decode user: %w", err)
			}
			return &user, nil
		}
	}
	return nil, nil
}
