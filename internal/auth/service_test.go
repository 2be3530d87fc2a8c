package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"invest-platform-go/internal/collections"
	"invest-platform-go/internal/database"
	"invest-platform-go/internal/models"
	"invest-platform-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

func setupAuthTest(t *testing.T) (*Service, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	backend, err := database.NewServiceWithDB(db)
	if err != nil {
		t.Fatalf("Failed to initialize document store: %v", err)
	}

	service, err := NewService(models.AuthConfig{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
	}, collections.NewService(backend))
	if err != nil {
		t.Fatalf("Failed to create auth service: %v", err)
	}

	return service, func() { db.Close() }
}

func TestNewService_RequiresSecret(t *testing.T) {
	_, err := NewService(models.AuthConfig{}, nil)
	if !errors.Is(err, store.ErrConfiguration) {
		t.Fatalf("Expected ErrConfiguration, got %v", err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	service, cleanup := setupAuthTest(t)
	defer cleanup()

	ctx := context.Background()
	user, err := service.Register(ctx, "Alice@Example.com", "correct-horse", "Alice")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("Expected normalized email, got %q", user.Email)
	}
	if user.Role != "client" || user.Status != "active" {
		t.Errorf("Unexpected new user: %+v", user)
	}
	if user.PasswordHash != "" {
		t.Error("Password hash must not be returned")
	}

	token, loggedIn, err := service.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if loggedIn.Id != user.Id {
		t.Errorf("Expected user %s, got %s", user.Id, loggedIn.Id)
	}

	claims, err := service.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserId != user.Id || claims.Role != "client" {
		t.Errorf("Unexpected claims: %+v", claims)
	}
}

func TestLogin_RejectsBadCredentials(t *testing.T) {
	service, cleanup := setupAuthTest(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := service.Register(ctx, "bob@example.com", "password123", "Bob"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, _, err := service.Login(ctx, "bob@example.com", "wrong"); !errors.Is(err, store.ErrAuth) {
		t.Fatalf("Expected ErrAuth for wrong password, got %v", err)
	}
	if _, _, err := service.Login(ctx, "nobody@example.com", "password123"); !errors.Is(err, store.ErrAuth) {
		t.Fatalf("Expected ErrAuth for unknown email, got %v", err)
	}
}

func TestRegister_RejectsDuplicateEmail(t *testing.T) {
	service, cleanup := setupAuthTest(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := service.Register(ctx, "carol@example.com", "password123", ""); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := service.Register(ctx, "carol@example.com", "password456", ""); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("Expected ErrValidation on duplicate email, got %v", err)
	}
}

func TestValidateToken_RejectsForgedToken(t *testing.T) {
	service, cleanup := setupAuthTest(t)
	defer cleanup()

	other, err := NewService(models.AuthConfig{JWTSecret: "other-secret", TokenTTL: time.Hour}, nil)
	if err != nil {
		t.Fatalf("Failed to create auth service: %v", err)
	}
	forged, err := other.generateToken(&models.User{Id: "u1", Email: "x@example.com", Role: "admin"})
	if err != nil {
		t.Fatalf("generateToken failed: %v", err)
	}

	if _, err := service.ValidateToken(forged); !errors.Is(err, store.ErrAuth) {
		t.Fatalf("Expected ErrAuth for token signed with wrong secret, got %v", err)
	}
}
