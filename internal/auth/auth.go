package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/JoshuaSLim/Finance/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidRegistration is wrapped with the reason a registration was refused
	ErrInvalidRegistration = errors.New("invalid registration")
	// ErrInvalidCredentials covers unknown users, wrong passwords and bad tokens
	ErrInvalidCredentials = errors.New("invalid username and/or password")
)

var (
	hasLetter = regexp.MustCompile(`[a-zA-Z]`)
	hasDigit  = regexp.MustCompile(`[0-9]`)
	hasSymbol = regexp.MustCompile(`[!@#$%^*()_+-]`)
)

// UserStore persists users
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string, cash decimal.Decimal) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// AuthService handles user authentication
type AuthService struct {
	Users        UserStore
	Secret       []byte
	TokenTTL     time.Duration
	StartingCash decimal.Decimal
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, secret []byte, tokenTTL time.Duration, startingCash decimal.Decimal) *AuthService {
	return &AuthService{Users: users, Secret: secret, TokenTTL: tokenTTL, StartingCash: startingCash}
}

// Register creates a new user with hashed password and the starting cash
func (s *AuthService) Register(ctx context.Context, username, password, confirmation string) (*models.User, error) {
	// Validate input
	if username == "" {
		return nil, fmt.Errorf("%w: must provide username", ErrInvalidRegistration)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: must provide password", ErrInvalidRegistration)
	}
	if len(username) > 50 {
		return nil, fmt.Errorf("%w: username too long (max 50 characters)", ErrInvalidRegistration)
	}
	if len(password) > 100 {
		return nil, fmt.Errorf("%w: password too long (max 100 characters)", ErrInvalidRegistration)
	}
	if password != confirmation {
		return nil, fmt.Errorf("%w: passwords must match", ErrInvalidRegistration)
	}
	if !ValidPassword(password) {
		return nil, fmt.Errorf("%w: password must contain at least one letter, number, and symbol", ErrInvalidRegistration)
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	// Create user in database
	user, err := s.Users.CreateUser(ctx, username, string(hashedPassword), s.StartingCash)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// ValidPassword requires at least one letter, one digit and one symbol
func ValidPassword(password string) bool {
	return hasLetter.MatchString(password) && hasDigit.MatchString(password) && hasSymbol.MatchString(password)
}

// Login verifies credentials and generates a JWT
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	// Get user from database
	user, err := s.Users.GetUserByUsername(ctx, username)
	if errors.Is(err, models.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	// Generate JWT
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      time.Now().Add(s.TokenTTL).Unix(),
	})

	tokenString, err := token.SignedString(s.Secret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// UserIDFromToken validates a JWT and extracts the user ID
func (s *AuthService) UserIDFromToken(tokenString string) (int, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, ErrInvalidCredentials
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, fmt.Errorf("%w: missing user_id claim", ErrInvalidCredentials)
	}
	return int(userID), nil
}
