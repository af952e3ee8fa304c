package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/redmonkez12/contacts-api/internal/logging"
	"github.com/redmonkez12/contacts-api/internal/user"
)

var (
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrEmailRequired            = errors.New("email is required")
	ErrInvalidEmailFormat       = errors.New("invalid email format")
	ErrUsernameLength           = errors.New("username must be between 3 and 50 characters")
	ErrPasswordRequired         = errors.New("password is required")
	ErrPasswordTooShort         = errors.New("password must be at least 8 characters")
	ErrPasswordNeedsUpper       = errors.New("password must contain at least one uppercase letter")
	ErrPasswordNeedsLower       = errors.New("password must contain at least one lowercase letter")
	ErrPasswordNeedsDigit       = errors.New("password must contain at least one digit")
	ErrPasswordNeedsSpecial     = errors.New("password must contain at least one special character")
	ErrInvalidVerificationToken = errors.New("invalid verification token")
)

// passwordSpecialChars is the accepted special character set for passwords
const passwordSpecialChars = "!@#$%^&*()_-+=<>?/"

// Argon2id parameters - tuned for security vs performance balance
// Time: 3, Memory: 64MB, Threads: 4, KeyLen: 32 bytes
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

const verificationTokenTTL = 24 * time.Hour

// UserRepository defines the user persistence operations the service needs
type UserRepository interface {
	Create(ctx context.Context, username, email, passwordHash string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	MarkConfirmed(ctx context.Context, userID uuid.UUID) error
}

// EmailService defines the interface for email operations
type EmailService interface {
	SendVerificationEmail(ctx context.Context, toEmail, username, token string) error
}

// AuthTokens is the response payload for login and refresh
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// VerifyResult reports the outcome of an email verification
type VerifyResult struct {
	Email            string
	AlreadyConfirmed bool
}

// Service handles authentication business logic
type Service struct {
	userRepo             UserRepository
	refreshRepo          RefreshTokenRepository
	tokenService         TokenService
	emailService         EmailService
	logger               *logging.Logger
	accessTokenDuration  time.Duration
	refreshTokenDuration time.Duration
}

func NewService(
	userRepo UserRepository,
	refreshRepo RefreshTokenRepository,
	tokenService TokenService,
	emailService EmailService,
	logger *logging.Logger,
	accessTokenDuration time.Duration,
	refreshTokenDuration time.Duration,
) *Service {
	return &Service{
		userRepo:             userRepo,
		refreshRepo:          refreshRepo,
		tokenService:         tokenService,
		emailService:         emailService,
		logger:               logger,
		accessTokenDuration:  accessTokenDuration,
		refreshTokenDuration: refreshTokenDuration,
	}
}

// Register creates a new unconfirmed user account and sends a verification email
func (s *Service) Register(ctx context.Context, username, email, password string) (*user.User, error) {
	// Validate input before touching persistence
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(email) > 100 {
		return nil, ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if len(username) < 3 || len(username) > 50 {
		return nil, ErrUsernameLength
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	// Hash password using argon2id
	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.userRepo.Create(ctx, username, email, passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.sendVerificationEmailAsync(newUser.Email, newUser.Username)

	return newUser, nil
}

// Login authenticates a user and returns tokens
func (s *Service) Login(ctx context.Context, email, password string) (*AuthTokens, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	existingUser, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// Same error as a bad password so nothing leaks about which was wrong
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !VerifyPassword(existingUser.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.generateTokens(ctx, existingUser.ID, existingUser.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	return tokens, nil
}

// RefreshAccessToken generates a new token pair using a refresh token
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	rt, err := s.refreshRepo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	// Rotate: revoke the old refresh token before issuing new ones
	if err := s.refreshRepo.RevokeRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to revoke old refresh token: %w", err)
	}

	existingUser, err := s.userRepo.GetByID(ctx, rt.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	tokens, err := s.generateTokens(ctx, existingUser.ID, existingUser.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	return tokens, nil
}

// Logout revokes a refresh token
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.refreshRepo.RevokeRefreshToken(ctx, refreshToken)
}

// LogoutAll revokes every active refresh token of the user who owns the
// presented token, ending all of their sessions at once.
func (s *Service) LogoutAll(ctx context.Context, refreshToken string) error {
	rt, err := s.refreshRepo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	return s.refreshRepo.RevokeAllUserTokens(ctx, rt.UserID)
}

// VerifyEmail consumes a verification-scoped token and confirms the user.
// Verifying an already-confirmed user succeeds idempotently without a
// second mutation.
func (s *Service) VerifyEmail(ctx context.Context, tokenStr string) (*VerifyResult, error) {
	claims, err := s.tokenService.VerifyToken(tokenStr)
	if err != nil {
		return nil, err
	}

	// A plain access token must not be accepted here
	if claims.Scope != ScopeEmailVerification {
		return nil, ErrInvalidVerificationToken
	}

	existingUser, err := s.userRepo.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if existingUser.Confirmed {
		return &VerifyResult{Email: existingUser.Email, AlreadyConfirmed: true}, nil
	}

	if err := s.userRepo.MarkConfirmed(ctx, existingUser.ID); err != nil {
		return nil, fmt.Errorf("failed to confirm user: %w", err)
	}

	return &VerifyResult{Email: existingUser.Email, AlreadyConfirmed: false}, nil
}

// ResendVerificationEmail sends a new verification email to the user.
// Always returns nil to prevent email enumeration attacks.
func (s *Service) ResendVerificationEmail(ctx context.Context, email string) error {
	existingUser, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Don't reveal if user exists
		if errors.Is(err, user.ErrNotFound) {
			return nil
		}
		s.logger.Warn("failed to get user for resend verification", "error", err)
		return nil
	}

	// Don't reveal that email is already confirmed either
	if existingUser.Confirmed {
		return nil
	}

	s.sendVerificationEmailAsync(existingUser.Email, existingUser.Username)

	return nil
}

// sendVerificationEmailAsync mints a verification token and hands the send
// to a goroutine so delivery never blocks the triggering request.
func (s *Service) sendVerificationEmailAsync(email, username string) {
	token, err := s.tokenService.CreateToken(email, ScopeEmailVerification, verificationTokenTTL)
	if err != nil {
		s.logger.Warn("failed to create verification token", "email", email, "error", err)
		return
	}

	go func() {
		// Fresh context: the request context is gone by the time this runs
		emailCtx := context.Background()
		if err := s.emailService.SendVerificationEmail(emailCtx, email, username, token); err != nil {
			// Log but never surface; the user can request a new email later
			s.logger.Warn("failed to send verification email", "email", email, "error", err)
		}
	}()
}

// generateTokens creates an access token and a redis-backed refresh token
func (s *Service) generateTokens(ctx context.Context, userID uuid.UUID, email string) (*AuthTokens, error) {
	accessToken, err := s.tokenService.CreateToken(email, "", s.accessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := generateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	expiresAt := time.Now().Add(s.refreshTokenDuration)
	if err := s.refreshRepo.StoreRefreshToken(ctx, userID, refreshToken, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.accessTokenDuration.Seconds()),
	}, nil
}

// ValidatePassword enforces the password policy: at least 8 characters
// with an uppercase letter, a lowercase letter, a digit and a special
// character.
func ValidatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < 8 {
		return ErrPasswordTooShort
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		case strings.ContainsRune(passwordSpecialChars, c):
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return ErrPasswordNeedsUpper
	case !hasLower:
		return ErrPasswordNeedsLower
	case !hasDigit:
		return ErrPasswordNeedsDigit
	case !hasSpecial:
		return ErrPasswordNeedsSpecial
	}

	return nil
}

// HashPassword creates an argon2id hash of the password
func HashPassword(password string) (string, error) {
	// Generate random salt
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		argon2Time,
		argon2Memory,
		argon2Threads,
		argon2KeyLen,
	)

	// Encode as: $argon2id$v=19$m=65536,t=3,p=4$salt$hash
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		encodedSalt,
		encodedHash,
	), nil
}

// VerifyPassword checks if a password matches the stored hash
func VerifyPassword(encodedHash, password string) bool {
	// Parse the encoded hash
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false
	}

	// Parse parameters
	var version int
	var memory, timeCost uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return false
	}
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false
	}

	// Decode salt and hash
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	decodedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	// Hash the input password with the same parameters
	inputHash := argon2.IDKey(
		[]byte(password),
		salt,
		timeCost,
		memory,
		threads,
		uint32(len(decodedHash)),
	)

	// Compare hashes using constant-time comparison
	return subtle.ConstantTimeCompare(decodedHash, inputHash) == 1
}

// generateRandomToken creates a cryptographically secure random token
func generateRandomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
