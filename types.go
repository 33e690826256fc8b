package identity

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetContextKey() string
	GetTokenExpiration() int
	GetExtendedTokenDuration() int
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
}

// TokenPair is the result of issuing session credentials. RefreshToken
// is empty unless an extended session was requested.
type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// TokenService issues and verifies signed session tokens. It keeps no
// state; refresh token persistence belongs to the Auther.
type TokenService interface {
	IssuePair(accountID, email string, extended bool) (TokenPair, error)
	Validate(tokenString string) (AuthClaims, error)
	SignClaims(claims *JWTClaims) (string, error)
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, email, password string, extended bool) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
	SessionFromToken(token string) (AuthClaims, error)
}

// Notifier delivers transactional email. Calls are awaited by the
// request's unit of work; a delivery failure surfaces as an error, it
// is never swallowed.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, email, code string) error
	SendPasswordResetEmail(ctx context.Context, email, code string) error
	SendTeamInvitation(ctx context.Context, email, teamName, code string) error
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type noopNotifier struct{}

func (noopNotifier) SendVerificationEmail(context.Context, string, string) error  { return nil }
func (noopNotifier) SendPasswordResetEmail(context.Context, string, string) error { return nil }
func (noopNotifier) SendTeamInvitation(context.Context, string, string, string) error {
	return nil
}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
