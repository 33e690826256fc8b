package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LoginResult carries the sanitized account along with its session credentials.
type LoginResult struct {
	Account      *Account `json:"account"`
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
}

type Auther struct {
	repo             RepositoryManager
	signingKey       []byte
	tokenExpiration  int
	extendedDuration int
	issuer           string
	audience         []string
	logger           Logger
	tokenService     TokenService
	activitySink     ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, opts Config) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetExtendedTokenDuration(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &Auther{
		repo:             repo,
		signingKey:       []byte(opts.GetSigningKey()),
		tokenExpiration:  opts.GetTokenExpiration(),
		extendedDuration: opts.GetExtendedTokenDuration(),
		audience:         opts.GetAudience(),
		issuer:           opts.GetIssuer(),
		logger:           defLogger{},
		tokenService:     tokenService,
		activitySink:     noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	// Update the TokenService logger as well
	s.tokenService = NewTokenService(
		s.signingKey,
		s.tokenExpiration,
		s.extendedDuration,
		s.issuer,
		s.audience,
		logger,
	)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithTokenService sets a custom token service.
func (s *Auther) WithTokenService(tokens TokenService) *Auther {
	if tokens != nil {
		s.tokenService = tokens
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credentials against the stored hash and issues session
// tokens. Unknown addresses and wrong passwords fail with the same error so
// the response does not reveal which half was wrong.
func (s *Auther) Login(ctx context.Context, email, password string, extended bool) (*LoginResult, error) {
	account, err := s.repo.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
				"email": email,
			})
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("Login account lookup error", "error", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
	}

	if !account.EmailVerified {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromAccount(account), account.ID.String(), map[string]any{
			"email": email,
			"error": ErrEmailNotVerified.Error(),
		})
		return nil, ErrEmailNotVerified
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromAccount(account), account.ID.String(), map[string]any{
			"email": email,
		})
		return nil, ErrInvalidCredentials
	}

	pair, err := s.tokenService.IssuePair(account.ID.String(), account.Email, extended)
	if err != nil {
		s.logger.Error("Login token issue error", "error", err)
		return nil, err
	}

	if extended {
		err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return s.repo.Accounts().StoreRefreshTokenTx(ctx, tx, account.ID, pair.RefreshToken)
		})
		if err != nil {
			s.logger.Error("Login refresh token persistence error", "error", err)
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist refresh token")
		}
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromAccount(account), account.ID.String(), map[string]any{
		"email":    email,
		"extended": extended,
	})

	return &LoginResult{
		Account:      account.Sanitize(),
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Refresh rotates the refresh token. The presented token must verify and
// must still occupy the account's refresh slot; a replayed token fails even
// when its signature is valid.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.tokenService.Validate(refreshToken)
	if err != nil {
		s.logger.Error("Refresh token validation failed", "error", err)
		return nil, ErrInvalidRefreshToken
	}

	accountID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	pair, err := s.tokenService.IssuePair(claims.UserID(), claims.EmailAddress(), true)
	if err != nil {
		s.logger.Error("Refresh token issue error", "error", err)
		return nil, err
	}

	account := &Account{}
	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.Accounts().RotateRefreshTokenTx(ctx, tx, accountID, refreshToken, pair.RefreshToken); err != nil {
			return err
		}

		account, err = s.repo.Accounts().GetByIDTx(ctx, tx, accountID)
		if err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "refresh token rotation failed")
	}

	s.emitAuthEvent(ctx, ActivityEventTokenRefreshed, s.actorFromAccount(account), account.ID.String(), nil)

	return &LoginResult{
		Account:      account.Sanitize(),
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// SessionFromToken verifies an access token and returns its claims.
func (s Auther) SessionFromToken(raw string) (AuthClaims, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed", "error", err)
		return nil, err
	}

	return claims, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, accountID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		AccountID: accountID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromAccount(account *Account) ActorRef {
	if account == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   account.ID.String(),
		Type: "account",
	}
}

var _ Authenticator = (*Auther)(nil)
