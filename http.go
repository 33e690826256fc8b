package identity

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteAuthenticator wires the Authenticator into HTTP middleware.
type RouteAuthenticator struct {
	auth   Authenticator
	cfg    Config
	Logger Logger
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	return &RouteAuthenticator{
		auth:   auther,
		cfg:    cfg,
		Logger: defLogger{},
	}, nil
}

// ProtectedRoute rejects requests without a valid bearer token. On
// success the claims land both in the router locals, under the
// configured context key, and in the request context.
func (a *RouteAuthenticator) ProtectedRoute() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw, err := a.tokenFromHeader(ctx)
			if err != nil {
				return respondError(ctx, err)
			}

			claims, err := a.auth.SessionFromToken(raw)
			if err != nil {
				a.Logger.Info("Protected route rejected token", "error", err)
				return respondError(ctx, a.asAuthError(err))
			}

			ctx.Locals(a.cfg.GetContextKey(), claims)
			ctx.SetContext(WithClaimsContext(ctx.Context(), claims))

			return next(ctx)
		}
	}
}

func (a *RouteAuthenticator) tokenFromHeader(ctx router.Context) (string, error) {
	scheme := a.cfg.GetAuthScheme()
	if scheme == "" {
		scheme = "Bearer"
	}

	header := ctx.Header("Authorization")
	if header == "" {
		return "", goerrors.New("missing authorization header", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(TextCodeTokenMalformed)
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], scheme) {
		return "", ErrTokenMalformed
	}

	return strings.TrimSpace(parts[1]), nil
}

func (a *RouteAuthenticator) asAuthError(err error) error {
	if IsTokenExpiredError(err) {
		return ErrTokenExpired
	}
	if IsMalformedError(err) {
		return ErrTokenMalformed
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}

	return goerrors.Wrap(err, goerrors.CategoryAuth, "invalid authentication token").
		WithCode(goerrors.CodeUnauthorized)
}

// respondError renders the rich error as the JSON error envelope. The
// error's code doubles as the HTTP status.
func respondError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "an unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = goerrors.CodeInternal
	}

	return ctx.JSON(status, map[string]any{
		"error": map[string]any{
			"message":   richErr.Message,
			"text_code": richErr.TextCode,
		},
	})
}

func debugError(logger Logger, richErr *goerrors.Error) {
	if logger == nil {
		return
	}

	logger.Debug(
		"request error",
		"message", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)
}
