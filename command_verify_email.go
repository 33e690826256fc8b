package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type VerifyEmailMessage struct {
	Email      string `json:"email"`
	Code       string `json:"code"`
	OnResponse func(resp *VerifyEmailResponse)
}

func (e VerifyEmailMessage) Type() string { return "account.verify_email" }

type VerifyEmailResponse struct {
	Account *Account
	Message string
}

type VerifyEmailHandler struct {
	repo RepositoryManager
	sink ActivitySink
}

func NewVerifyEmailHandler(repo RepositoryManager) *VerifyEmailHandler {
	return &VerifyEmailHandler{
		repo: repo,
		sink: noopActivitySink{},
	}
}

func (h *VerifyEmailHandler) WithActivitySink(sink ActivitySink) *VerifyEmailHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	account := &Account{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		account, err = h.repo.Accounts().GetByVerificationCode(ctx, event.Email, event.Code)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvalidVerification
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up verification code")
		}

		// the UPDATE keys on the code itself, so a concurrent finalize that
		// already consumed it comes back as ErrInvalidVerification
		if err := h.repo.Accounts().MarkEmailVerifiedTx(ctx, tx, account.ID, event.Code); err != nil {
			if goerrors.Is(err, ErrInvalidVerification) {
				return ErrInvalidVerification
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark email as verified")
		}

		account.EmailVerified = true
		account.VerificationCode = nil

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "email verification transaction failed")
	}

	recordActivity(ctx, h.sink, ActivityEvent{
		EventType: ActivityEventEmailVerified,
		Actor:     ActorRef{ID: account.ID.String(), Type: "account"},
		AccountID: account.ID.String(),
		Metadata: map[string]any{
			"email": account.Email,
		},
	})

	if event.OnResponse != nil {
		event.OnResponse(&VerifyEmailResponse{
			Account: account.Sanitize(),
			Message: "email verified",
		})
	}

	return nil
}
