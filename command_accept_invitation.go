package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type AcceptInvitationMessage struct {
	Code       string `json:"code"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Password   string `json:"password"`
	OnResponse func(resp *AcceptInvitationResponse)
}

func (e AcceptInvitationMessage) Type() string { return "team.accept_invitation" }

type AcceptInvitationResponse struct {
	Account    *Account
	Membership *TeamMembership
	Token      string
}

type AcceptInvitationHandler struct {
	repo   RepositoryManager
	tokens TokenService
	sink   ActivitySink
}

func NewAcceptInvitationHandler(repo RepositoryManager, tokens TokenService) *AcceptInvitationHandler {
	return &AcceptInvitationHandler{
		repo:   repo,
		tokens: tokens,
		sink:   noopActivitySink{},
	}
}

func (h *AcceptInvitationHandler) WithActivitySink(sink ActivitySink) *AcceptInvitationHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *AcceptInvitationHandler) Execute(ctx context.Context, event AcceptInvitationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during invitation acceptance",
		)
	default:
		return h.execute(ctx, event)
	}
}

// execute redeems the invitation and provisions the invitee in one
// transaction. The created account skips email verification since the
// invitee proved control of the address by receiving the code.
func (h *AcceptInvitationHandler) execute(ctx context.Context, event AcceptInvitationMessage) error {
	account := &Account{}
	membership := &TeamMembership{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		invitation, err := h.repo.Invitations().FindAcceptableTx(ctx, tx, event.Code, event.Email, time.Now())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvalidInvitation
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up invitation")
		}

		existing, err := h.repo.Accounts().GetByEmailTx(ctx, tx, event.Email)
		if err != nil && !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
		}

		if existing != nil {
			return ErrEmailTaken
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account.Email = event.Email
		account.FirstName = event.FirstName
		account.LastName = event.LastName
		account.PasswordHash = hash
		account.EmailVerified = true

		if account, err = h.repo.Accounts().CreateTx(ctx, tx, account); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
		}

		membership.TeamID = invitation.TeamID
		membership.AccountID = account.ID
		membership.Role = invitation.Role

		if membership, err = h.repo.Members().CreateTx(ctx, tx, membership); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create membership")
		}

		if err := h.repo.Invitations().MarkAcceptedTx(ctx, tx, invitation.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not mark invitation accepted")
		}

		// the activity references the membership row, not the account
		activity := &TeamActivity{
			TeamID:      invitation.TeamID,
			MemberID:    membership.ID,
			Action:      ActivityMemberJoined,
			Description: account.Email + " joined the team",
			Metadata: map[string]any{
				"email": account.Email,
				"role":  invitation.Role,
			},
		}

		if _, err := h.repo.Activities().CreateTx(ctx, tx, activity); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not record join activity")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "invitation acceptance transaction failed")
	}

	pair, err := h.tokens.IssuePair(account.ID.String(), account.Email, false)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session token")
	}

	recordActivity(ctx, h.sink, ActivityEvent{
		EventType: ActivityEventMemberJoined,
		Actor:     ActorRef{ID: account.ID.String(), Type: "account"},
		AccountID: account.ID.String(),
		TeamID:    membership.TeamID.String(),
		Metadata: map[string]any{
			"email": account.Email,
			"role":  membership.Role,
		},
	})

	if event.OnResponse != nil {
		event.OnResponse(&AcceptInvitationResponse{
			Account:    account.Sanitize(),
			Membership: membership,
			Token:      pair.AccessToken,
		})
	}

	return nil
}
