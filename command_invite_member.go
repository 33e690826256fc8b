package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type InviteMemberMessage struct {
	TeamID     uuid.UUID `json:"team_id"`
	InviterID  uuid.UUID `json:"inviter_id"`
	Email      string    `json:"email"`
	Role       TeamRole  `json:"role"`
	OnResponse func(resp *InviteMemberResponse)
}

func (e InviteMemberMessage) Type() string { return "team.invite_member" }

type InviteMemberResponse struct {
	Invitation *Invitation
	Message    string
}

type InviteMemberHandler struct {
	repo     RepositoryManager
	notifier Notifier
	sink     ActivitySink
}

func NewInviteMemberHandler(repo RepositoryManager, notifier Notifier) *InviteMemberHandler {
	return &InviteMemberHandler{
		repo:     repo,
		notifier: normalizeNotifier(notifier),
		sink:     noopActivitySink{},
	}
}

func (h *InviteMemberHandler) WithActivitySink(sink ActivitySink) *InviteMemberHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *InviteMemberHandler) Execute(ctx context.Context, event InviteMemberMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during member invitation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InviteMemberHandler) execute(ctx context.Context, event InviteMemberMessage) error {
	invitation := &Invitation{}
	team := &Team{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		team, err = h.repo.Teams().GetByIDTx(ctx, tx, event.TeamID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrTeamNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve team")
		}

		inviter, err := h.repo.Members().FindTx(ctx, tx, event.TeamID, event.InviterID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrNotTeamMember
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve inviter membership")
		}

		if inviter.Role != RoleAdmin {
			return ErrInsufficientRole
		}

		if event.Role == RoleAdmin {
			return ErrCannotInviteAdmin
		}

		if _, err := h.repo.Members().FindByEmailTx(ctx, tx, event.TeamID, event.Email); err == nil {
			return ErrMemberExists
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing membership")
		}

		if _, err := h.repo.Invitations().FindPendingTx(ctx, tx, event.TeamID, event.Email, time.Now()); err == nil {
			return ErrInvitationPending
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check pending invitations")
		}

		code, err := GenerateInvitationCode()
		if err != nil {
			return err
		}

		invitation.TeamID = event.TeamID
		invitation.Email = event.Email
		invitation.Role = event.Role
		invitation.Code = code
		invitation.Status = InvitationPending
		expiresAt := time.Now().Add(InvitationTTL)
		invitation.ExpiresAt = &expiresAt

		if invitation, err = h.repo.Invitations().CreateTx(ctx, tx, invitation); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create invitation")
		}

		// the activity references the inviter's membership row, not the account
		activity := &TeamActivity{
			TeamID:      event.TeamID,
			MemberID:    inviter.ID,
			Action:      ActivityMemberInvitation,
			Description: event.Email + " was invited to the team",
			Metadata: map[string]any{
				"email": event.Email,
				"role":  event.Role,
			},
		}

		if _, err := h.repo.Activities().CreateTx(ctx, tx, activity); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not record invitation activity")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "member invitation transaction failed")
	}

	if err := h.notifier.SendTeamInvitation(ctx, invitation.Email, team.Name, invitation.Code); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send invitation email")
	}

	recordActivity(ctx, h.sink, ActivityEvent{
		EventType: ActivityEventMemberInvited,
		Actor:     ActorRef{ID: event.InviterID.String(), Type: "account"},
		TeamID:    event.TeamID.String(),
		Metadata: map[string]any{
			"email": invitation.Email,
			"role":  invitation.Role,
		},
	})

	if event.OnResponse != nil {
		event.OnResponse(&InviteMemberResponse{
			Invitation: invitation,
			Message:    "invitation sent",
		})
	}

	return nil
}
