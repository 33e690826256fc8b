package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ListTeamMembersMessage struct {
	TeamID     uuid.UUID `json:"team_id"`
	OnResponse func(resp *ListTeamMembersResponse)
}

func (e ListTeamMembersMessage) Type() string { return "team.list_members" }

type ListTeamMembersResponse struct {
	Members []*TeamMembership
}

type ListTeamMembersHandler struct {
	repo RepositoryManager
}

func NewListTeamMembersHandler(repo RepositoryManager) *ListTeamMembersHandler {
	return &ListTeamMembersHandler{repo: repo}
}

func (h *ListTeamMembersHandler) Execute(ctx context.Context, event ListTeamMembersMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during member listing",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ListTeamMembersHandler) execute(ctx context.Context, event ListTeamMembersMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if _, err := h.repo.Teams().GetByID(ctx, event.TeamID); err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrTeamNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve team")
	}

	members, err := h.repo.Members().ListByTeam(ctx, event.TeamID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list team members")
	}

	for _, m := range members {
		if m.Account != nil {
			m.Account = m.Account.Sanitize()
		}
	}

	if event.OnResponse != nil {
		event.OnResponse(&ListTeamMembersResponse{Members: members})
	}

	return nil
}

type UpdateMemberRoleMessage struct {
	TeamID     uuid.UUID `json:"team_id"`
	MemberID   uuid.UUID `json:"member_id"`
	ActorID    uuid.UUID `json:"actor_id"`
	Role       TeamRole  `json:"role"`
	OnResponse func(resp *UpdateMemberRoleResponse)
}

func (e UpdateMemberRoleMessage) Type() string { return "team.update_member_role" }

type UpdateMemberRoleResponse struct {
	Membership *TeamMembership
}

type UpdateMemberRoleHandler struct {
	repo RepositoryManager
	sink ActivitySink
}

func NewUpdateMemberRoleHandler(repo RepositoryManager) *UpdateMemberRoleHandler {
	return &UpdateMemberRoleHandler{
		repo: repo,
		sink: noopActivitySink{},
	}
}

func (h *UpdateMemberRoleHandler) WithActivitySink(sink ActivitySink) *UpdateMemberRoleHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *UpdateMemberRoleHandler) Execute(ctx context.Context, event UpdateMemberRoleMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during member role update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateMemberRoleHandler) execute(ctx context.Context, event UpdateMemberRoleMessage) error {
	membership := &TeamMembership{}
	previousRole := TeamRole("")

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		membership, err = h.repo.Members().GetByIDTx(ctx, tx, event.MemberID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrMemberNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve membership")
		}

		if membership.TeamID != event.TeamID {
			return ErrMemberNotFound
		}

		// the admin seat is fixed, it can neither change role nor be granted
		if membership.Role == RoleAdmin || event.Role == RoleAdmin {
			return ErrCannotModifyAdmin
		}

		if err := h.repo.Members().UpdateRoleTx(ctx, tx, membership.ID, event.Role); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update member role")
		}

		activity := &TeamActivity{
			TeamID:      event.TeamID,
			MemberID:    event.ActorID,
			Action:      ActivityMemberRoleChanged,
			Description: "member role changed to " + string(event.Role),
			Metadata: map[string]any{
				"member_id": membership.ID.String(),
				"from":      membership.Role,
				"to":        event.Role,
			},
		}

		if _, err := h.repo.Activities().CreateTx(ctx, tx, activity); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not record role change activity")
		}

		previousRole = membership.Role
		membership.Role = event.Role

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "member role update transaction failed")
	}

	recordActivity(ctx, h.sink, ActivityEvent{
		EventType: ActivityEventMemberRoleChanged,
		Actor:     ActorRef{ID: event.ActorID.String(), Type: "account"},
		AccountID: membership.AccountID.String(),
		TeamID:    event.TeamID.String(),
		Metadata: map[string]any{
			"member_id": membership.ID.String(),
			"from":      previousRole,
			"to":        event.Role,
		},
	})

	if event.OnResponse != nil {
		event.OnResponse(&UpdateMemberRoleResponse{Membership: membership})
	}

	return nil
}

type RemoveMemberMessage struct {
	TeamID     uuid.UUID `json:"team_id"`
	MemberID   uuid.UUID `json:"member_id"`
	ActorID    uuid.UUID `json:"actor_id"`
	OnResponse func(resp *RemoveMemberResponse)
}

func (e RemoveMemberMessage) Type() string { return "team.remove_member" }

type RemoveMemberResponse struct {
	Removed *TeamMembership
}

type RemoveMemberHandler struct {
	repo RepositoryManager
	sink ActivitySink
}

func NewRemoveMemberHandler(repo RepositoryManager) *RemoveMemberHandler {
	return &RemoveMemberHandler{
		repo: repo,
		sink: noopActivitySink{},
	}
}

func (h *RemoveMemberHandler) WithActivitySink(sink ActivitySink) *RemoveMemberHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *RemoveMemberHandler) Execute(ctx context.Context, event RemoveMemberMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during member removal",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RemoveMemberHandler) execute(ctx context.Context, event RemoveMemberMessage) error {
	membership := &TeamMembership{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		membership, err = h.repo.Members().GetByIDTx(ctx, tx, event.MemberID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrMemberNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve membership")
		}

		if membership.TeamID != event.TeamID {
			return ErrMemberNotFound
		}

		if membership.Role == RoleAdmin {
			return ErrCannotModifyAdmin
		}

		if err := h.repo.Members().DeleteTx(ctx, tx, membership.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove member")
		}

		activity := &TeamActivity{
			TeamID:      event.TeamID,
			MemberID:    event.ActorID,
			Action:      ActivityMemberRemoved,
			Description: "member removed from the team",
			Metadata: map[string]any{
				"member_id":  membership.ID.String(),
				"account_id": membership.AccountID.String(),
			},
		}

		if _, err := h.repo.Activities().CreateTx(ctx, tx, activity); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not record removal activity")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "member removal transaction failed")
	}

	recordActivity(ctx, h.sink, ActivityEvent{
		EventType: ActivityEventMemberRemoved,
		Actor:     ActorRef{ID: event.ActorID.String(), Type: "account"},
		AccountID: membership.AccountID.String(),
		TeamID:    event.TeamID.String(),
		Metadata: map[string]any{
			"member_id": membership.ID.String(),
		},
	})

	if event.OnResponse != nil {
		event.OnResponse(&RemoveMemberResponse{Removed: membership})
	}

	return nil
}
