package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Invitations persists pending and accepted team invitations.
type Invitations interface {
	FindPending(ctx context.Context, teamID uuid.UUID, email string, now time.Time) (*Invitation, error)
	FindPendingTx(ctx context.Context, tx bun.IDB, teamID uuid.UUID, email string, now time.Time) (*Invitation, error)
	FindAcceptableTx(ctx context.Context, tx bun.IDB, code, email string, now time.Time) (*Invitation, error)
	ListByTeam(ctx context.Context, teamID uuid.UUID) ([]*Invitation, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Invitation) (*Invitation, error)
	MarkAcceptedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type invitations struct {
	repo repository.Repository[*Invitation]
	db   *bun.DB
}

var _ Invitations = (*invitations)(nil)

func NewInvitationsRepository(db *bun.DB) Invitations {
	return &invitations{
		repo: repository.NewRepository[*Invitation](db, repository.ModelHandlers[*Invitation]{
			NewRecord: func() *Invitation { return &Invitation{} },
			GetID: func(i *Invitation) uuid.UUID {
				if i == nil {
					return uuid.Nil
				}
				return i.ID
			},
			SetID: func(i *Invitation, id uuid.UUID) {
				if i != nil {
					i.ID = id
				}
			},
			GetIdentifier: func() string {
				return "code"
			},
		}),
		db: db,
	}
}

// FindPending returns the open, unexpired invitation for the address if one
// exists. Expired rows are ignored so a stale invitation never blocks a new one.
func (i *invitations) FindPending(ctx context.Context, teamID uuid.UUID, email string, now time.Time) (*Invitation, error) {
	return i.FindPendingTx(ctx, i.db, teamID, email, now)
}

func (i *invitations) FindPendingTx(ctx context.Context, tx bun.IDB, teamID uuid.UUID, email string, now time.Time) (*Invitation, error) {
	record := &Invitation{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.team_id = ?", teamID).
		Where("?TableAlias.email = ?", email).
		Where("?TableAlias.status = ?", InvitationPending).
		Where("?TableAlias.expires_at > ?", now).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"team_id": teamID.String(),
					"email":   email,
				})
		}
		return nil, err
	}

	return record, nil
}

// FindAcceptableTx resolves an invitation by code and invitee address. Only
// pending, unexpired rows qualify, which makes acceptance single use.
func (i *invitations) FindAcceptableTx(ctx context.Context, tx bun.IDB, code, email string, now time.Time) (*Invitation, error) {
	record := &Invitation{}
	err := tx.NewSelect().
		Model(record).
		Relation("Team").
		Where("?TableAlias.code = ?", code).
		Where("?TableAlias.email = ?", email).
		Where("?TableAlias.status = ?", InvitationPending).
		Where("?TableAlias.expires_at > ?", now).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (i *invitations) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]*Invitation, error) {
	records := []*Invitation{}
	err := i.db.NewSelect().
		Model(&records).
		Where("?TableAlias.team_id = ?", teamID).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (i *invitations) CreateTx(ctx context.Context, tx bun.IDB, record *Invitation) (*Invitation, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Status == "" {
		record.Status = InvitationPending
	}
	return i.repo.CreateTx(ctx, tx, record)
}

func (i *invitations) MarkAcceptedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewUpdate().
		Model((*Invitation)(nil)).
		Set("status = ?", InvitationAccepted).
		Set("updated_at = ?", time.Now()).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.status = ?", InvitationPending).
		Exec(ctx)

	if err != nil {
		return err
	}

	return requireAffectedRow(res, id)
}

// Activities persists the per team audit trail.
type Activities interface {
	CreateTx(ctx context.Context, tx bun.IDB, record *TeamActivity) (*TeamActivity, error)
	ListByTeam(ctx context.Context, teamID uuid.UUID, limit int) ([]*TeamActivity, error)
}

type activities struct {
	repo repository.Repository[*TeamActivity]
	db   *bun.DB
}

var _ Activities = (*activities)(nil)

func NewActivitiesRepository(db *bun.DB) Activities {
	return &activities{
		repo: repository.NewRepository[*TeamActivity](db, repository.ModelHandlers[*TeamActivity]{
			NewRecord: func() *TeamActivity { return &TeamActivity{} },
			GetID: func(a *TeamActivity) uuid.UUID {
				if a == nil {
					return uuid.Nil
				}
				return a.ID
			},
			SetID: func(a *TeamActivity, id uuid.UUID) {
				if a != nil {
					a.ID = id
				}
			},
		}),
		db: db,
	}
}

func (a *activities) CreateTx(ctx context.Context, tx bun.IDB, record *TeamActivity) (*TeamActivity, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.repo.CreateTx(ctx, tx, record)
}

func (a *activities) ListByTeam(ctx context.Context, teamID uuid.UUID, limit int) ([]*TeamActivity, error) {
	if limit <= 0 {
		limit = 50
	}

	records := []*TeamActivity{}
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.team_id = ?", teamID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}
