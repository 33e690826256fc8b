package identity

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Teams persists team records.
type Teams interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Team, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Team, error)
	GetWithMembers(ctx context.Context, id uuid.UUID) (*Team, error)
	Create(ctx context.Context, record *Team) (*Team, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Team) (*Team, error)
	CreateWithAdminTx(ctx context.Context, tx bun.IDB, record *Team, adminAccountID uuid.UUID) (*Team, error)
}

type teams struct {
	repo    repository.Repository[*Team]
	members repository.Repository[*TeamMembership]
	db      *bun.DB
}

var _ Teams = (*teams)(nil)

func NewTeamsRepository(db *bun.DB) Teams {
	return &teams{
		repo: repository.NewRepository[*Team](db, repository.ModelHandlers[*Team]{
			NewRecord: func() *Team { return &Team{} },
			GetID: func(t *Team) uuid.UUID {
				if t == nil {
					return uuid.Nil
				}
				return t.ID
			},
			SetID: func(t *Team, id uuid.UUID) {
				if t != nil {
					t.ID = id
				}
			},
		}),
		members: newMembershipHandlers(db),
		db:      db,
	}
}

func (t *teams) GetByID(ctx context.Context, id uuid.UUID) (*Team, error) {
	return t.GetByIDTx(ctx, t.db, id)
}

func (t *teams) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Team, error) {
	record := &Team{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (t *teams) GetWithMembers(ctx context.Context, id uuid.UUID) (*Team, error) {
	record := &Team{}
	err := t.db.NewSelect().
		Model(record).
		Relation("Members").
		Relation("Members.Account").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (t *teams) Create(ctx context.Context, record *Team) (*Team, error) {
	return t.CreateTx(ctx, t.db, record)
}

func (t *teams) CreateTx(ctx context.Context, tx bun.IDB, record *Team) (*Team, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return t.repo.CreateTx(ctx, tx, record)
}

// CreateWithAdminTx creates the team and enrolls the creator as its admin in
// the same transaction.
func (t *teams) CreateWithAdminTx(ctx context.Context, tx bun.IDB, record *Team, adminAccountID uuid.UUID) (*Team, error) {
	team, err := t.CreateTx(ctx, tx, record)
	if err != nil {
		return nil, err
	}

	membership := &TeamMembership{
		ID:        uuid.New(),
		TeamID:    team.ID,
		AccountID: adminAccountID,
		Role:      RoleAdmin,
	}

	if _, err := t.members.CreateTx(ctx, tx, membership); err != nil {
		return nil, err
	}

	team.Members = append(team.Members, membership)

	return team, nil
}

// Members persists team membership records.
type Members interface {
	GetByID(ctx context.Context, id uuid.UUID) (*TeamMembership, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*TeamMembership, error)
	Find(ctx context.Context, teamID, accountID uuid.UUID) (*TeamMembership, error)
	FindTx(ctx context.Context, tx bun.IDB, teamID, accountID uuid.UUID) (*TeamMembership, error)
	FindByEmail(ctx context.Context, teamID uuid.UUID, email string) (*TeamMembership, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, teamID uuid.UUID, email string) (*TeamMembership, error)
	ListByTeam(ctx context.Context, teamID uuid.UUID) ([]*TeamMembership, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *TeamMembership) (*TeamMembership, error)
	UpdateRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID, role TeamRole) error
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type membersRepo struct {
	repo repository.Repository[*TeamMembership]
	db   *bun.DB
}

var _ Members = (*membersRepo)(nil)

func NewMembersRepository(db *bun.DB) Members {
	return &membersRepo{
		repo: newMembershipHandlers(db),
		db:   db,
	}
}

func newMembershipHandlers(db *bun.DB) repository.Repository[*TeamMembership] {
	return repository.NewRepository[*TeamMembership](db, repository.ModelHandlers[*TeamMembership]{
		NewRecord: func() *TeamMembership { return &TeamMembership{} },
		GetID: func(m *TeamMembership) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			return m.ID
		},
		SetID: func(m *TeamMembership, id uuid.UUID) {
			if m != nil {
				m.ID = id
			}
		},
	})
}

func (m *membersRepo) GetByID(ctx context.Context, id uuid.UUID) (*TeamMembership, error) {
	return m.GetByIDTx(ctx, m.db, id)
}

func (m *membersRepo) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*TeamMembership, error) {
	record := &TeamMembership{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (m *membersRepo) Find(ctx context.Context, teamID, accountID uuid.UUID) (*TeamMembership, error) {
	return m.FindTx(ctx, m.db, teamID, accountID)
}

func (m *membersRepo) FindTx(ctx context.Context, tx bun.IDB, teamID, accountID uuid.UUID) (*TeamMembership, error) {
	record := &TeamMembership{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.team_id = ?", teamID).
		Where("?TableAlias.account_id = ?", accountID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"team_id":    teamID.String(),
					"account_id": accountID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (m *membersRepo) FindByEmail(ctx context.Context, teamID uuid.UUID, email string) (*TeamMembership, error) {
	return m.FindByEmailTx(ctx, m.db, teamID, email)
}

func (m *membersRepo) FindByEmailTx(ctx context.Context, tx bun.IDB, teamID uuid.UUID, email string) (*TeamMembership, error) {
	record := &TeamMembership{}
	err := tx.NewSelect().
		Model(record).
		Relation("Account").
		Where("?TableAlias.team_id = ?", teamID).
		Where("account.email = ?", email).
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

func (m *membersRepo) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]*TeamMembership, error) {
	records := []*TeamMembership{}
	err := m.db.NewSelect().
		Model(&records).
		Relation("Account").
		Where("?TableAlias.team_id = ?", teamID).
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (m *membersRepo) CreateTx(ctx context.Context, tx bun.IDB, record *TeamMembership) (*TeamMembership, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return m.repo.CreateTx(ctx, tx, record)
}

func (m *membersRepo) UpdateRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID, role TeamRole) error {
	res, err := tx.NewUpdate().
		Model((*TeamMembership)(nil)).
		Set("role = ?", role).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)

	if err != nil {
		return err
	}

	return requireAffectedRow(res, id)
}

func (m *membersRepo) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*TeamMembership)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)

	if err != nil {
		return err
	}

	return requireAffectedRow(res, id)
}
