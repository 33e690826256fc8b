package identity_test

import (
	"context"
	"database/sql"
	"time"

	identity "github.com/goliatone/go-identity"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockRepositoryManager implements identity.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
	AccountsRepo    *MockAccounts
	TeamsRepo       *MockTeams
	MembersRepo     *MockMembers
	InvitationsRepo *MockInvitations
	ActivitiesRepo  *MockActivities
}

func NewMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{
		AccountsRepo:    &MockAccounts{},
		TeamsRepo:       &MockTeams{},
		MembersRepo:     &MockMembers{},
		InvitationsRepo: &MockInvitations{},
		ActivitiesRepo:  &MockActivities{},
	}
}

func (m *MockRepositoryManager) Validate() error {
	return nil
}

func (m *MockRepositoryManager) MustValidate() {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Accounts() identity.Accounts {
	return m.AccountsRepo
}

func (m *MockRepositoryManager) Teams() identity.Teams {
	return m.TeamsRepo
}

func (m *MockRepositoryManager) Members() identity.Members {
	return m.MembersRepo
}

func (m *MockRepositoryManager) Invitations() identity.Invitations {
	return m.InvitationsRepo
}

func (m *MockRepositoryManager) Activities() identity.Activities {
	return m.ActivitiesRepo
}

// MockAccounts implements identity.Accounts
type MockAccounts struct {
	mock.Mock
}

func accountResult(args mock.Arguments) (*identity.Account, error) {
	var record *identity.Account
	if v := args.Get(0); v != nil {
		record = v.(*identity.Account)
	}
	return record, args.Error(1)
}

func (m *MockAccounts) GetByID(ctx context.Context, id uuid.UUID) (*identity.Account, error) {
	return accountResult(m.Called(ctx, id))
}

func (m *MockAccounts) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*identity.Account, error) {
	return accountResult(m.Called(ctx, tx, id))
}

func (m *MockAccounts) GetByEmail(ctx context.Context, email string) (*identity.Account, error) {
	return accountResult(m.Called(ctx, email))
}

func (m *MockAccounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*identity.Account, error) {
	return accountResult(m.Called(ctx, tx, email))
}

func (m *MockAccounts) GetByVerificationCode(ctx context.Context, email, code string) (*identity.Account, error) {
	return accountResult(m.Called(ctx, email, code))
}

func (m *MockAccounts) GetByResetCode(ctx context.Context, email, code string, now time.Time) (*identity.Account, error) {
	return accountResult(m.Called(ctx, email, code, now))
}

func (m *MockAccounts) Create(ctx context.Context, record *identity.Account) (*identity.Account, error) {
	return accountResult(m.Called(ctx, record))
}

func (m *MockAccounts) CreateTx(ctx context.Context, tx bun.IDB, record *identity.Account) (*identity.Account, error) {
	return accountResult(m.Called(ctx, tx, record))
}

func (m *MockAccounts) Update(ctx context.Context, record *identity.Account) (*identity.Account, error) {
	return accountResult(m.Called(ctx, record))
}

func (m *MockAccounts) UpdateTx(ctx context.Context, tx bun.IDB, record *identity.Account) (*identity.Account, error) {
	return accountResult(m.Called(ctx, tx, record))
}

func (m *MockAccounts) MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string) error {
	return m.Called(ctx, tx, id, code).Error(0)
}

func (m *MockAccounts) SetResetCodeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string, expiresAt time.Time) error {
	return m.Called(ctx, tx, id, code, expiresAt).Error(0)
}

func (m *MockAccounts) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code, passwordHash string) error {
	return m.Called(ctx, tx, id, code, passwordHash).Error(0)
}

func (m *MockAccounts) StoreRefreshTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string) error {
	return m.Called(ctx, tx, id, token).Error(0)
}

func (m *MockAccounts) RotateRefreshTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, presented, next string) error {
	return m.Called(ctx, tx, id, presented, next).Error(0)
}

// MockTeams implements identity.Teams
type MockTeams struct {
	mock.Mock
}

func teamResult(args mock.Arguments) (*identity.Team, error) {
	var record *identity.Team
	if v := args.Get(0); v != nil {
		record = v.(*identity.Team)
	}
	return record, args.Error(1)
}

func (m *MockTeams) GetByID(ctx context.Context, id uuid.UUID) (*identity.Team, error) {
	return teamResult(m.Called(ctx, id))
}

func (m *MockTeams) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*identity.Team, error) {
	return teamResult(m.Called(ctx, tx, id))
}

func (m *MockTeams) GetWithMembers(ctx context.Context, id uuid.UUID) (*identity.Team, error) {
	return teamResult(m.Called(ctx, id))
}

func (m *MockTeams) Create(ctx context.Context, record *identity.Team) (*identity.Team, error) {
	return teamResult(m.Called(ctx, record))
}

func (m *MockTeams) CreateTx(ctx context.Context, tx bun.IDB, record *identity.Team) (*identity.Team, error) {
	return teamResult(m.Called(ctx, tx, record))
}

func (m *MockTeams) CreateWithAdminTx(ctx context.Context, tx bun.IDB, record *identity.Team, adminAccountID uuid.UUID) (*identity.Team, error) {
	return teamResult(m.Called(ctx, tx, record, adminAccountID))
}

// MockMembers implements identity.Members
type MockMembers struct {
	mock.Mock
}

func membershipResult(args mock.Arguments) (*identity.TeamMembership, error) {
	var record *identity.TeamMembership
	if v := args.Get(0); v != nil {
		record = v.(*identity.TeamMembership)
	}
	return record, args.Error(1)
}

func (m *MockMembers) GetByID(ctx context.Context, id uuid.UUID) (*identity.TeamMembership, error) {
	return membershipResult(m.Called(ctx, id))
}

func (m *MockMembers) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*identity.TeamMembership, error) {
	return membershipResult(m.Called(ctx, tx, id))
}

func (m *MockMembers) Find(ctx context.Context, teamID, accountID uuid.UUID) (*identity.TeamMembership, error) {
	return membershipResult(m.Called(ctx, teamID, accountID))
}

func (m *MockMembers) FindTx(ctx context.Context, tx bun.IDB, teamID, accountID uuid.UUID) (*identity.TeamMembership, error) {
	return membershipResult(m.Called(ctx, tx, teamID, accountID))
}

func (m *MockMembers) FindByEmail(ctx context.Context, teamID uuid.UUID, email string) (*identity.TeamMembership, error) {
	return membershipResult(m.Called(ctx, teamID, email))
}

func (m *MockMembers) FindByEmailTx(ctx context.Context, tx bun.IDB, teamID uuid.UUID, email string) (*identity.TeamMembership, error) {
	return membershipResult(m.Called(ctx, tx, teamID, email))
}

func (m *MockMembers) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]*identity.TeamMembership, error) {
	args := m.Called(ctx, teamID)
	var records []*identity.TeamMembership
	if v := args.Get(0); v != nil {
		records = v.([]*identity.TeamMembership)
	}
	return records, args.Error(1)
}

func (m *MockMembers) CreateTx(ctx context.Context, tx bun.IDB, record *identity.TeamMembership) (*identity.TeamMembership, error) {
	return membershipResult(m.Called(ctx, tx, record))
}

func (m *MockMembers) UpdateRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID, role identity.TeamRole) error {
	return m.Called(ctx, tx, id, role).Error(0)
}

func (m *MockMembers) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	return m.Called(ctx, tx, id).Error(0)
}

// MockInvitations implements identity.Invitations
type MockInvitations struct {
	mock.Mock
}

func invitationResult(args mock.Arguments) (*identity.Invitation, error) {
	var record *identity.Invitation
	if v := args.Get(0); v != nil {
		record = v.(*identity.Invitation)
	}
	return record, args.Error(1)
}

func (m *MockInvitations) FindPending(ctx context.Context, teamID uuid.UUID, email string, now time.Time) (*identity.Invitation, error) {
	return invitationResult(m.Called(ctx, teamID, email, now))
}

func (m *MockInvitations) FindPendingTx(ctx context.Context, tx bun.IDB, teamID uuid.UUID, email string, now time.Time) (*identity.Invitation, error) {
	return invitationResult(m.Called(ctx, tx, teamID, email, now))
}

func (m *MockInvitations) FindAcceptableTx(ctx context.Context, tx bun.IDB, code, email string, now time.Time) (*identity.Invitation, error) {
	return invitationResult(m.Called(ctx, tx, code, email, now))
}

func (m *MockInvitations) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]*identity.Invitation, error) {
	args := m.Called(ctx, teamID)
	var records []*identity.Invitation
	if v := args.Get(0); v != nil {
		records = v.([]*identity.Invitation)
	}
	return records, args.Error(1)
}

func (m *MockInvitations) CreateTx(ctx context.Context, tx bun.IDB, record *identity.Invitation) (*identity.Invitation, error) {
	return invitationResult(m.Called(ctx, tx, record))
}

func (m *MockInvitations) MarkAcceptedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	return m.Called(ctx, tx, id).Error(0)
}

// MockActivities implements identity.Activities
type MockActivities struct {
	mock.Mock
}

func (m *MockActivities) CreateTx(ctx context.Context, tx bun.IDB, record *identity.TeamActivity) (*identity.TeamActivity, error) {
	args := m.Called(ctx, tx, record)
	var created *identity.TeamActivity
	if v := args.Get(0); v != nil {
		created = v.(*identity.TeamActivity)
	}
	return created, args.Error(1)
}

func (m *MockActivities) ListByTeam(ctx context.Context, teamID uuid.UUID, limit int) ([]*identity.TeamActivity, error) {
	args := m.Called(ctx, teamID, limit)
	var records []*identity.TeamActivity
	if v := args.Get(0); v != nil {
		records = v.([]*identity.TeamActivity)
	}
	return records, args.Error(1)
}

// MockNotifier implements identity.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendVerificationEmail(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

func (m *MockNotifier) SendPasswordResetEmail(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

func (m *MockNotifier) SendTeamInvitation(ctx context.Context, email, teamName, code string) error {
	return m.Called(ctx, email, teamName, code).Error(0)
}

// MockTokenService implements identity.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) IssuePair(accountID, email string, extended bool) (identity.TokenPair, error) {
	args := m.Called(accountID, email, extended)
	return args.Get(0).(identity.TokenPair), args.Error(1)
}

func (m *MockTokenService) Validate(tokenString string) (identity.AuthClaims, error) {
	args := m.Called(tokenString)
	var claims identity.AuthClaims
	if v := args.Get(0); v != nil {
		claims = v.(identity.AuthClaims)
	}
	return claims, args.Error(1)
}

func (m *MockTokenService) SignClaims(claims *identity.JWTClaims) (string, error) {
	args := m.Called(claims)
	return args.String(0), args.Error(1)
}

// testConfig implements identity.Config
type testConfig struct {
	signingKey       string
	contextKey       string
	tokenExpiration  int
	extendedDuration int
	authScheme       string
	issuer           string
	audience         []string
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:       "test-signing-key",
		contextKey:       "claims",
		tokenExpiration:  24,
		extendedDuration: 720,
		authScheme:       "Bearer",
		issuer:           "identity-test",
		audience:         []string{"identity-test"},
	}
}

func (c *testConfig) GetSigningKey() string         { return c.signingKey }
func (c *testConfig) GetContextKey() string         { return c.contextKey }
func (c *testConfig) GetTokenExpiration() int       { return c.tokenExpiration }
func (c *testConfig) GetExtendedTokenDuration() int { return c.extendedDuration }
func (c *testConfig) GetAuthScheme() string         { return c.authScheme }
func (c *testConfig) GetIssuer() string             { return c.issuer }
func (c *testConfig) GetAudience() []string         { return c.audience }

// recordingSink collects activity events for assertions
type recordingSink struct {
	events []identity.ActivityEvent
}

func (s *recordingSink) Record(ctx context.Context, event identity.ActivityEvent) error {
	s.events = append(s.events, event)
	return nil
}

// MockClaims implements identity.AuthClaims
type MockClaims struct {
	Sub   string
	UID   string
	Email string
	Exp   time.Time
	Iat   time.Time
}

func (c MockClaims) Subject() string      { return c.Sub }
func (c MockClaims) UserID() string       { return c.UID }
func (c MockClaims) EmailAddress() string { return c.Email }
func (c MockClaims) Expires() time.Time   { return c.Exp }
func (c MockClaims) IssuedAt() time.Time  { return c.Iat }

// MockContext mocks the router.Context
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}
