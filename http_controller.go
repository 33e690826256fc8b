package identity

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

type ControllerRoutes struct {
	Signup           string
	VerifyEmail      string
	Login            string
	RefreshToken     string
	ForgotPassword   string
	ResetPassword    string
	Teams            string
	AcceptInvitation string
}

// Controller exposes the JSON API for accounts, sessions, and teams.
type Controller struct {
	Debug    bool
	Logger   Logger
	Repo     RepositoryManager
	Auther   *Auther
	HTTP     *RouteAuthenticator
	Notifier Notifier
	Sink     ActivitySink
	Routes   *ControllerRoutes
	cfg      Config
}

type ControllerOption func(*Controller) *Controller

func WithControllerRepository(repo RepositoryManager) ControllerOption {
	return func(c *Controller) *Controller {
		c.Repo = repo
		return c
	}
}

func WithControllerAuthenticator(auther *Auther, cfg Config) ControllerOption {
	return func(c *Controller) *Controller {
		c.Auther = auther
		c.cfg = cfg
		return c
	}
}

func WithControllerNotifier(notifier Notifier) ControllerOption {
	return func(c *Controller) *Controller {
		c.Notifier = notifier
		return c
	}
}

func WithControllerActivitySink(sink ActivitySink) ControllerOption {
	return func(c *Controller) *Controller {
		c.Sink = sink
		return c
	}
}

func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) *Controller {
		c.Logger = logger
		return c
	}
}

func WithControllerDebug(debug bool) ControllerOption {
	return func(c *Controller) *Controller {
		c.Debug = debug
		return c
	}
}

func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger: defLogger{},
		Routes: &ControllerRoutes{
			Signup:           "/auth/signup",
			VerifyEmail:      "/auth/verify-email",
			Login:            "/auth/login",
			RefreshToken:     "/auth/refresh-token",
			ForgotPassword:   "/auth/forgot-password",
			ResetPassword:    "/auth/reset-password",
			Teams:            "/teams",
			AcceptInvitation: "/teams/invitations/accept",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in identity controller...")
	}

	if c.Auther == nil || c.cfg == nil {
		panic("Missing Authenticator in identity controller...")
	}

	if c.HTTP == nil {
		httpAuth, err := NewHTTPAuthenticator(c.Auther, c.cfg)
		if err != nil {
			panic(err)
		}
		httpAuth.Logger = c.Logger
		c.HTTP = httpAuth
	}

	c.Notifier = normalizeNotifier(c.Notifier)
	c.Sink = normalizeActivitySink(c.Sink)

	return c
}

func RegisterRoutes[T any](app router.Router[T], opts ...ControllerOption) *Controller {
	c := NewController(opts...)

	app.Post(c.Routes.Signup, c.Signup).SetName("auth.signup")
	app.Post(c.Routes.VerifyEmail, c.VerifyEmail).SetName("auth.verify-email")
	app.Post(c.Routes.Login, c.Login).SetName("auth.login")
	app.Post(c.Routes.RefreshToken, c.RefreshToken).SetName("auth.refresh-token")
	app.Post(c.Routes.ForgotPassword, c.ForgotPassword).SetName("auth.forgot-password")
	app.Post(c.Routes.ResetPassword, c.ResetPassword).SetName("auth.reset-password")

	app.Post(c.Routes.AcceptInvitation, c.AcceptInvitation).SetName("teams.accept-invitation")

	protected := c.HTTP.ProtectedRoute()
	admin := RequireTeamRole(c.Repo.Members(), c.cfg.GetContextKey(), RoleAdmin)
	member := RequireTeamRole(c.Repo.Members(), c.cfg.GetContextKey(), AllTeamRoles()...)

	teams := c.Routes.Teams

	app.Post(teams+"/:teamId/invite", c.InviteMember, protected, admin).
		SetName("teams.invite")
	app.Get(teams+"/:teamId/members", c.ListMembers, protected, member).
		SetName("teams.members.list")
	app.Patch(teams+"/:teamId/members/:id/role", c.UpdateMemberRole, protected, admin).
		SetName("teams.members.role")
	app.Delete(teams+"/:teamId/members/:id", c.RemoveMember, protected, admin).
		SetName("teams.members.remove")
	app.Get(teams+"/:teamId/activity", c.ListActivity, protected, member).
		SetName("teams.activity.list")
	app.Get(teams+"/:teamId/invitations", c.ListInvitations, protected, admin).
		SetName("teams.invitations.list")

	return c
}

// SignupPayload is the registration body
type SignupPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (r SignupPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *Controller) Signup(ctx router.Context) error {
	payload := new(SignupPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.invalidPayload(ctx, err)
	}

	if a.Debug {
		a.Logger.Debug("signup payload", "payload", print.MaybePrettyJSON(payload))
	}

	var res *RegisterAccountResponse

	req := RegisterAccountMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Password:  payload.Password,
		OnResponse: func(resp *RegisterAccountResponse) {
			res = resp
		},
	}

	register := NewRegisterAccountHandler(a.Repo, a.Notifier).WithActivitySink(a.Sink)
	if err := register.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("signup error: ", "error", err)
		return respondError(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, map[string]any{
		"account": res.Account,
		"message": res.Message,
	})
}

// VerifyEmailPayload carries the one time code
type VerifyEmailPayload struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (r VerifyEmailPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

func (a *Controller) VerifyEmail(ctx router.Context) error {
	payload := new(VerifyEmailPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.invalidPayload(ctx, err)
	}

	var res *VerifyEmailResponse

	req := VerifyEmailMessage{
		Email: payload.Email,
		Code:  payload.Code,
		OnResponse: func(resp *VerifyEmailResponse) {
			res = resp
		},
	}

	verify := NewVerifyEmailHandler(a.Repo).WithActivitySink(a.Sink)
	if err := verify.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("verify email error: ", "error", err)
		return respondError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"account": res.Account,
		"message": res.Message,
	})
}

// LoginPayload is the credentials body
type LoginPayload struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *Controller) Login(ctx router.Context) error {
	payload := new(LoginPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.invalidPayload(ctx, err)
	}

	result, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password, payload.RememberMe)
	if err != nil {
		a.Logger.Error("login error: ", "error", err)
		return respondError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, result)
}

// RefreshTokenPayload carries the refresh token being rotated
type RefreshTokenPayload struct {
	RefreshToken string `json:"refresh_token"`
}

func (r RefreshTokenPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

func (a *Controller) RefreshToken(ctx router.Context) error {
	payload := new(RefreshTokenPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.invalidPayload(ctx, err)
	}

	result, err := a.Auther.Refresh(ctx.Context(), payload.RefreshToken)
	if err != nil {
		a.Logger.Error("refresh token error: ", "error", err)
		return respondError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, result)
}

// ForgotPasswordPayload identifies the account to reset
type ForgotPasswordPayload struct {
	Email string `json:"email"`
}

func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *Controller) ForgotPassword(ctx router.Context) error {
	payload := new(ForgotPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.invalidPayload(ctx, err)
	}

	var res *InitializePasswordResetResponse

	req := InitializePasswordResetMessage{
		Email: payload.Email,
		OnResponse: func(resp *InitializePasswordResetResponse) {
			res = resp
		},
	}

	initReset := NewInitializePasswordResetHandler(a.Repo, a.Notifier).WithActivitySink(a.Sink)
	if err := initReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("forgot password error: ", "error", err)
		return respondError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"email":   res.Email,
		"message": res.Message,
	})
}

// ResetPasswordPayload redeems a reset code for a new password
type ResetPasswordPayload struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required, validation.Length(6, 6), is.Digit),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *Controller) ResetPassword(ctx router.Context) error {
	payload := new(ResetPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.invalidPayload(ctx, err)
	}

	var res *FinalizePasswordResetResponse

	req := FinalizePasswordResetMessage{
		Email:    payload.Email,
		Code:     payload.Code,
		Password: payload.Password,
		OnResponse: func(resp *FinalizePasswordResetResponse) {
			res = resp
		},
	}

	finalize := NewFinalizePasswordResetHandler(a.Repo).WithActivitySink(a.Sink)
	if err := finalize.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("reset password error: ", "error", err)
		return respondError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"account": res.Account,
		"message": res.Message,
	})
}

// InviteMemberPayload is the invitation body
type InviteMemberPayload struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (r InviteMemberPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Role, validation.Required, validation.In(
			string(RoleEditor),
			string(RoleMember),
			string(RoleAdmin),
		)),
	)
}

func (a *Controller) InviteMember(ctx router.Context) error {
	payload := new(InviteMemberPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.invalidPayload(ctx, err)
	}

	teamID, err := a.teamIDParam(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	actorID, err := a.actorID(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	role, _ := ParseTeamRole(payload.Role)

	var res *InviteMemberResponse

	req := InviteMemberMessage{
		TeamID:    teamID,
		InviterID: actorID,
		Email:     payload.Email,
		Role:      role,
		OnResponse: func(resp *InviteMemberResponse) {
			res = resp
		},
	}

	invite := NewInviteMemberHandler(a.Repo, a.Notifier).WithActivitySink(a.Sink)
	if err := invite.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("invite member error: ", "error", err)
		return respondError(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, map[string]any{
		"invitation": res.Invitation,
		"message":    res.Message,
	})
}

// AcceptInvitationPayload redeems an invitation code
type AcceptInvitationPayload struct {
	Code      string `json:"code"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

func (r AcceptInvitationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required, validation.Length(6, 6)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *Controller) AcceptInvitation(ctx router.Context) error {
	payload := new(AcceptInvitationPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.invalidPayload(ctx, err)
	}

	var res *AcceptInvitationResponse

	req := AcceptInvitationMessage{
		Code:      payload.Code,
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Password:  payload.Password,
		OnResponse: func(resp *AcceptInvitationResponse) {
			res = resp
		},
	}

	accept := NewAcceptInvitationHandler(a.Repo, a.Auther.TokenService()).WithActivitySink(a.Sink)
	if err := accept.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("accept invitation error: ", "error", err)
		return respondError(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, map[string]any{
		"account":    res.Account,
		"membership": res.Membership,
		"token":      res.Token,
	})
}

func (a *Controller) ListMembers(ctx router.Context) error {
	teamID, err := a.teamIDParam(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	var res *ListTeamMembersResponse

	req := ListTeamMembersMessage{
		TeamID: teamID,
		OnResponse: func(resp *ListTeamMembersResponse) {
			res = resp
		},
	}

	list := NewListTeamMembersHandler(a.Repo)
	if err := list.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("list members error: ", "error", err)
		return respondError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"members": res.Members,
	})
}

// UpdateMemberRolePayload carries the new role for a membership
type UpdateMemberRolePayload struct {
	Role string `json:"role"`
}

func (r UpdateMemberRolePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, validation.In(
			string(RoleEditor),
			string(RoleMember),
			string(RoleAdmin),
		)),
	)
}

func (a *Controller) UpdateMemberRole(ctx router.Context) error {
	payload := new(UpdateMemberRolePayload)

	if err := ctx.Bind(payload); err != nil {
		return a.badPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.invalidPayload(ctx, err)
	}

	teamID, err := a.teamIDParam(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	memberID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return respondError(ctx, ErrMemberNotFound)
	}

	actorID, err := a.actorID(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	role, _ := ParseTeamRole(payload.Role)

	var res *UpdateMemberRoleResponse

	req := UpdateMemberRoleMessage{
		TeamID:   teamID,
		MemberID: memberID,
		ActorID:  actorID,
		Role:     role,
		OnResponse: func(resp *UpdateMemberRoleResponse) {
			res = resp
		},
	}

	update := NewUpdateMemberRoleHandler(a.Repo).WithActivitySink(a.Sink)
	if err := update.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("update member role error: ", "error", err)
		return respondError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"membership": res.Membership,
	})
}

func (a *Controller) RemoveMember(ctx router.Context) error {
	teamID, err := a.teamIDParam(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	memberID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return respondError(ctx, ErrMemberNotFound)
	}

	actorID, err := a.actorID(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	var res *RemoveMemberResponse

	req := RemoveMemberMessage{
		TeamID:   teamID,
		MemberID: memberID,
		ActorID:  actorID,
		OnResponse: func(resp *RemoveMemberResponse) {
			res = resp
		},
	}

	remove := NewRemoveMemberHandler(a.Repo).WithActivitySink(a.Sink)
	if err := remove.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("remove member error: ", "error", err)
		return respondError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"removed": res.Removed,
	})
}

func (a *Controller) ListActivity(ctx router.Context) error {
	teamID, err := a.teamIDParam(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	limit := ctx.QueryInt("limit", 50)

	entries, err := a.Repo.Activities().ListByTeam(ctx.Context(), teamID, limit)
	if err != nil {
		a.Logger.Error("list activity error: ", "error", err)
		return respondError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"activity": entries,
	})
}

func (a *Controller) ListInvitations(ctx router.Context) error {
	teamID, err := a.teamIDParam(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	invitations, err := a.Repo.Invitations().ListByTeam(ctx.Context(), teamID)
	if err != nil {
		a.Logger.Error("list invitations error: ", "error", err)
		return respondError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"invitations": invitations,
	})
}

func (a *Controller) teamIDParam(ctx router.Context) (uuid.UUID, error) {
	raw := ctx.Param("teamId", "")
	teamID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrTeamNotFound
	}
	return teamID, nil
}

func (a *Controller) actorID(ctx router.Context) (uuid.UUID, error) {
	claims, ok := GetRouterClaims(ctx, a.cfg.GetContextKey())
	if !ok {
		return uuid.Nil, ErrTokenMalformed
	}

	actorID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, ErrTokenMalformed
	}

	return actorID, nil
}

func (a *Controller) badPayload(ctx router.Context, err error) error {
	a.Logger.Error("payload parse error: ", "error", err)
	return respondError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
		WithCode(goerrors.CodeBadRequest))
}

func (a *Controller) invalidPayload(ctx router.Context, err error) error {
	richErr := goerrors.Wrap(err, goerrors.CategoryValidation, "invalid request payload").
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{
			"fields": FormatValidationErrorToMap(err),
		})

	debugError(a.Logger, richErr)

	return ctx.JSON(fiber.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"message":   richErr.Message,
			"text_code": richErr.TextCode,
			"fields":    FormatValidationErrorToMap(err),
		},
	})
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field to message map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	verrs, ok := err.(validation.Errors)
	if !ok {
		out["payload"] = err.Error()
		return out
	}

	for field, ferr := range verrs {
		out[field] = fmt.Sprintf("%v", ferr)
	}

	return out
}
