package identity

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Stable text codes surfaced alongside error messages so clients can
// branch without string matching.
const (
	TextCodeEmailTaken        = "EMAIL_TAKEN"
	TextCodeInvalidCreds      = "INVALID_CREDENTIALS"
	TextCodeEmailNotVerified  = "EMAIL_NOT_VERIFIED"
	TextCodeInvalidCode       = "INVALID_VERIFICATION_CODE"
	TextCodeEmailNotFound     = "EMAIL_NOT_REGISTERED"
	TextCodeInvalidReset      = "INVALID_RESET_CODE"
	TextCodeInvalidRefresh    = "INVALID_REFRESH_TOKEN"
	TextCodeTokenExpired      = "AUTH_TOKEN_EXPIRED"
	TextCodeTokenMalformed    = "AUTH_TOKEN_MALFORMED"
	TextCodeNotTeamMember     = "NOT_TEAM_MEMBER"
	TextCodeInsufficientRole  = "INSUFFICIENT_ROLE"
	TextCodeCannotInviteAdmin = "CANNOT_INVITE_ADMIN"
	TextCodeCannotModifyAdmin = "CANNOT_MODIFY_ADMIN"
	TextCodeTeamNotFound      = "TEAM_NOT_FOUND"
	TextCodeMemberNotFound    = "MEMBER_NOT_FOUND"
	TextCodeMemberExists      = "MEMBER_EXISTS"
	TextCodeInvitationPending = "INVITATION_PENDING"
	TextCodeInvalidInvitation = "INVALID_INVITATION"
	TextCodeEmptyPassword     = "EMPTY_PASSWORD"
)

// ErrEmailTaken signals a signup against an email already on record.
var ErrEmailTaken = goerrors.New("email address is already registered", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeEmailTaken)

// ErrInvalidCredentials covers both a missing account and a password
// mismatch so callers cannot tell the two apart.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCreds)

// ErrEmailNotVerified blocks login before email verification completes.
var ErrEmailNotVerified = goerrors.New("email address has not been verified", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeEmailNotVerified)

// ErrInvalidVerification signals a verify-email call that matched no account.
var ErrInvalidVerification = goerrors.New("invalid verification code or email", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeInvalidCode)

// ErrEmailNotRegistered is returned by forgot-password for unknown
// addresses. Deliberately informative; see the package design notes.
var ErrEmailNotRegistered = goerrors.New("email address is not registered", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeEmailNotFound)

// ErrInvalidResetCode signals a reset attempt with a wrong or expired code.
var ErrInvalidResetCode = goerrors.New("invalid or expired password reset code", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeInvalidReset)

// ErrInvalidRefreshToken covers malformed, expired, and rotated-away
// refresh tokens alike.
var ErrInvalidRefreshToken = goerrors.New("invalid refresh token", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidRefresh)

// ErrTokenExpired is the expiry branch of access token validation.
var ErrTokenExpired = goerrors.New("authentication token has expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed is every other access token validation failure.
var ErrTokenMalformed = goerrors.New("invalid authentication token", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrNotTeamMember rejects team-scoped calls from non-members. Any
// membership lookup failure maps here; the guard fails closed.
var ErrNotTeamMember = goerrors.New("you are not a member of this team", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeNotTeamMember)

// ErrInsufficientRole rejects members whose role is outside the
// endpoint's required set.
var ErrInsufficientRole = goerrors.New("your team role does not allow this action", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeInsufficientRole)

// ErrCannotInviteAdmin blocks invitations for the admin seat.
var ErrCannotInviteAdmin = goerrors.New("the admin role cannot be offered by invitation", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeCannotInviteAdmin)

// ErrCannotModifyAdmin guards the immutable admin membership.
var ErrCannotModifyAdmin = goerrors.New("the admin membership cannot be modified", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeCannotModifyAdmin)

var ErrTeamNotFound = goerrors.New("team not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode(TextCodeTeamNotFound)

var ErrMemberNotFound = goerrors.New("team member not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode(TextCodeMemberNotFound)

var ErrMemberExists = goerrors.New("this user is already a member of the team", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeMemberExists)

var ErrInvitationPending = goerrors.New("a pending invitation already exists for this email", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeInvitationPending)

// ErrInvalidInvitation covers unknown, consumed, and expired invitation
// codes; the three cases are indistinguishable to the caller.
var ErrInvalidInvitation = goerrors.New("invalid or expired invitation code", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode(TextCodeInvalidInvitation)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeEmptyPassword)

// ErrMismatchedHashAndPassword is the normalized bcrypt mismatch error.
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCreds)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return goerrors.Is(err, ErrTokenExpired) ||
		strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return goerrors.Is(err, ErrTokenMalformed) ||
		strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
