package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"

	goerrors "github.com/goliatone/go-errors"
)

const invitationCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const invitationCodeLength = 6

// GenerateVerificationCode draws a 6 digit numeric code uniformly from
// 100000-999999.
func GenerateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification code")
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// GenerateInvitationCode draws a 6 character uppercase alphanumeric
// code, one uniform draw per character.
func GenerateInvitationCode() (string, error) {
	alphabet := big.NewInt(int64(len(invitationCodeAlphabet)))
	code := make([]byte, invitationCodeLength)

	for i := range code {
		n, err := rand.Int(rand.Reader, alphabet)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate invitation code")
		}
		code[i] = invitationCodeAlphabet[n.Int64()]
	}

	return string(code), nil
}
