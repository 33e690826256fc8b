package identity_test

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	identity "github.com/goliatone/go-identity"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInitializePasswordResetHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a code and emails it", func(t *testing.T) {
		repo := NewMockRepositoryManager()
		notifier := &MockNotifier{}

		account := &identity.Account{ID: uuid.New(), Email: "pepe.rone@example.com"}

		var storedCode string
		var storedExpiry time.Time

		repo.AccountsRepo.On("GetByEmailTx", mock.Anything, mock.Anything, account.Email).
			Return(account, nil)
		repo.AccountsRepo.On("SetResetCodeTx",
			mock.Anything, mock.Anything, account.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
			Run(func(args mock.Arguments) {
				storedCode = args.Get(3).(string)
				storedExpiry = args.Get(4).(time.Time)
			}).
			Return(nil)
		notifier.On("SendPasswordResetEmail", mock.Anything, account.Email, mock.AnythingOfType("string")).
			Return(nil)

		sink := &recordingSink{}
		handler := identity.NewInitializePasswordResetHandler(repo, notifier).WithActivitySink(sink)
		err := handler.Execute(ctx, identity.InitializePasswordResetMessage{
			Email: account.Email,
		})

		require.NoError(t, err)
		assert.Len(t, storedCode, 6)
		assert.WithinDuration(t, time.Now().Add(time.Hour), storedExpiry, time.Minute)

		notifier.AssertCalled(t, "SendPasswordResetEmail", mock.Anything, account.Email, storedCode)

		require.Len(t, sink.events, 1)
		assert.Equal(t, identity.ActivityEventPasswordResetRequest, sink.events[0].EventType)
		assert.Equal(t, account.ID.String(), sink.events[0].AccountID)
	})

	t.Run("unknown email fails", func(t *testing.T) {
		repo := NewMockRepositoryManager()
		notifier := &MockNotifier{}

		repo.AccountsRepo.On("GetByEmailTx", mock.Anything, mock.Anything, "nobody@example.com").
			Return(nil, repository.NewRecordNotFound())

		handler := identity.NewInitializePasswordResetHandler(repo, notifier)
		err := handler.Execute(ctx, identity.InitializePasswordResetMessage{
			Email: "nobody@example.com",
		})

		require.Error(t, err)
		assert.True(t, goerrors.Is(err, identity.ErrEmailNotRegistered))
		notifier.AssertNotCalled(t, "SendPasswordResetEmail", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestFinalizePasswordResetHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("rehashes the password and clears the code", func(t *testing.T) {
		repo := NewMockRepositoryManager()

		account := &identity.Account{ID: uuid.New(), Email: "pepe.rone@example.com"}

		var newHash string

		repo.AccountsRepo.On("GetByResetCode",
			mock.Anything, account.Email, "654321", mock.AnythingOfType("time.Time")).
			Return(account, nil)
		repo.AccountsRepo.On("ResetPasswordTx",
			mock.Anything, mock.Anything, account.ID, "654321", mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) {
				newHash = args.Get(4).(string)
			}).
			Return(nil)

		var res *identity.FinalizePasswordResetResponse

		sink := &recordingSink{}
		handler := identity.NewFinalizePasswordResetHandler(repo).WithActivitySink(sink)
		err := handler.Execute(ctx, identity.FinalizePasswordResetMessage{
			Email:    account.Email,
			Code:     "654321",
			Password: "brand new password",
			OnResponse: func(resp *identity.FinalizePasswordResetResponse) {
				res = resp
			},
		})

		require.NoError(t, err)
		require.NotNil(t, res)
		assert.NotEqual(t, "brand new password", newHash)
		require.NoError(t, identity.ComparePasswordAndHash("brand new password", newHash))

		require.Len(t, sink.events, 1)
		assert.Equal(t, identity.ActivityEventPasswordResetSuccess, sink.events[0].EventType)
		assert.Equal(t, account.ID.String(), sink.events[0].AccountID)
	})

	t.Run("concurrently redeemed code fails", func(t *testing.T) {
		repo := NewMockRepositoryManager()

		account := &identity.Account{ID: uuid.New(), Email: "pepe.rone@example.com"}

		repo.AccountsRepo.On("GetByResetCode",
			mock.Anything, account.Email, "654321", mock.AnythingOfType("time.Time")).
			Return(account, nil)
		repo.AccountsRepo.On("ResetPasswordTx",
			mock.Anything, mock.Anything, account.ID, "654321", mock.AnythingOfType("string")).
			Return(identity.ErrInvalidResetCode)

		handler := identity.NewFinalizePasswordResetHandler(repo)
		err := handler.Execute(ctx, identity.FinalizePasswordResetMessage{
			Email:    account.Email,
			Code:     "654321",
			Password: "brand new password",
		})

		require.Error(t, err)
		assert.True(t, goerrors.Is(err, identity.ErrInvalidResetCode))
	})

	t.Run("wrong or expired code fails", func(t *testing.T) {
		repo := NewMockRepositoryManager()

		repo.AccountsRepo.On("GetByResetCode",
			mock.Anything, "pepe.rone@example.com", "000000", mock.AnythingOfType("time.Time")).
			Return(nil, repository.NewRecordNotFound())

		handler := identity.NewFinalizePasswordResetHandler(repo)
		err := handler.Execute(ctx, identity.FinalizePasswordResetMessage{
			Email:    "pepe.rone@example.com",
			Code:     "000000",
			Password: "brand new password",
		})

		require.Error(t, err)
		assert.True(t, goerrors.Is(err, identity.ErrInvalidResetCode))
		repo.AccountsRepo.AssertNotCalled(t, "ResetPasswordTx",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
