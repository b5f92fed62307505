package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hugh/tarviz/internal/auth"
	"github.com/hugh/tarviz/internal/database/models"
	"github.com/hugh/tarviz/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type captureDispatcher struct {
	mu   sync.Mutex
	sent []auth.OTPMessage
	err  error
}

func (d *captureDispatcher) DispatchOTP(_ context.Context, msg auth.OTPMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, msg)
	return nil
}

func (d *captureDispatcher) last(t *testing.T) auth.OTPMessage {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	require.NotEmpty(t, d.sent, "no otp dispatched")
	return d.sent[len(d.sent)-1]
}

func newService(t *testing.T) (*auth.Service, *captureDispatcher, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	otp := auth.NewMemoryOTPStore(auth.OTPConfig{
		Length:       6,
		TTL:          5 * time.Minute,
		MaxAttempts:  5,
		ResendWindow: 0,
	})
	dispatch := &captureDispatcher{}
	svc := auth.NewService(db, testutil.CreateTestJWTService(), otp, dispatch, 5*time.Minute, nil)
	return svc, dispatch, db
}

func TestService_SignIn(t *testing.T) {
	svc, _, db := newService(t)
	ctx := testutil.TestContext(t)
	org := testutil.CreateTestOrg(t, db)
	user := testutil.CreateTestUser(t, db, org)

	t.Run("valid credentials", func(t *testing.T) {
		res, err := svc.SignIn(ctx, user.Email, testutil.TestPassword)
		require.NoError(t, err)
		assert.NotEmpty(t, res.Tokens.Access)
		assert.NotEmpty(t, res.Tokens.Refresh)
		assert.Equal(t, user.ID, res.User.ID)
		require.NotNil(t, res.User.Organization)
		assert.Equal(t, org.Name, res.User.Organization.Name)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.SignIn(ctx, user.Email, "nope")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.SignIn(ctx, "ghost@example.com", testutil.TestPassword)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("inactive user", func(t *testing.T) {
		inactive := testutil.CreateTestUser(t, db, org)
		require.NoError(t, db.Model(inactive).Update("is_active", false).Error)
		_, err := svc.SignIn(ctx, inactive.Email, testutil.TestPassword)
		assert.ErrorIs(t, err, auth.ErrInactiveUser)
	})
}

func TestService_SignupFlow(t *testing.T) {
	svc, dispatch, db := newService(t)
	ctx := testutil.TestContext(t)

	var hooked *models.User
	svc.OnSignup(func(_ context.Context, u *models.User) error {
		hooked = u
		return nil
	})

	require.NoError(t, svc.RequestSignup(ctx, "Jane@Acme.com", "Acme"))
	msg := dispatch.last(t)
	assert.Equal(t, "jane@acme.com", msg.Email)
	assert.Equal(t, auth.PurposeSignup, msg.Purpose)
	assert.Equal(t, "Acme", msg.Name)
	assert.Equal(t, 5*time.Minute, msg.ExpiresIn)

	_, err := svc.VerifySignup(ctx, "jane@acme.com", "999999x", "Secret123!")
	assert.ErrorIs(t, err, auth.ErrOTPInvalid)

	user, err := svc.VerifySignup(ctx, "jane@acme.com", msg.Code, "Secret123!")
	require.NoError(t, err)
	assert.Equal(t, models.RoleClient, user.Role)
	assert.True(t, user.EmailVerified)
	require.NotNil(t, user.Organization)
	assert.Equal(t, "Acme's Business", user.Organization.Name)
	assert.Same(t, user, hooked)

	var count int64
	db.Model(&models.Organization{}).Count(&count)
	assert.Equal(t, int64(1), count)

	res, err := svc.SignIn(ctx, "jane@acme.com", "Secret123!")
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)

	t.Run("pending signup is consumed", func(t *testing.T) {
		_, err := svc.VerifySignup(ctx, "jane@acme.com", msg.Code, "Secret123!")
		assert.ErrorIs(t, err, auth.ErrNoPendingSignup)
	})

	t.Run("existing email is refused", func(t *testing.T) {
		err := svc.RequestSignup(ctx, "jane@acme.com", "Acme")
		assert.ErrorIs(t, err, auth.ErrUserExists)
	})
}

func TestService_SignupHookFailureKeepsUser(t *testing.T) {
	svc, dispatch, _ := newService(t)
	ctx := testutil.TestContext(t)
	svc.OnSignup(func(context.Context, *models.User) error { return errors.New("seed failed") })

	require.NoError(t, svc.RequestSignup(ctx, "a@b.com", "Bo"))
	user, err := svc.VerifySignup(ctx, "a@b.com", dispatch.last(t).Code, "pw123456")
	require.NoError(t, err)
	assert.NotNil(t, user)
}

func TestService_DispatchFailure(t *testing.T) {
	svc, dispatch, _ := newService(t)
	dispatch.err = errors.New("smtp down")

	err := svc.RequestSignup(testutil.TestContext(t), "a@b.com", "Bo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dispatching otp")
}

func TestService_PasswordReset(t *testing.T) {
	svc, dispatch, db := newService(t)
	ctx := testutil.TestContext(t)
	user := testutil.CreateTestUser(t, db, testutil.CreateTestOrg(t, db))

	t.Run("unknown email succeeds without sending", func(t *testing.T) {
		require.NoError(t, svc.SendResetOTP(ctx, "ghost@example.com"))
		assert.Empty(t, dispatch.sent)
	})

	require.NoError(t, svc.SendResetOTP(ctx, user.Email))
	msg := dispatch.last(t)
	assert.Equal(t, auth.PurposeReset, msg.Purpose)

	require.NoError(t, svc.ResetPassword(ctx, user.Email, msg.Code, "BrandNew1!"))

	_, err := svc.SignIn(ctx, user.Email, testutil.TestPassword)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, user.Email, "BrandNew1!")
	assert.NoError(t, err)

	err = svc.ResetPassword(ctx, user.Email, msg.Code, "Again1!")
	assert.ErrorIs(t, err, auth.ErrOTPNotFound)
}

func TestService_ResendOTP(t *testing.T) {
	svc, dispatch, db := newService(t)
	ctx := testutil.TestContext(t)
	user := testutil.CreateTestUser(t, db, testutil.CreateTestOrg(t, db))

	t.Run("signup without pending signup", func(t *testing.T) {
		assert.ErrorIs(t, svc.ResendOTP(ctx, "a@b.com", auth.PurposeSignup), auth.ErrNoPendingSignup)
	})

	t.Run("signup", func(t *testing.T) {
		require.NoError(t, svc.RequestSignup(ctx, "a@b.com", "Bo"))
		require.NoError(t, svc.ResendOTP(ctx, "a@b.com", auth.PurposeSignup))
		second := dispatch.last(t)
		assert.Equal(t, "Bo", second.Name)

		_, err := svc.VerifySignup(ctx, "a@b.com", second.Code, "pw123456")
		require.NoError(t, err)
	})

	t.Run("reset", func(t *testing.T) {
		require.NoError(t, svc.ResendOTP(ctx, user.Email, auth.PurposeReset))
		assert.Equal(t, auth.PurposeReset, dispatch.last(t).Purpose)
	})

	t.Run("unknown purpose", func(t *testing.T) {
		assert.ErrorIs(t, svc.ResendOTP(ctx, user.Email, "login"), auth.ErrInvalidPurpose)
	})
}

func TestService_Refresh(t *testing.T) {
	svc, _, db := newService(t)
	ctx := testutil.TestContext(t)
	user := testutil.CreateTestUser(t, db, testutil.CreateTestOrg(t, db))

	res, err := svc.SignIn(ctx, user.Email, testutil.TestPassword)
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, res.Tokens.Refresh)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refreshed.User.ID)
	assert.NotEmpty(t, refreshed.Tokens.Access)

	_, err = svc.Refresh(ctx, res.Tokens.Access)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestService_UpdateProfile(t *testing.T) {
	svc, _, db := newService(t)
	ctx := testutil.TestContext(t)
	user := testutil.CreateTestUser(t, db, testutil.CreateTestOrg(t, db))

	updated, err := svc.UpdateProfile(ctx, user.ID,
		auth.BusinessInput{
			Name:            "Acme Traders Pvt Ltd",
			Address:         "12 Mount Road, Chennai",
			GSTIN:           "33AAACA1234A1Z5",
			HSN:             "998361",
			Email:           "accounts@acme.in",
			Phone:           "+91 98400 00000",
			WhatsAppConsent: true,
		},
		auth.ContactInput{
			Salutation: "Ms",
			FirstName:  "Jane",
			LastName:   "Doe",
			Phone:      "+91 98400 11111",
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "Ms", updated.Salutation)
	assert.Equal(t, "Jane Doe", updated.Name())
	assert.Equal(t, user.Email, updated.Email, "login email is unchanged")
	require.NotNil(t, updated.Organization)
	assert.Equal(t, "Acme Traders Pvt Ltd", updated.Organization.Name)
	assert.Equal(t, "33AAACA1234A1Z5", updated.Organization.GSTIN)
	assert.True(t, updated.Organization.WhatsAppConsent)
}
