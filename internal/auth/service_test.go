package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/fitness-api/internal/apperr"
	"github.com/redmonkez12/fitness-api/internal/database"
	"github.com/redmonkez12/fitness-api/internal/storage"
	"github.com/redmonkez12/fitness-api/internal/user"
)

func strPtr(s string) *string { return &s }

func TestRegister(t *testing.T) {
	f := newServiceFixture(t)

	res := f.register(t, " a@x.com ", "pw1")

	assert.Equal(t, "a@x.com", res.User.Email)
	assert.Equal(t, testDefaultPhotoID, res.User.PublicIDProfilePhoto)
	assert.Equal(t, testDefaultPhotoURL, res.User.URLProfilePhoto)
	assert.NotEqual(t, "pw1", res.User.PasswordHash)

	rec := f.store.auth(res.User.ID)
	require.NotNil(t, rec, "auth record is created with the user")
	require.NotNil(t, rec.RefreshToken)
	assert.Equal(t, res.Tokens.RefreshToken, *rec.RefreshToken)
}

func TestRegister_Rejections(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t, "a@x.com", "pw1")

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "other"})
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = f.svc.Register(context.Background(), RegisterInput{Email: "", Password: "pw"})
	assert.ErrorIs(t, err, ErrCredentialsRequired)

	_, err = f.svc.Register(context.Background(), RegisterInput{Email: "b@x.com"})
	assert.ErrorIs(t, err, ErrCredentialsRequired)
}

func TestLogin(t *testing.T) {
	f := newServiceFixture(t)
	registered := f.register(t, "a@x.com", "pw1")

	_, err := f.svc.Login(context.Background(), "a@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), "nobody@x.com", "pw1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := f.svc.Login(context.Background(), "a@x.com", "pw1")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, res.User.ID)

	rec := f.store.auth(res.User.ID)
	assert.Equal(t, res.Tokens.RefreshToken, *rec.RefreshToken, "latest sign-in owns the refresh slot")
}

func TestRefresh_Rotates(t *testing.T) {
	f := newServiceFixture(t)
	first := f.register(t, "a@x.com", "pw1")

	second, err := f.svc.Refresh(context.Background(), first.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.Tokens.RefreshToken, second.Tokens.RefreshToken)

	_, err = f.svc.Refresh(context.Background(), first.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidAuthorization, "rotated token cannot be replayed")

	_, err = f.svc.Refresh(context.Background(), second.Tokens.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_Rejections(t *testing.T) {
	f := newServiceFixture(t)
	res := f.register(t, "a@x.com", "pw1")

	_, err := f.svc.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingAuth)

	_, err = f.svc.Refresh(context.Background(), res.Tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, f.ledger.Revoke(context.Background(), res.User.ID, res.Tokens.RefreshToken, res.Tokens.RefreshExpiresAt))
	_, err = f.svc.Refresh(context.Background(), res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRefresh_AuthRecordMissing(t *testing.T) {
	f := newServiceFixture(t)
	tokens, err := f.tokens.GenerateTokens(uuid.New())
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrAuthNotFound)
}

func TestLogout_RevokesBothTokens(t *testing.T) {
	f := newServiceFixture(t)
	res := f.register(t, "a@x.com", "pw1")
	claims, err := f.tokens.VerifyAccess(res.Tokens.AccessToken)
	require.NoError(t, err)

	f.svc.Logout(context.Background(), LogoutInput{
		UserID:       res.User.ID,
		AccessToken:  res.Tokens.AccessToken,
		AccessClaims: claims,
		RefreshToken: res.Tokens.RefreshToken,
	})

	assert.True(t, f.invalid.rows[revokedKey{res.User.ID, res.Tokens.AccessToken}])
	assert.True(t, f.invalid.rows[revokedKey{res.User.ID, res.Tokens.RefreshToken}])
	assert.Nil(t, f.store.auth(res.User.ID).RefreshToken)

	_, err = f.svc.Refresh(context.Background(), res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestLogout_RefreshOnlyDerivesUser(t *testing.T) {
	f := newServiceFixture(t)
	res := f.register(t, "a@x.com", "pw1")

	f.svc.Logout(context.Background(), LogoutInput{RefreshToken: res.Tokens.RefreshToken})

	assert.True(t, f.invalid.rows[revokedKey{res.User.ID, res.Tokens.RefreshToken}])
	assert.Len(t, f.invalid.rows, 1)
}

func TestLogout_Anonymous(t *testing.T) {
	f := newServiceFixture(t)

	f.svc.Logout(context.Background(), LogoutInput{RefreshToken: "garbage"})

	assert.Empty(t, f.invalid.rows)
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newServiceFixture(t)
	res := f.register(t, "a@x.com", "pw1")

	require.NoError(t, f.svc.ForgotPassword(context.Background(), "a@x.com"))
	token := f.mail.wait(t)

	rec := f.store.auth(res.User.ID)
	require.NotNil(t, rec.ResetPasswordToken)
	assert.Equal(t, token, *rec.ResetPasswordToken)

	require.NoError(t, f.svc.ResetPassword(context.Background(), token, "pw2"))

	rec = f.store.auth(res.User.ID)
	assert.Nil(t, rec.ResetPasswordToken)
	assert.Nil(t, rec.RefreshToken, "sessions are signed out by a reset")

	_, err := f.svc.Login(context.Background(), "a@x.com", "pw1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(context.Background(), "a@x.com", "pw2")
	assert.NoError(t, err)

	err = f.svc.ResetPassword(context.Background(), token, "pw3")
	assert.ErrorIs(t, err, ErrInvalidAuthorization, "reset token is single use")
}

func TestForgotPassword_NewTokenReplacesOld(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t, "a@x.com", "pw1")

	require.NoError(t, f.svc.ForgotPassword(context.Background(), "a@x.com"))
	first := f.mail.wait(t)
	require.NoError(t, f.svc.ForgotPassword(context.Background(), "a@x.com"))
	second := f.mail.wait(t)
	require.NotEqual(t, first, second)

	assert.ErrorIs(t, f.svc.ResetPassword(context.Background(), first, "pw2"), ErrInvalidAuthorization)
	assert.NoError(t, f.svc.ResetPassword(context.Background(), second, "pw2"))
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	f := newServiceFixture(t)

	err := f.svc.ForgotPassword(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestResetPassword_Rejections(t *testing.T) {
	f := newServiceFixture(t)
	res := f.register(t, "a@x.com", "pw1")

	assert.ErrorIs(t, f.svc.ResetPassword(context.Background(), "", "pw"), ErrMissingResetToken)
	assert.ErrorIs(t, f.svc.ResetPassword(context.Background(), "tok", ""), ErrMissingPassword)
	assert.ErrorIs(t, f.svc.ResetPassword(context.Background(), res.Tokens.AccessToken, "pw"), ErrInvalidToken)

	orphan, _, err := f.tokens.ResetToken(uuid.New())
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.ResetPassword(context.Background(), orphan, "pw"), ErrUserNotFound)

	never, _, err := f.tokens.ResetToken(res.User.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.ResetPassword(context.Background(), never, "pw"), ErrInvalidAuthorization, "token was never issued through forgot password")
}

func TestResetPassword_StoredExpirationWins(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t, "a@x.com", "pw1")

	require.NoError(t, f.svc.ForgotPassword(context.Background(), "a@x.com"))
	token := f.mail.wait(t)

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	err := f.svc.ResetPassword(context.Background(), token, "pw2")
	assert.ErrorIs(t, err, ErrResetTokenExpired)
}

func TestLoginWithIdentity(t *testing.T) {
	f := newServiceFixture(t)
	ident := &ExternalIdentity{Email: "g@x.com", EmailVerified: true, GivenName: "Gia", FamilyName: "Lee", Picture: "https://pics.test/g.png"}

	first, err := f.svc.LoginWithIdentity(context.Background(), ident)
	require.NoError(t, err)
	assert.Equal(t, "Gia", first.User.Name)
	assert.Equal(t, "https://pics.test/g.png", first.User.URLProfilePhoto)
	assert.Equal(t, testDefaultPhotoID, first.User.PublicIDProfilePhoto)
	require.NotNil(t, f.store.auth(first.User.ID))

	second, err := f.svc.LoginWithIdentity(context.Background(), ident)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)

	_, err = f.svc.LoginWithIdentity(context.Background(), &ExternalIdentity{})
	assert.ErrorIs(t, err, ErrInvalidAuthorization)
}

func TestLoginWithIdentity_UnverifiedEmail(t *testing.T) {
	f := newServiceFixture(t)
	owner := f.register(t, "a@x.com", "pw1")

	res, err := f.svc.LoginWithIdentity(context.Background(), &ExternalIdentity{Email: "a@x.com", EmailVerified: false})
	require.ErrorIs(t, err, ErrInvalidAuthorization)
	assert.Nil(t, res)

	// the existing session is untouched
	rec := f.store.auth(owner.User.ID)
	require.NotNil(t, rec)
	require.NotNil(t, rec.RefreshToken)
	assert.Equal(t, owner.Tokens.RefreshToken, *rec.RefreshToken)

	_, err = f.svc.LoginWithIdentity(context.Background(), &ExternalIdentity{Email: "new@x.com"})
	require.ErrorIs(t, err, ErrInvalidAuthorization)
	_, err = f.store.Users(nil).GetByEmail(context.Background(), "new@x.com")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestUpdateCurrentUser(t *testing.T) {
	f := newServiceFixture(t)
	res := f.register(t, "a@x.com", "pw1")
	f.register(t, "b@x.com", "pw1")
	ctx := context.Background()

	_, err := f.svc.UpdateCurrentUser(ctx, res.User.ID, UpdateInput{PasswordSupplied: true, Changes: user.Changes{Name: strPtr("x")}})
	assert.ErrorIs(t, err, ErrPasswordChange)

	_, err = f.svc.UpdateCurrentUser(ctx, res.User.ID, UpdateInput{})
	assert.ErrorIs(t, err, ErrNothingToUpdate)

	_, err = f.svc.UpdateCurrentUser(ctx, res.User.ID, UpdateInput{Changes: user.Changes{Email: strPtr("b@x.com")}})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = f.svc.UpdateCurrentUser(ctx, uuid.New(), UpdateInput{Changes: user.Changes{Name: strPtr("x")}})
	assert.ErrorIs(t, err, ErrUserNotFound)

	weight := 72.5
	updated, err := f.svc.UpdateCurrentUser(ctx, res.User.ID, UpdateInput{Changes: user.Changes{
		Email:  strPtr(" a@x.com "),
		Theme:  strPtr("dark"),
		Weight: &weight,
	}})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", updated.Email)
	assert.Equal(t, "dark", updated.Theme)
	assert.Equal(t, "Ana", updated.Name, "unsupplied fields keep their value")
	require.NotNil(t, updated.Weight)
	assert.Equal(t, 72.5, *updated.Weight)

	assert.Equal(t, f.store.user(res.User.ID).PasswordHash, res.User.PasswordHash)
}

func TestUpdateCurrentUser_Photo(t *testing.T) {
	f := newServiceFixture(t)
	res := f.register(t, "a@x.com", "pw1")
	ctx := context.Background()

	first := &storage.Image{PublicID: "profile/1.png", URL: "http://images.test/profile/1.png"}
	updated, err := f.svc.UpdateCurrentUser(ctx, res.User.ID, UpdateInput{Photo: first})
	require.NoError(t, err)
	assert.Equal(t, first.URL, updated.URLProfilePhoto)
	assert.Empty(t, f.images.deletedIDs(), "the default photo is shared and never deleted")

	second := &storage.Image{PublicID: "profile/2.png", URL: "http://images.test/profile/2.png"}
	_, err = f.svc.UpdateCurrentUser(ctx, res.User.ID, UpdateInput{Photo: second})
	require.NoError(t, err)
	assert.Equal(t, []string{"profile/1.png"}, f.images.deletedIDs())

	third := &storage.Image{PublicID: "profile/3.png", URL: "http://images.test/profile/3.png"}
	_, err = f.svc.UpdateCurrentUser(ctx, res.User.ID, UpdateInput{Photo: third, PasswordSupplied: true})
	assert.ErrorIs(t, err, ErrPasswordChange)
	assert.Equal(t, []string{"profile/1.png", "profile/3.png"}, f.images.deletedIDs(), "upload of a failed update is removed")
}

func TestDeleteCurrentUser(t *testing.T) {
	f := newServiceFixture(t)
	res := f.register(t, "a@x.com", "pw1")
	other := f.register(t, "b@x.com", "pw1")
	ctx := context.Background()

	_, err := f.svc.UpdateCurrentUser(ctx, res.User.ID, UpdateInput{Photo: &storage.Image{PublicID: "profile/me.png", URL: "u"}})
	require.NoError(t, err)
	require.NoError(t, f.ledger.Revoke(ctx, res.User.ID, "old-token", time.Now().Add(time.Minute)))
	require.NoError(t, f.ledger.Revoke(ctx, other.User.ID, "other-token", time.Now().Add(time.Minute)))

	require.NoError(t, f.svc.DeleteCurrentUser(ctx, res.User.ID))

	assert.Nil(t, f.store.user(res.User.ID))
	assert.Nil(t, f.store.auth(res.User.ID))
	assert.False(t, f.invalid.rows[revokedKey{res.User.ID, "old-token"}])
	assert.True(t, f.invalid.rows[revokedKey{other.User.ID, "other-token"}])
	assert.Equal(t, []uuid.UUID{res.User.ID}, f.cleaned)
	assert.Contains(t, f.images.deletedIDs(), "profile/me.png")

	_, err = f.svc.CurrentUser(ctx, res.User.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.ErrorIs(t, f.svc.DeleteCurrentUser(ctx, res.User.ID), ErrUserNotFound)
}

func TestResetPassword_RollsBackWhenAuthUpdateFails(t *testing.T) {
	db, mock := newMockDB(t)
	tokens := newTestTokenService(t, "jwt")
	svc := NewService(db, database.NewTxRunner(db), BunStore{}, tokens, nil, nil, nil, discardLogger(), Options{Argon2: testArgon2Params})

	userID := uuid.New()
	token, expiresAt, err := tokens.ResetToken(userID)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM "users" AS "user" WHERE \(id_user = '` + userID.String() + `'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id_user", "email", "password"}).AddRow(userID.String(), "a@x.com", "old-hash"))
	mock.ExpectQuery(`FROM "auth" AS "auth" WHERE \(id_user = '` + userID.String() + `'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id_user", "refresh_token", "reset_password_token", "reset_password_token_expiration"}).
			AddRow(userID.String(), "rt", token, expiresAt))
	mock.ExpectExec(`UPDATE "users" AS "user" SET password = `).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "auth"`).WillReturnError(errors.New("conn reset"))
	mock.ExpectRollback()

	err = svc.ResetPassword(context.Background(), token, "pw2")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperr.StatusOf(err))
	require.NoError(t, mock.ExpectationsWereMet(), "password update is rolled back, never committed")
}
