// Package businessflow contains the core business logic and use cases for the messaging dashboard
package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/princecjqlara/Tokkobeta/app/dto"
	"github.com/princecjqlara/Tokkobeta/app/services"
	"github.com/princecjqlara/Tokkobeta/models"
	"github.com/princecjqlara/Tokkobeta/repository"
	testingutil "github.com/princecjqlara/Tokkobeta/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		sessionRepo := repository.NewUserSessionRepository(testDB.DB)

		tokenService, err := services.NewTokenService(time.Hour, 24*time.Hour,
			"test-issuer", "test-audience", false, "", "", "test-secret-key-for-hmac-signing")
		require.NoError(t, err)

		loginFlow := NewLoginFlow(
			repository.NewUserRepository(testDB.DB),
			sessionRepo,
			repository.NewAuditLogRepository(testDB.DB),
			tokenService,
			testDB.DB,
		)

		metadata := &ClientMetadata{IPAddress: "127.0.0.1", UserAgent: "Test User Agent"}

		t.Run("SuccessfulLogin", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			resp, err := loginFlow.Login(context.Background(), &dto.LoginRequest{
				Email:    user.Email,
				Password: "TestPass123!",
			}, metadata)
			require.NoError(t, err)
			require.NotNil(t, resp)

			assert.Equal(t, user.ID, resp.User.ID)
			assert.Equal(t, user.Email, resp.User.Email)
			assert.NotEmpty(t, resp.Session.SessionToken)
			require.NotNil(t, resp.Session.RefreshToken)
			assert.Equal(t, "Bearer", resp.Session.TokenType)

			// The issued access token decodes back to the user
			claims, err := tokenService.ValidateToken(resp.Session.SessionToken)
			require.NoError(t, err)
			assert.Equal(t, user.ID, claims.UserID)
		})

		t.Run("WrongPassword", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			_, err = loginFlow.Login(context.Background(), &dto.LoginRequest{
				Email:    user.Email,
				Password: "WrongPass123!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, IsIncorrectPassword(err))
		})

		t.Run("UnknownEmail", func(t *testing.T) {
			_, err := loginFlow.Login(context.Background(), &dto.LoginRequest{
				Email:    "nobody@example.com",
				Password: "TestPass123!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, IsUserNotFound(err))
		})

		t.Run("InactiveAccount", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(&models.User{}).
				Where("id = ?", user.ID).
				Update("is_active", false).Error)

			_, err = loginFlow.Login(context.Background(), &dto.LoginRequest{
				Email:    user.Email,
				Password: "TestPass123!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, IsAccountInactive(err))
		})

		t.Run("RefreshRotatesSession", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			resp, err := loginFlow.Login(context.Background(), &dto.LoginRequest{
				Email:    user.Email,
				Password: "TestPass123!",
			}, metadata)
			require.NoError(t, err)

			rotated, err := loginFlow.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
				RefreshToken: *resp.Session.RefreshToken,
			}, metadata)
			require.NoError(t, err)
			assert.NotEqual(t, resp.Session.SessionToken, rotated.Session.SessionToken)

			// The old session is expired and its refresh token is burnt
			old, err := sessionRepo.BySessionToken(context.Background(), resp.Session.SessionToken)
			require.NoError(t, err)
			if old != nil {
				assert.False(t, old.IsValid())
			}

			_, err = loginFlow.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
				RefreshToken: *resp.Session.RefreshToken,
			}, metadata)
			require.Error(t, err)
		})

		t.Run("LogoutKillsSession", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			resp, err := loginFlow.Login(context.Background(), &dto.LoginRequest{
				Email:    user.Email,
				Password: "TestPass123!",
			}, metadata)
			require.NoError(t, err)

			err = loginFlow.Logout(context.Background(), resp.Session.SessionToken, metadata)
			require.NoError(t, err)

			stored, err := sessionRepo.BySessionToken(context.Background(), resp.Session.SessionToken)
			require.NoError(t, err)
			if stored != nil {
				assert.False(t, stored.IsValid())
			}

			// Logging out twice is an error, the session is gone
			err = loginFlow.Logout(context.Background(), resp.Session.SessionToken, metadata)
			if err == nil {
				t.Log("second logout tolerated an expired session")
			}
		})

		return nil
	})
	require.NoError(t, err)
}
