package userservice

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/trendstalk/trendstalk/internal/common"
)

var testSecret = []byte("test-signing-secret")

func setupTestEnvironment(t *testing.T) (*UserService, *sql.DB, func() error, error) {
	db := common.TestDB("file://../../migrations", t)
	connURL := common.TestRabbitMQ(t)
	mb, err := common.NewMessageBroker(connURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("could not create message broker: %w", err)
	}

	err = common.SetupUserExchange(mb)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("could not setup user exchange: %w", err)
	}

	cleanup := func() error {
		_, err := db.Exec("DELETE FROM users")
		return err
	}

	return NewUserService(db, mb, testSecret), db, cleanup, nil
}

func TestRegisterUser(t *testing.T) {
	s, db, cleanup, err := setupTestEnvironment(t)
	assert.NoError(t, err)

	testCases := []struct {
		name        string
		username    string
		email       string
		password    string
		role        Role
		expectedErr error
	}{
		{
			name:     "valid user",
			username: "testuser",
			email:    "testuser@example.com",
			password: "TestPassword123!",
		},
		{
			name:        "empty username",
			email:       "testuser@example.com",
			password:    "TestPassword123!",
			expectedErr: common.ValidationError{Errors: map[string]string{"username": "must be provided"}},
		},
		{
			name:        "invalid email",
			username:    "testuser",
			email:       "not-an-email",
			password:    "TestPassword123!",
			expectedErr: common.ValidationError{Errors: map[string]string{"email": "must be a valid email address"}},
		},
		{
			name:        "short password",
			username:    "testuser",
			email:       "testuser@example.com",
			password:    "short",
			expectedErr: common.ValidationError{Errors: map[string]string{"password": "must be between 8 and 72 characters long"}},
		},
		{
			name:        "unknown role",
			username:    "testuser",
			email:       "testuser@example.com",
			password:    "TestPassword123!",
			role:        Role("superuser"),
			expectedErr: common.ValidationError{Errors: map[string]string{"role": "must be one of reader, blogger, or admin"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			user, err := s.RegisterUser(ctx, tc.username, tc.email, tc.password, tc.role)
			assert.Equal(t, tc.expectedErr, err)

			if err == nil {
				assert.NotZero(t, user.ID)
				assert.Equal(t, RoleReader, user.Role)

				// the stored digest must never equal the plaintext
				var stored []byte
				err = db.QueryRow("SELECT password FROM users WHERE id = $1", user.ID).Scan(&stored)
				assert.NoError(t, err)
				assert.NotEqual(t, []byte(tc.password), stored)
				assert.NotEmpty(t, stored)
			}

			t.Cleanup(func() {
				assert.NoError(t, cleanup())
			})
		})
	}
}

func TestRegisterUserDuplicateEmail(t *testing.T) {
	s, _, cleanup, err := setupTestEnvironment(t)
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = s.RegisterUser(ctx, "first", "shared@example.com", "TestPassword123!", RoleReader)
	assert.NoError(t, err)

	// email uniqueness is case-insensitive
	_, err = s.RegisterUser(ctx, "second", "Shared@Example.com", "TestPassword123!", RoleReader)
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	t.Cleanup(func() {
		assert.NoError(t, cleanup())
	})
}

func TestLoginUser(t *testing.T) {
	s, _, cleanup, err := setupTestEnvironment(t)
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, err := s.RegisterUser(ctx, "testuser", "testuser@example.com", "TestPassword123!", RoleBlogger)
	assert.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		token, err := s.LoginUser(ctx, "testuser@example.com", "TestPassword123!")
		assert.NoError(t, err)
		assert.NotEmpty(t, token)

		// the token decodes back to the account's identity and role
		claims, err := parseToken(testSecret, token)
		assert.NoError(t, err)

		id, err := claims.userID()
		assert.NoError(t, err)
		assert.Equal(t, user.ID, id)
		assert.Equal(t, "testuser", claims.Username)
		assert.Equal(t, "blogger", claims.Role)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		_, wrongPasswordErr := s.LoginUser(ctx, "testuser@example.com", "WrongPassword123!")
		_, unknownEmailErr := s.LoginUser(ctx, "nobody@example.com", "TestPassword123!")

		assert.ErrorIs(t, wrongPasswordErr, ErrAuthenticationFailure)
		assert.ErrorIs(t, unknownEmailErr, ErrAuthenticationFailure)
		assert.Equal(t, wrongPasswordErr, unknownEmailErr)
	})

	t.Cleanup(func() {
		assert.NoError(t, cleanup())
	})
}

func TestUserFromToken(t *testing.T) {
	s, _, cleanup, err := setupTestEnvironment(t)
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	registered, err := s.RegisterUser(ctx, "testuser", "testuser@example.com", "TestPassword123!", RoleReader)
	assert.NoError(t, err)

	token, err := s.LoginUser(ctx, "testuser@example.com", "TestPassword123!")
	assert.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		user, err := s.UserFromToken(ctx, token)
		assert.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)
		assert.Equal(t, "testuser", user.Username)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := s.UserFromToken(ctx, "not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		forged, err := issueToken([]byte("other-secret"), registered)
		assert.NoError(t, err)

		_, err = s.UserFromToken(ctx, forged)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Cleanup(func() {
		assert.NoError(t, cleanup())
	})
}

func TestPromoteUser(t *testing.T) {
	s, _, cleanup, err := setupTestEnvironment(t)
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, err := s.RegisterUser(ctx, "testuser", "testuser@example.com", "TestPassword123!", RoleReader)
	assert.NoError(t, err)

	err = s.PromoteUser(ctx, user.ID, RoleBlogger)
	assert.NoError(t, err)

	token, err := s.LoginUser(ctx, "testuser@example.com", "TestPassword123!")
	assert.NoError(t, err)

	promoted, err := s.UserFromToken(ctx, token)
	assert.NoError(t, err)
	assert.Equal(t, RoleBlogger, promoted.Role)
	assert.True(t, promoted.Role.CanAuthor())

	err = s.PromoteUser(ctx, user.ID, Role("emperor"))
	assert.Equal(t, common.ValidationError{Errors: map[string]string{"role": "must be one of reader, blogger, or admin"}}, err)

	t.Cleanup(func() {
		assert.NoError(t, cleanup())
	})
}
