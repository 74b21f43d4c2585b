package userservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/trendstalk/trendstalk/internal/common"
)

var ErrAuthenticationFailure = errors.New("invalid email or password")

func NewUserService(db *sql.DB, mb common.MessageProducer, secret []byte) *UserService {
	return &UserService{
		m:      newUserModel(db),
		mb:     mb,
		secret: secret,
	}
}

// RegisterUser creates an account and publishes a user.created event. The
// role defaults to reader when empty.
func (s *UserService) RegisterUser(ctx context.Context, username, email, password string, role Role) (*User, error) {
	if role == "" {
		role = RoleReader
	}

	v := common.NewValidator()
	validateUsername(v, username)
	validateEmail(v, email)
	validatePassword(v, password)
	validateRole(v, role)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	u := User{
		Username: username,
		Email:    email,
		Role:     role,
	}

	err := u.Password.set(password)
	if err != nil {
		return nil, err
	}

	err = s.m.insertUser(ctx, &u)
	if err != nil {
		return nil, err
	}

	data := struct {
		Email    string
		Username string
	}{
		Email:    u.Email,
		Username: u.Username,
	}

	eventData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	err = s.mb.Publish(ctx, eventData, common.UserCreatedKey, common.UserExchange)
	if err != nil {
		return nil, err
	}

	return &u, nil
}

// LoginUser authenticates by email and password and issues a bearer token.
// Unknown email and wrong password collapse into the same failure so callers
// cannot probe for registered addresses.
func (s *UserService) LoginUser(ctx context.Context, email, password string) (string, error) {
	v := common.NewValidator()
	validateEmail(v, email)
	validatePassword(v, password)
	if !v.Valid() {
		return "", v.ValidationError()
	}

	user, err := s.m.getUserByEmail(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return "", ErrAuthenticationFailure
		default:
			return "", err
		}
	}

	ok, err := user.Password.compare(password)
	if err != nil {
		return "", err
	}

	if !ok {
		return "", ErrAuthenticationFailure
	}

	return issueToken(s.secret, user)
}

// UserFromToken verifies the token signature and expiry and returns the
// current user row for the embedded identity.
func (s *UserService) UserFromToken(ctx context.Context, token string) (*User, error) {
	claims, err := parseToken(s.secret, token)
	if err != nil {
		return nil, err
	}

	id, err := claims.userID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.m.getUserByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, ErrInvalidToken
		default:
			return nil, err
		}
	}

	return user, nil
}

// PromoteUser changes an account's role. Not routed over HTTP; used by ops
// tooling and tests.
func (s *UserService) PromoteUser(ctx context.Context, id int, role Role) error {
	v := common.NewValidator()
	validateInt(v, id, "id")
	validateRole(v, role)
	if !v.Valid() {
		return v.ValidationError()
	}

	user, err := s.m.getUserByID(ctx, id)
	if err != nil {
		return err
	}

	return s.m.updateUserRole(ctx, user.ID, role, user.Version)
}
