package userservice

import (
	"database/sql"
	"time"

	"github.com/trendstalk/trendstalk/internal/common"
)

// Role is the closed set of account roles. Anything outside this set is
// rejected at the service boundary.
type Role string

const (
	RoleReader  Role = "reader"
	RoleBlogger Role = "blogger"
	RoleAdmin   Role = "admin"
)

// AccessTokenTime is the lifetime of an issued bearer token.
const AccessTokenTime time.Duration = 7 * 24 * time.Hour

var AnonymousUser = User{}

type UserService struct {
	m      *DBModel
	mb     common.MessageProducer
	secret []byte
}

type DBModel struct {
	db *sql.DB
}

type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  Password  `json:"-"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	Version   int       `json:"-"`
}

type Password struct {
	Plain string `json:"-"`
	hash  []byte
}
