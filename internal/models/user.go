package models

import (
	"errors"
	"time"
)

var (
	ErrUsernameAlreadyUsed = errors.New("username already used")
	ErrInvalidFormat       = errors.New("invalid format")
	ErrWeakPasswd          = errors.New("weak password")
	ErrUserNotFound        = errors.New("user not found")
)

type User struct {
	ID          int
	Name        string
	IsSuperuser bool `db:"is_superuser"`
}

type UserView struct {
	User
	CreatedAt time.Time `db:"created_at"`
}
