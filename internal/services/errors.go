package services

import "errors"

var (
	ErrDuplicateName = errors.New("cafe name already exists")
	ErrCafeNotFound  = errors.New("cafe not found")

	ErrEmailTaken    = errors.New("email already registered")
	ErrUnknownEmail  = errors.New("email does not exist")
	ErrWrongPassword = errors.New("password incorrect")
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidToken  = errors.New("invalid token")
)
