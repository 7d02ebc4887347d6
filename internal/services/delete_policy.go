package services

import (
	"strings"

	"cafewifi/internal/config"
	"cafewifi/internal/models"
)

// DeletePolicy decides who may delete cafes.
type DeletePolicy struct {
	Mode       string // one of config.DeleteOpen, DeleteUser, DeleteAdmin
	AdminEmail string // empty means the first registered account is the admin
}

// RequiresLogin reports whether anonymous visitors are refused.
func (p DeletePolicy) RequiresLogin() bool {
	return p.Mode != config.DeleteOpen
}

// Allows reports whether user (nil for anonymous) may delete cafes.
func (p DeletePolicy) Allows(user *models.User) bool {
	switch p.Mode {
	case config.DeleteOpen:
		return true
	case config.DeleteUser:
		return user != nil
	default:
		if user == nil {
			return false
		}
		if p.AdminEmail != "" {
			return strings.EqualFold(user.Email, p.AdminEmail)
		}
		return user.ID == 1
	}
}
