// internal/model/account.go
package model

import (
	"strconv"
	"strings"
)

const DefaultSMTPPort = 587

type Account struct {
	Server   string `csv:"smtp_server" json:"smtp_server" validate:"required"`
	Port     string `csv:"smtp_port" json:"smtp_port" validate:"required"`
	Username string `csv:"smtp_username" json:"smtp_username" validate:"required"`
	Password string `csv:"smtp_password" json:"smtp_password,omitempty" validate:"required"`
}

// PortNumber parses Port, falling back to 587 for empty or non-numeric values.
func (a *Account) PortNumber() int {
	p, err := strconv.Atoi(strings.TrimSpace(a.Port))
	if err != nil || p <= 0 {
		return DefaultSMTPPort
	}
	return p
}

// Public strips the password for listings.
func (a Account) Public() Account {
	a.Password = ""
	return a
}
