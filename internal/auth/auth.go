// Package auth checks operator PINs for privileged register actions.
package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"restaurant-pos/internal/common/config"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
	RoleWaiter  Role = "waiter"
)

type Operator struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

func (o Operator) CanVoid() bool { return o.Role == RoleAdmin }

var ErrInvalidPIN = errors.New("invalid PIN")

type user struct {
	Operator
	hash []byte
}

// PINAuthorizer matches a PIN against the bcrypt hashes of the configured
// users. PINs themselves are never stored.
type PINAuthorizer struct {
	users []user
}

func NewPINAuthorizer(users []config.User) *PINAuthorizer {
	a := &PINAuthorizer{}
	for _, u := range users {
		if u.PINHash == "" {
			continue
		}
		a.users = append(a.users, user{
			Operator: Operator{Name: u.Name, Role: Role(strings.ToLower(u.Role))},
			hash:     []byte(u.PINHash),
		})
	}
	return a
}

// Identify returns the operator owning pin.
func (a *PINAuthorizer) Identify(ctx context.Context, pin string) (Operator, error) {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return Operator{}, ErrInvalidPIN
	}
	for _, u := range a.users {
		if err := ctx.Err(); err != nil {
			return Operator{}, err
		}
		if bcrypt.CompareHashAndPassword(u.hash, []byte(pin)) == nil {
			return u.Operator, nil
		}
	}
	return Operator{}, ErrInvalidPIN
}

// Verify reports whether pin belongs to a user allowed to void orders, and
// who that user is.
func (a *PINAuthorizer) Verify(ctx context.Context, pin string) (bool, Operator) {
	op, err := a.Identify(ctx, pin)
	if err != nil {
		return false, Operator{}
	}
	return op.CanVoid(), op
}

// HashPIN produces the value stored in the users config section.
func HashPIN(pin string) (string, error) {
	if len(strings.TrimSpace(pin)) < 4 {
		return "", errors.New("PIN must have at least 4 digits")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
