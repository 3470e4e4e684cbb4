package domain

import (
	"context"
	"regexp"
	"strings"
)

// ============================================================
// Família e usuários
// ============================================================

// Role distinguishes the family member who created the family from the others.
type Role string

const (
	RolePrimary   Role = "PRIMARY"
	RoleSecondary Role = "SECONDARY"
)

// User is a named actor inside exactly one family. It owns no data of its own.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	FamilyID   string `json:"familyId"`
	FamilyName string `json:"familyName"`
	Role       Role   `json:"role"`
}

// Scope is passed to every ledger call. It replaces any notion of a
// process-wide "current family".
type Scope struct {
	FamilyID   string
	FamilyName string
	UserID     string
	UserName   string
}

// Scope builds the ledger scope for this user.
func (u User) Scope() Scope {
	return Scope{
		FamilyID:   u.FamilyID,
		FamilyName: u.FamilyName,
		UserID:     u.ID,
		UserName:   u.Name,
	}
}

// SessionRequest is the body of POST /v1/session.
type SessionRequest struct {
	FamilyName string `json:"familyName"`
	UserName   string `json:"userName"`
	Role       Role   `json:"role,omitempty"`
}

// SessionResponse carries the signed session token and the user it encodes.
type SessionResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
	User      User   `json:"user"`
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeFamilyID turns a family name into its partition key:
// trimmed, lower-cased, whitespace runs replaced by a single '-'.
func NormalizeFamilyID(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

type scopeKey struct{}

// ContextWithScope stores the authenticated scope in ctx.
func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFromContext returns the scope set by the session middleware.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(Scope)
	return s, ok && s.FamilyID != ""
}
