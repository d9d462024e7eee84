// Package authz decides whether a user may resolve a field. Requirements are
// expressed as groups of roles or policies: every group must be satisfied and
// a group is satisfied by any one of its members.
package authz

import "context"

// User is the identity a request executes as.
type User struct {
	ID    string
	Roles []string
}

func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type userKey struct{}

func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the user stored in ctx, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userKey{}).(*User)
	return u
}

// RequiredAuthorization lists what a field or type demands of the user.
type RequiredAuthorization struct {
	Roles    [][]string
	Policies [][]string
}

// RequireAllRoles adds one group per role.
func (r *RequiredAuthorization) RequireAllRoles(roles ...string) {
	for _, role := range roles {
		r.Roles = append(r.Roles, []string{role})
	}
}

// RequireAnyRole adds a single group satisfied by any of roles.
func (r *RequiredAuthorization) RequireAnyRole(roles ...string) {
	if len(roles) > 0 {
		r.Roles = append(r.Roles, append([]string(nil), roles...))
	}
}

func (r *RequiredAuthorization) RequireAllPolicies(policies ...string) {
	for _, p := range policies {
		r.Policies = append(r.Policies, []string{p})
	}
}

func (r *RequiredAuthorization) RequireAnyPolicy(policies ...string) {
	if len(policies) > 0 {
		r.Policies = append(r.Policies, append([]string(nil), policies...))
	}
}

// Merge returns the requirement demanding both r and other.
func (r *RequiredAuthorization) Merge(other *RequiredAuthorization) *RequiredAuthorization {
	switch {
	case r.IsEmpty():
		return other
	case other.IsEmpty():
		return r
	}
	return &RequiredAuthorization{
		Roles:    append(append([][]string(nil), r.Roles...), other.Roles...),
		Policies: append(append([][]string(nil), r.Policies...), other.Policies...),
	}
}

func (r *RequiredAuthorization) IsEmpty() bool {
	return r == nil || (len(r.Roles) == 0 && len(r.Policies) == 0)
}

// Authorizer evaluates requirements for a user. A nil user is anonymous.
type Authorizer interface {
	IsAuthorized(ctx context.Context, user *User, req *RequiredAuthorization) (bool, error)
}

// RoleAuthorizer checks role groups against User.Roles. It denies any
// policy requirement.
type RoleAuthorizer struct{}

func (RoleAuthorizer) IsAuthorized(_ context.Context, user *User, req *RequiredAuthorization) (bool, error) {
	if req.IsEmpty() {
		return true, nil
	}
	if len(req.Policies) > 0 {
		return false, nil
	}
	return rolesSatisfied(user, req.Roles), nil
}

func rolesSatisfied(user *User, groups [][]string) bool {
	for _, group := range groups {
		ok := false
		for _, role := range group {
			if user.HasRole(role) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
