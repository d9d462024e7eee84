package authz

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	log "github.com/sirupsen/logrus"
)

//go:embed model.conf
var policyModel string

// PolicyAuthorizer checks roles like RoleAuthorizer and evaluates policy
// groups with casbin. A policy is granted when a "p, subject, policy" rule
// matches the user ID or one of the user's roles, directly or through a
// "g" grouping rule.
type PolicyAuthorizer struct {
	enforcer *casbin.Enforcer
}

// NewPolicyAuthorizer loads rules from a casbin CSV policy file. An empty
// path starts with no rules.
func NewPolicyAuthorizer(policyPath string) (*PolicyAuthorizer, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("load policy model: %w", err)
	}
	var e *casbin.Enforcer
	if policyPath == "" {
		e, err = casbin.NewEnforcer(m)
	} else {
		e, err = casbin.NewEnforcer(m, policyPath)
	}
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	return &PolicyAuthorizer{enforcer: e}, nil
}

// Grant allows subject (a user ID or a role) the named policy.
func (a *PolicyAuthorizer) Grant(subject, policy string) error {
	_, err := a.enforcer.AddPolicy(subject, policy)
	return err
}

// Assign makes subject inherit the grants of role.
func (a *PolicyAuthorizer) Assign(subject, role string) error {
	_, err := a.enforcer.AddGroupingPolicy(subject, role)
	return err
}

func (a *PolicyAuthorizer) IsAuthorized(_ context.Context, user *User, req *RequiredAuthorization) (bool, error) {
	if req.IsEmpty() {
		return true, nil
	}
	if !rolesSatisfied(user, req.Roles) {
		return false, nil
	}
	if len(req.Policies) == 0 {
		return true, nil
	}
	if user == nil {
		return false, nil
	}
	subjects := append([]string{user.ID}, user.Roles...)
	for _, group := range req.Policies {
		ok, err := a.anyGranted(subjects, group)
		if err != nil {
			return false, err
		}
		if !ok {
			log.WithFields(log.Fields{"user": user.ID, "policies": group}).Debug("policy denied")
			return false, nil
		}
	}
	return true, nil
}

func (a *PolicyAuthorizer) anyGranted(subjects, policies []string) (bool, error) {
	for _, policy := range policies {
		for _, sub := range subjects {
			ok, err := a.enforcer.Enforce(sub, policy)
			if err != nil {
				return false, fmt.Errorf("enforce %s for %s: %w", policy, sub, err)
			}
			if ok {
				return true, nil
			}
		}
	}
	return false, nil
}
