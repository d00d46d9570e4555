package auth

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Role is either one of the known role names or a validated custom
// identifier. The zero value is invalid; construct roles through the
// exported variables, ParseRole, or CustomRole.
type Role struct {
	name   string
	custom bool
}

var (
	RoleAdmin      = Role{name: "admin"}
	RoleDirector   = Role{name: "director"}
	RoleHR         = Role{name: "hr"}
	RoleManager    = Role{name: "manager"}
	RoleSupervisor = Role{name: "supervisor"}
	RoleEmployee   = Role{name: "employee"}
)

var knownRoles = map[string]Role{
	RoleAdmin.name:      RoleAdmin,
	RoleDirector.name:   RoleDirector,
	RoleHR.name:         RoleHR,
	RoleManager.name:    RoleManager,
	RoleSupervisor.name: RoleSupervisor,
	RoleEmployee.name:   RoleEmployee,
}

var customRolePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,31}$`)

// ParseRole resolves a role name to a known role, or to a custom role when
// the identifier passes validation.
func ParseRole(raw string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if role, ok := knownRoles[name]; ok {
		return role, nil
	}
	return CustomRole(name)
}

// CustomRole builds a custom role from a validated identifier.
func CustomRole(id string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(id))
	if !customRolePattern.MatchString(name) {
		return Role{}, fmt.Errorf("invalid role identifier %q", id)
	}
	if _, ok := knownRoles[name]; ok {
		return knownRoles[name], nil
	}
	return Role{name: name, custom: true}, nil
}

// KnownRoles returns the closed role set in display order.
func KnownRoles() []Role {
	return []Role{RoleAdmin, RoleDirector, RoleHR, RoleManager, RoleSupervisor, RoleEmployee}
}

func (r Role) String() string { return r.name }

func (r Role) IsZero() bool { return r.name == "" }

func (r Role) IsCustom() bool { return r.custom }

func (r Role) IsAdmin() bool { return r.name == RoleAdmin.name }

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.name)
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseRole(name)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Actor is the authorization context for a single call into the engine.
// It is built from the caller's session token and passed explicitly; the
// engine never reads ambient session state.
type Actor struct {
	UserID string
	Email  string
	Role   Role
}

func (a Actor) IsAdmin() bool { return a.Role.IsAdmin() }
