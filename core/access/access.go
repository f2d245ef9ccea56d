// Package access implements the capability check guarding calendar mutations.
// The table is built once at startup and read-only thereafter; lookups are
// default-deny and must be consulted both when rendering a mutation control
// and inside the mutation handler itself.
package access

import (
	"sort"

	"github.com/tmwangi/chuo/core/user"
)

type Action string

const (
	ActionCreateHoliday Action = "holiday.create"
	ActionUpdateHoliday Action = "holiday.update"
	ActionDeleteHoliday Action = "holiday.delete"

	ActionCreateAcademicEvent Action = "academic_event.create"
	ActionUpdateAcademicEvent Action = "academic_event.update"
	ActionDeleteAcademicEvent Action = "academic_event.delete"

	ActionCreateSchedulePattern Action = "schedule_pattern.create"
	ActionUpdateSchedulePattern Action = "schedule_pattern.update"
	ActionDeleteSchedulePattern Action = "schedule_pattern.delete"

	ActionCreateScheduleException Action = "schedule_exception.create"
	ActionDeleteScheduleException Action = "schedule_exception.delete"
)

// Table maps a role (or role family prefix) to its allowed actions.
type Table map[string][]Action

// DefaultTable grants admins the full calendar surface and teachers the
// right to file schedule exceptions for their own classes. Students get
// read-only access, i.e. no entry at all.
func DefaultTable() Table {
	adminActions := []Action{
		ActionCreateHoliday, ActionUpdateHoliday, ActionDeleteHoliday,
		ActionCreateAcademicEvent, ActionUpdateAcademicEvent, ActionDeleteAcademicEvent,
		ActionCreateSchedulePattern, ActionUpdateSchedulePattern, ActionDeleteSchedulePattern,
		ActionCreateScheduleException, ActionDeleteScheduleException,
	}
	return Table{
		user.RoleAdmin:   adminActions,
		user.RoleTeacher: {ActionCreateScheduleException},
	}
}

type Gate struct {
	allowed map[string]map[Action]struct{}
}

// NewGate builds a Gate from the given table. The Gate never mutates after
// construction, so it is safe for concurrent use without locking.
func NewGate(table Table) *Gate {
	allowed := make(map[string]map[Action]struct{}, len(table))
	for role, actions := range table {
		set := make(map[Action]struct{}, len(actions))
		for _, action := range actions {
			set[action] = struct{}{}
		}
		allowed[role] = set
	}
	return &Gate{allowed: allowed}
}

// CanPerform reports whether a role may perform an action. A role inherits
// its family's capabilities: "admin:dean" falls back to the "admin:" entry.
// Any (role, action) pair absent from the table is denied.
func (g *Gate) CanPerform(role string, action Action) bool {
	if g.roleCan(role, action) {
		return true
	}
	if family := user.RoleFamily(role); family != role {
		return g.roleCan(family, action)
	}
	return false
}

// CanAny reports whether any of the actor's roles may perform the action.
func (g *Gate) CanAny(roles []string, action Action) bool {
	for _, role := range roles {
		if g.CanPerform(role, action) {
			return true
		}
	}
	return false
}

// AllowedActions lists every action the actor's roles may perform, sorted
// for a stable response. Portals use it to decide which mutation controls
// to render; the per-handler check still runs regardless.
func (g *Gate) AllowedActions(roles []string) []Action {
	allowed := make(map[Action]struct{})
	for _, role := range roles {
		for _, set := range []map[Action]struct{}{g.allowed[role], g.allowed[user.RoleFamily(role)]} {
			for action := range set {
				allowed[action] = struct{}{}
			}
		}
	}
	actions := make([]Action, 0, len(allowed))
	for action := range allowed {
		actions = append(actions, action)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

func (g *Gate) roleCan(role string, action Action) bool {
	set, ok := g.allowed[role]
	if !ok {
		return false
	}
	_, ok = set[action]
	return ok
}
