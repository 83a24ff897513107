// Package access decides which rows a principal may see and which actions it
// may perform. Every function here is a pure function of the principal and
// the ownership fields of the entity; callers apply the result to their own
// queries and writes.
package access

import (
	"errors"

	"github.com/yukikurage/taskscope/internal/models"
)

var (
	ErrForbidden         = errors.New("access denied")
	ErrReportUnavailable = errors.New("report only available for completed tasks")
	ErrNotAssignable     = errors.New("only USER accounts can be assigned to a manager")
)

// Principal is the authenticated identity a request acts as.
type Principal struct {
	ID   uint64
	Role models.Role
}

// PrincipalOf builds the principal for a loaded user.
func PrincipalOf(u *models.User) Principal {
	return Principal{ID: u.ID, Role: u.Role}
}

// Authenticated reports whether p carries a usable identity.
func (p Principal) Authenticated() bool {
	return p.ID != 0 && p.Role.Valid()
}

func (p Principal) is(role models.Role) bool {
	return p.Authenticated() && p.Role == role
}

// IsStaff reports whether p is an ADMIN or SUPERADMIN.
func (p Principal) IsStaff() bool {
	return p.Authenticated() && p.Role.IsStaff()
}

// TaskPredicate is an object-level authorization rule over a task.
type TaskPredicate func(p Principal, task *models.Task) bool

// All combines predicates; the result allows only when every predicate allows.
func All(preds ...TaskPredicate) TaskPredicate {
	return func(p Principal, task *models.Task) bool {
		for _, pred := range preds {
			if !pred(p, task) {
				return false
			}
		}
		return true
	}
}

// CanAccessTask is the object-level task check. The task's AssignedTo
// relation must be loaded so the assignee's manager is known.
func CanAccessTask(p Principal, task *models.Task) bool {
	if task == nil || !p.Authenticated() {
		return false
	}

	switch p.Role {
	case models.RoleSuperAdmin:
		return true
	case models.RoleAdmin:
		return managedBy(task, p.ID) || createdBy(task, p.ID)
	case models.RoleUser:
		return task.AssignedToID == p.ID
	}
	return false
}

func managedBy(task *models.Task, adminID uint64) bool {
	m := task.AssignedTo.ManagerID
	return task.AssignedTo.ID == task.AssignedToID && m != nil && *m == adminID
}

func createdBy(task *models.Task, userID uint64) bool {
	return task.CreatedByID != nil && *task.CreatedByID == userID
}

func staffOnly(p Principal, _ *models.Task) bool {
	return p.IsStaff()
}

// CanModifyTaskDetails allows changing title, description, due date or
// assignee of a visible task. Assignees may only report progress.
var CanModifyTaskDetails = All(staffOnly, CanAccessTask)

// CanDeleteTask allows deleting a visible task.
var CanDeleteTask = All(staffOnly, CanAccessTask)

// UserEditableTaskFields are the fields a USER may change on its own task.
var UserEditableTaskFields = map[string]struct{}{
	"status":            {},
	"completion_report": {},
	"worked_hours":      {},
}

// CanCreateTask reports whether p may create tasks at all.
func CanCreateTask(p Principal) bool {
	return p.IsStaff()
}

// CanAssignTaskTo reports whether p may make assignee responsible for a task.
// Only USER accounts take tasks; an ADMIN may only pick users it manages.
func CanAssignTaskTo(p Principal, assignee *models.User) bool {
	if assignee == nil || assignee.Role != models.RoleUser {
		return false
	}
	switch {
	case p.is(models.RoleSuperAdmin):
		return true
	case p.is(models.RoleAdmin):
		return assignee.ManagerID != nil && *assignee.ManagerID == p.ID
	}
	return false
}

// CanCreateStaff gates creation of ADMIN and SUPERADMIN accounts.
func CanCreateStaff(p Principal) bool {
	return p.is(models.RoleSuperAdmin)
}

// CanCreateUser gates creation of plain USER accounts.
func CanCreateUser(p Principal) bool {
	return p.is(models.RoleSuperAdmin)
}

// CanViewStaffDirectory gates the staff listing and dashboard.
func CanViewStaffDirectory(p Principal) bool {
	return p.IsStaff()
}

// CanAssignManager gates attaching users to a managing admin.
func CanAssignManager(p Principal) bool {
	return p.is(models.RoleSuperAdmin)
}

// AuthorizeManagerAssignment checks that p may attach target to a managing admin.
func AuthorizeManagerAssignment(p Principal, target *models.User) error {
	if !CanAssignManager(p) {
		return ErrForbidden
	}
	if target == nil || target.Role != models.RoleUser {
		return ErrNotAssignable
	}
	return nil
}

// AuthorizeTaskReport is the completion report gate. It only looks at the
// requester's role and the task status; ownership is applied by the caller's
// scoped lookup.
func AuthorizeTaskReport(p Principal, task *models.Task) error {
	if !p.Authenticated() || p.Role == models.RoleUser {
		return ErrForbidden
	}
	if task.Status != models.TaskStatusCompleted {
		return ErrReportUnavailable
	}
	return nil
}
