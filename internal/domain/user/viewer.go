package user

import (
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleStaff     Role = "staff"
	RoleStudent   Role = "student"
	RoleAnonymous Role = "anonymous"
)

// ParseRole normalizes a role claim. Unknown values are treated as student.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleStaff:
		return RoleStaff
	case RoleAnonymous, "":
		return RoleAnonymous
	default:
		return RoleStudent
	}
}

// Viewer is the already-authenticated identity attached to a request.
type Viewer struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
}

func Anonymous() Viewer {
	return Viewer{Role: RoleAnonymous}
}

func (v Viewer) IsAdmin() bool { return v.Role == RoleAdmin }
func (v Viewer) IsStaff() bool { return v.Role == RoleStaff }

func (v Viewer) IsAnonymous() bool {
	return v.Role == RoleAnonymous || v.UserID == uuid.Nil
}

// CanAuthorCourses reports whether the viewer may create courses at all.
func (v Viewer) CanAuthorCourses() bool {
	return !v.IsAnonymous() && (v.IsAdmin() || v.IsStaff())
}
