package learning

import "github.com/yungbote/courseflow-backend/internal/domain/user"

// CanView is the publication gate. Admins see everything, staff see their own
// courses in any state, everyone else sees published courses only.
func CanView(v user.Viewer, c *Course) bool {
	if c == nil {
		return false
	}
	if c.IsPublished {
		return true
	}
	return CanAuthor(v, c)
}

// CanAuthor reports whether v may mutate c.
func CanAuthor(v user.Viewer, c *Course) bool {
	if c == nil || v.IsAnonymous() {
		return false
	}
	switch v.Role {
	case user.RoleAdmin:
		return true
	case user.RoleStaff:
		return c.AuthorID == v.UserID
	default:
		return false
	}
}
