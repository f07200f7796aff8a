package domain

// Role names carried in session tokens.
const (
	RoleStudent          = "student"
	RoleDriver           = "driver"
	RoleAdmin            = "admin"
	RoleTransportManager = "transport_manager"
)

// StaffRoles are allowed on administrative endpoints.
var StaffRoles = []string{RoleAdmin, RoleTransportManager}

// IsStaffRole reports whether role may use staff endpoints.
func IsStaffRole(role string) bool {
	return role == RoleAdmin || role == RoleTransportManager
}

// Pagination carries paging params.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Normalize clamps page to >= 1 and page size to 1..max (default def).
func (p Pagination) Normalize(def, max int) Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = def
	}
	if p.PageSize > max {
		p.PageSize = max
	}
	return p
}

// Offset returns the SQL offset for the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Principal carries authenticated user info taken from the session token.
type Principal struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
	Email  string `json:"email"`
}

// UserType maps a role to the user_type stored on per-user rows.
func (p Principal) UserType() string {
	if IsStaffRole(p.Role) {
		return "staff"
	}
	return p.Role
}
