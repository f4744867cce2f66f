package models

import "time"

// Company represents a tenant. Every user, approval rule and expense
// belongs to exactly one company.
type Company struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	DefaultCurrency string    `json:"default_currency"` // 3-letter code, e.g. "USD"
	CreatedAt       time.Time `json:"created_at"`
}

// User represents any account regardless of role
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CompanyID    int64     `json:"company_id"`
	ManagerID    *int64    `json:"manager_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Principal is the authenticated actor behind a request. Core
// operations take it explicitly instead of reading ambient state.
type Principal struct {
	ID        int64
	Role      string
	CompanyID int64
}

// Well-known roles. Approver roles on workflow steps are free-form
// tags; these are only the ones the server itself seeds or checks.
const (
	RoleAdmin    = "Admin"
	RoleManager  = "Manager"
	RoleEmployee = "Employee"
	RoleFinance  = "Finance"
	RoleDirector = "Director"
)
