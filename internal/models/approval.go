package models

import "time"

// ApprovalRule is a company-scoped, ordered template of approval
// steps. Steps are immutable once any expense references them.
type ApprovalRule struct {
	ID          int64          `json:"id"`
	CompanyID   int64          `json:"company_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Steps       []ApprovalStep `json:"steps"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ApprovalStep is one numbered step in a rule. Step numbers within a
// rule are unique and contiguous starting at 1.
type ApprovalStep struct {
	ID           int64  `json:"id"`
	RuleID       int64  `json:"rule_id"`
	StepNumber   int    `json:"step_number"`
	ApproverRole string `json:"approver_role"`
}

// ExpenseApproval tracks one expense's progress at one step. At most
// one per expense is Pending at any time while the expense itself is
// Pending. StepNumber, ApproverRole and RuleID are denormalized from
// the joined step on read.
type ExpenseApproval struct {
	ID         int64  `json:"id"`
	ExpenseID  int64  `json:"expense_id"`
	StepID     int64  `json:"step_id"`
	ApproverID *int64 `json:"approver_id,omitempty"`
	Status     string `json:"status"`
	Comments   string `json:"comments"`

	StepNumber   int    `json:"step_number"`
	ApproverRole string `json:"approver_role"`
	RuleID       int64  `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PendingApproval is one row of an approver's inbox: a pending
// instance joined with its expense and the submitting employee.
type PendingApproval struct {
	InstanceID    int64     `json:"instance_id"`
	ExpenseID     int64     `json:"expense_id"`
	EmployeeEmail string    `json:"employee_email"`
	Category      string    `json:"category"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Description   string    `json:"description"`
	ExpenseDate   time.Time `json:"expense_date"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Decision outcomes an approver may record
const (
	DecisionApproved = StatusApproved
	DecisionRejected = StatusRejected
)
