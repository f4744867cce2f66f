package models

import (
	"fmt"
	"time"
)

// Expense represents a single reimbursement claim. Status is mutated
// only by the workflow engine, never directly by a user.
type Expense struct {
	ID          int64     `json:"id"`
	EmployeeID  int64     `json:"employee_id"`
	Category    string    `json:"category"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Description string    `json:"description"`
	ExpenseDate time.Time `json:"expense_date"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Status values shared by expenses and approval instances
const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// DisplayStatus returns the human-facing status string. While the
// expense is pending it names the role whose decision is awaited.
func DisplayStatus(expense *Expense, active *ExpenseApproval) string {
	if expense.Status != StatusPending || active == nil {
		return expense.Status
	}
	return fmt.Sprintf("Pending %s Approval", active.ApproverRole)
}
