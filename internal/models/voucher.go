package models

import "time"

// Voucher records an Excel reimbursement voucher generated for a
// fully approved expense.
type Voucher struct {
	ID            int64     `json:"id"`
	ExpenseID     int64     `json:"expense_id"`
	VoucherNumber string    `json:"voucher_number"`
	FilePath      string    `json:"file_path"`
	CreatedAt     time.Time `json:"created_at"`
}
