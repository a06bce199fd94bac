package models

import "time"

const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

type TimeOffRequest struct {
	ID            string    `json:"id"`
	EmployeeID    string    `json:"employee_id"`
	EmployeeName  string    `json:"employee_name"`
	Role          string    `json:"role"`
	ManagerID     string    `json:"manager_id"`
	ManagerName   string    `json:"manager_name"`
	StartDate     string    `json:"start_date"` // YYYY-MM-DD
	EndDate       string    `json:"end_date"`
	Reason        string    `json:"reason"`
	Status        string    `json:"status"`
	ManagerNotes  string    `json:"manager_notes,omitempty"`
	HRMSRequestID string    `json:"hrms_request_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ProcessedAt   time.Time `json:"processed_at,omitzero"`
}
