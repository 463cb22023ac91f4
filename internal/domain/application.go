package domain

import "time"

type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "PENDING"
	ApplicationStatusApproved ApplicationStatus = "APPROVED"
)

// Application is a student's claim record against one locker. The id is
// assigned by the store and only ever grows, so "most recent application"
// always means highest id, never latest timestamp.
type Application struct {
	ID             int64
	StudentID      string
	Name           string
	Phone          string
	LockerNumber   int
	Status         ApplicationStatus
	LookupCodeHash string
	Memo           string
	CreatedAt      time.Time
}

// PendingApplication is the admin-facing projection of a PENDING claim.
type PendingApplication struct {
	ID           int64  `json:"id"`
	StudentID    string `json:"studentId"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	LockerNumber int    `json:"lockerNumber"`
}

// MyStatus is the student self-service status projection.
// Status is NONE, PENDING or APPROVED.
type MyStatus struct {
	StudentID    string `json:"studentId"`
	Status       string `json:"status"`
	LockerNumber int    `json:"lockerNumber,omitempty"`
	Message      string `json:"message"`
}

// MyLocker is the student self-service detail projection. Identifying
// fields and the memo are populated only when the claim is APPROVED.
type MyLocker struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	StudentID    string `json:"studentId"`
	Name         string `json:"name,omitempty"`
	Phone        string `json:"phone,omitempty"`
	LockerNumber int    `json:"lockerNumber,omitempty"`
	Memo         string `json:"memo,omitempty"`
}
