package domain

import "time"

type LockerState string

const (
	LockerStateAvailable LockerState = "AVAILABLE"
	LockerStateReserved  LockerState = "RESERVED"
	LockerStateApproved  LockerState = "APPROVED"
)

// Locker is one physical slot in the fixed pool. A locker holds a student
// id iff its state is RESERVED or APPROVED.
type Locker struct {
	Number    int
	State     LockerState
	StudentID string
	UpdatedAt time.Time
}

// LockerView is the read-only projection returned to callers of the grid.
// RESERVED is surfaced as "PENDING"; internal state names never leak.
type LockerView struct {
	Number    int    `json:"lockerNumber"`
	State     string `json:"state"`
	StudentID string `json:"studentId,omitempty"`
}

func (l Locker) View() LockerView {
	state := string(l.State)
	if l.State == LockerStateReserved {
		state = "PENDING"
	}
	return LockerView{Number: l.Number, State: state, StudentID: l.StudentID}
}
