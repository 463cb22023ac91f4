package email

import (
	"context"
	"fmt"

	"github.com/seongmin-dev/lockerdesk/internal/kafka"
)

// Sender delivers admin alerts for locker events consumed off the
// events topic. Delivery is a stand-in print for now.
type Sender struct {
	adminAddr string
}

func NewSender(adminAddr string) *Sender {
	return &Sender{adminAddr: adminAddr}
}

func (s *Sender) Send(ctx context.Context, event kafka.LockerEvent) error {
	switch event.Type {
	case kafka.EventApplied:
		fmt.Printf("send email to %s: new application for locker %d from %s\n", s.adminAddr, event.LockerNumber, event.StudentID)
	case kafka.EventVacated:
		fmt.Printf("send email to %s: locker %d vacated by %s\n", s.adminAddr, event.LockerNumber, event.StudentID)
	default:
		fmt.Printf("send email to %s: %s on locker %d\n", s.adminAddr, event.Type, event.LockerNumber)
	}
	return nil
}
