package lockers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/seongmin-dev/lockerdesk/internal/domain"
	"github.com/seongmin-dev/lockerdesk/internal/kafka"
	"github.com/seongmin-dev/lockerdesk/internal/repository"
	"github.com/seongmin-dev/lockerdesk/internal/secret"
)

// Engine is the reservation state machine. It is the only writer of
// lockers and applications; callers get projections, never entities.
type Engine interface {
	GetLockerGrid(ctx context.Context) ([]domain.LockerView, error)
	Apply(ctx context.Context, input ApplyInput) (string, error)
	GetMyStatus(ctx context.Context, studentID, code string) (*domain.MyStatus, error)
	GetMyLocker(ctx context.Context, studentID, code string) (*domain.MyLocker, error)
	SaveMyMemo(ctx context.Context, studentID, code, memo string) error
	EmptyMyLocker(ctx context.Context, studentID, code string) error

	GetPendingList(ctx context.Context) ([]domain.PendingApplication, error)
	Approve(ctx context.Context, applicationID int64) error
	Reject(ctx context.Context, applicationID int64) error
	ClearApprovedLocker(ctx context.Context, lockerNumber int) error
	ResetAll(ctx context.Context) error
	AdminAssignApproved(ctx context.Context, input ApplyInput) (string, error)
}

// TxRunner runs a function inside one transaction spanning both
// repositories. Every mutation goes through it; partial writes are
// impossible.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type GridCache interface {
	GetGrid(ctx context.Context) ([]domain.LockerView, error)
	SetGrid(ctx context.Context, grid []domain.LockerView) error
	InvalidateGrid(ctx context.Context) error
}

type Notifier interface {
	StateChanged(ctx context.Context, event kafka.LockerEvent)
}

type LockerService struct {
	tx       TxRunner
	lockers  repository.LockerRepository
	apps     repository.ApplicationRepository
	cache    GridCache
	notifier Notifier
	poolSize int
}

type ApplyInput struct {
	StudentID    string `json:"studentId"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	LockerNumber int    `json:"lockerNumber"`
}

// Fixed user-facing messages. The front end shows them verbatim.
const (
	msgNone     = "no locker currently in use"
	msgPending  = "application received; waiting for admin approval"
	msgApproved = "approved and in use"
)

func NewLockerService(
	tx TxRunner,
	lockers repository.LockerRepository,
	apps repository.ApplicationRepository,
	cache GridCache,
	notifier Notifier,
	poolSize int,
) *LockerService {
	return &LockerService{
		tx:       tx,
		lockers:  lockers,
		apps:     apps,
		cache:    cache,
		notifier: notifier,
		poolSize: poolSize,
	}
}

// Init creates any missing locker rows 1..poolSize. Idempotent, run at
// startup.
func (s *LockerService) Init(ctx context.Context) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.lockers.EnsureInitialized(ctx, s.poolSize)
	})
}

// -----------------------
// Public
// -----------------------

func (s *LockerService) GetLockerGrid(ctx context.Context) ([]domain.LockerView, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetGrid(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	list, err := s.lockers.List(ctx)
	if err != nil {
		return nil, err
	}

	grid := make([]domain.LockerView, 0, len(list))
	for _, l := range list {
		grid = append(grid, l.View())
	}
	if s.cache != nil {
		_ = s.cache.SetGrid(ctx, grid)
	}
	return grid, nil
}

// Apply claims an AVAILABLE locker for the student and returns the
// lookup code. The code is shown to the student once and only its hash
// survives.
func (s *LockerService) Apply(ctx context.Context, input ApplyInput) (string, error) {
	studentID := strings.TrimSpace(input.StudentID)
	name := strings.TrimSpace(input.Name)
	phone := strings.TrimSpace(input.Phone)
	if studentID == "" || name == "" || phone == "" {
		return "", domain.Conflictf("student id, name and phone are required")
	}

	code, err := secret.Generate()
	if err != nil {
		return "", err
	}
	hash, err := secret.Hash(code)
	if err != nil {
		return "", err
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.preventDuplicateApply(ctx, studentID); err != nil {
			return err
		}

		locker, err := s.lockers.GetForUpdate(ctx, input.LockerNumber)
		if err != nil {
			return err
		}
		if locker.State != domain.LockerStateAvailable {
			return domain.Conflictf("locker %d is already reserved or in use", locker.Number)
		}

		app := &domain.Application{
			StudentID:      studentID,
			Name:           name,
			Phone:          phone,
			LockerNumber:   input.LockerNumber,
			Status:         domain.ApplicationStatusPending,
			LookupCodeHash: hash,
		}
		if err := s.apps.Create(ctx, app); err != nil {
			return err
		}
		return s.lockers.SetState(ctx, input.LockerNumber, domain.LockerStateReserved, studentID)
	})
	if err != nil {
		return "", err
	}

	s.afterMutation(ctx, kafka.LockerEvent{
		Type:         kafka.EventApplied,
		LockerNumber: input.LockerNumber,
		StudentID:    studentID,
		Status:       string(domain.ApplicationStatusPending),
		At:           time.Now(),
	})
	return code, nil
}

// A student may hold at most one active claim. A stale record whose
// locker has since been freed does not count.
func (s *LockerService) preventDuplicateApply(ctx context.Context, studentID string) error {
	last, err := s.apps.LatestByStudent(ctx, studentID)
	if err != nil {
		return err
	}
	if last == nil {
		return nil
	}

	locker, err := s.lockers.Get(ctx, last.LockerNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	stillUsing := locker.State != domain.LockerStateAvailable
	active := last.Status == domain.ApplicationStatusPending || last.Status == domain.ApplicationStatusApproved
	if stillUsing && active {
		return domain.Conflictf("you already have an active locker application")
	}
	return nil
}

func (s *LockerService) GetMyStatus(ctx context.Context, studentID, code string) (*domain.MyStatus, error) {
	app, err := s.requireValidLookup(ctx, studentID, code)
	if err != nil {
		return nil, err
	}

	locker, err := s.lockers.Get(ctx, app.LockerNumber)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if locker == nil || locker.State == domain.LockerStateAvailable {
		// The application outlived its locker (clear, reset). Report no
		// locker rather than a claim that no longer exists.
		return &domain.MyStatus{StudentID: app.StudentID, Status: "NONE", Message: msgNone}, nil
	}

	if app.Status == domain.ApplicationStatusPending {
		return &domain.MyStatus{
			StudentID:    app.StudentID,
			Status:       string(domain.ApplicationStatusPending),
			LockerNumber: app.LockerNumber,
			Message:      msgPending,
		}, nil
	}
	return &domain.MyStatus{
		StudentID:    app.StudentID,
		Status:       string(domain.ApplicationStatusApproved),
		LockerNumber: app.LockerNumber,
		Message:      msgApproved,
	}, nil
}

func (s *LockerService) GetMyLocker(ctx context.Context, studentID, code string) (*domain.MyLocker, error) {
	app, err := s.requireValidLookup(ctx, studentID, code)
	if err != nil {
		return nil, err
	}

	if app.Status != domain.ApplicationStatusApproved {
		if app.Status == domain.ApplicationStatusPending {
			return &domain.MyLocker{
				Status:       string(domain.ApplicationStatusPending),
				Message:      msgPending,
				StudentID:    app.StudentID,
				LockerNumber: app.LockerNumber,
			}, nil
		}
		return &domain.MyLocker{Status: "NONE", Message: msgNone, StudentID: app.StudentID}, nil
	}

	return &domain.MyLocker{
		Status:       string(domain.ApplicationStatusApproved),
		Message:      msgApproved,
		StudentID:    app.StudentID,
		Name:         app.Name,
		Phone:        app.Phone,
		LockerNumber: app.LockerNumber,
		Memo:         app.Memo,
	}, nil
}

func (s *LockerService) SaveMyMemo(ctx context.Context, studentID, code, memo string) error {
	var lockerNumber int
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		app, err := s.requireApprovedHolder(ctx, studentID, code)
		if err != nil {
			return err
		}
		lockerNumber = app.LockerNumber
		return s.apps.UpdateMemo(ctx, app.ID, memo)
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, kafka.LockerEvent{
		Type:         kafka.EventMemo,
		LockerNumber: lockerNumber,
		StudentID:    strings.TrimSpace(studentID),
		Status:       string(domain.ApplicationStatusApproved),
		At:           time.Now(),
	})
	return nil
}

// EmptyMyLocker is the student-initiated clear: the application is
// deleted and the locker returns to the pool.
func (s *LockerService) EmptyMyLocker(ctx context.Context, studentID, code string) error {
	var lockerNumber int
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		app, err := s.requireApprovedHolder(ctx, studentID, code)
		if err != nil {
			return err
		}
		lockerNumber = app.LockerNumber

		if err := s.apps.DeleteByID(ctx, app.ID); err != nil {
			return err
		}
		return s.lockers.SetState(ctx, app.LockerNumber, domain.LockerStateAvailable, "")
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, kafka.LockerEvent{
		Type:         kafka.EventVacated,
		LockerNumber: lockerNumber,
		StudentID:    strings.TrimSpace(studentID),
		At:           time.Now(),
	})
	return nil
}

// requireValidLookup resolves the student's most recent application and
// verifies the lookup code against its stored hash. Any failure is
// Unauthenticated; the message never reveals whether the student id or
// the code was wrong.
func (s *LockerService) requireValidLookup(ctx context.Context, studentID, code string) (*domain.Application, error) {
	studentID = strings.TrimSpace(studentID)
	code = strings.TrimSpace(code)
	if studentID == "" {
		return nil, domain.Unauthenticatedf("student id is required")
	}
	if code == "" {
		return nil, domain.Unauthenticatedf("lookup code is required")
	}

	app, err := s.apps.LatestByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, domain.Unauthenticatedf("student id or lookup code is incorrect")
	}
	if app.LookupCodeHash == "" {
		// Records predating lookup codes cannot be verified.
		return nil, domain.Unauthenticatedf("no lookup code on record; please apply again")
	}
	if !secret.Verify(code, app.LookupCodeHash) {
		return nil, domain.Unauthenticatedf("student id or lookup code is incorrect")
	}
	return app, nil
}

// requireApprovedHolder is the shared precondition of memo and vacate:
// valid lookup, APPROVED application, and a locker that still belongs to
// this student. The locker row stays locked for the transaction.
func (s *LockerService) requireApprovedHolder(ctx context.Context, studentID, code string) (*domain.Application, error) {
	app, err := s.requireValidLookup(ctx, studentID, code)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.ApplicationStatusApproved {
		return nil, domain.Conflictf("no approved locker for this application")
	}

	locker, err := s.lockers.GetForUpdate(ctx, app.LockerNumber)
	if err != nil {
		return nil, err
	}
	if locker.State != domain.LockerStateApproved || locker.StudentID != app.StudentID {
		return nil, domain.Conflictf("locker %d is not currently in use by this student", app.LockerNumber)
	}
	return app, nil
}

// -----------------------
// Admin
// -----------------------

func (s *LockerService) GetPendingList(ctx context.Context) ([]domain.PendingApplication, error) {
	list, err := s.apps.ListByStatus(ctx, domain.ApplicationStatusPending)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PendingApplication, 0, len(list))
	for _, a := range list {
		out = append(out, domain.PendingApplication{
			ID:           a.ID,
			StudentID:    a.StudentID,
			Name:         a.Name,
			Phone:        a.Phone,
			LockerNumber: a.LockerNumber,
		})
	}
	return out, nil
}

func (s *LockerService) Approve(ctx context.Context, applicationID int64) error {
	var event kafka.LockerEvent
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		app, err := s.apps.GetByID(ctx, applicationID)
		if err != nil {
			return err
		}
		if app.Status != domain.ApplicationStatusPending {
			return domain.Conflictf("only pending applications can be approved")
		}

		locker, err := s.lockers.GetForUpdate(ctx, app.LockerNumber)
		if err != nil {
			return err
		}
		if locker.State != domain.LockerStateReserved {
			return domain.Conflictf("locker %d is not in a reserved state", locker.Number)
		}

		if err := s.apps.UpdateStatus(ctx, app.ID, domain.ApplicationStatusApproved); err != nil {
			return err
		}
		if err := s.lockers.SetState(ctx, locker.Number, domain.LockerStateApproved, locker.StudentID); err != nil {
			return err
		}

		event = kafka.LockerEvent{
			Type:         kafka.EventApproved,
			LockerNumber: locker.Number,
			StudentID:    app.StudentID,
			Status:       string(domain.ApplicationStatusApproved),
		}
		return nil
	})
	if err != nil {
		return err
	}

	event.At = time.Now()
	s.afterMutation(ctx, event)
	return nil
}

// Reject deletes the application and, when the locker is still reserved
// for that student, returns it to the pool. A locker that has already
// moved on is left alone.
func (s *LockerService) Reject(ctx context.Context, applicationID int64) error {
	var event kafka.LockerEvent
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		app, err := s.apps.GetByID(ctx, applicationID)
		if err != nil {
			return err
		}

		locker, err := s.lockers.GetForUpdate(ctx, app.LockerNumber)
		if err != nil {
			return err
		}

		if err := s.apps.DeleteByID(ctx, app.ID); err != nil {
			return err
		}

		if locker.State == domain.LockerStateReserved && locker.StudentID == app.StudentID {
			if err := s.lockers.SetState(ctx, locker.Number, domain.LockerStateAvailable, ""); err != nil {
				return err
			}
		}

		event = kafka.LockerEvent{
			Type:         kafka.EventRejected,
			LockerNumber: app.LockerNumber,
			StudentID:    app.StudentID,
		}
		return nil
	})
	if err != nil {
		return err
	}

	event.At = time.Now()
	s.afterMutation(ctx, event)
	return nil
}

func (s *LockerService) ClearApprovedLocker(ctx context.Context, lockerNumber int) error {
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		locker, err := s.lockers.GetForUpdate(ctx, lockerNumber)
		if err != nil {
			return err
		}
		if locker.State != domain.LockerStateApproved {
			return domain.Conflictf("only approved lockers can be cleared")
		}

		if err := s.apps.DeleteByLocker(ctx, lockerNumber); err != nil {
			return err
		}
		return s.lockers.SetState(ctx, lockerNumber, domain.LockerStateAvailable, "")
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, kafka.LockerEvent{
		Type:         kafka.EventCleared,
		LockerNumber: lockerNumber,
		At:           time.Now(),
	})
	return nil
}

// ResetAll wipes every application and forces every locker back to
// AVAILABLE. Unconditional.
func (s *LockerService) ResetAll(ctx context.Context) error {
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.apps.DeleteAll(ctx); err != nil {
			return err
		}
		if err := s.lockers.EnsureInitialized(ctx, s.poolSize); err != nil {
			return err
		}

		list, err := s.lockers.List(ctx)
		if err != nil {
			return err
		}
		for _, l := range list {
			if err := s.lockers.SetState(ctx, l.Number, domain.LockerStateAvailable, ""); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, kafka.LockerEvent{Type: kafka.EventReset, At: time.Now()})
	return nil
}

// AdminAssignApproved hands an AVAILABLE locker straight to a student,
// skipping the PENDING step. The student still gets a lookup code.
func (s *LockerService) AdminAssignApproved(ctx context.Context, input ApplyInput) (string, error) {
	studentID := strings.TrimSpace(input.StudentID)
	name := strings.TrimSpace(input.Name)
	phone := strings.TrimSpace(input.Phone)
	if studentID == "" || name == "" || phone == "" {
		return "", domain.Conflictf("student id, name and phone are required")
	}

	code, err := secret.Generate()
	if err != nil {
		return "", err
	}
	hash, err := secret.Hash(code)
	if err != nil {
		return "", err
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		locker, err := s.lockers.GetForUpdate(ctx, input.LockerNumber)
		if err != nil {
			return err
		}
		if locker.State != domain.LockerStateAvailable {
			return domain.Conflictf("locker %d is already reserved or in use", locker.Number)
		}

		app := &domain.Application{
			StudentID:      studentID,
			Name:           name,
			Phone:          phone,
			LockerNumber:   input.LockerNumber,
			Status:         domain.ApplicationStatusApproved,
			LookupCodeHash: hash,
		}
		if err := s.apps.Create(ctx, app); err != nil {
			return err
		}
		return s.lockers.SetState(ctx, input.LockerNumber, domain.LockerStateApproved, studentID)
	})
	if err != nil {
		return "", err
	}

	s.afterMutation(ctx, kafka.LockerEvent{
		Type:         kafka.EventAssigned,
		LockerNumber: input.LockerNumber,
		StudentID:    studentID,
		Status:       string(domain.ApplicationStatusApproved),
		At:           time.Now(),
	})
	return code, nil
}

// afterMutation runs outside the committed transaction. Neither leg may
// fail the operation.
func (s *LockerService) afterMutation(ctx context.Context, event kafka.LockerEvent) {
	if s.cache != nil {
		if err := s.cache.InvalidateGrid(ctx); err != nil {
			log.Printf("WARNING: failed to invalidate grid cache: %v", err)
		}
	}
	if s.notifier != nil {
		s.notifier.StateChanged(ctx, event)
	}
}

var _ Engine = (*LockerService)(nil)
