package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/seongmin-dev/lockerdesk/internal/domain"
)

type LockerRepository interface {
	EnsureInitialized(ctx context.Context, poolSize int) error
	Get(ctx context.Context, number int) (*domain.Locker, error)
	GetForUpdate(ctx context.Context, number int) (*domain.Locker, error)
	List(ctx context.Context) ([]domain.Locker, error)
	SetState(ctx context.Context, number int, state domain.LockerState, studentID string) error
}

type PGLockerRepository struct {
	db Querier
}

func NewLockerRepository(db Querier) LockerRepository {
	return &PGLockerRepository{db: db}
}

func (r *PGLockerRepository) EnsureInitialized(ctx context.Context, poolSize int) error {
	_, err := querier(ctx, r.db).Exec(ctx, `
		INSERT INTO lockers (locker_number)
		SELECT generate_series(1, $1)
		ON CONFLICT (locker_number) DO NOTHING`, poolSize)
	return err
}

func (r *PGLockerRepository) Get(ctx context.Context, number int) (*domain.Locker, error) {
	return r.get(ctx, number, "")
}

// GetForUpdate locks the locker row for the rest of the transaction, so
// concurrent claims on the same number serialize behind it.
func (r *PGLockerRepository) GetForUpdate(ctx context.Context, number int) (*domain.Locker, error) {
	return r.get(ctx, number, " FOR UPDATE")
}

func (r *PGLockerRepository) get(ctx context.Context, number int, suffix string) (*domain.Locker, error) {
	row := querier(ctx, r.db).QueryRow(ctx, `
		SELECT locker_number, state, COALESCE(student_id, ''), updated_at
		FROM lockers WHERE locker_number = $1`+suffix, number)

	var l domain.Locker
	if err := row.Scan(&l.Number, &l.State, &l.StudentID, &l.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFoundf("no such locker: %d", number)
		}
		return nil, err
	}
	return &l, nil
}

func (r *PGLockerRepository) List(ctx context.Context) ([]domain.Locker, error) {
	rows, err := querier(ctx, r.db).Query(ctx, `
		SELECT locker_number, state, COALESCE(student_id, ''), updated_at
		FROM lockers ORDER BY locker_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lockers := make([]domain.Locker, 0)
	for rows.Next() {
		var l domain.Locker
		if err := rows.Scan(&l.Number, &l.State, &l.StudentID, &l.UpdatedAt); err != nil {
			return nil, err
		}
		lockers = append(lockers, l)
	}
	return lockers, rows.Err()
}

func (r *PGLockerRepository) SetState(ctx context.Context, number int, state domain.LockerState, studentID string) error {
	cmd, err := querier(ctx, r.db).Exec(ctx, `
		UPDATE lockers
		SET state = $1, student_id = NULLIF($2, ''), updated_at = now()
		WHERE locker_number = $3`, state, studentID, number)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFoundf("no such locker: %d", number)
	}
	return nil
}

var _ LockerRepository = (*PGLockerRepository)(nil)
