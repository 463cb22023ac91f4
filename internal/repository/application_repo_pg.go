package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/seongmin-dev/lockerdesk/internal/domain"
)

type ApplicationRepository interface {
	Create(ctx context.Context, app *domain.Application) error
	GetByID(ctx context.Context, id int64) (*domain.Application, error)
	ListByStatus(ctx context.Context, status domain.ApplicationStatus) ([]domain.Application, error)
	LatestByStudent(ctx context.Context, studentID string) (*domain.Application, error)
	LatestByStudentAndStatus(ctx context.Context, studentID string, status domain.ApplicationStatus) (*domain.Application, error)
	ExistsActiveForStudent(ctx context.Context, studentID string, statuses []domain.ApplicationStatus) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status domain.ApplicationStatus) error
	UpdateMemo(ctx context.Context, id int64, memo string) error
	DeleteByID(ctx context.Context, id int64) error
	DeleteByLocker(ctx context.Context, number int) error
	DeleteAll(ctx context.Context) error
}

type PGApplicationRepository struct {
	db Querier
}

func NewApplicationRepository(db Querier) ApplicationRepository {
	return &PGApplicationRepository{db: db}
}

const applicationColumns = `id, student_id, name, phone, locker_number, status, lookup_code_hash, memo, created_at`

func (r *PGApplicationRepository) Create(ctx context.Context, app *domain.Application) error {
	return querier(ctx, r.db).QueryRow(ctx, `
		INSERT INTO applications (student_id, name, phone, locker_number, status, lookup_code_hash, memo)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		app.StudentID, app.Name, app.Phone, app.LockerNumber, app.Status, app.LookupCodeHash, app.Memo).
		Scan(&app.ID, &app.CreatedAt)
}

func (r *PGApplicationRepository) GetByID(ctx context.Context, id int64) (*domain.Application, error) {
	row := querier(ctx, r.db).QueryRow(ctx, `
		SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFoundf("no such application: %d", id)
		}
		return nil, err
	}
	return app, nil
}

func (r *PGApplicationRepository) ListByStatus(ctx context.Context, status domain.ApplicationStatus) ([]domain.Application, error) {
	rows, err := querier(ctx, r.db).Query(ctx, `
		SELECT `+applicationColumns+` FROM applications WHERE status = $1 ORDER BY id`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := make([]domain.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

// LatestByStudent returns the student's most recent application by id, or
// nil when the student has never applied.
func (r *PGApplicationRepository) LatestByStudent(ctx context.Context, studentID string) (*domain.Application, error) {
	row := querier(ctx, r.db).QueryRow(ctx, `
		SELECT `+applicationColumns+` FROM applications
		WHERE student_id = $1 ORDER BY id DESC LIMIT 1`, studentID)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return app, nil
}

func (r *PGApplicationRepository) LatestByStudentAndStatus(ctx context.Context, studentID string, status domain.ApplicationStatus) (*domain.Application, error) {
	row := querier(ctx, r.db).QueryRow(ctx, `
		SELECT `+applicationColumns+` FROM applications
		WHERE student_id = $1 AND status = $2 ORDER BY id DESC LIMIT 1`, studentID, status)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return app, nil
}

func (r *PGApplicationRepository) ExistsActiveForStudent(ctx context.Context, studentID string, statuses []domain.ApplicationStatus) (bool, error) {
	var exists bool
	err := querier(ctx, r.db).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM applications WHERE student_id = $1 AND status = ANY($2)
		)`, studentID, statuses).Scan(&exists)
	return exists, err
}

func (r *PGApplicationRepository) UpdateStatus(ctx context.Context, id int64, status domain.ApplicationStatus) error {
	cmd, err := querier(ctx, r.db).Exec(ctx, `
		UPDATE applications SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFoundf("no such application: %d", id)
	}
	return nil
}

func (r *PGApplicationRepository) UpdateMemo(ctx context.Context, id int64, memo string) error {
	cmd, err := querier(ctx, r.db).Exec(ctx, `
		UPDATE applications SET memo = $1 WHERE id = $2`, memo, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFoundf("no such application: %d", id)
	}
	return nil
}

func (r *PGApplicationRepository) DeleteByID(ctx context.Context, id int64) error {
	_, err := querier(ctx, r.db).Exec(ctx, `DELETE FROM applications WHERE id = $1`, id)
	return err
}

func (r *PGApplicationRepository) DeleteByLocker(ctx context.Context, number int) error {
	_, err := querier(ctx, r.db).Exec(ctx, `DELETE FROM applications WHERE locker_number = $1`, number)
	return err
}

func (r *PGApplicationRepository) DeleteAll(ctx context.Context) error {
	_, err := querier(ctx, r.db).Exec(ctx, `DELETE FROM applications`)
	return err
}

func scanApplication(row pgx.Row) (*domain.Application, error) {
	var app domain.Application
	if err := row.Scan(&app.ID, &app.StudentID, &app.Name, &app.Phone, &app.LockerNumber,
		&app.Status, &app.LookupCodeHash, &app.Memo, &app.CreatedAt); err != nil {
		return nil, err
	}
	return &app, nil
}

var _ ApplicationRepository = (*PGApplicationRepository)(nil)
