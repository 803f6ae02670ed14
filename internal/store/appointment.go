package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"patient-portal-api/internal/model"
)

const appointmentCols = `id, user_id, title, description, doctor, location,
	appointment_at, status, created_at, updated_at`

func scanAppointment(row pgx.Row, a *model.Appointment) error {
	return row.Scan(&a.ID, &a.UserID, &a.Title, &a.Description, &a.Doctor, &a.Location,
		&a.AppointmentAt, &a.Status, &a.CreatedAt, &a.UpdatedAt)
}

func (s *Store) ListAppointments(ctx context.Context, userID int64) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+appointmentCols+`
		 FROM appointments
		 WHERE user_id = $1
		 ORDER BY appointment_at ASC, id ASC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Appointment{}
	for rows.Next() {
		var a model.Appointment
		if err := scanAppointment(rows, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateAppointment inserts a and the notification emit builds for it in one
// transaction.
func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment, emit Emit) (*model.Notification, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	err = scanAppointment(tx.QueryRow(ctx,
		`INSERT INTO appointments (user_id, title, description, doctor, location, appointment_at, status)
		 VALUES ($1,$2,$3,$4,$5,$6,COALESCE(NULLIF($7,''),'scheduled'))
		 RETURNING `+appointmentCols,
		a.UserID, a.Title, a.Description, a.Doctor, a.Location, a.AppointmentAt, a.Status,
	), a)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	n, err := insertEmitted(ctx, tx, a, emit)
	if err != nil {
		return nil, err
	}
	return n, tx.Commit(ctx)
}

// UpdateAppointment replaces every field of the owner's appointment. An empty
// status keeps the stored one.
func (s *Store) UpdateAppointment(ctx context.Context, a *model.Appointment, emit Emit) (*model.Notification, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	err = scanAppointment(tx.QueryRow(ctx,
		`UPDATE appointments
		 SET title=$1, description=$2, doctor=$3, location=$4, appointment_at=$5,
		     status=COALESCE(NULLIF($6,''), status), updated_at=NOW()
		 WHERE id=$7 AND user_id=$8
		 RETURNING `+appointmentCols,
		a.Title, a.Description, a.Doctor, a.Location, a.AppointmentAt, a.Status, a.ID, a.UserID,
	), a)
	if err != nil {
		return nil, notFound(err)
	}

	n, err := insertEmitted(ctx, tx, a, emit)
	if err != nil {
		return nil, err
	}
	return n, tx.Commit(ctx)
}

// DeleteAppointment removes the owner's appointment. emit sees the row as it
// was before deletion.
func (s *Store) DeleteAppointment(ctx context.Context, id, userID int64, emit Emit) (*model.Notification, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var a model.Appointment
	err = scanAppointment(tx.QueryRow(ctx,
		`SELECT `+appointmentCols+`
		 FROM appointments WHERE id=$1 AND user_id=$2
		 FOR UPDATE`, id, userID,
	), &a)
	if err != nil {
		return nil, notFound(err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM appointments WHERE id=$1 AND user_id=$2`, id, userID,
	); err != nil {
		return nil, fmt.Errorf("delete appointment: %w", err)
	}

	n, err := insertEmitted(ctx, tx, &a, emit)
	if err != nil {
		return nil, err
	}
	return n, tx.Commit(ctx)
}

func insertEmitted(ctx context.Context, q querier, a *model.Appointment, emit Emit) (*model.Notification, error) {
	if emit == nil {
		return nil, nil
	}
	n := emit(a)
	if n == nil {
		return nil, nil
	}
	if err := insertNotification(ctx, q, n); err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}
