package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"patient-portal-api/internal/model"
)

// PastConsultations returns consultations dated strictly before now, newest first.
func (s *Store) PastConsultations(ctx context.Context, userID int64) ([]model.Consultation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, doctor_name, date_consultation, motif, COALESCE(notes, ''),
		        created_at, updated_at
		 FROM consultations
		 WHERE user_id = $1 AND date_consultation < NOW()
		 ORDER BY date_consultation DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Consultation{}
	for rows.Next() {
		var c model.Consultation
		if err := rows.Scan(&c.ID, &c.DoctorName, &c.DateConsultation, &c.Motif, &c.Notes,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const doctorCols = `d.id, d.full_name, COALESCE(d.specialty, ''), COALESCE(d.phone, ''), COALESCE(d.email, '')`

func scanDoctor(row pgx.Row, d *model.Doctor) error {
	return row.Scan(&d.ID, &d.FullName, &d.Specialty, &d.Phone, &d.Email)
}

func (s *Store) DoctorsForUser(ctx context.Context, userID int64) ([]model.Doctor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+doctorCols+`
		 FROM doctors d
		 INNER JOIN patient_doctors pd ON d.id = pd.doctor_id
		 WHERE pd.user_id = $1
		 ORDER BY d.full_name ASC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Doctor{}
	for rows.Next() {
		var d model.Doctor
		if err := scanDoctor(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// FamilyDoctor is the earliest linked doctor (lowest patient_doctors.id).
// It returns nil, nil when the user has no doctor.
func (s *Store) FamilyDoctor(ctx context.Context, userID int64) (*model.Doctor, error) {
	d := &model.Doctor{}
	err := scanDoctor(s.pool.QueryRow(ctx,
		`SELECT `+doctorCols+`
		 FROM doctors d
		 INNER JOIN patient_doctors pd ON d.id = pd.doctor_id
		 WHERE pd.user_id = $1
		 ORDER BY pd.id ASC
		 LIMIT 1`, userID,
	), d)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}
