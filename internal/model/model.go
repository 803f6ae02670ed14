package model

import "time"

type User struct {
	ID            int64     `json:"id"`
	Nom           string    `json:"nom"`
	Prenom        string    `json:"prenom"`
	DateNaissance time.Time `json:"date_naissance"`
	Adresse       string    `json:"adresse"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Appointment struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Doctor        string    `json:"doctor"`
	Location      string    `json:"location"`
	AppointmentAt time.Time `json:"appointment_at"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Consultation is a past visit. Nothing in this service writes them.
type Consultation struct {
	ID               int64     `json:"id"`
	DoctorName       string    `json:"doctor_name"`
	DateConsultation time.Time `json:"date_consultation"`
	Motif            string    `json:"motif"`
	Notes            string    `json:"notes"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Doctor struct {
	ID        int64  `json:"id"`
	FullName  string `json:"full_name"`
	Specialty string `json:"specialty"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

const (
	NotifAppointmentCreated   = "appointment_created"
	NotifAppointmentUpdated   = "appointment_updated"
	NotifAppointmentCancelled = "appointment_cancelled"
)

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	RelatedID *int64    `json:"related_id"`
	CreatedAt time.Time `json:"created_at"`
}
