package handler_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"patient-portal-api/internal/handler"
	"patient-portal-api/internal/model"
	"patient-portal-api/internal/store"
)

// memStore mirrors the user scoping of store.Store in memory.
type memStore struct {
	mu            sync.Mutex
	nextID        int64
	users         map[string]*model.User
	appointments  map[int64]*model.Appointment
	notifications map[int64]*model.Notification
	consultations map[int64][]model.Consultation
	doctors       map[int64][]model.Doctor
	failWith      error
}

func newMemStore() *memStore {
	return &memStore{
		users:         map[string]*model.User{},
		appointments:  map[int64]*model.Appointment{},
		notifications: map[int64]*model.Notification{},
		consultations: map[int64][]model.Consultation{},
		doctors:       map[int64][]model.Doctor{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) EmailTaken(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}
	_, ok := m.users[email]
	return ok, nil
}

func (m *memStore) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return store.ErrDuplicateEmail
	}
	u.ID = m.id()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.users[u.Email] = &cp
	return nil
}

func (m *memStore) UserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) ListAppointments(_ context.Context, userID int64) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := []model.Appointment{}
	for _, a := range m.appointments {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AppointmentAt.Equal(out[j].AppointmentAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AppointmentAt.Before(out[j].AppointmentAt)
	})
	return out, nil
}

func (m *memStore) emitted(a *model.Appointment, emit store.Emit) *model.Notification {
	if emit == nil {
		return nil
	}
	n := emit(a)
	if n == nil {
		return nil
	}
	n.ID = m.id()
	n.CreatedAt = time.Now()
	cp := *n
	m.notifications[n.ID] = &cp
	return n
}

func (m *memStore) CreateAppointment(_ context.Context, a *model.Appointment, emit store.Emit) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	a.ID = m.id()
	if a.Status == "" {
		a.Status = model.StatusScheduled
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.appointments[a.ID] = &cp
	return m.emitted(a, emit), nil
}

func (m *memStore) UpdateAppointment(_ context.Context, a *model.Appointment, emit store.Emit) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.appointments[a.ID]
	if !ok || cur.UserID != a.UserID {
		return nil, store.ErrNotFound
	}
	if a.Status == "" {
		a.Status = cur.Status
	}
	a.CreatedAt = cur.CreatedAt
	a.UpdatedAt = time.Now()
	cp := *a
	m.appointments[a.ID] = &cp
	return m.emitted(a, emit), nil
}

func (m *memStore) DeleteAppointment(_ context.Context, id, userID int64, emit store.Emit) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.appointments[id]
	if !ok || cur.UserID != userID {
		return nil, store.ErrNotFound
	}
	delete(m.appointments, id)
	for _, n := range m.notifications {
		if n.RelatedID != nil && *n.RelatedID == id {
			n.RelatedID = nil
		}
	}
	return m.emitted(cur, emit), nil
}

func (m *memStore) PastConsultations(_ context.Context, userID int64) ([]model.Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := []model.Consultation{}
	for _, c := range m.consultations[userID] {
		if c.DateConsultation.Before(time.Now()) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateConsultation.After(out[j].DateConsultation) })
	return out, nil
}

func (m *memStore) DoctorsForUser(_ context.Context, userID int64) ([]model.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]model.Doctor{}, m.doctors[userID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

// FamilyDoctor returns the first doctor linked, matching the lowest join id.
func (m *memStore) FamilyDoctor(_ context.Context, userID int64) (*model.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ds := m.doctors[userID]
	if len(ds) == 0 {
		return nil, nil
	}
	d := ds[0]
	return &d, nil
}

func (m *memStore) owned(userID int64) []*model.Notification {
	var out []*model.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memStore) RecentNotifications(_ context.Context, userID int64, limit int) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Notification{}
	for _, n := range m.owned(userID) {
		if len(out) == limit {
			break
		}
		out = append(out, *n)
	}
	return out, nil
}

func (m *memStore) UnreadCount(_ context.Context, userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := 0
	for _, n := range m.owned(userID) {
		if !n.IsRead {
			c++
		}
	}
	return c, nil
}

func (m *memStore) MarkNotificationRead(_ context.Context, id, userID int64) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return nil, store.ErrNotFound
	}
	n.IsRead = true
	cp := *n
	return &cp, nil
}

func (m *memStore) MarkAllNotificationsRead(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c int64
	for _, n := range m.owned(userID) {
		if !n.IsRead {
			n.IsRead = true
			c++
		}
	}
	return c, nil
}

func (m *memStore) DeleteNotification(_ context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return store.ErrNotFound
	}
	delete(m.notifications, id)
	return nil
}

func (m *memStore) DeleteReadNotifications(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c int64
	for _, n := range m.owned(userID) {
		if n.IsRead {
			delete(m.notifications, n.ID)
			c++
		}
	}
	return c, nil
}

var errBoom = errors.New("connection reset")

var _ handler.Store = (*memStore)(nil)
