// Package notify turns appointment lifecycle events into notification rows and
// fans them out once the owning transaction has committed.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"patient-portal-api/internal/events"
	"patient-portal-api/internal/metrics"
	"patient-portal-api/internal/model"
)

const publishTimeout = 5 * time.Second

type Emitter struct {
	loc     *time.Location
	pub     events.Publisher
	topic   string
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

func New(loc *time.Location, pub events.Publisher, topic string, m *metrics.Metrics) *Emitter {
	if loc == nil {
		loc = time.UTC
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Emitter{loc: loc, pub: pub, topic: topic, metrics: m}
}

func (e *Emitter) Created(a *model.Appointment) *model.Notification {
	return e.build(a, model.NotifAppointmentCreated, "✅ Rendez-vous créé",
		fmt.Sprintf(`Votre rendez-vous "%s"%s est prévu le %s`,
			a.Title, withDoctor(a.Doctor), FormatDate(a.AppointmentAt, e.loc)),
		true)
}

func (e *Emitter) Updated(a *model.Appointment) *model.Notification {
	return e.build(a, model.NotifAppointmentUpdated, "📝 Rendez-vous modifié",
		fmt.Sprintf(`Votre rendez-vous "%s"%s a été modifié. Nouvelle date : %s`,
			a.Title, withDoctor(a.Doctor), FormatDate(a.AppointmentAt, e.loc)),
		true)
}

// Cancelled is built from the row as it was before deletion; the notification
// keeps no reference to the removed appointment.
func (e *Emitter) Cancelled(a *model.Appointment) *model.Notification {
	return e.build(a, model.NotifAppointmentCancelled, "❌ Rendez-vous annulé",
		fmt.Sprintf(`Votre rendez-vous "%s"%s a été annulé`, a.Title, withDoctor(a.Doctor)),
		false)
}

func (e *Emitter) build(a *model.Appointment, typ, title, msg string, related bool) *model.Notification {
	n := &model.Notification{
		UserID:  a.UserID,
		Type:    typ,
		Title:   title,
		Message: msg,
	}
	if related {
		id := a.ID
		n.RelatedID = &id
	}
	return n
}

// Dispatch runs after commit. Publishing is best effort: failures are logged
// and counted, never returned.
func (e *Emitter) Dispatch(ctx context.Context, n *model.Notification, a *model.Appointment) {
	if n == nil {
		return
	}
	if e.metrics != nil {
		e.metrics.NotificationsEmitted.WithLabelValues(n.Type).Inc()
	}
	log := zerolog.Ctx(ctx).With().
		Str("type", n.Type).
		Int64("user_id", n.UserID).
		Int64("appointment_id", a.ID).
		Int64("notification_id", n.ID).
		Logger()
	log.Info().Msg("notification emitted")

	payload, err := json.Marshal(events.AppointmentEvent{
		Event:          n.Type,
		UserID:         n.UserID,
		AppointmentID:  a.ID,
		NotificationID: n.ID,
		Title:          a.Title,
		OccurredAt:     n.CreatedAt,
	})
	if err != nil {
		log.Error().Err(err).Msg("marshal appointment event")
		return
	}
	key := []byte(strconv.FormatInt(n.UserID, 10))

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		pctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := e.pub.Publish(pctx, e.topic, key, payload); err != nil {
			if e.metrics != nil {
				e.metrics.EventPublishFailures.Inc()
			}
			log.Warn().Err(err).Msg("publish appointment event")
		}
	}()
}

// Wait blocks until in-flight publishes finish.
func (e *Emitter) Wait() { e.wg.Wait() }

func withDoctor(doctor string) string {
	if doctor == "" {
		return ""
	}
	return " avec " + doctor
}

var months = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// FormatDate renders t the way French users read it: "01 janvier 2025 à 10:00".
func FormatDate(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return fmt.Sprintf("%02d %s %d à %02d:%02d",
		t.Day(), months[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}
