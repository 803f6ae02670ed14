package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), "t", []byte("k"), []byte("v")))
	assert.NoError(t, p.Close())
}

func TestNewKafkaUnreachable(t *testing.T) {
	_, err := NewKafka("127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect kafka 127.0.0.1:1")
}

func TestAppointmentEventJSON(t *testing.T) {
	at := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	raw, err := json.Marshal(AppointmentEvent{
		Event:          "appointment_created",
		UserID:         3,
		AppointmentID:  12,
		NotificationID: 40,
		Title:          "Checkup",
		OccurredAt:     at,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"event": "appointment_created",
		"user_id": 3,
		"appointment_id": 12,
		"notification_id": 40,
		"title": "Checkup",
		"occurred_at": "2025-01-01T10:00:00Z"
	}`, string(raw))
}
