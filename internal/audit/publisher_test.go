package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "waypoint/pkg/domain"
)

func TestEventNormalize(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	e := Event{Action: EventLocationAdded}.Normalize(now)
	assert.Equal(t, now, e.Timestamp)
	assert.Equal(t, CategoryCatalog, e.Category)

	e = Event{Action: EventUserRegistered}.Normalize(now)
	assert.Equal(t, CategorySecurity, e.Category)

	earlier := now.Add(-time.Hour)
	e = Event{Action: EventListDeleted, Timestamp: earlier}.Normalize(now)
	assert.Equal(t, earlier, e.Timestamp)
}

func TestLogPublisherWritesAuditLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))
	userID := id.NewUserID()

	err := p.Emit(context.Background(), Event{
		Action:     EventListCreated,
		UserID:     userID,
		Subject:    "7",
		RequestID:  "req-1",
		Attributes: map[string]string{"list_name": "Coffee"},
	})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "audit", line["log_type"])
	assert.Equal(t, "list_created", line["action"])
	assert.Equal(t, "catalog", line["category"])
	assert.Equal(t, userID.String(), line["user_id"])
	assert.Equal(t, "7", line["subject"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "Coffee", line["list_name"])
}

type failingPublisher struct{ err error }

func (f failingPublisher) Emit(context.Context, Event) error { return f.err }

func TestFanout(t *testing.T) {
	mem := NewMemoryPublisher()
	boom := errors.New("sink down")
	f := Fanout{mem, nil, failingPublisher{err: boom}}

	err := f.Emit(context.Background(), Event{Action: EventListDeleted})

	require.ErrorIs(t, err, boom)
	require.Len(t, mem.Events(), 1)
	assert.Equal(t, EventListDeleted, mem.Events()[0].Action)
}

func TestMemoryPublisherListByUser(t *testing.T) {
	mem := NewMemoryPublisher()
	alice, bob := id.NewUserID(), id.NewUserID()
	ctx := context.Background()

	require.NoError(t, mem.Emit(ctx, Event{Action: EventUserRegistered, UserID: alice}))
	require.NoError(t, mem.Emit(ctx, Event{Action: EventUserRegistered, UserID: bob}))
	require.NoError(t, mem.Emit(ctx, Event{Action: EventListCreated, UserID: alice}))

	events := mem.ListByUser(alice)
	require.Len(t, events, 2)
	assert.Equal(t, EventUserRegistered, events[0].Action)
	assert.Equal(t, EventListCreated, events[1].Action)

	mem.Clear()
	assert.Empty(t, mem.Events())
}
