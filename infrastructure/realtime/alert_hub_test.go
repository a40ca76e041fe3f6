package realtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-dashboard/domain/model"
	"social-dashboard/infrastructure/realtime"
)

func TestHub_BroadcastReachesOnlyOwner(t *testing.T) {
	hub := realtime.NewAlertHub()
	mine := hub.Subscribe("u1")
	theirs := hub.Subscribe("u2")

	hub.BroadcastAlert(&model.MonitoringAlert{ID: "a1", UserID: "u1"})

	select {
	case evt := <-mine:
		assert.Equal(t, realtime.EventAlertCreated, evt.Type)
		assert.Equal(t, "a1", evt.Alert.ID)
	default:
		t.Fatal("expected event for subscriber")
	}
	assert.Len(t, theirs, 0)
}

func TestHub_BroadcastDoesNotBlockOnFullSubscriber(t *testing.T) {
	hub := realtime.NewAlertHub()
	ch := hub.Subscribe("u1")
	for i := 0; i < 20; i++ {
		hub.BroadcastResolved(&model.MonitoringAlert{ID: "a", UserID: "u1"})
	}
	assert.Len(t, ch, cap(ch))
	hub.BroadcastAlert(nil)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := realtime.NewAlertHub()
	ch := hub.Subscribe("u1")
	require.Equal(t, 1, hub.Subscribers("u1"))
	hub.Unsubscribe("u1", ch)
	hub.Unsubscribe("u1", ch)
	assert.Equal(t, 0, hub.Subscribers("u1"))
	_, open := <-ch
	assert.False(t, open)
}
