package event

import (
	"agent-datahub/service/meta"
	"agent-datahub/service/models"
	"agent-datahub/testutil"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEmitPersistsAndBroadcasts(t *testing.T) {
	testDB := testutil.NewTestDB()
	defer testDB.Close()

	hub := NewProgressHub(testDB.DB)
	defer hub.Close()

	client := hub.AddSSEConnection("alice", "c1", "127.0.0.1")
	assert.Equal(t, 1, hub.ConnectionCount())

	result := &models.SyncResult{Endpoint: meta.EndpointMembers, Fetched: 3, Processed: 3}
	hub.Emit(&models.ProgressEvent{RunID: "run-1", Endpoint: meta.EndpointMembers, Step: meta.StepDone, Message: "Done members", Result: result})

	select {
	case evt := <-client.Channel:
		assert.Equal(t, meta.StepDone, evt.Step)
		assert.False(t, evt.Time.IsZero())
	case <-time.After(time.Second):
		t.Fatal("SSE连接未收到事件")
	}

	events, err := hub.ListRunEvents("run-1", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "done", events[0].Step)
	assert.Equal(t, meta.EndpointMembers, events[0].Endpoint)
	assert.Contains(t, events[0].Payload, "result")

	hub.RemoveSSEConnection("alice", "c1")
	assert.Equal(t, 0, hub.ConnectionCount())
	_, open := <-client.Done
	assert.False(t, open)
}

func TestEmitDropsWhenClientQueueFull(t *testing.T) {
	hub := NewProgressHub(nil)
	defer hub.Close()

	client := hub.AddSSEConnection("bob", "c2", "")
	for i := 0; i < cap(client.Channel)+10; i++ {
		hub.Emit(&models.ProgressEvent{Step: meta.StepFetch, Message: "page"})
	}
	assert.Len(t, client.Channel, cap(client.Channel))

	events, err := hub.ListRunEvents("any", 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPublishersReceiveEventsInOrder(t *testing.T) {
	pub := new(testutil.MockPublisher)
	var steps []meta.SyncStep
	pub.On("Publish", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		steps = append(steps, args.Get(1).(*models.ProgressEvent).Step)
	}).Return(nil)

	failing := new(testutil.MockPublisher)
	failing.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	hub := NewProgressHub(nil, pub, failing)
	hub.Emit(&models.ProgressEvent{Step: meta.StepStart})
	hub.Emit(&models.ProgressEvent{Step: meta.StepDone})
	hub.Emit(&models.ProgressEvent{Step: meta.StepComplete})
	hub.Close()
	hub.Close()

	assert.Equal(t, []meta.SyncStep{meta.StepStart, meta.StepDone, meta.StepComplete}, steps)
	pub.AssertNumberOfCalls(t, "Publish", 3)
	failing.AssertNumberOfCalls(t, "Publish", 3)
}
