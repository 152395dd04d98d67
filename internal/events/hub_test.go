package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversInOrder(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(1)
	defer cancel()

	for i := 0; i < 5; i++ {
		require.NoError(t, hub.Publish(NewProgress(1, ProgressPayload{Sent: i})))
	}

	for i := 0; i < 5; i++ {
		e := <-ch
		assert.Equal(t, TypeProgress, e.Type)
		assert.Equal(t, i, e.Progress.Sent)
	}
}

func TestHubIsolatesCampaigns(t *testing.T) {
	hub := NewHub()
	ch1, cancel1 := hub.Subscribe(1)
	defer cancel1()
	ch2, cancel2 := hub.Subscribe(2)
	defer cancel2()

	require.NoError(t, hub.Publish(NewComplete(2, CompletePayload{Sent: 3})))

	assert.Empty(t, ch1)
	e := <-ch2
	assert.Equal(t, 2, e.CampaignID)
	assert.Equal(t, TypeComplete, e.Type)
}

func TestHubDropsOldestWhenSubscriberLagsBehind(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(1)
	defer cancel()

	overflow := 10
	for i := 0; i < subscriberBuffer+overflow; i++ {
		require.NoError(t, hub.Publish(NewProgress(1, ProgressPayload{Sent: i})))
	}

	// The oldest events are gone; the stream resumes at the overflow point
	// and still ends with the newest state.
	first := <-ch
	assert.Equal(t, overflow, first.Progress.Sent)

	var last Event
	for len(ch) > 0 {
		last = <-ch
	}
	assert.Equal(t, subscriberBuffer+overflow-1, last.Progress.Sent)
}

func TestHubCancelClosesChannel(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(1)

	cancel()
	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel must not panic or deliver.
	require.NoError(t, hub.Publish(NewError(1, "late")))
}

type errPublisher struct {
	err   error
	calls int
}

func (p *errPublisher) Publish(Event) error {
	p.calls++
	return p.err
}

func TestFanoutDeliversToAllAndReportsFirstError(t *testing.T) {
	broken := &errPublisher{err: errors.New("amqp channel closed")}
	healthy := &errPublisher{}
	alsoBroken := &errPublisher{err: errors.New("second failure")}

	err := Fanout{broken, healthy, alsoBroken}.Publish(NewError(1, "boom"))

	assert.EqualError(t, err, "amqp channel closed")
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, healthy.calls)
	assert.Equal(t, 1, alsoBroken.calls)
}

func TestEventConstructorsTagPayload(t *testing.T) {
	p := NewProgress(9, ProgressPayload{Total: 4, Remaining: 4})
	require.Equal(t, TypeProgress, p.Type)
	require.NotNil(t, p.Progress)
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.At.IsZero())
	assert.Nil(t, p.Paused)
	assert.Nil(t, p.Complete)
	assert.Nil(t, p.Error)

	e := NewError(9, "dial tcp: refused")
	require.NotNil(t, e.Error)
	assert.Equal(t, "dial tcp: refused", e.Error.Error)
}
