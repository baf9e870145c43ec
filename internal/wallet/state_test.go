package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/borderlesspay/bpay/internal/events"
)

func TestState_Initial(t *testing.T) {
	t.Parallel()

	s := NewState(nil)
	assert.Equal(t, Snapshot{Status: StatusDisconnected}, s.Snapshot())
	assert.Empty(t, s.Connected())
}

func TestState_MarkConnectedPublishesOnChange(t *testing.T) {
	t.Parallel()

	bus := events.NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	s := NewState(bus)
	s.MarkConnecting()
	assert.Equal(t, StatusConnecting, s.Snapshot().Status)

	assert.True(t, s.MarkConnected("0.0.1"))
	assert.False(t, s.MarkConnected("0.0.1"))
	assert.True(t, s.MarkConnected("0.0.2"))
	assert.False(t, s.MarkConnected(""))

	evs := drain(ch)
	assert.Equal(t, []events.Event{
		{Kind: events.WalletConnect, AccountID: "0.0.1"},
		{Kind: events.WalletConnect, AccountID: "0.0.2"},
	}, evs)
	assert.Equal(t, "0.0.2", s.Connected())
}

func TestState_MarkDisconnectedIsIdempotent(t *testing.T) {
	t.Parallel()

	bus := events.NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	s := NewState(bus)
	s.MarkConnected("0.0.1")
	assert.True(t, s.MarkDisconnected())
	assert.False(t, s.MarkDisconnected())

	evs := drain(ch)
	assert.Equal(t, 1, count(evs, events.WalletDisconnect))
	assert.Equal(t, Snapshot{Status: StatusDisconnected}, s.Snapshot())
}

func TestState_MarkFailed(t *testing.T) {
	t.Parallel()

	s := NewState(nil)
	s.MarkConnecting()
	s.MarkFailed("timed out")
	assert.Equal(t, Snapshot{Status: StatusDisconnected, LastError: "timed out"}, s.Snapshot())

	s.MarkConnecting()
	assert.Empty(t, s.Snapshot().LastError)

	s.MarkConnected("0.0.3")
	s.MarkFailed("late failure")
	assert.Equal(t, StatusConnected, s.Snapshot().Status, "a connected state is not downgraded")
}
