package reactive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateGetSet(t *testing.T) {
	s := New(0)
	assert.Equal(t, 0, s.Get())

	changed := s.Set(5)
	assert.True(t, changed)
	assert.Equal(t, 5, s.Get())
}

func TestStateSetSameValueDoesNotNotify(t *testing.T) {
	s := New("idle")
	changed := s.Set("idle")
	assert.False(t, changed)
}

func TestSubscribeReceivesCurrentValueImmediately(t *testing.T) {
	s := New(true)
	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	select {
	case v := <-ch:
		assert.True(t, v)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial value")
	}
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	s := New(false)
	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	require.Equal(t, false, <-ch)

	s.Set(true)
	select {
	case v := <-ch:
		assert.True(t, v)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for transition")
	}
}

func TestSubscribeSlowReaderSeesLatestNotBacklog(t *testing.T) {
	s := New(0)
	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	require.Equal(t, 0, <-ch)

	s.Set(1)
	s.Set(2)
	s.Set(3)

	select {
	case v := <-ch:
		assert.Equal(t, 3, v)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for latest value")
	}

	select {
	case v, ok := <-ch:
		t.Fatalf("expected no further buffered values, got %v (ok=%v)", v, ok)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	s := New(0)
	ch, unsubscribe := s.Subscribe()
	<-ch // drain initial value

	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	s := New(0)
	_, unsubscribe := s.Subscribe()
	unsubscribe()
	assert.NotPanics(t, unsubscribe)
}

func TestCombineBoolAnyTrue(t *testing.T) {
	a := New(false)
	b := New(true)
	c := New(false)

	assert.True(t, CombineBool(a, b, c))
}

func TestCombineBoolAllFalse(t *testing.T) {
	a := New(false)
	b := New(false)

	assert.False(t, CombineBool(a, b))
}

func TestCombineBoolNoStates(t *testing.T) {
	assert.False(t, CombineBool())
}
