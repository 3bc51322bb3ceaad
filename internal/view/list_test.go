package view

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_FailedIsNotEmpty(t *testing.T) {
	fail := true
	l := NewList(func(context.Context) ([]string, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return nil, nil
	})
	assert.Equal(t, PhaseIdle, l.Snapshot().Phase)

	assert.Error(t, l.Load(context.Background()))
	snap := l.Snapshot()
	assert.Equal(t, PhaseLoadFailed, snap.Phase)
	assert.False(t, snap.Empty())
	assert.EqualError(t, snap.Err, "boom")

	fail = false
	require.NoError(t, l.Load(context.Background()))
	snap = l.Snapshot()
	assert.Equal(t, PhaseLoaded, snap.Phase)
	assert.True(t, snap.Empty())
	assert.NoError(t, snap.Err)
}

func TestList_FailureDropsStaleItems(t *testing.T) {
	var err error
	l := NewList(func(context.Context) ([]int, error) { return []int{1, 2}, err })
	require.NoError(t, l.Load(context.Background()))
	assert.Len(t, l.Items(), 2)

	err = errors.New("down")
	l.Load(context.Background())
	assert.Empty(t, l.Items())
}

func TestList_LatestLoadWins(t *testing.T) {
	slow := make(chan struct{})
	var calls int32
	l := NewList(func(context.Context) ([]string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			<-slow
			return []string{"stale"}, nil
		}
		return []string{"fresh"}, nil
	})

	done := make(chan struct{})
	go func() {
		l.Load(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, l.Load(context.Background()))
	close(slow)
	<-done

	assert.Equal(t, []string{"fresh"}, l.Items())
	assert.Equal(t, PhaseLoaded, l.Snapshot().Phase)
}

func TestList_ResetIgnoresInFlightLoad(t *testing.T) {
	slow := make(chan struct{})
	var calls int32
	l := NewList(func(context.Context) ([]string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return []string{"first"}, nil
		}
		<-slow
		return []string{"previous account"}, nil
	})
	require.NoError(t, l.Load(context.Background()))

	done := make(chan struct{})
	go func() {
		l.Load(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, time.Second, time.Millisecond)

	l.Reset()
	close(slow)
	<-done

	snap := l.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Empty(t, snap.Items)
	assert.NoError(t, snap.Err)
}

func TestGuard_RejectsDuplicateAction(t *testing.T) {
	var g guard
	release, err := g.begin("save")
	require.NoError(t, err)

	_, err = g.begin("save")
	assert.ErrorIs(t, err, ErrBusy)

	other, err := g.begin("delete")
	require.NoError(t, err, "different actions do not block each other")
	other()

	release()
	again, err := g.begin("save")
	require.NoError(t, err)
	again()
}
