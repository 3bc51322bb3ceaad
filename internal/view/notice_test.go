package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_Expires(t *testing.T) {
	n := NewNotifier(20 * time.Millisecond)
	n.Success("saved")

	got, ok := n.Current()
	require.True(t, ok)
	assert.Equal(t, NoticeSuccess, got.Kind)
	assert.Equal(t, "saved", got.Text)

	assert.Eventually(t, func() bool {
		_, ok := n.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestNotifier_ReplacementRestartsTimer(t *testing.T) {
	n := NewNotifier(80 * time.Millisecond)
	n.Success("first")
	time.Sleep(50 * time.Millisecond)
	n.Error("second")
	time.Sleep(50 * time.Millisecond)

	got, ok := n.Current()
	require.True(t, ok, "the first notice's timer must not clear the second")
	assert.Equal(t, "second", got.Text)
	assert.Equal(t, NoticeError, got.Kind)
}

func TestNotifier_DismissAndListeners(t *testing.T) {
	n := NewNotifier(time.Minute)
	changes := 0
	n.OnChange(func() { changes++ })

	n.Success("hello")
	n.Dismiss()

	_, ok := n.Current()
	assert.False(t, ok)
	assert.Equal(t, 2, changes)
}
