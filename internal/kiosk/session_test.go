package kiosk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiosk/internal/registration"
	"kiosk/internal/validation"
	dErrors "kiosk/pkg/domain-errors"
)

var t0 = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func TestSession_Navigate(t *testing.T) {
	t.Run("entering a workflow screen starts it fresh", func(t *testing.T) {
		s := NewSession("s-1", t0)
		require.NoError(t, s.Navigate(ScreenRegister, t0))
		assert.Equal(t, ScreenRegister, s.Screen)
		require.NotNil(t, s.Registration)
		assert.Equal(t, registration.StepSelectEvent, s.Registration.Step)
		assert.Nil(t, s.CheckIn)
	})

	t.Run("leaving a screen discards its workflow", func(t *testing.T) {
		s := NewSession("s-1", t0)
		require.NoError(t, s.Navigate(ScreenCheckIn, t0))
		require.NoError(t, s.CheckIn.Input("ABC123XY"))

		require.NoError(t, s.Navigate(ScreenHome, t0.Add(time.Second)))
		assert.Nil(t, s.CheckIn)
		assert.Nil(t, s.Registration)

		require.NoError(t, s.Navigate(ScreenCheckIn, t0.Add(2*time.Second)))
		assert.Empty(t, s.CheckIn.Code)
	})

	t.Run("unknown screen is rejected without changes", func(t *testing.T) {
		s := NewSession("s-1", t0)
		err := s.Navigate("settings", t0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		assert.Equal(t, ScreenHome, s.Screen)
	})

	t.Run("navigation resets the card selection", func(t *testing.T) {
		s := NewSession("s-1", t0)
		require.NoError(t, s.SelectCard(ScreenEvents, t0))
		require.NoError(t, s.Navigate(ScreenHome, t0.Add(100*time.Millisecond)))
		assert.Empty(t, s.SelectedCard)
		assert.Nil(t, s.SelectedUntil)
	})
}

func TestSession_SelectCard(t *testing.T) {
	s := NewSession("s-1", t0)
	require.NoError(t, s.SelectCard(ScreenRegister, t0))

	assert.Equal(t, ScreenRegister, s.Screen, "navigation is not delayed by the selection")
	require.NotNil(t, s.Registration)
	assert.Equal(t, VisualSelected, s.CardState(ScreenRegister, t0.Add(299*time.Millisecond), false, false))
	assert.Equal(t, VisualDefault, s.CardState(ScreenRegister, t0.Add(SelectionDuration), false, false))
	assert.Equal(t, VisualDefault, s.CardState(ScreenEvents, t0, false, false))

	err := s.SelectCard(ScreenHome, t0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestSession_CardState(t *testing.T) {
	s := NewSession("s-1", t0)
	require.NoError(t, s.SelectCard(ScreenCheckIn, t0))

	assert.Equal(t, VisualPressed, s.CardState(ScreenCheckIn, t0, true, true))
	assert.Equal(t, VisualSelected, s.CardState(ScreenCheckIn, t0, true, false))
	assert.Equal(t, VisualHovered, s.CardState(ScreenEvents, t0, true, false))
}

func TestSession_WorkflowAccess(t *testing.T) {
	s := NewSession("s-1", t0)

	_, err := s.Wizard()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	_, err = s.CheckInForm()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

	require.NoError(t, s.Navigate(ScreenCheckIn, t0))
	form, err := s.CheckInForm()
	require.NoError(t, err)
	require.NoError(t, form.Input("ab"))
	_, _, err = form.BeginVerify()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Equal(t, validation.MsgCodeInvalid, s.CheckIn.Message)
}
