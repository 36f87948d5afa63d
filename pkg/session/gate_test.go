package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGate(t *testing.T) {
	loading := State{Status: StatusLoading}
	signedOut := State{Status: StatusSignedOut}
	unverified := State{Status: StatusUnverified}
	ready := State{Status: StatusReady}

	tests := []struct {
		name  string
		state State
		view  View
		want  Decision
	}{
		{"loading suspends protected views", loading, ViewChat, ShowLoading},
		{"loading suspends sign in", loading, ViewSignIn, ShowLoading},
		{"signed out may sign in", signedOut, ViewSignIn, Render},
		{"signed out may sign up", signedOut, ViewSignUp, Render},
		{"signed out is sent to sign in", signedOut, ViewHome, RedirectSignIn},
		{"signed out cannot see the gate", signedOut, ViewVerificationGate, RedirectSignIn},
		{"unverified sees the gate", unverified, ViewChat, ShowVerificationGate},
		{"unverified sees the gate instead of settings", unverified, ViewSettings, ShowVerificationGate},
		{"unverified may open the gate", unverified, ViewVerificationGate, Render},
		{"ready renders chat", ready, ViewChat, Render},
		{"ready renders settings", ready, ViewSettings, Render},
		{"ready skips sign in", ready, ViewSignIn, RedirectHome},
		{"ready skips the gate", ready, ViewVerificationGate, RedirectHome},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Gate(tt.state, tt.view))
		})
	}
}

func TestGateNeverLetsUnverifiedThrough(t *testing.T) {
	state := State{Status: StatusUnverified}

	for _, view := range []View{ViewSignIn, ViewSignUp, ViewVerificationGate} {
		assert.Equal(t, Render, Gate(state, view), view)
	}
	for _, view := range []View{ViewHome, ViewChat, ViewSettings} {
		assert.Equal(t, ShowVerificationGate, Gate(state, view), view)
	}
}

func TestParseView(t *testing.T) {
	v, ok := ParseView("settings")
	assert.True(t, ok)
	assert.Equal(t, ViewSettings, v)

	_, ok = ParseView("admin")
	assert.False(t, ok)
}
