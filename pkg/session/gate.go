package session

// View is a screen the client wants to show.
type View string

const (
	ViewSignIn           View = "sign_in"
	ViewSignUp           View = "sign_up"
	ViewVerificationGate View = "verification_gate"
	ViewHome             View = "home"
	ViewChat             View = "chat"
	ViewSettings         View = "settings"
)

type Decision string

const (
	Render               Decision = "render"
	ShowLoading          Decision = "show_loading"
	RedirectSignIn       Decision = "redirect_sign_in"
	ShowVerificationGate Decision = "show_verification_gate"
	RedirectHome         Decision = "redirect_home"
)

func ParseView(s string) (View, bool) {
	switch v := View(s); v {
	case ViewSignIn, ViewSignUp, ViewVerificationGate, ViewHome, ViewChat, ViewSettings:
		return v, true
	}
	return "", false
}

func (v View) public() bool {
	return v == ViewSignIn || v == ViewSignUp
}

// Gate decides what the client may show for view in the given state.
// An unverified identity always reaches the public views and the
// verification gate, and never anything behind it.
func Gate(state State, view View) Decision {
	switch state.Status {
	case StatusLoading:
		return ShowLoading
	case StatusReady:
		if view.public() || view == ViewVerificationGate {
			return RedirectHome
		}
		return Render
	case StatusUnverified:
		if view.public() || view == ViewVerificationGate {
			return Render
		}
		return ShowVerificationGate
	default:
		if view.public() {
			return Render
		}
		return RedirectSignIn
	}
}
