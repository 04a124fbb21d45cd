package domain

// FlowState is the position of one password-reset attempt inside the
// three-step flow. The zero value is AwaitingEmail.
type FlowState int

const (
	FlowAwaitingEmail FlowState = iota
	FlowOTPSent
	FlowVerifying
	FlowPasswordSetup
	FlowCompleted
	FlowFailed
)

var flowStateNames = map[FlowState]string{
	FlowAwaitingEmail: "awaiting_email",
	FlowOTPSent:       "otp_sent",
	FlowVerifying:     "verifying",
	FlowPasswordSetup: "password_setup",
	FlowCompleted:     "completed",
	FlowFailed:        "failed",
}

func (s FlowState) String() string {
	if name, ok := flowStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s FlowState) Terminal() bool {
	return s == FlowCompleted || s == FlowFailed
}
