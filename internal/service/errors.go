package service

import "errors"

var (
	ErrInvalidEmail    = errors.New("email format is invalid")
	ErrInvalidCode     = errors.New("verification code must be 6 digits")
	ErrEmailMissing    = errors.New("email is missing; restart the reset flow")
	ErrFlowState       = errors.New("operation not valid in current flow state")
	ErrFlowClosed      = errors.New("reset flow is closed")
	ErrTooManyRequests = errors.New("too many password reset requests")

	ErrCodeExpired  = errors.New("verification code expired")
	ErrCodeInvalid  = errors.New("verification code invalid")
	ErrCodeNotFound = errors.New("verification code not found")

	ErrTokenMissing = errors.New("no reset token found")
	ErrTokenInvalid = errors.New("reset token is malformed")
	ErrTokenExpired = errors.New("reset token expired")

	ErrSessionExpired   = errors.New("recovery session expired")
	ErrSessionInvalid   = errors.New("recovery session invalid")
	ErrSessionForbidden = errors.New("recovery session forbidden")
	ErrSessionMissing   = errors.New("recovery session missing")

	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordTooWeak  = errors.New("password does not meet the policy")
	ErrPasswordSame     = errors.New("new password must differ from the old one")

	ErrProviderUnavailable = errors.New("auth provider unavailable")
)

// userMessages maps flow errors to the fixed set of strings shown to users.
// Raw provider text never appears here; unknown failures get the generic
// line via UserMessage.
var userMessages = map[error]string{
	ErrInvalidEmail:    "Please enter a valid email address.",
	ErrInvalidCode:     "The code must be exactly 6 digits.",
	ErrEmailMissing:    "We lost track of your email address. Please start the reset again.",
	ErrTooManyRequests: "Too many password reset requests. Please wait a few minutes and try again.",

	ErrCodeExpired:  "That code has expired. Request a new one and try again.",
	ErrCodeInvalid:  "That code is not correct. Check the email and try again.",
	ErrCodeNotFound: "We could not find a pending reset for that code. Request a new one.",

	ErrTokenMissing: "Your reset link is missing or incomplete. Please request a new password reset.",
	ErrTokenInvalid: "Your reset link is invalid. Please request a new password reset.",
	ErrTokenExpired: "Your reset link has expired. Please request a new password reset.",

	ErrSessionExpired:   "Your reset session has expired. Please request a new password reset.",
	ErrSessionInvalid:   "Your reset session is no longer valid. Please request a new password reset.",
	ErrSessionForbidden: "This reset link cannot be used. Please request a new password reset.",
	ErrSessionMissing:   "No active reset session was found. Please request a new password reset.",

	ErrPasswordMismatch: "The passwords do not match.",
	ErrPasswordTooWeak:  "Please choose a stronger password.",
	ErrPasswordSame:     "Your new password must be different from your current password.",

	ErrProviderUnavailable: GenericRequestMessage,
}

// GenericRequestMessage is the deliberately non-committal line shown for
// every well-formed reset request, successful or not, so responses cannot
// be used to probe which addresses have accounts.
const GenericRequestMessage = "If an account with this email exists, you will receive a password reset code."

// UserMessage translates a flow error into its user-facing string. Unknown
// errors collapse into a generic retry line that still carries the raw text
// for diagnosability.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for sentinel, msg := range userMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return "Something went wrong. Please try again. (" + err.Error() + ")"
}
