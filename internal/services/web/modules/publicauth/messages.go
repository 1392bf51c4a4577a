package publicauth

import "github.com/louisbranch/babylon-auth/internal/services/identity"

// GenericMessage is shown for failures without a specific message.
const GenericMessage = "Something went wrong. Please try again."

var codeMessages = map[string]string{
	identity.CodeInvalidEmail:      "Invalid email address.",
	identity.CodeUserNotFound:      "Incorrect email or password.",
	identity.CodeWrongPassword:     "Incorrect email or password.",
	identity.CodeInvalidCredential: "Incorrect email or password.",
	identity.CodeEmailAlreadyInUse: "This email is already in use.",
	identity.CodeWeakPassword:      "Password should be at least 6 characters.",
	identity.CodeTooManyRequests:   "Too many attempts. Please try again later.",
}

// MessageForCode maps a provider error code to the message shown on the form.
func MessageForCode(code string) string {
	if message, ok := codeMessages[code]; ok {
		return message
	}
	return GenericMessage
}

// MessageFor maps err to the message shown on the form.
func MessageFor(err error) string {
	code, ok := identity.CodeOf(err)
	if !ok {
		return GenericMessage
	}
	return MessageForCode(code)
}
