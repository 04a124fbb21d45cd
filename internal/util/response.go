package util

// Envelope is the JSON body shape handlers respond with.
type Envelope map[string]any

// Error wraps a user-facing message under the conventional "error" key.
func Error(message string) Envelope {
	return Envelope{"error": message}
}
