package core

// Logger is implemented by every log sink of the app.
// args may carry errors, maps of extra data and the identity.Principal of the caller.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
