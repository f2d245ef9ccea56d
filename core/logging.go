package core

// Logger is any leveled logger the app can report to.
// Implementations may special-case a user value passed in args
// to attribute the entry to the acting account.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}
