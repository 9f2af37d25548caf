package core

// Logger is implemented by the app's loggers.
// args may carry an error, a map[string]interface{} of extra data and the acting Principal.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Principal identifies who triggered a logged event.
type Principal struct {
	ID    string
	Name  string
	Email string
}
