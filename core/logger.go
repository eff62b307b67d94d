package core

// Logger logs a message with optional args.
// Recognised args: error, map[string]interface{}, Identity.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Metrics records lifecycle events.
type Metrics interface {
	ApplicationCreated()
	ApplicationDecided(status string)
	DocumentsUploaded(n int)
}

type nopMetrics struct{}

func (nopMetrics) ApplicationCreated()       {}
func (nopMetrics) ApplicationDecided(string) {}
func (nopMetrics) DocumentsUploaded(int)     {}

// NopMetrics discards every event.
var NopMetrics Metrics = nopMetrics{}
