// Package metrics records state machine and delivery counters.
package metrics

// Result labels for transition counters.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
)

// Recorder is the observability hook used by the state store, the
// persistence queue and the session registry.
type Recorder interface {
	IncTransition(action, result string)
	IncPersistFailure(effect string)
	IncNotification(typ string)
	SetActiveSessions(n int)
}

// NoopRecorder is the default when metrics are not configured.
type NoopRecorder struct{}

func (NoopRecorder) IncTransition(string, string) {}
func (NoopRecorder) IncPersistFailure(string)     {}
func (NoopRecorder) IncNotification(string)       {}
func (NoopRecorder) SetActiveSessions(int)        {}
