package ports

import "github.com/aretw0/patchbay/pkg/domain"

// LogSink receives user-facing console entries. Implementations must not block
// the frame loop for long.
type LogSink interface {
	Log(entry domain.LogEntry)
}

// LogSinkFunc adapts a function to LogSink.
type LogSinkFunc func(domain.LogEntry)

func (f LogSinkFunc) Log(e domain.LogEntry) { f(e) }

// NopSink discards every entry.
var NopSink LogSink = LogSinkFunc(func(domain.LogEntry) {})

// MultiSink fans an entry out to every non-nil sink in order.
func MultiSink(sinks ...LogSink) LogSink {
	var live []LogSink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return LogSinkFunc(func(e domain.LogEntry) {
		for _, s := range live {
			s.Log(e)
		}
	})
}
