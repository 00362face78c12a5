package editor

import (
	"sync"

	"github.com/mohitkumar/funnel/logger"
	"go.uber.org/zap"
)

type Level string

const INFO Level = "info"
const WARN Level = "warn"
const ERROR Level = "error"

// Notifier tells the operator about things that happened on their behalf.
type Notifier interface {
	Notify(level Level, message string)
}

type LogNotifier struct{}

func (LogNotifier) Notify(level Level, message string) {
	switch level {
	case ERROR:
		logger.Error(message)
	case WARN:
		logger.Warn(message)
	default:
		logger.Info(message, zap.String("level", string(level)))
	}
}

type Notification struct {
	Level   Level
	Message string
}

// RecordingNotifier keeps every notification, for hosts that render them
// later.
type RecordingNotifier struct {
	mu   sync.Mutex
	list []Notification
}

func (r *RecordingNotifier) Notify(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append(r.list, Notification{Level: level, Message: message})
}

func (r *RecordingNotifier) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.list))
	copy(out, r.list)
	return out
}
