package dashboard

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"contextgate/internal/metrics"
)

// ring keeps the most recent limit items. It is safe for concurrent use.
type ring[T any] struct {
	mu    sync.RWMutex
	items []T
	limit int
}

func newRing[T any](limit int) *ring[T] {
	if limit <= 0 {
		limit = 100
	}
	return &ring[T]{limit: limit}
}

func (r *ring[T]) add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, v)
	if len(r.items) > r.limit {
		r.items = append([]T(nil), r.items[len(r.items)-r.limit:]...)
	}
}

func (r *ring[T]) snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

// gaugeEvent is an exchange quota reading shown next to the evaluation.
type gaugeEvent struct {
	Timestamp time.Time              `json:"timestamp"`
	Component string                 `json:"component"`
	Name      string                 `json:"name"`
	Value     interface{}            `json:"value"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// noticeEvent is a warning or error line from the application log.
type noticeEvent struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Component string                 `json:"component,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// activity collects what the dashboard shows under "recent activity": metric
// events emitted through metrics.EmitMetric and warnings from the logger.
type activity struct {
	gauges  *ring[gaugeEvent]
	notices *ring[noticeEvent]
	enabled atomic.Bool
}

func newActivity(limit int) *activity {
	a := &activity{gauges: newRing[gaugeEvent](limit), notices: newRing[noticeEvent](limit)}
	a.enabled.Store(true)
	return a
}

func (a *activity) handleMetric(m metrics.Metric) {
	if !a.enabled.Load() {
		return
	}
	a.gauges.add(gaugeEvent{
		Timestamp: m.Timestamp,
		Component: m.Component,
		Name:      m.Name,
		Value:     m.Value,
		Fields:    m.Fields,
	})
}

// Levels limits the hook to warnings and worse.
func (a *activity) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

func (a *activity) Fire(entry *logrus.Entry) error {
	if !a.enabled.Load() {
		return nil
	}
	n := noticeEvent{
		Timestamp: entry.Time,
		Level:     entry.Level.String(),
		Message:   entry.Message,
	}
	if component, ok := entry.Data["component"].(string); ok {
		n.Component = component
	}
	if len(entry.Data) > 0 {
		n.Fields = make(map[string]interface{}, len(entry.Data))
		for k, v := range entry.Data {
			if k == "component" {
				continue
			}
			switch val := v.(type) {
			case error:
				n.Fields[k] = val.Error()
			case fmt.Stringer:
				n.Fields[k] = val.String()
			default:
				n.Fields[k] = val
			}
		}
	}
	a.notices.add(n)
	return nil
}

func (a *activity) close() {
	a.enabled.Store(false)
}
