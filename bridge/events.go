package bridge

import (
	"encoding/json"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"goswapbridge/types"
)

// EventLog receives a record of every accepted mutating operation.
type EventLog interface {
	Append(ev *types.Event) error
	List(kind types.EventKind) ([]*types.Event, error)
}

// MemoryEventLog keeps events in process memory, in emission order.
type MemoryEventLog struct {
	mu     sync.RWMutex
	events []*types.Event
}

var _ EventLog = (*MemoryEventLog)(nil)

func NewMemoryEventLog() *MemoryEventLog {
	return &MemoryEventLog{}
}

func (l *MemoryEventLog) Append(ev *types.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

// List returns every event of kind, or all events when kind is empty.
func (l *MemoryEventLog) List(kind types.EventKind) ([]*types.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*types.Event
	for _, ev := range l.events {
		if kind == "" || ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out, nil
}

// emit records an event. A failing sink is logged and does not fail the
// operation that has already been applied.
func (e *Engine) emit(kind types.EventKind, caller common.Address, payload interface{}) *types.Event {
	data, err := json.Marshal(payload)
	if err != nil {
		e.log.WithError(err).WithField("kind", kind).Error("cannot marshal event payload")
		data = json.RawMessage("null")
	}

	e.seq++
	ev := &types.Event{
		ID:     uuid.New().String(),
		Seq:    e.seq,
		Kind:   kind,
		Caller: caller,
		Time:   e.now().Unix(),
		Data:   data,
	}
	if err := e.events.Append(ev); err != nil {
		e.log.WithError(err).WithFields(logrus.Fields{"kind": kind, "id": ev.ID}).Error("event sink failed")
	}
	return ev
}
