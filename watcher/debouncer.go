package watcher

import (
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event is a filesystem change translated to the watcher's vocabulary.
type Event struct {
	Path string
	Kind EventKind
}

// EventKind represents the type of file system change.
type EventKind int

const (
	KindCreate EventKind = iota
	KindModify
	KindDelete
)

func (k EventKind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindModify:
		return "modify"
	case KindDelete:
		return "delete"
	}
	return "unknown"
}

// kindOf maps an fsnotify operation to an EventKind. Renames count as
// deletions of the old name; the new name shows up as a create. Pure
// attribute changes are dropped.
func kindOf(op fsnotify.Op) (EventKind, bool) {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return KindDelete, true
	case op.Has(fsnotify.Create):
		return KindCreate, true
	case op.Has(fsnotify.Write):
		return KindModify, true
	default:
		return 0, false
	}
}

// batch keeps events in arrival order. A repeat of the latest kind seen for
// the same path is collapsed, so create, modify, modify becomes create, modify
// while create, delete, create is kept intact.
type batch struct {
	events []Event
	latest map[string]EventKind
}

func newBatch() *batch {
	return &batch{latest: make(map[string]EventKind)}
}

func (b *batch) add(raw fsnotify.Event) {
	kind, ok := kindOf(raw.Op)
	if !ok {
		return
	}
	if last, seen := b.latest[raw.Name]; seen && last == kind {
		return
	}
	b.latest[raw.Name] = kind
	b.events = append(b.events, Event{Path: raw.Name, Kind: kind})
}

// gather builds a batch from the first event plus everything arriving on
// events within interval. With a non-positive interval it only drains what
// is already buffered.
func gather(first fsnotify.Event, events <-chan fsnotify.Event, interval time.Duration) []Event {
	b := newBatch()
	b.add(first)

	if interval <= 0 {
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return b.events
				}
				b.add(event)
			default:
				return b.events
			}
		}
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return b.events
			}
			b.add(event)
		case <-timer.C:
			return b.events
		}
	}
}
