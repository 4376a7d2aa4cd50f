// scheduler.go - event-driven deadline scheduler (§4.5).
//
// Event-kind naming and the Callback shape are grounded on the pack's
// event.go scheduler (rcornwell-S370/emu/event), generalized from its
// relative-time linked list to the min-heap of absolute deadlines §4.5
// explicitly calls for. container/heap is the standard-library choice
// because no pack example wires a third-party priority-queue library into
// application code (see DESIGN.md).

package psxcore

import "container/heap"

type EventKind int

const (
	EventVBlank EventKind = iota
	EventHBlank
	EventTimer0
	EventTimer1
	EventTimer2
	EventCDROM
	EventSIO
)

type Callback func(now uint64)

type schedEvent struct {
	kind     EventKind
	deadline uint64
	callback Callback
	seq      uint64 // insertion order, breaks deadline ties (stable heap)
	index    int    // heap.Interface bookkeeping
}

type eventHeap []*schedEvent

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *eventHeap) Push(x any) {
	e := x.(*schedEvent)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler holds every pending device event as a min-heap keyed by
// deadline, with a cached earliest deadline so the dispatch loop's hot
// path never touches the heap.
type Scheduler struct {
	heap          eventHeap
	nextSeq       uint64
	earliestCache uint64
	hasEvents     bool
}

func NewScheduler() *Scheduler {
	s := &Scheduler{}
	heap.Init(&s.heap)
	return s
}

// Schedule registers a callback to fire at an absolute guest-cycle deadline.
func (s *Scheduler) Schedule(kind EventKind, deadline uint64, cb Callback) {
	e := &schedEvent{kind: kind, deadline: deadline, callback: cb, seq: s.nextSeq}
	s.nextSeq++
	heap.Push(&s.heap, e)
	s.refreshEarliest()
}

func (s *Scheduler) refreshEarliest() {
	if len(s.heap) == 0 {
		s.hasEvents = false
		return
	}
	s.hasEvents = true
	s.earliestCache = s.heap[0].deadline
}

// EarliestDeadline returns the next deadline and whether any event is
// pending at all.
func (s *Scheduler) EarliestDeadline() (uint64, bool) {
	return s.earliestCache, s.hasEvents
}

// DispatchDue fires, in deadline order (ties broken by insertion order),
// every event whose deadline has passed, removing each from the heap
// before invoking its callback so a callback that reschedules itself
// cannot be double-counted.
func (s *Scheduler) DispatchDue(now uint64) {
	for len(s.heap) > 0 && s.heap[0].deadline <= now {
		e := heap.Pop(&s.heap).(*schedEvent)
		e.callback(now)
	}
	s.refreshEarliest()
}
