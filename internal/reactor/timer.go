package reactor

import "time"

// timer is one scheduled callback in the heap.
type timer struct {
	id        TimerID
	deadline  time.Time
	interval  time.Duration
	cb        func() bool
	cancelled bool
}

// timerHeap is a min-heap ordered by deadline.
type timerHeap []*timer

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x interface{}) { *h = append(*h, x.(*timer)) }
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
