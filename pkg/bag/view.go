package bag

import (
	"container/heap"
	"sort"
)

// bagQuery pairs a query with the bag it was added against.
type bagQuery struct {
	bag   *Bag
	query Query
}

// messageRange is a contiguous slice of one topic's index selected by a
// query's time bounds.
type messageRange struct {
	entries []IndexEntry
	info    *MsgInfo
	bq      *bagQuery
}

// View is a time-ordered merge over filtered subsets of one or more bags.
// Queries are added first; iteration then merges the per-topic index
// ranges by timestamp.
type View struct {
	ranges  []*messageRange
	queries []*bagQuery
	size    int
}

// NewView creates an empty view.
func NewView() *View {
	return &View{}
}

// AddQuery selects the matching index ranges of bag under query. Binary
// searches on each topic's index locate the [begin, end) slice; empty
// slices are dropped.
func (v *View) AddQuery(b *Bag, query Query) {
	bq := &bagQuery{bag: b, query: query}
	v.queries = append(v.queries, bq)

	b.topicsMu.Lock()
	defer b.topicsMu.Unlock()

	for _, topic := range sortedTopics(b.topics) {
		rec := b.topics[topic]
		info := rec.info
		if info == nil || !query.Evaluate(info) {
			continue
		}

		entries := rec.index
		lo := lowerBound(entries, query.BeginTime())
		hi := lowerBound(entries, query.EndTime())
		if lo >= hi {
			continue
		}

		v.ranges = append(v.ranges, &messageRange{
			entries: entries[lo:hi],
			info:    info,
			bq:      bq,
		})
		v.size += hi - lo
	}
}

// Size returns the total number of messages the view will yield,
// precomputed at query-addition time.
func (v *View) Size() int {
	return v.size
}

// lowerBound returns the first index whose entry time is >= t. Entries are
// searched in insertion order; for a monotonically-clocked producer this
// is timestamp order.
func lowerBound(entries []IndexEntry, t Time) int {
	return sort.Search(len(entries), func(i int) bool {
		return !entries[i].Time.Before(t)
	})
}

// viewIterHelper tracks one range's progress through the merge.
type viewIterHelper struct {
	pos   int
	rng   *messageRange
	order int // range ordinal, stable tie-break for equal timestamps
}

func (h *viewIterHelper) entry() *IndexEntry {
	return &h.rng.entries[h.pos]
}

// mergeQueue is a min-heap of range cursors keyed on the next entry's
// timestamp.
type mergeQueue []*viewIterHelper

func (q mergeQueue) Len() int { return len(q) }

func (q mergeQueue) Less(i, j int) bool {
	ti, tj := q[i].entry().Time, q[j].entry().Time
	if !ti.Equal(tj) {
		return ti.Before(tj)
	}
	return q[i].order < q[j].order
}

func (q mergeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *mergeQueue) Push(x any) { *q = append(*q, x.(*viewIterHelper)) }

func (q *mergeQueue) Pop() any {
	old := *q
	n := len(old)
	h := old[n-1]
	*q = old[:n-1]
	return h
}

// Iterator merges the view's ranges by the timestamp of each range's next
// entry. Within one topic, entries keep their index insertion order, so the
// output is in non-decreasing timestamp order only when every topic was
// recorded with non-decreasing timestamps. Each iterator owns its heap, so
// multiple iterators over one view are independent.
type Iterator struct {
	queue mergeQueue
	cur   *viewIterHelper
}

// Iter returns a fresh iterator positioned before the first message.
// Use the drain pattern:
//
//	for it := view.Iter(); it.Next(); {
//		mi := it.Value()
//	}
func (v *View) Iter() *Iterator {
	it := &Iterator{queue: make(mergeQueue, 0, len(v.ranges))}
	for i, r := range v.ranges {
		it.queue = append(it.queue, &viewIterHelper{pos: 0, rng: r, order: i})
	}
	heap.Init(&it.queue)
	return it
}

// Next advances to the next message. It returns false when the view is
// exhausted.
func (it *Iterator) Next() bool {
	if len(it.queue) == 0 {
		it.cur = nil
		return false
	}
	h := heap.Pop(&it.queue).(*viewIterHelper)
	it.cur = &viewIterHelper{pos: h.pos, rng: h.rng, order: h.order}
	h.pos++
	if h.pos < len(h.rng.entries) {
		heap.Push(&it.queue, h)
	}
	return true
}

// Value returns the current message handle. Only valid after a true Next.
func (it *Iterator) Value() MessageInstance {
	h := it.cur
	return MessageInstance{
		info:  h.rng.info,
		entry: h.entry(),
		bag:   h.rng.bq.bag,
	}
}
