// Package bus provides bounded, non-blocking downstream delivery: each
// decoded record the classifier produces is handed to exactly one named
// pipeline, and a slow or stalled consumer never blocks the classifier.
// Grounded on straticus1-dnsscienced/internal/eventbus/bus.go's Publish,
// narrowed from that teacher's topic-keyed pub/sub fan-out down to two
// named, single-consumer pipelines.
package bus

// Item is one unit of work handed from the classifier to a pipeline
// consumer: the decoded record plus the size hint consumers use for
// bookkeeping, without the consumer having to understand the record
// shape itself.
type Item struct {
	Payload   any
	SizeBytes int
}

// Pipeline is a bounded channel of Items with a drop-counting,
// non-blocking send.
type Pipeline struct {
	Name string
	ch   chan Item

	onDrop func(name string)
}

// New creates a Pipeline with the given buffer capacity. onDrop, if
// non-nil, is invoked (with name) every time TrySend drops an item
// because the channel is full; callers wire it to a metrics counter.
func New(name string, capacity int, onDrop func(name string)) *Pipeline {
	return &Pipeline{
		Name:   name,
		ch:     make(chan Item, capacity),
		onDrop: onDrop,
	}
}

// TrySend attempts to enqueue item without blocking. It returns false if
// the pipeline's buffer is full, after invoking onDrop.
func (p *Pipeline) TrySend(item Item) bool {
	select {
	case p.ch <- item:
		return true
	default:
		if p.onDrop != nil {
			p.onDrop(p.Name)
		}
		return false
	}
}

// Receive returns the consumer-facing read-only channel.
func (p *Pipeline) Receive() <-chan Item {
	return p.ch
}

// Len reports the number of items currently buffered, for introspection.
func (p *Pipeline) Len() int {
	return len(p.ch)
}
