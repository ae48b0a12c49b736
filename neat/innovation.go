package neat

// connPair keys the per-generation innovation cache.
type connPair struct {
	Source int
	Target int
}

// InnovationTracker issues globally unique node ids and innovation numbers
// for structural mutations. Identical structural mutations proposed within
// the same generation receive the same innovation number, which is what makes
// crossover alignment between independently mutated genomes possible.
//
// The tracker is an owned object threaded by reference into every genome
// operation that needs fresh ids; it is never package-global, so multiple
// independent evolutionary runs can coexist in one process. A single tracker
// must not be shared between concurrently evolving populations.
type InnovationTracker struct {
	nextNodeID     int
	nextInnovation int
	cache          map[connPair]int
}

// NewInnovationTracker creates a tracker with both counters at zero.
func NewInnovationTracker() *InnovationTracker {
	return &InnovationTracker{
		cache: make(map[connPair]int),
	}
}

// Innovation returns the innovation number for a source->target structural
// mutation. If the same pair was already requested this generation, the
// cached number is returned; otherwise the next number is allocated and
// cached.
func (t *InnovationTracker) Innovation(source, target int) int {
	key := connPair{Source: source, Target: target}
	if n, ok := t.cache[key]; ok {
		return n
	}
	n := t.nextInnovation
	t.nextInnovation++
	t.cache[key] = n
	return n
}

// AllocateNodeID returns the next unique node id. Node ids and innovation
// numbers are independent sequences.
func (t *InnovationTracker) AllocateNodeID() int {
	id := t.nextNodeID
	t.nextNodeID++
	return id
}

// ReserveNodeID advances the node id counter past id, so that ids assigned
// outside the tracker (initial input/output layout, loaded genomes) never
// collide with subsequently allocated ones.
func (t *InnovationTracker) ReserveNodeID(id int) {
	if id >= t.nextNodeID {
		t.nextNodeID = id + 1
	}
}

// ReserveInnovation advances the innovation counter past n.
func (t *InnovationTracker) ReserveInnovation(n int) {
	if n >= t.nextInnovation {
		t.nextInnovation = n + 1
	}
}

// ResetGenerationCache clears the pair->innovation cache. Both counters
// persist for the lifetime of the run. This must run once per generation,
// after reproduction and before the next generation's mutations.
func (t *InnovationTracker) ResetGenerationCache() {
	t.cache = make(map[connPair]int)
}

// Counters returns the current node id and innovation counters, for
// persisting alongside a saved population.
func (t *InnovationTracker) Counters() (nodeID, innovation int) {
	return t.nextNodeID, t.nextInnovation
}

// SetCounters restores previously persisted counter values.
func (t *InnovationTracker) SetCounters(nodeID, innovation int) {
	t.nextNodeID = nodeID
	t.nextInnovation = innovation
}
