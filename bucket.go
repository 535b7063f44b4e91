package gotick

// bucket groups timeouts that are paused, resumed and enumerated together.
// All access is guarded by the owning scheduler's mutex.
type bucket struct {
	key     string
	entries map[string]*Timeout
}

func newBucket(key string) *bucket {
	return &bucket{
		key:     key,
		entries: make(map[string]*Timeout),
	}
}

// timeouts returns the registered timeouts in no particular order.
func (b *bucket) timeouts() []*Timeout {
	tmos := make([]*Timeout, 0, len(b.entries))
	for _, tmo := range b.entries {
		tmos = append(tmos, tmo)
	}
	return tmos
}

// detachAll abandons every registered timeout.
// Abandoned timeouts keep their state but never fire again.
func (b *bucket) detachAll() {
	for _, tmo := range b.entries {
		tmo.owner = nil
	}
	clear(b.entries)
}
