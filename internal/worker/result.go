package worker

// itemResult records the outcome of one per-message unit of work inside a
// batch. Per-item failures are skips, not job failures.
type itemResult struct {
	ID  string
	Err error
}

// tally aggregates item results into processed/skipped counts for the
// job's summary message.
type tally struct {
	results []itemResult
}

func (t *tally) add(id string, err error) {
	t.results = append(t.results, itemResult{ID: id, Err: err})
}

func (t *tally) processed() int {
	n := 0
	for _, r := range t.results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

func (t *tally) skipped() int {
	return len(t.results) - t.processed()
}
