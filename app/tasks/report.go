package tasks

// Report summarises one publisher run.
type Report struct {
	Publisher           string
	Path                string
	CompanionPath       string
	CategoriesAttempted int
	FeedFailures        int
	EntriesSeen         int
	EntriesWritten      int
	Drops               map[string]int
}

func newReport(publisher, path string) *Report {
	return &Report{Publisher: publisher, Path: path, Drops: make(map[string]int)}
}

func (r *Report) add(stats Stats) {
	r.EntriesSeen += stats.Seen
	for reason, n := range stats.Drops {
		r.Drops[reason] += n
	}
}

// Dropped is the total of all drop counters.
func (r *Report) Dropped() int {
	total := 0
	for _, n := range r.Drops {
		total += n
	}
	return total
}
