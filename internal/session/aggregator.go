package session

// Aggregator tallies votes per option label for one poll. Counts only ever
// increase; option order is owned by the poll's declared option list, not by
// the tally map.
type Aggregator struct {
	results map[string]int
	total   int
}

// NewAggregator returns an empty tally.
func NewAggregator() *Aggregator {
	return &Aggregator{results: make(map[string]int)}
}

// Record counts one vote for option.
func (a *Aggregator) Record(option string) {
	a.results[option]++
	a.total++
}

// Results returns a copy of the per-option counts.
func (a *Aggregator) Results() map[string]int {
	out := make(map[string]int, len(a.results))
	for opt, n := range a.results {
		out[opt] = n
	}
	return out
}

// Total returns the number of recorded votes.
func (a *Aggregator) Total() int {
	return a.total
}

// Percentage returns option's share of all votes, 0 when nothing was recorded.
func (a *Aggregator) Percentage(option string) float64 {
	if a.total == 0 {
		return 0
	}
	return float64(a.results[option]) / float64(a.total) * 100
}
