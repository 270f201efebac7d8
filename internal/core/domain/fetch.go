package domain

import "time"

// FetchState is the transient cursor of one paginated download.
// Offset never decreases and BatchSize never drops below the floor the
// fetcher was configured with. Fetched counts every row the server returned,
// including rows that could not be parsed.
type FetchState struct {
	Offset        int
	BatchSize     int
	Fetched       int
	ExpectedTotal int
	// HaveTotal reports whether ExpectedTotal came from a response.
	HaveTotal bool
	Attempt   int
	Calls     int
}

// FetchResult is the outcome of a paginated download.
type FetchResult struct {
	// Tickets are all records retrieved, in server order.
	Tickets []Ticket

	// ExpectedTotal is the total reported by the first successful page.
	ExpectedTotal int

	// Calls is the number of HTTP requests issued, retries included.
	Calls int

	// FinalBatchSize is the page size in use when the fetch ended.
	FinalBatchSize int

	// Duration is the wall time the fetch took.
	Duration time.Duration
}

// CompletionRate returns fetched/expected in [0,1].
// An empty listing (expected total 0) counts as complete.
func (r *FetchResult) CompletionRate() float64 {
	if r == nil {
		return 0
	}
	if r.ExpectedTotal <= 0 {
		return 1
	}
	return float64(len(r.Tickets)) / float64(r.ExpectedTotal)
}

// Complete reports whether the completion rate meets threshold.
func (r *FetchResult) Complete(threshold float64) bool {
	return r.CompletionRate() >= threshold
}
