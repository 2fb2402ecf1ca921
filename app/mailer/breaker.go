package mailer

import "github.com/sony/gobreaker/v2"

// newBreaker trips after at least three sends with a failure ratio of 60% or more.
func newBreaker(name string) *gobreaker.CircuitBreaker[struct{}] {
	var st gobreaker.Settings
	st.Name = name
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 3 && failureRatio >= 0.6
	}

	return gobreaker.NewCircuitBreaker[struct{}](st)
}
