package tracker

import (
	"sync"
	"time"
)

type lastKnown struct {
	supply float64
	price  float64
	seen   bool
}

// FillState carries the last known supply and price per token across poll
// cycles so a failed fetch can be forward-filled instead of leaving a gap.
// It is the only mutable state in the aggregation path.
type FillState struct {
	mu   sync.Mutex
	last map[string]lastKnown
}

func NewFillState() *FillState {
	return &FillState{last: make(map[string]lastKnown)}
}

// Observe records a real reading and returns the resulting observation.
// The percent change is computed against the immediately preceding value for
// the same token; the first observation in a series has no prior and reports
// a zero change with First set.
func (s *FillState) Observe(token string, ts time.Time, supply, price float64) SupplyObservation {
	s.mu.Lock()
	prev := s.last[token]
	s.last[token] = lastKnown{supply: supply, price: price, seen: true}
	s.mu.Unlock()

	obs := SupplyObservation{
		Token:     token,
		Timestamp: ts,
		Supply:    supply,
		Price:     price,
	}
	if !prev.seen {
		obs.First = true
		return obs
	}
	obs.ChangePct = PercentChange(supply, prev.supply)
	return obs
}

// Fill produces a forward-filled observation from the last known value.
// A filled value always reports a 0% change against itself. The second
// return is false when the token has never been observed, in which case the
// token must be skipped for the cycle.
func (s *FillState) Fill(token string, ts time.Time) (SupplyObservation, bool) {
	s.mu.Lock()
	prev := s.last[token]
	s.mu.Unlock()

	if !prev.seen {
		return SupplyObservation{}, false
	}
	return SupplyObservation{
		Token:         token,
		Timestamp:     ts,
		Supply:        prev.supply,
		Price:         prev.price,
		ForwardFilled: true,
	}, true
}

// Last returns the last known supply for a token, or 0 if never observed.
func (s *FillState) Last(token string) (supply, price float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.last[token]
	return prev.supply, prev.price, prev.seen
}
