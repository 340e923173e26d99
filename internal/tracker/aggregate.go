package tracker

import (
	"math"
	"sort"
	"time"
)

// PercentChange returns the relative change from previous to current in
// percent. A missing or zero previous value yields 0 rather than a division
// error.
func PercentChange(current, previous float64) float64 {
	if previous <= 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// ComputeVelocity reduces a window of transfer records against the supply at
// window end. A zero or unavailable supply yields a ratio of exactly 0.
// Exact duplicates (same sender, receiver, amount, timestamp) are counted as
// a data-quality signal but are NOT removed from the volume sum.
func ComputeVelocity(transfers []TransferRecord, supply float64) VelocityMetric {
	type txKey struct {
		from, to string
		amount   float64
		ts       int64
	}

	wallets := make(map[string]struct{})
	seen := make(map[txKey]struct{}, len(transfers))
	m := VelocityMetric{Supply: supply}

	for _, tx := range transfers {
		m.TxCount++
		m.Volume += tx.Amount
		wallets[tx.From] = struct{}{}
		wallets[tx.To] = struct{}{}

		key := txKey{from: tx.From, to: tx.To, amount: tx.Amount, ts: tx.Timestamp.UnixNano()}
		if _, dup := seen[key]; dup {
			m.DuplicateTxs++
			continue
		}
		seen[key] = struct{}{}
	}

	m.UniqueWallets = len(wallets)
	if supply > 0 {
		m.Ratio = m.Volume / supply
	}
	return m
}

// GroupByWindow buckets observations by their timestamp floored to the
// window size and reports, per bucket, the net percent change from the
// window's first to last observation plus the closing supply and price.
// Input must be ordered by timestamp, which the observation series invariant
// guarantees.
func GroupByWindow(obs []SupplyObservation, window time.Duration) []WindowChange {
	if window <= 0 || len(obs) == 0 {
		return nil
	}

	buckets := make(map[time.Time][]SupplyObservation)
	for _, o := range obs {
		start := o.Timestamp.Truncate(window)
		buckets[start] = append(buckets[start], o)
	}

	starts := make([]time.Time, 0, len(buckets))
	for s := range buckets {
		starts = append(starts, s)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	changes := make([]WindowChange, 0, len(starts))
	for _, start := range starts {
		group := buckets[start]
		first, last := group[0], group[len(group)-1]
		changes = append(changes, WindowChange{
			WindowStart:  start,
			Token:        last.Token,
			NetChangePct: PercentChange(last.Supply, first.Supply),
			Supply:       last.Supply,
			Price:        last.Price,
			Observations: len(group),
		})
	}
	return changes
}

// DetectChanges returns a flagged event for every observation whose absolute
// percent change meets the threshold. First observations have no defined
// change and forward-filled values are 0% by construction, so neither can
// trigger.
func DetectChanges(obs []SupplyObservation, thresholdPct float64) []FlaggedChange {
	var flagged []FlaggedChange
	for _, o := range obs {
		if o.First || o.ForwardFilled {
			continue
		}
		if math.Abs(o.ChangePct) >= thresholdPct {
			flagged = append(flagged, FlaggedChange{
				Timestamp: o.Timestamp,
				Token:     o.Token,
				ChangePct: o.ChangePct,
				Supply:    o.Supply,
				Price:     o.Price,
			})
		}
	}
	return flagged
}
