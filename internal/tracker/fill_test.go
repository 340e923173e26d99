package tracker

import (
	"math"
	"testing"
	"time"
)

func TestFillStateFirstObservation(t *testing.T) {
	fs := NewFillState()
	at := time.Now()

	obs := fs.Observe("FRAX", at, 100, 0.999)

	if !obs.First {
		t.Error("first observation should be marked First")
	}
	if obs.ChangePct != 0 {
		t.Errorf("first observation ChangePct = %v, want 0", obs.ChangePct)
	}
	if obs.Supply != 100 || obs.Price != 0.999 {
		t.Errorf("unexpected observation %+v", obs)
	}
}

func TestFillStateChange(t *testing.T) {
	fs := NewFillState()
	at := time.Now()

	fs.Observe("FRAX", at, 100, 1.0)
	obs := fs.Observe("FRAX", at.Add(15*time.Minute), 99.86, 1.0)

	if obs.First {
		t.Error("second observation should not be First")
	}
	if math.Abs(obs.ChangePct-(-0.14)) > 1e-9 {
		t.Errorf("ChangePct = %v, want -0.14", obs.ChangePct)
	}
}

func TestFillStateTokensIndependent(t *testing.T) {
	fs := NewFillState()
	at := time.Now()

	fs.Observe("FRAX", at, 100, 1.0)
	obs := fs.Observe("DAI", at, 5000, 1.0)

	if !obs.First {
		t.Error("each token's series starts with its own First observation")
	}
}

func TestFillForwardFill(t *testing.T) {
	fs := NewFillState()
	at := time.Now()

	fs.Observe("FRAX", at, 100, 0.998)
	filled, ok := fs.Fill("FRAX", at.Add(15*time.Minute))

	if !ok {
		t.Fatal("Fill should succeed after a real observation")
	}
	if !filled.ForwardFilled {
		t.Error("filled observation should be marked ForwardFilled")
	}
	if filled.Supply != 100 || filled.Price != 0.998 {
		t.Errorf("filled values = %v/%v, want last known 100/0.998", filled.Supply, filled.Price)
	}
	if filled.ChangePct != 0 {
		t.Errorf("forward-filled ChangePct = %v, want 0", filled.ChangePct)
	}
}

func TestFillNeverObserved(t *testing.T) {
	fs := NewFillState()
	if _, ok := fs.Fill("EURC", time.Now()); ok {
		t.Error("Fill must fail for a token with no prior observation")
	}
}

func TestFillDoesNotAdvanceSeries(t *testing.T) {
	fs := NewFillState()
	at := time.Now()

	fs.Observe("FRAX", at, 100, 1.0)
	fs.Fill("FRAX", at.Add(15*time.Minute))
	obs := fs.Observe("FRAX", at.Add(30*time.Minute), 99.86, 1.0)

	// The change is still computed against the last real value.
	if math.Abs(obs.ChangePct-(-0.14)) > 1e-9 {
		t.Errorf("ChangePct after fill = %v, want -0.14", obs.ChangePct)
	}
}
