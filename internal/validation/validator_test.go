package validation

import (
	"testing"

	"signalSimBot/internal/domain"

	"github.com/stretchr/testify/assert"
)

func longSignal() *domain.Signal {
	return &domain.Signal{
		Symbol:    "BTCUSDT",
		Side:      domain.Long,
		EntryLow:  44000,
		EntryHigh: 45000,
		Targets:   []float64{46000, 47000},
		Stop:      43000,
	}
}

func shortSignal() *domain.Signal {
	return &domain.Signal{
		Symbol:    "ETHUSDT",
		Side:      domain.Short,
		EntryLow:  3200,
		EntryHigh: 3300,
		Targets:   []float64{3000, 2900},
		Stop:      3400,
	}
}

func TestValidate_WellFormed(t *testing.T) {
	for _, sig := range []*domain.Signal{longSignal(), shortSignal()} {
		Validate(sig, Strict)
		assert.True(t, sig.IsValid)
		assert.Empty(t, sig.Errors)
		assert.Empty(t, sig.Warnings)
	}
}

func TestValidate_MandatoryFields(t *testing.T) {
	t.Run("missing symbol rejects under any policy", func(t *testing.T) {
		sig := longSignal()
		sig.Symbol = ""
		Validate(sig, Permissive)
		assert.False(t, sig.IsValid)
		assert.Len(t, sig.Errors, 1)
	})

	t.Run("missing side rejects under any policy", func(t *testing.T) {
		sig := longSignal()
		sig.Side = ""
		Validate(sig, Permissive)
		assert.False(t, sig.IsValid)
	})
}

func TestValidate_DirectionalOrdering(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*domain.Signal)
		sig      func() *domain.Signal
		findings int
	}{
		{
			name: "long target below entry average",
			sig:  longSignal,
			mutate: func(s *domain.Signal) {
				s.Targets = []float64{43500, 46000}
			},
			findings: 1,
		},
		{
			name: "long stop above entry average",
			sig:  longSignal,
			mutate: func(s *domain.Signal) {
				s.Stop = 45000
			},
			findings: 1,
		},
		{
			name: "short target above entry average",
			sig:  shortSignal,
			mutate: func(s *domain.Signal) {
				s.Targets = []float64{3500}
			},
			findings: 1,
		},
		{
			name: "short stop below entry average",
			sig:  shortSignal,
			mutate: func(s *domain.Signal) {
				s.Stop = 3100
			},
			findings: 1,
		},
		{
			name: "everything inverted",
			sig:  longSignal,
			mutate: func(s *domain.Signal) {
				s.Targets = []float64{43000, 42000}
				s.Stop = 50000
			},
			findings: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name+" strict", func(t *testing.T) {
			sig := tt.sig()
			tt.mutate(sig)
			Validate(sig, Strict)
			assert.False(t, sig.IsValid)
			assert.Len(t, sig.Errors, tt.findings)
			assert.Empty(t, sig.Warnings)
		})
		t.Run(tt.name+" permissive", func(t *testing.T) {
			sig := tt.sig()
			tt.mutate(sig)
			Validate(sig, Permissive)
			assert.True(t, sig.IsValid)
			assert.Empty(t, sig.Errors)
			assert.Len(t, sig.Warnings, tt.findings)
		})
	}
}

func TestValidate_SkipsAbsentFields(t *testing.T) {
	sig := &domain.Signal{Symbol: "BTCUSDT", Side: domain.Long, Targets: []float64{10}}
	Validate(sig, Strict)
	assert.True(t, sig.IsValid, "no entry means no directional check")

	sig = longSignal()
	sig.Stop = 0
	Validate(sig, Strict)
	assert.True(t, sig.IsValid)
}

func TestScore(t *testing.T) {
	t.Run("full signal caps at 100", func(t *testing.T) {
		sig := longSignal()
		sig.Leverage = 10
		sig.Reason = "breakout"
		sig.Targets = []float64{46000, 47000, 48000, 49000}
		assert.InDelta(t, 100, Score(sig), 1e-9)
	})

	t.Run("monotonic as fields are added", func(t *testing.T) {
		sig := &domain.Signal{Symbol: "BTCUSDT", Side: domain.Long}
		base := Score(sig)
		sig.EntryLow, sig.EntryHigh = 44000, 44000
		withEntry := Score(sig)
		sig.EntryHigh = 45000
		withZone := Score(sig)
		sig.Targets = []float64{46000}
		withTargets := Score(sig)
		sig.Stop = 43000
		withStop := Score(sig)

		assert.InDelta(t, 35, base, 1e-9)
		assert.Greater(t, withEntry, base)
		assert.Greater(t, withZone, withEntry)
		assert.Greater(t, withTargets, withZone)
		assert.Greater(t, withStop, withTargets)
	})
}
