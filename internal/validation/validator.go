// Package validation enforces the structural invariants of a parsed signal
// and computes its confidence score.
package validation

import (
	"fmt"

	"signalSimBot/internal/domain"
)

// Policy controls how rule violations are treated. Strict rejects the signal
// outright; Permissive records the same findings as warnings and keeps the
// signal valid. The policy is declared per parser.
type Policy string

const (
	Strict     Policy = "strict"
	Permissive Policy = "permissive"
)

// Validate checks the signal's invariants and applies the policy, setting
// IsValid and filling Errors or Warnings in place. The findings are also
// returned for callers that want them without inspecting the signal.
func Validate(sig *domain.Signal, policy Policy) []string {
	findings := check(sig)

	// Missing mandatory fields reject the signal regardless of policy.
	mandatory := mandatoryFindings(sig)
	if len(mandatory) > 0 {
		sig.IsValid = false
		sig.Errors = append(sig.Errors, mandatory...)
	}

	business := findings[len(mandatory):]
	switch {
	case len(business) == 0:
		if len(mandatory) == 0 {
			sig.IsValid = true
		}
	case policy == Permissive:
		sig.Warnings = append(sig.Warnings, business...)
		if len(mandatory) == 0 {
			sig.IsValid = true
		}
	default:
		sig.IsValid = false
		sig.Errors = append(sig.Errors, business...)
	}
	return findings
}

// check returns mandatory findings first, then business-rule findings, so
// Validate can split them by policy.
func check(sig *domain.Signal) []string {
	findings := mandatoryFindings(sig)
	findings = append(findings, directionalFindings(sig)...)
	return findings
}

func mandatoryFindings(sig *domain.Signal) []string {
	var out []string
	if sig.Symbol == "" {
		out = append(out, "symbol is missing")
	}
	if sig.Side != domain.Long && sig.Side != domain.Short {
		out = append(out, "side is missing or invalid")
	}
	return out
}

// directionalFindings checks the target/stop ordering against the entry
// average. For LONG every target must exceed the entry average and the stop
// must sit below it; for SHORT the reverse. Checks are skipped for fields
// that are absent.
func directionalFindings(sig *domain.Signal) []string {
	if !sig.HasEntry() {
		return nil
	}
	avg := sig.EntryAverage()
	var out []string
	switch sig.Side {
	case domain.Long:
		for i, tp := range sig.Targets {
			if tp <= avg {
				out = append(out, fmt.Sprintf("target %d (%.8g) is not above entry average (%.8g) for LONG", i+1, tp, avg))
			}
		}
		if sig.Stop > 0 && sig.Stop >= avg {
			out = append(out, fmt.Sprintf("stop (%.8g) is not below entry average (%.8g) for LONG", sig.Stop, avg))
		}
	case domain.Short:
		for i, tp := range sig.Targets {
			if tp >= avg {
				out = append(out, fmt.Sprintf("target %d (%.8g) is not below entry average (%.8g) for SHORT", i+1, tp, avg))
			}
		}
		if sig.Stop > 0 && sig.Stop <= avg {
			out = append(out, fmt.Sprintf("stop (%.8g) is not above entry average (%.8g) for SHORT", sig.Stop, avg))
		}
	}
	return out
}
