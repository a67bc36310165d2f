package compiler

import (
	"fmt"

	"github.com/roach88/distill/internal/layout"
)

// OverlapWarning reports sum variants that untyped values cannot tell
// apart. Dehydrating such a value fails with DATA_AMBIGUITY.
type OverlapWarning struct {
	Layout   string   `json:"layout"`
	Variants []string `json:"variants"`
	Message  string   `json:"message"`
}

// AnalyzeOverlaps reports overlapping variants of every sum in reg.
// Sums that reference unregistered layouts are skipped.
func AnalyzeOverlaps(reg *layout.Registry) []OverlapWarning {
	warnings := []OverlapWarning{}
	for _, ref := range reg.Refs() {
		l, _ := reg.Get(ref)
		if _, ok := l.(*layout.Sum); !ok || !resolvable(reg, ref, map[layout.Ref]bool{}) {
			continue
		}
		overlaps, err := reg.Overlaps(ref)
		if err != nil {
			continue
		}
		for _, o := range overlaps {
			warnings = append(warnings, OverlapWarning{
				Layout:   string(ref),
				Variants: []string{o.FirstName, o.SecondName},
				Message:  fmt.Sprintf("%s: %s", ref, o),
			})
		}
	}
	return warnings
}

// resolvable reports whether every layout reachable from ref is registered.
func resolvable(reg *layout.Registry, ref layout.Ref, seen map[layout.Ref]bool) bool {
	if seen[ref] {
		return true
	}
	seen[ref] = true
	l, ok := reg.Get(ref)
	if !ok {
		return false
	}
	for _, to := range layout.References(l) {
		if !resolvable(reg, to, seen) {
			return false
		}
	}
	return true
}
