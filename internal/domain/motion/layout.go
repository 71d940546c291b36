package motion

import (
	"fmt"
	"math/rand/v2"

	"github.com/okian/gamespin/internal/domain/model"
)

// Strip layout constants. The winner always sits TargetLead items into the
// runway, so the reel has a long run-up and items to show past it.
const (
	PaddingItems = 18
	RunwayItems  = 50
	TargetLead   = 25
)

// Layout is a freshly built strip and the index the spin lands on.
type Layout struct {
	Items       []model.Entry
	TargetIndex int
}

// Winner returns the entry at TargetIndex.
func (l Layout) Winner() model.Entry {
	return l.Items[l.TargetIndex]
}

// BuildLayout fills a strip of PaddingItems + RunwayItems + PaddingItems
// random entries and places winner at PaddingItems + TargetLead.
func BuildLayout(entries []model.Entry, winner model.Entry, rng *rand.Rand) (Layout, error) {
	if len(entries) == 0 {
		return Layout{}, ErrEmptyCatalog
	}
	if rng == nil {
		return Layout{}, fmt.Errorf("%w: nil random source", ErrInvalidLayout)
	}

	n := PaddingItems + RunwayItems + PaddingItems
	items := make([]model.Entry, n)
	for i := range items {
		items[i] = entries[rng.IntN(len(entries))]
	}
	target := PaddingItems + TargetLead
	items[target] = winner

	return Layout{Items: items, TargetIndex: target}, nil
}

// PickWinner chooses the entry a granted spin will land on.
func PickWinner(entries []model.Entry, rng *rand.Rand) (model.Entry, error) {
	if len(entries) == 0 {
		return model.Entry{}, ErrEmptyCatalog
	}
	if rng == nil {
		return model.Entry{}, fmt.Errorf("%w: nil random source", ErrInvalidLayout)
	}
	return entries[rng.IntN(len(entries))], nil
}
