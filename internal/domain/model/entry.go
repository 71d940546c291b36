// Package model contains domain models passed between layers.
package model

// Rarity is the category tag used to color a reel card.
type Rarity string

// Known rarity tags. Unknown tags render with the common color.
const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Entry is an immutable catalog item that can appear on the reel.
type Entry struct {
	ID         string   `json:"id" yaml:"id"`
	Title      string   `json:"title" yaml:"title"`
	Image      string   `json:"image,omitempty" yaml:"image"`
	Rarity     Rarity   `json:"rarity" yaml:"rarity"`
	Year       int      `json:"year,omitempty" yaml:"year"`
	Platforms  []string `json:"platforms,omitempty" yaml:"platforms"`
	Genres     []string `json:"genres,omitempty" yaml:"genres"`
	Popularity int      `json:"popularity,omitempty" yaml:"popularity"`
}
