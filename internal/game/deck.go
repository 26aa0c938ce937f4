// internal/game/deck.go
package game

import (
	"math/rand"

	"github.com/jason-s-yu/kokodi/internal/models"
)

// catalog is the fixed card set every deck is built from.
var catalog = []models.Card{
	models.PointsCard("Points(3)", 3),
	models.PointsCard("Points(5)", 5),
	models.PointsCard("Points(7)", 7),
	models.PointsCard("Points(10)", 10),
	models.PointsCard("Points(3)_v2", 3),
	models.PointsCard("Points(5)_v2", 5),
	models.BlockCard(),
	models.StealCard("Steal(3)", 3),
	models.StealCard("Steal(5)", 5),
	models.DoubleDownCard(2),
}

// Catalog returns a copy of the card catalog in its canonical order.
func Catalog() []models.Card {
	return append([]models.Card(nil), catalog...)
}

// BuildShuffledDeck returns a uniformly shuffled copy of the catalog.
// A nil rng falls back to the package-level source.
func BuildShuffledDeck(rng *rand.Rand) []models.Card {
	deck := Catalog()
	swap := func(i, j int) { deck[i], deck[j] = deck[j], deck[i] }
	if rng != nil {
		rng.Shuffle(len(deck), swap)
	} else {
		rand.Shuffle(len(deck), swap)
	}
	return deck
}
