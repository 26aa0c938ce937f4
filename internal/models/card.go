// internal/models/card.go
package models

// CardKind is the display category of a card.
type CardKind string

const (
	CardKindPoints CardKind = "POINTS"
	CardKindAction CardKind = "ACTION"
)

// Effect identifies how a card resolves when drawn. The effect is fixed when
// the catalog is built; card names are for display only.
type Effect string

const (
	EffectNone       Effect = ""
	EffectPoints     Effect = "points"
	EffectBlock      Effect = "block"
	EffectSteal      Effect = "steal"
	EffectDoubleDown Effect = "double_down"
	// EffectUnknown is reserved for action cards this build does not know how
	// to resolve. They are drawn and logged without changing scores.
	EffectUnknown Effect = "unknown"
)

// Card is an immutable card value. Value is the magnitude used by the effect:
// points to add, the steal cap, the skip marker or the multiplier.
type Card struct {
	Name   string   `json:"name"`
	Kind   CardKind `json:"type"`
	Value  int      `json:"value"`
	Effect Effect   `json:"effect,omitempty"`
}

// PointsCard adds value to the drawing player's score.
func PointsCard(name string, value int) Card {
	return Card{Name: name, Kind: CardKindPoints, Value: value, Effect: EffectPoints}
}

// BlockCard makes the next player in turn order miss their turn.
func BlockCard() Card {
	return Card{Name: "Block", Kind: CardKindAction, Value: 1, Effect: EffectBlock}
}

// StealCard moves up to value points from a target player to the drawing player.
func StealCard(name string, value int) Card {
	return Card{Name: name, Kind: CardKindAction, Value: value, Effect: EffectSteal}
}

// DoubleDownCard multiplies the drawing player's score by multiplier.
func DoubleDownCard(multiplier int) Card {
	return Card{Name: "DoubleDown", Kind: CardKindAction, Value: multiplier, Effect: EffectDoubleDown}
}

// UnknownActionCard builds an action card without a known effect.
func UnknownActionCard(name string, value int) Card {
	return Card{Name: name, Kind: CardKindAction, Value: value, Effect: EffectUnknown}
}

// SkippedCard is the zero-value marker reported when a turn is consumed by a Block.
func SkippedCard() Card {
	return Card{Name: "Skipped", Kind: CardKindAction, Value: 0, Effect: EffectNone}
}
