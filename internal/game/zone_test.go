package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZoneValid(t *testing.T) {
	for _, z := range Zones {
		assert.True(t, z.Valid(), "zone %s", z)
	}
	assert.False(t, Zone("stack").Valid())
	assert.False(t, Zone("").Valid())
}

func TestZoneHidden(t *testing.T) {
	assert.True(t, ZoneLibrary.Hidden())
	assert.True(t, ZoneHand.Hidden())
	assert.False(t, ZoneBattlefield.Hidden())
	assert.False(t, ZoneGraveyard.Hidden())
	assert.False(t, ZoneExile.Hidden())
	assert.False(t, ZoneCommander.Hidden())
}

func TestTurnPhaseValid(t *testing.T) {
	for _, p := range TurnPhases {
		assert.True(t, p.Valid(), "phase %s", p)
	}
	assert.False(t, TurnPhase("mulligan").Valid())
}

func TestCardsInZoneSortsByPosition(t *testing.T) {
	p := &PlayerState{Cards: []*Card{
		{ID: "c", Zone: ZoneHand, Position: 2},
		{ID: "a", Zone: ZoneHand, Position: 0},
		{ID: "b", Zone: ZoneHand, Position: 1},
		{ID: "x", Zone: ZoneLibrary, Position: 0},
	}}

	hand := p.CardsInZone(ZoneHand)
	ids := []string{hand[0].ID, hand[1].ID, hand[2].ID}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}
