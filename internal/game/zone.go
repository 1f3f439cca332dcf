package game

// Zone is a named location a card instance can occupy.
type Zone string

const (
	ZoneLibrary     Zone = "library"
	ZoneHand        Zone = "hand"
	ZoneBattlefield Zone = "battlefield"
	ZoneGraveyard   Zone = "graveyard"
	ZoneExile       Zone = "exile"
	ZoneCommander   Zone = "commander"
)

// Zones lists every legal zone.
var Zones = []Zone{ZoneLibrary, ZoneHand, ZoneBattlefield, ZoneGraveyard, ZoneExile, ZoneCommander}

// Valid reports whether z is a member of the closed zone set.
func (z Zone) Valid() bool {
	switch z {
	case ZoneLibrary, ZoneHand, ZoneBattlefield, ZoneGraveyard, ZoneExile, ZoneCommander:
		return true
	default:
		return false
	}
}

// Hidden reports whether a zone's card identities are private to its owner.
func (z Zone) Hidden() bool {
	return z == ZoneLibrary || z == ZoneHand
}

// TurnPhase is the current step of the active player's turn. Phases are
// informational table state; no operation enforces or advances them.
type TurnPhase string

const (
	PhaseUntap        TurnPhase = "untap"
	PhaseUpkeep       TurnPhase = "upkeep"
	PhaseDraw         TurnPhase = "draw"
	PhaseMain1        TurnPhase = "main1"
	PhaseCombatStart  TurnPhase = "combat_start"
	PhaseCombatAttack TurnPhase = "combat_attack"
	PhaseCombatBlock  TurnPhase = "combat_block"
	PhaseCombatDamage TurnPhase = "combat_damage"
	PhaseCombatEnd    TurnPhase = "combat_end"
	PhaseMain2        TurnPhase = "main2"
	PhaseEnd          TurnPhase = "end"
	PhaseCleanup      TurnPhase = "cleanup"
)

// TurnPhases lists the phases in turn order.
var TurnPhases = []TurnPhase{
	PhaseUntap, PhaseUpkeep, PhaseDraw, PhaseMain1,
	PhaseCombatStart, PhaseCombatAttack, PhaseCombatBlock, PhaseCombatDamage, PhaseCombatEnd,
	PhaseMain2, PhaseEnd, PhaseCleanup,
}

// Valid reports whether p is a known turn phase.
func (p TurnPhase) Valid() bool {
	for _, phase := range TurnPhases {
		if p == phase {
			return true
		}
	}
	return false
}
