package game

import (
	"time"

	"github.com/edhtable/edh-server-go/internal/cards"
)

// CardView is the full projection of a card instance, shown only for zones
// the viewer is entitled to see in detail.
type CardView struct {
	ID             string            `json:"id"`
	ScryfallID     string            `json:"card_scryfall_id"`
	Name           string            `json:"card_name"`
	ManaCost       string            `json:"mana_cost,omitempty"`
	CMC            float64           `json:"cmc,omitempty"`
	TypeLine       string            `json:"type_line,omitempty"`
	OracleText     string            `json:"oracle_text,omitempty"`
	Colors         []string          `json:"colors,omitempty"`
	Power          string            `json:"power,omitempty"`
	Toughness      string            `json:"toughness,omitempty"`
	Keywords       []string          `json:"keywords,omitempty"`
	ImageURIs      map[string]string `json:"image_uris,omitempty"`
	CardFaces      []cards.CardFace  `json:"card_faces,omitempty"`
	Zone           Zone              `json:"zone"`
	Position       int               `json:"position"`
	IsTapped       bool              `json:"is_tapped"`
	IsFaceUp       bool              `json:"is_face_up"`
	IsAttacking    bool              `json:"is_attacking"`
	IsBlocking     bool              `json:"is_blocking"`
	DamageReceived int               `json:"damage_received"`
}

// BattlefieldCardView is the reduced shape for cards on the table: just what
// a client needs to render and arrange a card, without the raw catalog dump.
// It is a distinct type rather than a CardView with nulled fields so the
// hidden/revealed split is visible in the contract.
type BattlefieldCardView struct {
	ID           string            `json:"id"`
	ScryfallID   string            `json:"card_scryfall_id"`
	Name         string            `json:"card_name"`
	ManaCost     string            `json:"mana_cost,omitempty"`
	TypeLine     string            `json:"type_line,omitempty"`
	OracleText   string            `json:"oracle_text,omitempty"`
	Power        string            `json:"power,omitempty"`
	Toughness    string            `json:"toughness,omitempty"`
	ImageURIs    map[string]string `json:"image_uris,omitempty"`
	CardFaces    []cards.CardFace  `json:"card_faces,omitempty"`
	IsTapped     bool              `json:"is_tapped"`
	IsFaceUp     bool              `json:"is_face_up"`
	BattlefieldX *float64          `json:"battlefield_x"`
	BattlefieldY *float64          `json:"battlefield_y"`
	IsAttacking  bool              `json:"is_attacking"`
	IsBlocking   bool              `json:"is_blocking"`
}

// PlayerView is one player's side of the table as seen by the viewer. For
// players other than the viewer, Library and Hand are empty; only the counts
// remain so clients can render face-down stacks.
type PlayerView struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	PlayerOrder    int    `json:"player_order"`
	IsActive       bool   `json:"is_active"`
	LifeTotal      int    `json:"life_total"`
	PoisonCounters int    `json:"poison_counters"`

	LibraryCount int `json:"library_count"`
	HandCount    int `json:"hand_count"`

	Library     []CardView            `json:"library"`
	Hand        []CardView            `json:"hand"`
	Battlefield []BattlefieldCardView `json:"battlefield"`
	Graveyard   []CardView            `json:"graveyard"`
	Exile       []CardView            `json:"exile"`
	Commander   []CardView            `json:"commander"`
}

// SessionView is the per-viewer projection of a running game.
type SessionView struct {
	ID               string       `json:"id"`
	RoomID           string       `json:"game_room_id"`
	CurrentTurn      int          `json:"current_turn"`
	ActivePlayerID   string       `json:"active_player_id"`
	CurrentPhase     TurnPhase    `json:"current_phase"`
	StartingPlayerID string       `json:"starting_player_id"`
	Players          []PlayerView `json:"players"`
	CreatedAt        time.Time    `json:"created_at"`
}

// Project builds the outward representation of the session for one viewer.
// Hidden zones (library, hand) are revealed only to their owner and removed
// outright for everyone else; battlefield, graveyard, exile, and the command
// zone are public.
func Project(session *Session, viewerUserID string) *SessionView {
	view := &SessionView{
		ID:               session.ID,
		RoomID:           session.RoomID,
		CurrentTurn:      session.CurrentTurn,
		ActivePlayerID:   session.ActivePlayerID,
		CurrentPhase:     session.CurrentPhase,
		StartingPlayerID: session.StartingPlayerID,
		CreatedAt:        session.CreatedAt,
		Players:          make([]PlayerView, 0, len(session.Players)),
	}

	for _, player := range session.Players {
		view.Players = append(view.Players, projectPlayer(player, player.UserID == viewerUserID))
	}
	return view
}

func projectPlayer(player *PlayerState, isViewer bool) PlayerView {
	pv := PlayerView{
		ID:             player.ID,
		UserID:         player.UserID,
		PlayerOrder:    player.PlayerOrder,
		IsActive:       player.IsActive,
		LifeTotal:      player.LifeTotal,
		PoisonCounters: player.PoisonCounters,
		LibraryCount:   len(player.CardsInZone(ZoneLibrary)),
		HandCount:      len(player.CardsInZone(ZoneHand)),
		Library:        []CardView{},
		Hand:           []CardView{},
		Battlefield:    []BattlefieldCardView{},
		Graveyard:      []CardView{},
		Exile:          []CardView{},
		Commander:      []CardView{},
	}

	if isViewer {
		pv.Library = projectZone(player, ZoneLibrary)
		pv.Hand = projectZone(player, ZoneHand)
	}
	pv.Graveyard = projectZone(player, ZoneGraveyard)
	pv.Exile = projectZone(player, ZoneExile)
	pv.Commander = projectZone(player, ZoneCommander)

	for _, card := range player.CardsInZone(ZoneBattlefield) {
		pv.Battlefield = append(pv.Battlefield, BattlefieldCardView{
			ID:           card.ID,
			ScryfallID:   card.ScryfallID,
			Name:         card.Name,
			ManaCost:     card.ManaCost,
			TypeLine:     card.TypeLine,
			OracleText:   card.OracleText,
			Power:        card.Power,
			Toughness:    card.Toughness,
			ImageURIs:    card.ImageURIs,
			CardFaces:    card.CardFaces,
			IsTapped:     card.IsTapped,
			IsFaceUp:     card.IsFaceUp,
			BattlefieldX: card.BattlefieldX,
			BattlefieldY: card.BattlefieldY,
			IsAttacking:  card.IsAttacking,
			IsBlocking:   card.IsBlocking,
		})
	}

	return pv
}

func projectZone(player *PlayerState, zone Zone) []CardView {
	cardsInZone := player.CardsInZone(zone)
	views := make([]CardView, 0, len(cardsInZone))
	for _, card := range cardsInZone {
		views = append(views, CardView{
			ID:             card.ID,
			ScryfallID:     card.ScryfallID,
			Name:           card.Name,
			ManaCost:       card.ManaCost,
			CMC:            card.CMC,
			TypeLine:       card.TypeLine,
			OracleText:     card.OracleText,
			Colors:         card.Colors,
			Power:          card.Power,
			Toughness:      card.Toughness,
			Keywords:       card.Keywords,
			ImageURIs:      card.ImageURIs,
			CardFaces:      card.CardFaces,
			Zone:           card.Zone,
			Position:       card.Position,
			IsTapped:       card.IsTapped,
			IsFaceUp:       card.IsFaceUp,
			IsAttacking:    card.IsAttacking,
			IsBlocking:     card.IsBlocking,
			DamageReceived: card.DamageReceived,
		})
	}
	return views
}
