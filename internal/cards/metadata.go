package cards

import "strings"

// CardFace holds the printable data of one face of a multi-faced card.
type CardFace struct {
	Name       string            `json:"name"`
	ManaCost   string            `json:"mana_cost,omitempty"`
	TypeLine   string            `json:"type_line,omitempty"`
	OracleText string            `json:"oracle_text,omitempty"`
	Power      string            `json:"power,omitempty"`
	Toughness  string            `json:"toughness,omitempty"`
	ImageURIs  map[string]string `json:"image_uris,omitempty"`
}

// CardMetadata is the typed snapshot of a catalog card. It is constructed once
// at the card-database boundary and copied into game state; downstream code
// never re-validates or re-fetches it.
type CardMetadata struct {
	ScryfallID string            `json:"id"`
	Name       string            `json:"name"`
	ManaCost   string            `json:"mana_cost,omitempty"`
	CMC        float64           `json:"cmc,omitempty"`
	TypeLine   string            `json:"type_line,omitempty"`
	OracleText string            `json:"oracle_text,omitempty"`
	Colors     []string          `json:"colors,omitempty"`
	Power      string            `json:"power,omitempty"`
	Toughness  string            `json:"toughness,omitempty"`
	Keywords   []string          `json:"keywords,omitempty"`
	ImageURIs  map[string]string `json:"image_uris,omitempty"`
	CardFaces  []CardFace        `json:"card_faces,omitempty"`
}

// FrontImageURIs returns the card's image set, falling back to the front face
// for cards whose images live on the faces (e.g. transforming cards).
func (m *CardMetadata) FrontImageURIs() map[string]string {
	if len(m.ImageURIs) > 0 {
		return m.ImageURIs
	}
	if len(m.CardFaces) > 0 {
		return m.CardFaces[0].ImageURIs
	}
	return nil
}

// IsLegendaryCreature reports whether the type line qualifies the card to lead
// a Commander deck.
func (m *CardMetadata) IsLegendaryCreature() bool {
	return strings.Contains(m.TypeLine, "Legendary") && strings.Contains(m.TypeLine, "Creature")
}
