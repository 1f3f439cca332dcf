package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edhtable/edh-server-go/internal/cards"
	"github.com/edhtable/edh-server-go/internal/game"
)

// GameRepository implements game.Store on PostgreSQL. Session writes take a
// transaction-scoped advisory lock keyed on the room id so a concurrent
// replace and delete for the same room serialize even across processes.
type GameRepository struct {
	pool *pgxpool.Pool
}

// NewGameRepository creates a game state repository.
func NewGameRepository(db *DB) *GameRepository {
	return &GameRepository{pool: db.Pool()}
}

func lockRoom(ctx context.Context, tx pgx.Tx, roomID string) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, roomID); err != nil {
		return fmt.Errorf("acquiring room advisory lock: %w", err)
	}
	return nil
}

// ReplaceSession atomically swaps the room's session: any previous session
// row cascades away before the new one is written.
func (s *GameRepository) ReplaceSession(ctx context.Context, session *game.Session) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockRoom(ctx, tx, session.RoomID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM game_states WHERE room_id = $1`, session.RoomID); err != nil {
		return fmt.Errorf("clearing previous session: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO game_states (id, room_id, current_turn, active_player_id,
			current_phase, starting_player_id, created_at)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5, NULLIF($6, '')::uuid, $7)`,
		session.ID, session.RoomID, session.CurrentTurn, session.ActivePlayerID,
		session.CurrentPhase, session.StartingPlayerID, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}

	for _, p := range session.Players {
		_, err = tx.Exec(ctx, `
			INSERT INTO player_game_states (id, game_state_id, user_id,
				player_order, is_active, life_total, poison_counters)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, p.SessionID, p.UserID, p.PlayerOrder, p.IsActive,
			p.LifeTotal, p.PoisonCounters)
		if err != nil {
			return fmt.Errorf("inserting player state: %w", err)
		}

		for _, c := range p.Cards {
			if err := insertCard(ctx, tx, c); err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

func insertCard(ctx context.Context, tx pgx.Tx, c *game.Card) error {
	colors, keywords, imageURIs, cardFaces, err := marshalCardJSON(c)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO game_cards (id, game_state_id, player_game_state_id,
			scryfall_id, name, mana_cost, cmc, type_line, oracle_text, colors,
			power, toughness, keywords, image_uris, card_faces, is_commander,
			zone, position, is_tapped, is_face_up, battlefield_x, battlefield_y,
			is_attacking, is_blocking, damage_received)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`,
		c.ID, c.SessionID, c.PlayerStateID, c.ScryfallID, c.Name, c.ManaCost,
		c.CMC, c.TypeLine, c.OracleText, colors, c.Power, c.Toughness,
		keywords, imageURIs, cardFaces, c.IsCommander, c.Zone, c.Position,
		c.IsTapped, c.IsFaceUp, c.BattlefieldX, c.BattlefieldY,
		c.IsAttacking, c.IsBlocking, c.DamageReceived)
	if err != nil {
		return fmt.Errorf("inserting card: %w", err)
	}
	return nil
}

func marshalCardJSON(c *game.Card) (colors, keywords, imageURIs, cardFaces []byte, err error) {
	if c.Colors != nil {
		if colors, err = json.Marshal(c.Colors); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("marshaling colors: %w", err)
		}
	}
	if c.Keywords != nil {
		if keywords, err = json.Marshal(c.Keywords); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("marshaling keywords: %w", err)
		}
	}
	if c.ImageURIs != nil {
		if imageURIs, err = json.Marshal(c.ImageURIs); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("marshaling image uris: %w", err)
		}
	}
	if c.CardFaces != nil {
		if cardFaces, err = json.Marshal(c.CardFaces); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("marshaling card faces: %w", err)
		}
	}
	return colors, keywords, imageURIs, cardFaces, nil
}

func (s *GameRepository) GetSession(ctx context.Context, roomID string) (*game.Session, error) {
	var session game.Session
	var activePlayer, startingPlayer *string
	err := s.pool.QueryRow(ctx, `
		SELECT id, room_id, current_turn, active_player_id, current_phase,
			starting_player_id, created_at
		FROM game_states WHERE room_id = $1`, roomID).Scan(
		&session.ID, &session.RoomID, &session.CurrentTurn, &activePlayer,
		&session.CurrentPhase, &startingPlayer, &session.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if activePlayer != nil {
		session.ActivePlayerID = *activePlayer
	}
	if startingPlayer != nil {
		session.StartingPlayerID = *startingPlayer
	}

	players, err := s.loadPlayers(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	session.Players = players
	return &session, nil
}

func (s *GameRepository) loadPlayers(ctx context.Context, sessionID string) ([]*game.PlayerState, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, game_state_id, user_id, player_order, is_active,
			life_total, poison_counters
		FROM player_game_states
		WHERE game_state_id = $1
		ORDER BY player_order`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading player states: %w", err)
	}
	defer rows.Close()

	var players []*game.PlayerState
	byID := make(map[string]*game.PlayerState)
	for rows.Next() {
		var p game.PlayerState
		if err := rows.Scan(&p.ID, &p.SessionID, &p.UserID, &p.PlayerOrder,
			&p.IsActive, &p.LifeTotal, &p.PoisonCounters); err != nil {
			return nil, fmt.Errorf("scanning player state: %w", err)
		}
		players = append(players, &p)
		byID[p.ID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cardRows, err := s.pool.Query(ctx, `
		SELECT id, game_state_id, player_game_state_id, scryfall_id, name,
			mana_cost, cmc, type_line, oracle_text, colors, power, toughness,
			keywords, image_uris, card_faces, is_commander, zone, position,
			is_tapped, is_face_up, battlefield_x, battlefield_y, is_attacking,
			is_blocking, damage_received
		FROM game_cards
		WHERE game_state_id = $1
		ORDER BY position`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading cards: %w", err)
	}
	defer cardRows.Close()

	for cardRows.Next() {
		c, err := scanCard(cardRows)
		if err != nil {
			return nil, err
		}
		if owner, ok := byID[c.PlayerStateID]; ok {
			owner.Cards = append(owner.Cards, c)
		}
	}
	return players, cardRows.Err()
}

func scanCard(rows pgx.Rows) (*game.Card, error) {
	var c game.Card
	var colors, keywords, imageURIs, cardFaces []byte
	err := rows.Scan(&c.ID, &c.SessionID, &c.PlayerStateID, &c.ScryfallID,
		&c.Name, &c.ManaCost, &c.CMC, &c.TypeLine, &c.OracleText, &colors,
		&c.Power, &c.Toughness, &keywords, &imageURIs, &cardFaces,
		&c.IsCommander, &c.Zone, &c.Position, &c.IsTapped, &c.IsFaceUp,
		&c.BattlefieldX, &c.BattlefieldY, &c.IsAttacking, &c.IsBlocking,
		&c.DamageReceived)
	if err != nil {
		return nil, fmt.Errorf("scanning card: %w", err)
	}

	if colors != nil {
		if err := json.Unmarshal(colors, &c.Colors); err != nil {
			return nil, fmt.Errorf("unmarshaling colors: %w", err)
		}
	}
	if keywords != nil {
		if err := json.Unmarshal(keywords, &c.Keywords); err != nil {
			return nil, fmt.Errorf("unmarshaling keywords: %w", err)
		}
	}
	if imageURIs != nil {
		if err := json.Unmarshal(imageURIs, &c.ImageURIs); err != nil {
			return nil, fmt.Errorf("unmarshaling image uris: %w", err)
		}
	}
	if cardFaces != nil {
		var faces []cards.CardFace
		if err := json.Unmarshal(cardFaces, &faces); err != nil {
			return nil, fmt.Errorf("unmarshaling card faces: %w", err)
		}
		c.CardFaces = faces
	}
	return &c, nil
}

func (s *GameRepository) DeleteSession(ctx context.Context, roomID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockRoom(ctx, tx, roomID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM game_states WHERE room_id = $1`, roomID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return tx.Commit(ctx)
}

// UpdateCards writes back the mutable fields of the given card instances.
func (s *GameRepository) UpdateCards(ctx context.Context, changed []*game.Card) error {
	if len(changed) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range changed {
		_, err := tx.Exec(ctx, `
			UPDATE game_cards SET
				zone = $2, position = $3, is_tapped = $4, is_face_up = $5,
				battlefield_x = $6, battlefield_y = $7, is_attacking = $8,
				is_blocking = $9, damage_received = $10
			WHERE id = $1`,
			c.ID, c.Zone, c.Position, c.IsTapped, c.IsFaceUp,
			c.BattlefieldX, c.BattlefieldY, c.IsAttacking, c.IsBlocking,
			c.DamageReceived)
		if err != nil {
			return fmt.Errorf("updating card %s: %w", c.ID, err)
		}
	}
	return tx.Commit(ctx)
}
