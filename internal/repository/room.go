package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edhtable/edh-server-go/internal/room"
)

// RoomRepository implements room.Store on PostgreSQL.
type RoomRepository struct {
	pool *pgxpool.Pool
}

// NewRoomRepository creates a room repository.
func NewRoomRepository(db *DB) *RoomRepository {
	return &RoomRepository{pool: db.Pool()}
}

const roomColumns = `id, name, description, host_id, invite_code, is_public,
	max_players, power_bracket, status, created_at, updated_at`

func scanRoom(row pgx.Row) (*room.Room, error) {
	var r room.Room
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.HostID, &r.InviteCode,
		&r.IsPublic, &r.MaxPlayers, &r.PowerBracket, &r.Status,
		&r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning room: %w", err)
	}
	return &r, nil
}

func (s *RoomRepository) CreateRoom(ctx context.Context, r *room.Room, host *room.Player) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO game_rooms (id, name, description, host_id, invite_code,
			is_public, max_players, power_bracket, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID, r.Name, r.Description, r.HostID, r.InviteCode, r.IsPublic,
		r.MaxPlayers, r.PowerBracket, r.Status, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting room: %w", err)
	}

	if err := insertPlayer(ctx, tx, host); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *RoomRepository) GetRoom(ctx context.Context, roomID string) (*room.Room, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM game_rooms WHERE id = $1`, roomID)
	return scanRoom(row)
}

func (s *RoomRepository) GetRoomByInviteCode(ctx context.Context, code string) (*room.Room, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM game_rooms WHERE invite_code = $1`, code)
	return scanRoom(row)
}

func (s *RoomRepository) ListPublicWaiting(ctx context.Context) ([]*room.Room, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+roomColumns+` FROM game_rooms
		WHERE is_public AND status = $1
		ORDER BY created_at DESC`, room.StatusWaiting)
	if err != nil {
		return nil, fmt.Errorf("listing public rooms: %w", err)
	}
	defer rows.Close()
	return collectRooms(rows)
}

func (s *RoomRepository) ListByUser(ctx context.Context, userID string) ([]*room.Room, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+roomColumns+` FROM game_rooms
		WHERE id IN (SELECT room_id FROM game_room_players WHERE user_id = $1)
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing rooms by user: %w", err)
	}
	defer rows.Close()
	return collectRooms(rows)
}

func collectRooms(rows pgx.Rows) ([]*room.Room, error) {
	var out []*room.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *RoomRepository) UpdateRoomStatus(ctx context.Context, roomID string, status room.Status) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE game_rooms SET status = $2, updated_at = now() WHERE id = $1`,
		roomID, status)
	if err != nil {
		return fmt.Errorf("updating room status: %w", err)
	}
	return nil
}

// DeleteRoom removes the room; memberships and session state go with it via
// ON DELETE CASCADE.
func (s *RoomRepository) DeleteRoom(ctx context.Context, roomID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM game_rooms WHERE id = $1`, roomID)
	if err != nil {
		return fmt.Errorf("deleting room: %w", err)
	}
	return nil
}

func insertPlayer(ctx context.Context, tx pgx.Tx, p *room.Player) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO game_room_players (id, room_id, user_id, status, is_host, deck_id, joined_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid, $7)`,
		p.ID, p.RoomID, p.UserID, p.Status, p.IsHost, p.DeckID, p.JoinedAt)
	if err != nil {
		return fmt.Errorf("inserting room player: %w", err)
	}
	return nil
}

func (s *RoomRepository) AddPlayer(ctx context.Context, p *room.Player) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO game_room_players (id, room_id, user_id, status, is_host, deck_id, joined_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid, $7)`,
		p.ID, p.RoomID, p.UserID, p.Status, p.IsHost, p.DeckID, p.JoinedAt)
	if err != nil {
		return fmt.Errorf("inserting room player: %w", err)
	}
	return nil
}

const playerColumns = `id, room_id, user_id, status, is_host, COALESCE(deck_id::text, ''), joined_at`

func scanPlayer(row pgx.Row) (*room.Player, error) {
	var p room.Player
	err := row.Scan(&p.ID, &p.RoomID, &p.UserID, &p.Status, &p.IsHost,
		&p.DeckID, &p.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning room player: %w", err)
	}
	return &p, nil
}

func (s *RoomRepository) GetPlayer(ctx context.Context, roomID, userID string) (*room.Player, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+playerColumns+` FROM game_room_players
		WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	return scanPlayer(row)
}

func (s *RoomRepository) GetPlayerByID(ctx context.Context, roomID, playerID string) (*room.Player, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+playerColumns+` FROM game_room_players
		WHERE room_id = $1 AND id = $2`, roomID, playerID)
	return scanPlayer(row)
}

func (s *RoomRepository) ListPlayers(ctx context.Context, roomID string) ([]*room.Player, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+playerColumns+` FROM game_room_players
		WHERE room_id = $1
		ORDER BY joined_at`, roomID)
	if err != nil {
		return nil, fmt.Errorf("listing room players: %w", err)
	}
	defer rows.Close()

	var out []*room.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *RoomRepository) CountAccepted(ctx context.Context, roomID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM game_room_players
		WHERE room_id = $1 AND status = $2`,
		roomID, room.PlayerAccepted).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting accepted players: %w", err)
	}
	return count, nil
}

func (s *RoomRepository) UpdatePlayerStatus(ctx context.Context, playerID string, status room.PlayerStatus) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE game_room_players SET status = $2 WHERE id = $1`,
		playerID, status)
	if err != nil {
		return fmt.Errorf("updating player status: %w", err)
	}
	return nil
}

func (s *RoomRepository) SetPlayerDeck(ctx context.Context, playerID, deckID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE game_room_players SET deck_id = NULLIF($2, '')::uuid WHERE id = $1`,
		playerID, deckID)
	if err != nil {
		return fmt.Errorf("updating player deck: %w", err)
	}
	return nil
}

func (s *RoomRepository) RemovePlayer(ctx context.Context, playerID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM game_room_players WHERE id = $1`, playerID)
	if err != nil {
		return fmt.Errorf("removing room player: %w", err)
	}
	return nil
}
