package room

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/edhtable/edh-server-go/internal/cards"
	"github.com/edhtable/edh-server-go/internal/deck"
	"github.com/edhtable/edh-server-go/internal/game"
	"github.com/edhtable/edh-server-go/internal/notify"
)

// CreateInput are the host-supplied parameters for a new room.
type CreateInput struct {
	Name         string
	Description  string
	MaxPlayers   int
	PowerBracket PowerBracket
	IsPublic     bool
}

// Manager drives the room lifecycle state machine. It owns admission (the
// join/accept/reject workflow) and delegates dealing and teardown of live
// game state to the game manager. Room-scoped events go out through the
// notifier; emit failures never fail the operation that produced them.
type Manager struct {
	store    Store
	decks    deck.Provider
	resolver cards.Resolver
	games    *game.Manager
	notifier notify.Notifier
	locks    *roomLocks
	logger   *zap.Logger
}

// NewManager creates a room manager.
func NewManager(store Store, decks deck.Provider, resolver cards.Resolver, games *game.Manager, notifier notify.Notifier, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		decks:    decks,
		resolver: resolver,
		games:    games,
		notifier: notifier,
		locks:    newRoomLocks(),
		logger:   logger,
	}
}

// Create opens a new room with a unique invite code and seats the host as
// its first accepted player.
func (m *Manager) Create(ctx context.Context, hostUserID string, in CreateInput) (*Detail, error) {
	if in.Name == "" {
		return nil, status.Errorf(codes.InvalidArgument, "room name is required")
	}
	if in.MaxPlayers < MinPlayers || in.MaxPlayers > MaxPlayers {
		return nil, status.Errorf(codes.InvalidArgument, "max_players must be between %d and %d", MinPlayers, MaxPlayers)
	}
	if in.PowerBracket == "" {
		in.PowerBracket = BracketCasual
	}
	if !in.PowerBracket.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "unknown power bracket %q", in.PowerBracket)
	}

	code, err := m.uniqueInviteCode(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	r := &Room{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Description:  in.Description,
		HostID:       hostUserID,
		InviteCode:   code,
		IsPublic:     in.IsPublic,
		MaxPlayers:   in.MaxPlayers,
		PowerBracket: in.PowerBracket,
		Status:       StatusWaiting,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	host := &Player{
		ID:       uuid.NewString(),
		RoomID:   r.ID,
		UserID:   hostUserID,
		Status:   PlayerAccepted,
		IsHost:   true,
		JoinedAt: now,
	}

	if err := m.store.CreateRoom(ctx, r, host); err != nil {
		return nil, status.Errorf(codes.Internal, "create room: %v", err)
	}

	m.logger.Info("room created",
		zap.String("room_id", r.ID),
		zap.String("host_id", hostUserID),
		zap.String("invite_code", code),
		zap.Int("max_players", r.MaxPlayers),
		zap.Bool("is_public", r.IsPublic),
	)

	return m.buildDetail(ctx, r)
}

// List returns public waiting rooms plus every room the user participates
// in, deduplicated.
func (m *Manager) List(ctx context.Context, userID string) ([]Summary, error) {
	public, err := m.store.ListPublicWaiting(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list rooms: %v", err)
	}
	mine, err := m.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list rooms: %v", err)
	}

	memberOf := make(map[string]bool, len(mine))
	for _, r := range mine {
		memberOf[r.ID] = true
	}

	all := make(map[string]*Room, len(public)+len(mine))
	for _, r := range public {
		all[r.ID] = r
	}
	for _, r := range mine {
		all[r.ID] = r
	}

	summaries := make([]Summary, 0, len(all))
	for _, r := range all {
		count, err := m.store.CountAccepted(ctx, r.ID)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "count players: %v", err)
		}
		summaries = append(summaries, Summary{
			ID:             r.ID,
			Name:           r.Name,
			Description:    r.Description,
			HostID:         r.HostID,
			IsPublic:       r.IsPublic,
			MaxPlayers:     r.MaxPlayers,
			CurrentPlayers: count,
			PowerBracket:   r.PowerBracket,
			Status:         r.Status,
			CreatedAt:      r.CreatedAt,
			IsMember:       memberOf[r.ID],
		})
	}
	return summaries, nil
}

// Get returns a room's detail. Non-members may only view public rooms.
func (m *Manager) Get(ctx context.Context, roomID, userID string) (*Detail, error) {
	r, err := m.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	player, err := m.store.GetPlayer(ctx, roomID, userID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "load membership: %v", err)
	}
	if player == nil && !r.IsPublic && r.HostID != userID {
		return nil, status.Errorf(codes.PermissionDenied, "not authorized to view this game")
	}

	return m.buildDetail(ctx, r)
}

// GetByInviteCode resolves a room from its invite code.
func (m *Manager) GetByInviteCode(ctx context.Context, code string) (*Detail, error) {
	r, err := m.store.GetRoomByInviteCode(ctx, code)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "load room: %v", err)
	}
	if r == nil {
		return nil, status.Errorf(codes.NotFound, "game not found")
	}
	return m.buildDetail(ctx, r)
}

// Join files a membership request. Both public and private rooms require
// host approval; there is no auto-accept path.
func (m *Manager) Join(ctx context.Context, roomID, userID string) error {
	lock := m.locks.get(roomID)
	lock.Lock()
	defer lock.Unlock()

	r, err := m.getRoom(ctx, roomID)
	if err != nil {
		return err
	}

	existing, err := m.store.GetPlayer(ctx, roomID, userID)
	if err != nil {
		return status.Errorf(codes.Internal, "load membership: %v", err)
	}
	if existing != nil {
		switch existing.Status {
		case PlayerAccepted:
			return status.Errorf(codes.FailedPrecondition, "you are already in this game")
		case PlayerPending:
			return status.Errorf(codes.FailedPrecondition, "your join request is pending")
		}
	}

	count, err := m.store.CountAccepted(ctx, roomID)
	if err != nil {
		return status.Errorf(codes.Internal, "count players: %v", err)
	}
	if count >= r.MaxPlayers {
		return status.Errorf(codes.FailedPrecondition, "game is full")
	}
	if r.Status != StatusWaiting {
		return status.Errorf(codes.FailedPrecondition, "game has already started")
	}

	if existing != nil {
		// A previously rejected player may ask again.
		if err := m.store.UpdatePlayerStatus(ctx, existing.ID, PlayerPending); err != nil {
			return status.Errorf(codes.Internal, "update membership: %v", err)
		}
	} else {
		player := &Player{
			ID:       uuid.NewString(),
			RoomID:   roomID,
			UserID:   userID,
			Status:   PlayerPending,
			JoinedAt: time.Now().UTC(),
		}
		if err := m.store.AddPlayer(ctx, player); err != nil {
			return status.Errorf(codes.Internal, "add membership: %v", err)
		}
	}

	m.emit(roomID, notify.EventPlayerJoinRequest, userID, nil)
	m.logger.Info("join requested", zap.String("room_id", roomID), zap.String("user_id", userID))
	return nil
}

// Accept approves a pending membership. Capacity is re-checked here: two
// pending requests may both have passed the check at join time.
func (m *Manager) Accept(ctx context.Context, roomID, hostUserID, playerID string) (*Detail, error) {
	lock := m.locks.get(roomID)
	lock.Lock()
	defer lock.Unlock()

	r, err := m.requireHost(ctx, roomID, hostUserID, "only the host can accept players")
	if err != nil {
		return nil, err
	}

	player, err := m.getPendingPlayer(ctx, roomID, playerID)
	if err != nil {
		return nil, err
	}

	count, err := m.store.CountAccepted(ctx, roomID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "count players: %v", err)
	}
	if count >= r.MaxPlayers {
		return nil, status.Errorf(codes.FailedPrecondition, "game is full")
	}

	if err := m.store.UpdatePlayerStatus(ctx, player.ID, PlayerAccepted); err != nil {
		return nil, status.Errorf(codes.Internal, "update membership: %v", err)
	}

	m.emit(roomID, notify.EventPlayerAccepted, player.UserID, nil)
	m.logger.Info("player accepted",
		zap.String("room_id", roomID),
		zap.String("player_id", player.ID),
		zap.String("user_id", player.UserID),
	)

	return m.buildDetail(ctx, r)
}

// Reject declines a pending membership.
func (m *Manager) Reject(ctx context.Context, roomID, hostUserID, playerID string) (*Detail, error) {
	lock := m.locks.get(roomID)
	lock.Lock()
	defer lock.Unlock()

	r, err := m.requireHost(ctx, roomID, hostUserID, "only the host can reject players")
	if err != nil {
		return nil, err
	}

	player, err := m.getPendingPlayer(ctx, roomID, playerID)
	if err != nil {
		return nil, err
	}

	if err := m.store.UpdatePlayerStatus(ctx, player.ID, PlayerRejected); err != nil {
		return nil, status.Errorf(codes.Internal, "update membership: %v", err)
	}

	m.emit(roomID, notify.EventPlayerRejected, player.UserID, nil)
	m.logger.Info("player rejected",
		zap.String("room_id", roomID),
		zap.String("player_id", player.ID),
		zap.String("user_id", player.UserID),
	)

	return m.buildDetail(ctx, r)
}

// Leave removes the caller's own membership. The host cannot leave their
// room; they delete it instead.
func (m *Manager) Leave(ctx context.Context, roomID, userID string) error {
	lock := m.locks.get(roomID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := m.getRoom(ctx, roomID); err != nil {
		return err
	}

	player, err := m.store.GetPlayer(ctx, roomID, userID)
	if err != nil {
		return status.Errorf(codes.Internal, "load membership: %v", err)
	}
	if player == nil {
		return status.Errorf(codes.NotFound, "you are not in this game")
	}
	if player.IsHost {
		return status.Errorf(codes.FailedPrecondition, "host cannot leave, delete the game instead")
	}

	if err := m.store.RemovePlayer(ctx, player.ID); err != nil {
		return status.Errorf(codes.Internal, "remove membership: %v", err)
	}

	m.emit(roomID, notify.EventPlayerLeft, userID, nil)
	m.logger.Info("player left", zap.String("room_id", roomID), zap.String("user_id", userID))
	return nil
}

// Delete tears the room down: memberships and any live session state cascade
// with it.
func (m *Manager) Delete(ctx context.Context, roomID, userID string) error {
	lock := m.locks.get(roomID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := m.requireHost(ctx, roomID, userID, "only the host can delete this game"); err != nil {
		return err
	}

	if err := m.games.EndSession(ctx, roomID); err != nil {
		return err
	}
	if err := m.store.DeleteRoom(ctx, roomID); err != nil {
		return status.Errorf(codes.Internal, "delete room: %v", err)
	}

	m.emit(roomID, notify.EventGameDeleted, userID, nil)
	m.logger.Info("room deleted", zap.String("room_id", roomID), zap.String("host_id", userID))
	return nil
}

// Start deals a new game session for the room. Requires at least two
// accepted players, each with a selected deck. Starting a room that already
// has a session replaces it wholesale.
func (m *Manager) Start(ctx context.Context, roomID, userID string) (*Detail, error) {
	lock := m.locks.get(roomID)
	lock.Lock()
	defer lock.Unlock()

	r, err := m.requireHost(ctx, roomID, userID, "only the host can start the game")
	if err != nil {
		return nil, err
	}

	players, err := m.store.ListPlayers(ctx, roomID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list players: %v", err)
	}

	var seats []game.Seat
	for _, p := range players {
		if p.Status != PlayerAccepted {
			continue
		}
		if p.DeckID == "" {
			return nil, status.Errorf(codes.FailedPrecondition, "all players must select their decks before starting")
		}
		seats = append(seats, game.Seat{UserID: p.UserID, DeckID: p.DeckID})
	}
	if len(seats) < MinPlayers {
		return nil, status.Errorf(codes.FailedPrecondition, "need at least %d players to start", MinPlayers)
	}

	if _, err := m.games.StartSession(ctx, roomID, seats); err != nil {
		return nil, err
	}

	if err := m.store.UpdateRoomStatus(ctx, roomID, StatusInProgress); err != nil {
		return nil, status.Errorf(codes.Internal, "update room status: %v", err)
	}
	r.Status = StatusInProgress

	m.emit(roomID, notify.EventGameStarted, userID, nil)
	m.logger.Info("game started",
		zap.String("room_id", roomID),
		zap.String("host_id", userID),
		zap.Int("players", len(seats)),
	)

	return m.buildDetail(ctx, r)
}

// Stop discards the live session and returns the room to the lobby. All
// in-progress card state is gone, not paused.
func (m *Manager) Stop(ctx context.Context, roomID, userID string) (*Detail, error) {
	lock := m.locks.get(roomID)
	lock.Lock()
	defer lock.Unlock()

	r, err := m.requireHost(ctx, roomID, userID, "only the host can stop the game")
	if err != nil {
		return nil, err
	}
	if r.Status != StatusInProgress {
		return nil, status.Errorf(codes.FailedPrecondition, "game is not in progress")
	}

	if err := m.games.EndSession(ctx, roomID); err != nil {
		return nil, err
	}
	if err := m.store.UpdateRoomStatus(ctx, roomID, StatusWaiting); err != nil {
		return nil, status.Errorf(codes.Internal, "update room status: %v", err)
	}
	r.Status = StatusWaiting

	m.emit(roomID, notify.EventGameStopped, userID, nil)
	m.logger.Info("game stopped", zap.String("room_id", roomID), zap.String("host_id", userID))

	return m.buildDetail(ctx, r)
}

// SelectDeck records which deck an accepted player brings. Once the game is
// in progress the selection is frozen; changing decks mid-game is rejected
// rather than silently ignored.
func (m *Manager) SelectDeck(ctx context.Context, roomID, userID, deckID string) (*Detail, error) {
	lock := m.locks.get(roomID)
	lock.Lock()
	defer lock.Unlock()

	r, err := m.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if r.Status == StatusInProgress {
		return nil, status.Errorf(codes.FailedPrecondition, "game already in progress")
	}

	player, err := m.store.GetPlayer(ctx, roomID, userID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "load membership: %v", err)
	}
	if player == nil {
		return nil, status.Errorf(codes.NotFound, "you are not in this game")
	}
	if player.Status != PlayerAccepted {
		return nil, status.Errorf(codes.FailedPrecondition, "your join request must be accepted first")
	}

	d, err := m.decks.GetDeck(ctx, deckID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "load deck: %v", err)
	}
	if d == nil || d.OwnerID != userID {
		return nil, status.Errorf(codes.NotFound, "deck not found or does not belong to you")
	}

	if err := m.store.SetPlayerDeck(ctx, player.ID, deckID); err != nil {
		return nil, status.Errorf(codes.Internal, "set deck: %v", err)
	}

	m.emit(roomID, notify.EventDeckSelected, userID, map[string]any{
		"deck_id":   d.ID,
		"deck_name": d.Name,
	})
	m.logger.Info("deck selected",
		zap.String("room_id", roomID),
		zap.String("user_id", userID),
		zap.String("deck_id", deckID),
	)

	return m.buildDetail(ctx, r)
}

// CanSubscribe reports whether a user may follow a room's event stream:
// members always, anyone for public rooms. It satisfies the notification
// sidecar's authorizer hook.
func (m *Manager) CanSubscribe(ctx context.Context, roomID, userID string) bool {
	r, err := m.store.GetRoom(ctx, roomID)
	if err != nil || r == nil {
		return false
	}
	if r.IsPublic || r.HostID == userID {
		return true
	}
	player, err := m.store.GetPlayer(ctx, roomID, userID)
	return err == nil && player != nil
}

// ==================== helpers ====================

func (m *Manager) getRoom(ctx context.Context, roomID string) (*Room, error) {
	r, err := m.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "load room: %v", err)
	}
	if r == nil {
		return nil, status.Errorf(codes.NotFound, "game room not found")
	}
	return r, nil
}

func (m *Manager) requireHost(ctx context.Context, roomID, userID, denial string) (*Room, error) {
	r, err := m.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if r.HostID != userID {
		return nil, status.Errorf(codes.PermissionDenied, "%s", denial)
	}
	return r, nil
}

func (m *Manager) getPendingPlayer(ctx context.Context, roomID, playerID string) (*Player, error) {
	player, err := m.store.GetPlayerByID(ctx, roomID, playerID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "load membership: %v", err)
	}
	if player == nil {
		return nil, status.Errorf(codes.NotFound, "player not found in this game")
	}
	if player.Status != PlayerPending {
		return nil, status.Errorf(codes.FailedPrecondition, "player is not pending")
	}
	return player, nil
}

func (m *Manager) uniqueInviteCode(ctx context.Context) (string, error) {
	for {
		code, err := generateInviteCode()
		if err != nil {
			return "", status.Errorf(codes.Internal, "generate invite code: %v", err)
		}
		existing, err := m.store.GetRoomByInviteCode(ctx, code)
		if err != nil {
			return "", status.Errorf(codes.Internal, "check invite code: %v", err)
		}
		if existing == nil {
			return code, nil
		}
	}
}

func (m *Manager) emit(roomID, name, userID string, payload map[string]any) {
	m.notifier.Publish(roomID, notify.Event{
		Name:    name,
		RoomID:  roomID,
		UserID:  userID,
		Payload: payload,
	})
}

func (m *Manager) buildDetail(ctx context.Context, r *Room) (*Detail, error) {
	players, err := m.store.ListPlayers(ctx, r.ID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list players: %v", err)
	}

	detail := &Detail{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		HostID:       r.HostID,
		InviteCode:   r.InviteCode,
		IsPublic:     r.IsPublic,
		MaxPlayers:   r.MaxPlayers,
		PowerBracket: r.PowerBracket,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
		Players:      make([]PlayerDetail, 0, len(players)),
	}

	for _, p := range players {
		pd := PlayerDetail{
			ID:       p.ID,
			UserID:   p.UserID,
			Status:   p.Status,
			IsHost:   p.IsHost,
			DeckID:   p.DeckID,
			JoinedAt: p.JoinedAt,
		}
		if p.DeckID != "" {
			pd.Deck = m.deckInfo(ctx, p.DeckID)
		}
		detail.Players = append(detail.Players, pd)
	}

	return detail, nil
}

// deckInfo resolves a selected deck's lobby card: name plus the commander's
// face. Catalog hiccups degrade to name-only rather than failing the view.
func (m *Manager) deckInfo(ctx context.Context, deckID string) *DeckInfo {
	d, err := m.decks.GetDeck(ctx, deckID)
	if err != nil || d == nil {
		if err != nil {
			m.logger.Warn("failed to load selected deck", zap.String("deck_id", deckID), zap.Error(err))
		}
		return nil
	}

	info := &DeckInfo{ID: d.ID, Name: d.Name}
	for _, entry := range d.Entries {
		if !entry.IsCommander {
			continue
		}
		meta, err := m.resolver.Resolve(ctx, entry.ScryfallID)
		if err != nil {
			m.logger.Warn("failed to resolve commander",
				zap.String("deck_id", deckID),
				zap.String("scryfall_id", entry.ScryfallID),
				zap.Error(err),
			)
			break
		}
		if meta != nil {
			info.CommanderName = meta.Name
			info.CommanderImageURIs = meta.FrontImageURIs()
		}
		break
	}
	return info
}
