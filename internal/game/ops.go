package game

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// guard resolves the shared precondition chain for zone operations: a live
// session for the room and the caller's seat at it. Callers holding a card id
// follow up with guardCard.
func (m *Manager) guard(ctx context.Context, roomID, userID string) (*Session, *PlayerState, error) {
	session, err := m.loadSession(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}

	player := session.PlayerByUser(userID)
	if player == nil {
		return nil, nil, status.Errorf(codes.PermissionDenied, "you are not a player in this game")
	}
	return session, player, nil
}

// guardCard resolves a card and enforces that it belongs to the caller.
func guardCard(session *Session, caller *PlayerState, cardID string) (*Card, error) {
	card, owner := session.CardByID(cardID)
	if card == nil {
		return nil, status.Errorf(codes.NotFound, "card not found")
	}
	if owner.ID != caller.ID {
		return nil, status.Errorf(codes.PermissionDenied, "card does not belong to you")
	}
	return card, nil
}

// Draw moves the caller's n lowest-position library cards to their hand,
// appended after any cards already held. Drawing from a short or empty
// library draws whatever is available; deck-out is the client's signal to
// handle, not an error.
func (m *Manager) Draw(ctx context.Context, roomID, userID string, n int) ([]*Card, error) {
	if n < 1 {
		return nil, status.Errorf(codes.InvalidArgument, "draw count must be at least 1")
	}

	lock := m.locks.get(roomID)
	lock.Lock()
	defer lock.Unlock()

	_, player, err := m.guard(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}

	library := player.CardsInZone(ZoneLibrary)
	handSize := len(player.CardsInZone(ZoneHand))
	if n > len(library) {
		n = len(library)
	}

	drawn := make([]*Card, 0, n)
	for i := 0; i < n; i++ {
		card := library[i]
		card.Zone = ZoneHand
		card.Position = handSize + i
		drawn = append(drawn, card)
	}

	changed := append(drawn, renumberZone(player, ZoneLibrary)...)
	if len(changed) > 0 {
		if err := m.store.UpdateCards(ctx, changed); err != nil {
			return nil, status.Errorf(codes.Internal, "persist draw: %v", err)
		}
	}

	m.logger.Debug("cards drawn",
		zap.String("room_id", roomID),
		zap.String("user_id", userID),
		zap.Int("count", len(drawn)),
		zap.Int("library_remaining", len(library)-len(drawn)),
	)

	return drawn, nil
}

// Play moves a card from the caller's hand into a target zone, appending it
// after the caller's cards already there. Play is append-only; callers that
// need an explicit slot use Move.
func (m *Manager) Play(ctx context.Context, roomID, userID, cardID string, target Zone) (*Card, error) {
	if !target.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "invalid target zone %q", target)
	}

	lock := m.locks.get(roomID)
	lock.Lock()
	defer lock.Unlock()

	session, player, err := m.guard(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	card, err := guardCard(session, player, cardID)
	if err != nil {
		return nil, err
	}

	if card.Zone != ZoneHand {
		return nil, status.Errorf(codes.FailedPrecondition, "card is not in your hand")
	}

	pos := len(player.CardsInZone(target))
	card.Zone = target
	card.Position = pos
	clearZoneFlags(card)

	changed := append([]*Card{card}, renumberZone(player, ZoneHand)...)
	if err := m.store.UpdateCards(ctx, changed); err != nil {
		return nil, status.Errorf(codes.Internal, "persist play: %v", err)
	}

	m.logger.Debug("card played",
		zap.String("room_id", roomID),
		zap.String("user_id", userID),
		zap.String("card_id", card.ID),
		zap.String("card_name", card.Name),
		zap.String("target_zone", string(target)),
	)

	return card, nil
}

// Move re-zones a card to an explicit position. The requested position is
// clamped into range and both the source and target zones are renumbered
// dense, so positions stay unique within every (owner, zone) partition.
func (m *Manager) Move(ctx context.Context, roomID, userID, cardID string, target Zone, position int) (*Card, error) {
	if !target.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "invalid target zone %q", target)
	}

	lock := m.locks.get(roomID)
	lock.Lock()
	defer lock.Unlock()

	session, player, err := m.guard(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	card, err := guardCard(session, player, cardID)
	if err != nil {
		return nil, err
	}

	source := card.Zone

	// Pull the card out of its zone, renumber what remains, then wedge it
	// into the target ordering at the requested slot.
	card.Zone = ""
	changed := renumberZone(player, source)

	targetCards := player.CardsInZone(target)
	if position < 0 {
		position = 0
	}
	if position > len(targetCards) {
		position = len(targetCards)
	}
	for _, c := range targetCards {
		if c.Position >= position {
			c.Position++
			changed = append(changed, c)
		}
	}

	card.Zone = target
	card.Position = position
	if target != source {
		clearZoneFlags(card)
	}
	changed = append(changed, card)

	if err := m.store.UpdateCards(ctx, changed); err != nil {
		return nil, status.Errorf(codes.Internal, "persist move: %v", err)
	}

	m.logger.Debug("card moved",
		zap.String("room_id", roomID),
		zap.String("user_id", userID),
		zap.String("card_id", card.ID),
		zap.String("from", string(source)),
		zap.String("to", string(target)),
		zap.Int("position", position),
	)

	return card, nil
}

// Tap toggles a card's tapped state.
func (m *Manager) Tap(ctx context.Context, roomID, userID, cardID string) (*Card, error) {
	lock := m.locks.get(roomID)
	lock.Lock()
	defer lock.Unlock()

	session, player, err := m.guard(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	card, err := guardCard(session, player, cardID)
	if err != nil {
		return nil, err
	}

	card.IsTapped = !card.IsTapped

	if err := m.store.UpdateCards(ctx, []*Card{card}); err != nil {
		return nil, status.Errorf(codes.Internal, "persist tap: %v", err)
	}
	return card, nil
}

// UntapAll clears the tapped state of every one of the caller's battlefield
// cards. Other zones, other players, and the turn phase are untouched.
func (m *Manager) UntapAll(ctx context.Context, roomID, userID string) (int, error) {
	lock := m.locks.get(roomID)
	lock.Lock()
	defer lock.Unlock()

	_, player, err := m.guard(ctx, roomID, userID)
	if err != nil {
		return 0, err
	}

	var changed []*Card
	for _, card := range player.CardsInZone(ZoneBattlefield) {
		if card.IsTapped {
			card.IsTapped = false
			changed = append(changed, card)
		}
	}

	if len(changed) > 0 {
		if err := m.store.UpdateCards(ctx, changed); err != nil {
			return 0, status.Errorf(codes.Internal, "persist untap: %v", err)
		}
	}

	m.logger.Debug("battlefield untapped",
		zap.String("room_id", roomID),
		zap.String("user_id", userID),
		zap.Int("untapped", len(changed)),
	)

	return len(changed), nil
}

// Reposition updates a battlefield card's table coordinates.
func (m *Manager) Reposition(ctx context.Context, roomID, userID, cardID string, x, y float64) (*Card, error) {
	lock := m.locks.get(roomID)
	lock.Lock()
	defer lock.Unlock()

	session, player, err := m.guard(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	card, err := guardCard(session, player, cardID)
	if err != nil {
		return nil, err
	}

	if card.Zone != ZoneBattlefield {
		return nil, status.Errorf(codes.InvalidArgument, "card is not on the battlefield")
	}

	card.BattlefieldX = &x
	card.BattlefieldY = &y

	if err := m.store.UpdateCards(ctx, []*Card{card}); err != nil {
		return nil, status.Errorf(codes.Internal, "persist reposition: %v", err)
	}
	return card, nil
}

// clearZoneFlags resets battlefield-only state when a card changes zones.
func clearZoneFlags(card *Card) {
	if card.Zone != ZoneBattlefield {
		card.BattlefieldX = nil
		card.BattlefieldY = nil
		card.IsAttacking = false
		card.IsBlocking = false
		card.DamageReceived = 0
	}
}
