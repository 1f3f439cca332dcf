package game_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/edhtable/edh-server-go/internal/game"
	"github.com/edhtable/edh-server-go/internal/repository/inmem"
)

func startTwoPlayerGame(t *testing.T) (*game.Manager, *inmem.Store, *game.Session) {
	t.Helper()
	mgr, store, _ := newTestManager()

	buildDeck(store, "deck-a", "alice", 30, true)
	buildDeck(store, "deck-b", "bob", 30, true)

	session, err := mgr.StartSession(context.Background(), "room-1", []game.Seat{
		{UserID: "alice", DeckID: "deck-a"},
		{UserID: "bob", DeckID: "deck-b"},
	})
	require.NoError(t, err)
	return mgr, store, session
}

func reload(t *testing.T, store *inmem.Store, roomID string) *game.Session {
	t.Helper()
	session, err := store.GetSession(context.Background(), roomID)
	require.NoError(t, err)
	require.NotNil(t, session)
	return session
}

func TestDrawAppendsToHand(t *testing.T) {
	mgr, store, _ := startTwoPlayerGame(t)
	ctx := context.Background()

	drawn, err := mgr.Draw(ctx, "room-1", "alice", 3)
	require.NoError(t, err)
	require.Len(t, drawn, 3)
	for i, c := range drawn {
		assert.Equal(t, game.ZoneHand, c.Zone)
		assert.Equal(t, game.OpeningHandSize+i, c.Position, "drawn cards append after the held ones")
	}

	alice := reload(t, store, "room-1").PlayerByUser("alice")
	assert.Len(t, alice.CardsInZone(game.ZoneHand), 10)
	assert.Len(t, alice.CardsInZone(game.ZoneLibrary), 20)
	for i, c := range alice.CardsInZone(game.ZoneLibrary) {
		assert.Equal(t, i, c.Position)
	}
}

func TestDrawPastEmptyLibrary(t *testing.T) {
	mgr, store, _ := startTwoPlayerGame(t)
	ctx := context.Background()

	// Library holds 23 cards; asking for more empties it without error.
	drawn, err := mgr.Draw(ctx, "room-1", "alice", 99)
	require.NoError(t, err)
	assert.Len(t, drawn, 23)

	alice := reload(t, store, "room-1").PlayerByUser("alice")
	assert.Empty(t, alice.CardsInZone(game.ZoneLibrary))

	// Drawing from an empty library stays a no-op, not an error.
	drawn, err = mgr.Draw(ctx, "room-1", "alice", 1)
	require.NoError(t, err)
	assert.Empty(t, drawn)
}

func TestDrawValidation(t *testing.T) {
	mgr, _, _ := startTwoPlayerGame(t)
	ctx := context.Background()

	_, err := mgr.Draw(ctx, "room-1", "alice", 0)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = mgr.Draw(ctx, "room-1", "mallory", 1)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = mgr.Draw(ctx, "room-9", "alice", 1)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestPlayFromHand(t *testing.T) {
	mgr, store, session := startTwoPlayerGame(t)
	ctx := context.Background()

	alice := session.PlayerByUser("alice")
	hand := alice.CardsInZone(game.ZoneHand)
	played, err := mgr.Play(ctx, "room-1", "alice", hand[2].ID, game.ZoneBattlefield)
	require.NoError(t, err)
	assert.Equal(t, game.ZoneBattlefield, played.Zone)
	assert.Equal(t, 0, played.Position)

	reloaded := reload(t, store, "room-1").PlayerByUser("alice")
	assert.Len(t, reloaded.CardsInZone(game.ZoneHand), 6)
	for i, c := range reloaded.CardsInZone(game.ZoneHand) {
		assert.Equal(t, i, c.Position, "hand must be renumbered after playing")
	}

	// A second play appends after the first.
	hand = reloaded.CardsInZone(game.ZoneHand)
	played, err = mgr.Play(ctx, "room-1", "alice", hand[0].ID, game.ZoneBattlefield)
	require.NoError(t, err)
	assert.Equal(t, 1, played.Position)
}

func TestPlayRequiresHand(t *testing.T) {
	mgr, _, session := startTwoPlayerGame(t)
	ctx := context.Background()

	alice := session.PlayerByUser("alice")
	libCard := alice.CardsInZone(game.ZoneLibrary)[0]

	_, err := mgr.Play(ctx, "room-1", "alice", libCard.ID, game.ZoneBattlefield)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	handCard := alice.CardsInZone(game.ZoneHand)[0]
	_, err = mgr.Play(ctx, "room-1", "alice", handCard.ID, game.Zone("stack"))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestOperationsRejectForeignCards(t *testing.T) {
	mgr, _, session := startTwoPlayerGame(t)
	ctx := context.Background()

	bobCard := session.PlayerByUser("bob").CardsInZone(game.ZoneHand)[0]

	_, err := mgr.Play(ctx, "room-1", "alice", bobCard.ID, game.ZoneBattlefield)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = mgr.Move(ctx, "room-1", "alice", bobCard.ID, game.ZoneGraveyard, 0)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = mgr.Tap(ctx, "room-1", "alice", bobCard.ID)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = mgr.Reposition(ctx, "room-1", "alice", bobCard.ID, 1, 1)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = mgr.Tap(ctx, "room-1", "alice", "no-such-card")
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestMoveRenumbersBothZones(t *testing.T) {
	mgr, store, session := startTwoPlayerGame(t)
	ctx := context.Background()

	alice := session.PlayerByUser("alice")
	hand := alice.CardsInZone(game.ZoneHand)

	// Wedge the last hand card into slot 0 of the graveyard, then another
	// ahead of it.
	_, err := mgr.Move(ctx, "room-1", "alice", hand[6].ID, game.ZoneGraveyard, 0)
	require.NoError(t, err)
	moved, err := mgr.Move(ctx, "room-1", "alice", hand[0].ID, game.ZoneGraveyard, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, moved.Position)

	reloaded := reload(t, store, "room-1").PlayerByUser("alice")
	graveyard := reloaded.CardsInZone(game.ZoneGraveyard)
	require.Len(t, graveyard, 2)
	assert.Equal(t, hand[0].ID, graveyard[0].ID)
	assert.Equal(t, hand[6].ID, graveyard[1].ID)

	for i, c := range reloaded.CardsInZone(game.ZoneHand) {
		assert.Equal(t, i, c.Position)
	}
}

func TestMoveClampsPosition(t *testing.T) {
	mgr, _, session := startTwoPlayerGame(t)
	ctx := context.Background()

	hand := session.PlayerByUser("alice").CardsInZone(game.ZoneHand)

	moved, err := mgr.Move(ctx, "room-1", "alice", hand[0].ID, game.ZoneGraveyard, 50)
	require.NoError(t, err)
	assert.Equal(t, 0, moved.Position)

	moved, err = mgr.Move(ctx, "room-1", "alice", hand[1].ID, game.ZoneGraveyard, -3)
	require.NoError(t, err)
	assert.Equal(t, 0, moved.Position)
}

func TestMoveOffBattlefieldClearsTableState(t *testing.T) {
	mgr, store, session := startTwoPlayerGame(t)
	ctx := context.Background()

	handCard := session.PlayerByUser("alice").CardsInZone(game.ZoneHand)[0]
	played, err := mgr.Play(ctx, "room-1", "alice", handCard.ID, game.ZoneBattlefield)
	require.NoError(t, err)

	_, err = mgr.Reposition(ctx, "room-1", "alice", played.ID, 120, 80)
	require.NoError(t, err)
	_, err = mgr.Tap(ctx, "room-1", "alice", played.ID)
	require.NoError(t, err)

	moved, err := mgr.Move(ctx, "room-1", "alice", played.ID, game.ZoneGraveyard, 0)
	require.NoError(t, err)
	assert.Nil(t, moved.BattlefieldX)
	assert.Nil(t, moved.BattlefieldY)
	assert.False(t, moved.IsAttacking)
	assert.False(t, moved.IsBlocking)
	assert.Equal(t, 0, moved.DamageReceived)

	reloaded, _ := reload(t, store, "room-1").CardByID(played.ID)
	assert.Equal(t, game.ZoneGraveyard, reloaded.Zone)
	assert.Nil(t, reloaded.BattlefieldX)
}

func TestTapToggles(t *testing.T) {
	mgr, _, session := startTwoPlayerGame(t)
	ctx := context.Background()

	handCard := session.PlayerByUser("alice").CardsInZone(game.ZoneHand)[0]
	played, err := mgr.Play(ctx, "room-1", "alice", handCard.ID, game.ZoneBattlefield)
	require.NoError(t, err)

	tapped, err := mgr.Tap(ctx, "room-1", "alice", played.ID)
	require.NoError(t, err)
	assert.True(t, tapped.IsTapped)

	untapped, err := mgr.Tap(ctx, "room-1", "alice", played.ID)
	require.NoError(t, err)
	assert.False(t, untapped.IsTapped)
}

func TestUntapAllScopedToOwnBattlefield(t *testing.T) {
	mgr, store, session := startTwoPlayerGame(t)
	ctx := context.Background()

	// Alice: two tapped battlefield cards plus a tapped hand card.
	aliceHand := session.PlayerByUser("alice").CardsInZone(game.ZoneHand)
	var battlefield []string
	for _, c := range aliceHand[:2] {
		played, err := mgr.Play(ctx, "room-1", "alice", c.ID, game.ZoneBattlefield)
		require.NoError(t, err)
		_, err = mgr.Tap(ctx, "room-1", "alice", played.ID)
		require.NoError(t, err)
		battlefield = append(battlefield, played.ID)
	}
	tappedHand := aliceHand[2]
	_, err := mgr.Tap(ctx, "room-1", "alice", tappedHand.ID)
	require.NoError(t, err)

	// Bob: one tapped battlefield card that must stay tapped.
	bobCard := session.PlayerByUser("bob").CardsInZone(game.ZoneHand)[0]
	bobPlayed, err := mgr.Play(ctx, "room-1", "bob", bobCard.ID, game.ZoneBattlefield)
	require.NoError(t, err)
	_, err = mgr.Tap(ctx, "room-1", "bob", bobPlayed.ID)
	require.NoError(t, err)

	count, err := mgr.UntapAll(ctx, "room-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	reloaded := reload(t, store, "room-1")
	for _, id := range battlefield {
		c, _ := reloaded.CardByID(id)
		assert.False(t, c.IsTapped)
	}
	stillTappedHand, _ := reloaded.CardByID(tappedHand.ID)
	assert.True(t, stillTappedHand.IsTapped, "untap_all must not touch other zones")
	bobReloaded, _ := reloaded.CardByID(bobPlayed.ID)
	assert.True(t, bobReloaded.IsTapped, "untap_all must not touch other players")
}

func TestRepositionRequiresBattlefield(t *testing.T) {
	mgr, store, session := startTwoPlayerGame(t)
	ctx := context.Background()

	handCard := session.PlayerByUser("alice").CardsInZone(game.ZoneHand)[0]
	_, err := mgr.Reposition(ctx, "room-1", "alice", handCard.ID, 5, 5)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	played, err := mgr.Play(ctx, "room-1", "alice", handCard.ID, game.ZoneBattlefield)
	require.NoError(t, err)

	moved, err := mgr.Reposition(ctx, "room-1", "alice", played.ID, 42.5, 17.25)
	require.NoError(t, err)
	require.NotNil(t, moved.BattlefieldX)
	require.NotNil(t, moved.BattlefieldY)
	assert.Equal(t, 42.5, *moved.BattlefieldX)
	assert.Equal(t, 17.25, *moved.BattlefieldY)

	reloaded, _ := reload(t, store, "room-1").CardByID(played.ID)
	require.NotNil(t, reloaded.BattlefieldX)
	assert.Equal(t, 42.5, *reloaded.BattlefieldX)
}

func TestOperationsAfterSessionEnds(t *testing.T) {
	mgr, _, session := startTwoPlayerGame(t)
	ctx := context.Background()

	card := session.PlayerByUser("alice").CardsInZone(game.ZoneHand)[0]
	require.NoError(t, mgr.EndSession(ctx, "room-1"))

	_, err := mgr.Tap(ctx, "room-1", "alice", card.ID)
	assert.Equal(t, codes.NotFound, status.Code(err))
	_, err = mgr.Draw(ctx, "room-1", "alice", 1)
	assert.Equal(t, codes.NotFound, status.Code(err))
}
