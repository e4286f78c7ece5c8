package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/its-ashutosh-pathak/supersquare-backend/internal/apperror"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/entity"
)

func TestRegistry_Sessions(t *testing.T) {
	t.Run("Reconnect reclaims the same record", func(t *testing.T) {
		reg := New()

		// Given: a logged-in player
		first := reg.RegisterSession("alice", "Alice", "socket-1")
		require.Equal(t, entity.StatusOnline, first.Status)

		// When: the same identity connects again on a new socket
		second := reg.RegisterSession("alice", "Alice", "socket-2")

		// Then: the record is rebound, not duplicated
		assert.Equal(t, "socket-2", second.SocketID)

		found, ok := reg.SessionBySocket("socket-2")
		require.True(t, ok)
		assert.Equal(t, "alice", found.Identity)

		_, ok = reg.SessionBySocket("socket-1")
		assert.False(t, ok)
	})

	t.Run("Stale handle cannot end a newer session", func(t *testing.T) {
		reg := New()

		reg.RegisterSession("alice", "Alice", "socket-1")
		reg.RegisterSession("alice", "Alice", "socket-2")

		// When: the replaced connection finally drops
		_, ok := reg.EndSession("socket-1")

		// Then: the newer session is untouched
		assert.False(t, ok)

		session, found := reg.SessionByIdentity("alice")
		require.True(t, found)
		assert.Equal(t, entity.StatusOnline, session.Status)
		assert.Equal(t, "socket-2", session.SocketID)
	})

	t.Run("Ending a session marks it offline and leaves the queue", func(t *testing.T) {
		reg := New()

		reg.RegisterSession("alice", "Alice", "socket-1")
		_, queued := reg.PairOrEnqueue("alice")
		require.True(t, queued)

		session, ok := reg.EndSession("socket-1")

		require.True(t, ok)
		assert.Equal(t, entity.StatusOffline, session.Status)
		assert.False(t, reg.InQueue("alice"))
	})

	t.Run("Reconnect while in a room restores in-game status", func(t *testing.T) {
		reg := New()

		reg.RegisterSession("alice", "Alice", "socket-1")
		reg.RegisterSession("bob", "Bob", "socket-2")
		reg.CreateRoom("room-1", "alice", "bob", entity.NewGameState())

		reg.EndSession("socket-1")
		session := reg.RegisterSession("alice", "Alice", "socket-3")

		assert.Equal(t, entity.StatusInGame, session.Status)
		assert.Equal(t, "room-1", session.RoomID)
	})
}

func TestRegistry_Matchmaking(t *testing.T) {
	t.Run("First seeker waits, second gets paired", func(t *testing.T) {
		reg := New()

		opponent, queued := reg.PairOrEnqueue("alice")
		assert.True(t, queued)
		assert.Empty(t, opponent)
		assert.True(t, reg.InQueue("alice"))

		opponent, queued = reg.PairOrEnqueue("bob")
		assert.False(t, queued)
		assert.Equal(t, "alice", opponent)
		assert.False(t, reg.InQueue("alice"))
	})

	t.Run("A seeker never pairs with itself", func(t *testing.T) {
		reg := New()

		_, queued := reg.PairOrEnqueue("alice")
		require.True(t, queued)

		// When: the same identity searches again
		opponent, queued := reg.PairOrEnqueue("alice")

		// Then: it stays queued instead of matching itself
		assert.True(t, queued)
		assert.Empty(t, opponent)
	})

	t.Run("Creating a room removes both players from the queue", func(t *testing.T) {
		reg := New()

		reg.RegisterSession("alice", "Alice", "socket-1")
		reg.RegisterSession("bob", "Bob", "socket-2")
		reg.PairOrEnqueue("alice")
		reg.PairOrEnqueue("bob")

		reg.CreateRoom("room-1", "alice", "bob", entity.NewGameState())

		assert.False(t, reg.InQueue("alice"))
		assert.False(t, reg.InQueue("bob"))
	})
}

func TestRegistry_Rooms(t *testing.T) {
	t.Run("Join fills the open slot once", func(t *testing.T) {
		reg := New()

		reg.RegisterSession("alice", "Alice", "socket-1")
		reg.RegisterSession("bob", "Bob", "socket-2")
		reg.RegisterSession("carol", "Carol", "socket-3")
		reg.CreateRoom("ABC123", "alice", "", entity.NewGameState())

		room, err := reg.JoinRoom("ABC123", "bob")
		require.NoError(t, err)
		assert.Equal(t, "bob", room.PlayerO)
		assert.True(t, room.IsFull())

		_, err = reg.JoinRoom("ABC123", "carol")
		assert.ErrorIs(t, err, apperror.ErrRoomFull)
	})

	t.Run("Filling the second slot supersedes the waiting countdown", func(t *testing.T) {
		reg := New()

		reg.RegisterSession("alice", "Alice", "socket-1")
		reg.RegisterSession("bob", "Bob", "socket-2")
		reg.CreateRoom("ABC123", "alice", "", entity.NewGameState())

		var before uint64
		_ = reg.WithRoom("ABC123", func(room *entity.Room) error {
			before = room.TimerEpoch
			return nil
		})

		room, err := reg.JoinRoom("ABC123", "bob")

		// Then: a countdown armed for the waiting phase can no
		// longer fire against the fresh match
		require.NoError(t, err)
		assert.Greater(t, room.TimerEpoch, before)
	})

	t.Run("Joining an unknown room fails", func(t *testing.T) {
		reg := New()

		_, err := reg.JoinRoom("NOPE42", "bob")
		assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Deleting a room releases its players", func(t *testing.T) {
		reg := New()

		reg.RegisterSession("alice", "Alice", "socket-1")
		reg.RegisterSession("bob", "Bob", "socket-2")
		reg.CreateRoom("room-1", "alice", "bob", entity.NewGameState())

		reg.DeleteRoom("room-1")

		assert.False(t, reg.HasRoom("room-1"))

		session, ok := reg.SessionByIdentity("alice")
		require.True(t, ok)
		assert.Equal(t, entity.StatusOnline, session.Status)
		assert.Empty(t, session.RoomID)
	})

	t.Run("Delete does not clobber a player who moved on", func(t *testing.T) {
		reg := New()

		reg.RegisterSession("alice", "Alice", "socket-1")
		reg.RegisterSession("bob", "Bob", "socket-2")
		reg.CreateRoom("room-1", "alice", "bob", entity.NewGameState())

		// Given: alice already belongs to a newer room
		reg.CreateRoom("room-2", "alice", "", entity.NewGameState())

		reg.DeleteRoom("room-1")

		session, ok := reg.SessionByIdentity("alice")
		require.True(t, ok)
		assert.Equal(t, "room-2", session.RoomID)
	})

	t.Run("WithRoom serializes mutations and reports missing rooms", func(t *testing.T) {
		reg := New()

		reg.RegisterSession("alice", "Alice", "socket-1")
		reg.CreateRoom("room-1", "alice", "", entity.NewGameState())

		err := reg.WithRoom("room-1", func(room *entity.Room) error {
			room.Terminal = true
			return nil
		})
		require.NoError(t, err)

		room, ok := reg.Room("room-1")
		require.True(t, ok)
		assert.True(t, room.Terminal)

		err = reg.WithRoom("missing", func(*entity.Room) error { return nil })
		assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}

func TestRegistry_TouchChat(t *testing.T) {
	reg := New()
	reg.RegisterSession("alice", "Alice", "socket-1")

	now := time.Now()
	cooldown := 5 * time.Second

	// Given: a first message inside a fresh window
	assert.True(t, reg.TouchChat("alice", now, cooldown))

	// When: a second message arrives within the cooldown
	assert.False(t, reg.TouchChat("alice", now.Add(2*time.Second), cooldown))

	// Then: the window reopens once the cooldown has elapsed
	assert.True(t, reg.TouchChat("alice", now.Add(6*time.Second), cooldown))
}
