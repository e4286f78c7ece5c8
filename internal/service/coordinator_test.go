package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/its-ashutosh-pathak/supersquare-backend/internal/apperror"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/entity"
)

func TestCoordinator_FindMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("First seeker is queued, second completes the match", func(t *testing.T) {
		env := newTestEnv(t, time.Minute)
		env.login(t, "alice", "socket-a")
		env.login(t, "bob", "socket-b")

		// When: alice searches first
		require.NoError(t, env.coordinator.FindMatch(ctx, "socket-a"))

		// Then: she is acknowledged as queued
		assert.Contains(t, env.notifier.actions("socket-a"), EventQueueJoined)
		assert.True(t, env.reg.InQueue("alice"))

		// When: bob searches
		require.NoError(t, env.coordinator.FindMatch(ctx, "socket-b"))

		// Then: both receive the starting snapshot with opposite marks
		rawA, okA := env.notifier.last("socket-a", EventGameStart)
		rawB, okB := env.notifier.last("socket-b", EventGameStart)
		require.True(t, okA)
		require.True(t, okB)

		startA := rawA.(GameStartPayload)
		startB := rawB.(GameStartPayload)

		assert.Equal(t, startA.RoomID, startB.RoomID)
		assert.NotEqual(t, startA.Mark, startB.Mark)
		assert.Equal(t, "bob", startA.OpponentID)
		assert.Equal(t, "alice", startB.OpponentID)
		assert.Equal(t, entity.PlayerX, startA.State.ActivePlayer)
		assert.False(t, env.reg.InQueue("alice"))
	})

	t.Run("A player already in a game cannot search", func(t *testing.T) {
		env := newTestEnv(t, time.Minute)
		env.login(t, "alice", "socket-a")
		env.login(t, "bob", "socket-b")

		require.NoError(t, env.coordinator.FindMatch(ctx, "socket-a"))
		require.NoError(t, env.coordinator.FindMatch(ctx, "socket-b"))

		err := env.coordinator.FindMatch(ctx, "socket-a")
		assert.ErrorIs(t, err, apperror.ErrAlreadyInGame)
	})

	t.Run("A stale queue entry is skipped", func(t *testing.T) {
		env := newTestEnv(t, time.Minute)
		env.login(t, "alice", "socket-a")
		env.login(t, "bob", "socket-b")

		require.NoError(t, env.coordinator.FindMatch(ctx, "socket-a"))

		// Given: alice disconnected while queued; the queue entry is
		// gone with her session
		env.sessions.Disconnect(ctx, "socket-a")

		// When: bob searches
		require.NoError(t, env.coordinator.FindMatch(ctx, "socket-b"))

		// Then: bob waits instead of pairing with the ghost
		assert.True(t, env.reg.InQueue("bob"))
		_, started := env.notifier.last("socket-b", EventGameStart)
		assert.False(t, started)
	})

	t.Run("Unknown socket is rejected", func(t *testing.T) {
		env := newTestEnv(t, time.Minute)

		err := env.coordinator.FindMatch(ctx, "socket-ghost")
		assert.ErrorIs(t, err, apperror.ErrSessionUnknown)
	})
}

func TestCoordinator_PrivateRooms(t *testing.T) {
	ctx := context.Background()

	t.Run("Create hands back a shareable code", func(t *testing.T) {
		env := newTestEnv(t, time.Minute)
		env.login(t, "alice", "socket-a")

		code, err := env.coordinator.CreateRoom(ctx, "socket-a")

		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.True(t, env.reg.HasRoom(code))

		raw, ok := env.notifier.last("socket-a", EventRoomCreated)
		require.True(t, ok)
		assert.Equal(t, code, raw.(RoomCreatedPayload).RoomID)
	})

	t.Run("Join accepts sloppy code input", func(t *testing.T) {
		env := newTestEnv(t, time.Minute)
		env.login(t, "alice", "socket-a")
		env.login(t, "bob", "socket-b")

		code, err := env.coordinator.CreateRoom(ctx, "socket-a")
		require.NoError(t, err)

		// When: bob joins with lowercase and stray whitespace
		err = env.coordinator.JoinRoomByCode(ctx, "socket-b", "  "+strings.ToLower(code)+" ")
		require.NoError(t, err)

		// Then: the match starts with the creator as X
		rawA, ok := env.notifier.last("socket-a", EventGameStart)
		require.True(t, ok)
		assert.Equal(t, entity.PlayerX, rawA.(GameStartPayload).Mark)

		rawB, ok := env.notifier.last("socket-b", EventGameStart)
		require.True(t, ok)
		assert.Equal(t, entity.PlayerO, rawB.(GameStartPayload).Mark)
	})

	t.Run("Join with an unknown code fails", func(t *testing.T) {
		env := newTestEnv(t, time.Minute)
		env.login(t, "bob", "socket-b")

		err := env.coordinator.JoinRoomByCode(ctx, "socket-b", "ZZZZZZ")
		assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("A full room rejects a third player", func(t *testing.T) {
		env := newTestEnv(t, time.Minute)
		env.login(t, "alice", "socket-a")
		env.login(t, "bob", "socket-b")
		env.login(t, "carol", "socket-c")

		code, err := env.coordinator.CreateRoom(ctx, "socket-a")
		require.NoError(t, err)
		require.NoError(t, env.coordinator.JoinRoomByCode(ctx, "socket-b", code))

		err = env.coordinator.JoinRoomByCode(ctx, "socket-c", code)
		assert.ErrorIs(t, err, apperror.ErrRoomFull)
	})
}

func TestCoordinator_Invites(t *testing.T) {
	ctx := context.Background()

	t.Run("Invite reaches an online target", func(t *testing.T) {
		env := newTestEnv(t, time.Minute)
		env.login(t, "alice", "socket-a")
		env.login(t, "bob", "socket-b")

		require.NoError(t, env.coordinator.SendInvite(ctx, "socket-a", "bob"))

		raw, ok := env.notifier.last("socket-b", EventInviteReceived)
		require.True(t, ok)
		assert.Equal(t, "alice", raw.(InviteReceivedPayload).FromID)
	})

	t.Run("Self invites and offline targets are rejected", func(t *testing.T) {
		env := newTestEnv(t, time.Minute)
		env.login(t, "alice", "socket-a")

		err := env.coordinator.SendInvite(ctx, "socket-a", "alice")
		assert.ErrorIs(t, err, apperror.ErrSelfPairing)

		err = env.coordinator.SendInvite(ctx, "socket-a", "nobody")
		assert.ErrorIs(t, err, apperror.ErrPlayerOffline)
	})

	t.Run("Rejection notifies only the inviter", func(t *testing.T) {
		env := newTestEnv(t, time.Minute)
		env.login(t, "alice", "socket-a")
		env.login(t, "bob", "socket-b")

		require.NoError(t, env.coordinator.RespondInvite(ctx, "socket-b", "alice", false))

		raw, ok := env.notifier.last("socket-a", EventInviteRejected)
		require.True(t, ok)
		assert.Equal(t, "bob", raw.(InviteRejectedPayload).FromID)

		_, started := env.notifier.last("socket-b", EventGameStart)
		assert.False(t, started)
	})

	t.Run("Acceptance slots the inviter as X", func(t *testing.T) {
		env := newTestEnv(t, time.Minute)
		env.login(t, "alice", "socket-a")
		env.login(t, "bob", "socket-b")

		require.NoError(t, env.coordinator.RespondInvite(ctx, "socket-b", "alice", true))

		rawA, ok := env.notifier.last("socket-a", EventGameStart)
		require.True(t, ok)
		assert.Equal(t, entity.PlayerX, rawA.(GameStartPayload).Mark)

		rawB, ok := env.notifier.last("socket-b", EventGameStart)
		require.True(t, ok)
		assert.Equal(t, entity.PlayerO, rawB.(GameStartPayload).Mark)
	})
}
