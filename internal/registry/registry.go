// Package registry holds the in-memory authoritative state of the
// match server: live sessions, active rooms and the matchmaking
// queue. A Registry is an explicitly constructed, injected instance;
// one mutex serializes every operation, so each inbound event's
// in-memory transition runs to completion before the next one, the
// same guarantee a single-threaded event loop would give.
package registry

import (
	"sync"
	"time"

	"github.com/its-ashutosh-pathak/supersquare-backend/internal/apperror"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/entity"
)

type Registry struct {
	mu sync.Mutex

	sessions map[string]*entity.Session
	// socketIdentity maps a live-connection handle to its identity
	// so lookup by either key is O(1).
	socketIdentity map[string]string
	rooms          map[string]*entity.Room
	queue          map[string]struct{}
}

func New() *Registry {
	return &Registry{
		sessions:       make(map[string]*entity.Session),
		socketIdentity: make(map[string]string),
		rooms:          make(map[string]*entity.Room),
		queue:          make(map[string]struct{}),
	}
}

// RegisterSession - creates or reclaims the session for identity and
// binds it to socketID. Idempotent: a reconnect updates the existing
// record's handle and marks it online instead of duplicating it.
// Session accessors hand out copies; the registry alone mutates the
// stored records.
func (that *Registry) RegisterSession(identity, displayName, socketID string) entity.Session {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[identity]
	if ok {
		session.SocketID = socketID
		session.Status = entity.StatusOnline
		session.DisplayName = displayName
	} else {
		session = &entity.Session{
			Identity:    identity,
			DisplayName: displayName,
			SocketID:    socketID,
			Status:      entity.StatusOnline,
		}
		that.sessions[identity] = session
	}

	if session.RoomID != "" {
		session.Status = entity.StatusInGame
	}

	that.socketIdentity[socketID] = identity

	return *session
}

// EndSession - tears down the binding for socketID and returns the
// affected session. A session is only marked offline if socketID is
// still its active handle: a newer connection for the same identity
// may already have replaced it, and must not be clobbered by the old
// handle's disconnect. The identity leaves the matchmaking queue
// unconditionally.
func (that *Registry) EndSession(socketID string) (entity.Session, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	identity, ok := that.socketIdentity[socketID]
	if !ok {
		return entity.Session{}, false
	}
	delete(that.socketIdentity, socketID)

	session, ok := that.sessions[identity]
	if !ok {
		return entity.Session{}, false
	}

	if session.SocketID != socketID {
		return entity.Session{}, false
	}

	session.Status = entity.StatusOffline
	session.SocketID = ""
	delete(that.queue, identity)

	return *session, true
}

func (that *Registry) SessionByIdentity(identity string) (entity.Session, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[identity]
	if !ok {
		return entity.Session{}, false
	}

	return *session, true
}

func (that *Registry) SessionBySocket(socketID string) (entity.Session, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	identity, ok := that.socketIdentity[socketID]
	if !ok {
		return entity.Session{}, false
	}

	session, ok := that.sessions[identity]
	if !ok {
		return entity.Session{}, false
	}

	return *session, true
}

// TouchChat - records a chat send for identity, provided the cooldown
// window since the previous send has elapsed. Check and record share
// one critical section so two rapid sends cannot both pass.
func (that *Registry) TouchChat(identity string, now time.Time, cooldown time.Duration) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[identity]
	if !ok {
		return false
	}

	if !session.LastMessageAt.IsZero() && now.Sub(session.LastMessageAt) < cooldown {
		return false
	}

	session.LastMessageAt = now
	return true
}

// PairOrEnqueue - pops any waiting candidate for identity, or adds
// identity to the queue when no one suitable is waiting. Pairing and
// enqueueing share one critical section so two concurrent seekers can
// never both pick the same candidate.
func (that *Registry) PairOrEnqueue(identity string) (string, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for candidate := range that.queue {
		if candidate == identity {
			continue
		}
		delete(that.queue, candidate)
		return candidate, false
	}

	that.queue[identity] = struct{}{}
	return "", true
}

func (that *Registry) InQueue(identity string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	_, ok := that.queue[identity]
	return ok
}

// CreateRoom - stores a new room, marks both known players in-game
// and removes them from the queue.
func (that *Registry) CreateRoom(roomID, playerX, playerO string, state entity.GameState) *entity.Room {
	that.mu.Lock()
	defer that.mu.Unlock()

	room := &entity.Room{
		ID:      roomID,
		PlayerX: playerX,
		PlayerO: playerO,
		State:   state,
	}
	that.rooms[roomID] = room

	that.claimPlayer(playerX, roomID)
	if playerO != "" {
		that.claimPlayer(playerO, roomID)
	}

	return room
}

// JoinRoom - fills the open slot of roomID with identity.
func (that *Registry) JoinRoom(roomID, identity string) (*entity.Room, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.rooms[roomID]
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	if room.IsFull() {
		return nil, apperror.ErrRoomFull
	}

	room.PlayerO = identity
	// the waiting-phase countdown is superseded the instant the
	// second slot fills; the coordinator arms a fresh one
	room.StopCountdown()
	that.claimPlayer(identity, roomID)

	return room, nil
}

func (that *Registry) Room(roomID string) (*entity.Room, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.rooms[roomID]
	return room, ok
}

// HasRoom - existence check used for room-code collision probing.
func (that *Registry) HasRoom(roomID string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	_, ok := that.rooms[roomID]
	return ok
}

// DeleteRoom - resets both players still pointing at this room back
// to online and removes the room record.
func (that *Registry) DeleteRoom(roomID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.rooms[roomID]
	if !ok {
		return
	}

	that.releasePlayer(room.PlayerX, roomID)
	if room.PlayerO != "" {
		that.releasePlayer(room.PlayerO, roomID)
	}

	delete(that.rooms, roomID)
}

// WithRoom - runs fn against the room under the registry lock. Every
// room mutation after creation (moves, timer bookkeeping, terminal
// claims) goes through here so it is serialized with all other
// events. Fn must not block.
func (that *Registry) WithRoom(roomID string, fn func(room *entity.Room) error) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.rooms[roomID]
	if !ok {
		return apperror.ErrRoomNotFound
	}

	return fn(room)
}

// Counts - live session and room totals for the stats endpoint.
func (that *Registry) Counts() (int, int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	online := 0
	for _, session := range that.sessions {
		if session.IsOnline() {
			online++
		}
	}

	return online, len(that.rooms)
}

func (that *Registry) claimPlayer(identity, roomID string) {
	session, ok := that.sessions[identity]
	if !ok {
		return
	}

	session.Status = entity.StatusInGame
	session.RoomID = roomID
	delete(that.queue, identity)
}

func (that *Registry) releasePlayer(identity, roomID string) {
	session, ok := that.sessions[identity]
	if !ok || session.RoomID != roomID {
		return
	}

	session.RoomID = ""
	if session.IsOnline() {
		session.Status = entity.StatusOnline
	}
}
