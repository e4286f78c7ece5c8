package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/its-ashutosh-pathak/supersquare-backend/internal/apperror"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/entity"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/registry"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/repository"
)

type sentEvent struct {
	socketID string
	action   string
	payload  any
}

// fakeNotifier records every push so tests can assert on delivery.
type fakeNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (that *fakeNotifier) Send(socketID, action string, payload any) {
	that.mu.Lock()
	defer that.mu.Unlock()
	that.events = append(that.events, sentEvent{socketID: socketID, action: action, payload: payload})
}

func (that *fakeNotifier) actions(socketID string) []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	var actions []string
	for _, event := range that.events {
		if event.socketID == socketID {
			actions = append(actions, event.action)
		}
	}
	return actions
}

func (that *fakeNotifier) count(socketID, action string) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	total := 0
	for _, event := range that.events {
		if event.socketID == socketID && event.action == action {
			total++
		}
	}
	return total
}

func (that *fakeNotifier) last(socketID, action string) (any, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for i := len(that.events) - 1; i >= 0; i-- {
		if that.events[i].socketID == socketID && that.events[i].action == action {
			return that.events[i].payload, true
		}
	}
	return nil, false
}

// fakeProfiles is an in-memory stand-in for the durable store.
type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]*entity.Profile
	deltas   map[string][]entity.StatsDelta
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{
		profiles: make(map[string]*entity.Profile),
		deltas:   make(map[string][]entity.StatsDelta),
	}
}

var _ repository.ProfileRepository = (*fakeProfiles)(nil)

func (that *fakeProfiles) Ensure(_ context.Context, identity, displayName string) (*entity.Profile, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if existing, ok := that.profiles[identity]; ok {
		clone := *existing
		return &clone, nil
	}

	profile := &entity.Profile{
		Identity:    identity,
		DisplayName: displayName,
		Rating:      entity.DefaultRating,
	}
	that.profiles[identity] = profile

	clone := *profile
	return &clone, nil
}

func (that *fakeProfiles) GetByIdentity(_ context.Context, identity string) (*entity.Profile, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	profile, ok := that.profiles[identity]
	if !ok {
		return nil, apperror.ErrProfileNotFound
	}

	clone := *profile
	return &clone, nil
}

func (that *fakeProfiles) ApplyStatsDelta(_ context.Context, identity string, delta entity.StatsDelta) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	profile, ok := that.profiles[identity]
	if !ok {
		return apperror.ErrProfileNotFound
	}

	profile.Rating += delta.Rating
	profile.Wins += delta.Wins
	profile.Losses += delta.Losses
	profile.GamesPlayed += delta.Games
	that.deltas[identity] = append(that.deltas[identity], delta)

	return nil
}

func (that *fakeProfiles) UpdateLastActive(_ context.Context, identity string, at time.Time) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if profile, ok := that.profiles[identity]; ok {
		profile.LastActiveAt = at
	}
	return nil
}

func (that *fakeProfiles) Rank(_ context.Context, _ string) (int, error) {
	return 1, nil
}

func (that *fakeProfiles) deltasFor(identity string) []entity.StatsDelta {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]entity.StatsDelta(nil), that.deltas[identity]...)
}

type testEnv struct {
	reg      *registry.Registry
	profiles *fakeProfiles
	notifier *fakeNotifier

	reconciler  Reconciler
	sessions    SessionService
	coordinator CoordinatorService
	gameplay    GameplayService
}

func newTestEnv(t *testing.T, moveTimeout time.Duration) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.New()
	profiles := newFakeProfiles()
	notifier := &fakeNotifier{}

	reconciler := NewReconciler(logger, reg, profiles, notifier, moveTimeout)

	return &testEnv{
		reg:         reg,
		profiles:    profiles,
		notifier:    notifier,
		reconciler:  reconciler,
		sessions:    NewSessionService(logger, reg, profiles, notifier, reconciler),
		coordinator: NewCoordinatorService(logger, reg, notifier, reconciler),
		gameplay:    NewGameplayService(logger, reg, notifier, reconciler, 101, 5*time.Second),
	}
}

// login is a shorthand for registering a ready-to-play player.
func (that *testEnv) login(t *testing.T, identity, socketID string) {
	t.Helper()

	_, err := that.sessions.Login(context.Background(), socketID, identity, identity)
	if err != nil {
		t.Fatalf("login %s: %v", identity, err)
	}
}
