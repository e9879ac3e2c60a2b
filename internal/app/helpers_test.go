package app_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
	"quizroom-service/internal/event"
	"quizroom-service/internal/infra/memory"
)

const testRoom = "ABCD"

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Time
	fn    func()
	done  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) app.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and fires every timer that came due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	pending := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.done:
		case !t.at.After(c.now):
			t.done = true
			due = append(due, t)
		default:
			pending = append(pending, t)
		}
	}
	c.timers = pending
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

type recordingSink struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (s *recordingSink) Send(msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func (s *recordingSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.msgs))
	for _, m := range s.msgs {
		out = append(out, m.Type)
	}
	return out
}

func (s *recordingSink) ofType(typ string) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Message
	for _, m := range s.msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func (s *recordingSink) last(typ string) (domain.Message, bool) {
	msgs := s.ofType(typ)
	if len(msgs) == 0 {
		return domain.Message{}, false
	}
	return msgs[len(msgs)-1], true
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = nil
}

// fixedSource answers every theme with n questions whose correct label is always A.
func fixedSource(n int) app.QuizSource {
	return app.QuizSourceFunc(func(ctx context.Context, theme string) ([]domain.Question, error) {
		questions := make([]domain.Question, n)
		for i := range questions {
			questions[i] = domain.Question{
				Text:    theme + " question",
				Options: []string{"A) right", "B) wrong", "C) wrong", "D) wrong"},
				Answer:  "A",
			}
		}
		return questions, nil
	})
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Name())
	}
	return out
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	clock *fakeClock
	store *memory.RoomStore
	coord *app.Coordinator
}

func newHarness(t *testing.T, source app.QuizSource) *harness {
	t.Helper()
	return newHarnessWithConfig(t, source, app.DefaultGameConfig())
}

func newHarnessWithConfig(t *testing.T, source app.QuizSource, cfg app.GameConfig) *harness {
	t.Helper()
	return newHarnessWithDeps(t, app.RoomDeps{Config: cfg, Source: source})
}

// newHarnessWithDeps fills in the fake clock and logger.
func newHarnessWithDeps(t *testing.T, deps app.RoomDeps) *harness {
	t.Helper()
	clock := newFakeClock()
	deps.Clock = clock
	deps.Logger = discardLogger
	store := memory.NewRoomStore(app.NewRoomFactory(deps))
	coord := app.NewCoordinator(store, app.NewSessionRegistry(), discardLogger)
	t.Cleanup(coord.Close)
	return &harness{t: t, ctx: context.Background(), clock: clock, store: store, coord: coord}
}

func (h *harness) join(connID, nickname string) *recordingSink {
	h.t.Helper()
	sink := &recordingSink{}
	_, err := h.coord.Join(h.ctx, connID, nickname, testRoom, sink)
	require.NoError(h.t, err)
	return sink
}

func (h *harness) snapshot() domain.RoomSnapshot {
	h.t.Helper()
	snap, err := h.coord.Snapshot(h.ctx, testRoom)
	require.NoError(h.t, err)
	return snap
}

// advance steps the clock one second at a time and lets the room drain after each step.
func (h *harness) advance(seconds int) {
	h.t.Helper()
	for i := 0; i < seconds; i++ {
		h.clock.Advance(time.Second)
		h.snapshot()
	}
}

func (h *harness) chooseTheme(creator, theme string) {
	h.t.Helper()
	require.NoError(h.t, h.coord.SetTheme(h.ctx, creator, theme))
	h.waitGeneration()
	require.True(h.t, h.snapshot().QuizReady)
}

func (h *harness) waitGeneration() {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		snap, err := h.coord.Snapshot(h.ctx, testRoom)
		return err == nil && !snap.Generating
	}, time.Second, 5*time.Millisecond)
}

// startGame readies every given player and runs through the start grace.
func (h *harness) startGame(connIDs ...string) {
	h.t.Helper()
	for _, id := range connIDs {
		ready, err := h.coord.ToggleReady(h.ctx, id)
		require.NoError(h.t, err)
		require.True(h.t, ready)
	}
	require.Equal(h.t, domain.PhaseStarting, h.snapshot().Phase)
	h.advance(2)
	require.Equal(h.t, domain.PhasePlaying, h.snapshot().Phase)
}

func currentRound(t *testing.T, sink *recordingSink) domain.RoundPayload {
	t.Helper()
	msg, ok := sink.last(domain.MsgRound)
	require.True(t, ok, "no round received")
	return msg.Payload.(domain.RoundPayload)
}

func indexOf(types []string, typ string) int {
	for i, v := range types {
		if v == typ {
			return i
		}
	}
	return -1
}
