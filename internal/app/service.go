package app

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"quizroom-service/internal/domain"
)

const joinAttempts = 3

// Coordinator contains the quiz room use cases. It resolves connections to rooms and
// forwards each intent to the owning room.
type Coordinator struct {
	rooms    RoomRepository
	sessions *SessionRegistry
	log      *slog.Logger
}

func NewCoordinator(rooms RoomRepository, sessions *SessionRegistry, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{rooms: rooms, sessions: sessions, log: logger}
}

// Join places a connection into a room, creating the room on first use. A connection
// already in another room leaves it first.
func (c *Coordinator) Join(ctx context.Context, connID, nickname, roomCode string, sink Sink) (domain.Joined, error) {
	if strings.TrimSpace(nickname) == "" {
		return domain.Joined{}, domain.ErrNicknameRequired
	}
	code := domain.NormalizeRoomCode(roomCode)

	if m, ok := c.sessions.Lookup(connID); ok && m.RoomCode != code {
		if err := c.Leave(ctx, connID); err != nil && !errors.Is(err, domain.ErrNotJoined) {
			c.log.Warn("leave before join failed", "conn", connID, "room", m.RoomCode, "error", err)
		}
	}

	for attempt := 0; attempt < joinAttempts; attempt++ {
		room := c.rooms.GetOrCreate(code)
		joined, err := room.Join(ctx, connID, nickname, sink)
		if errors.Is(err, domain.ErrRoomClosed) {
			// lost a race with the reaper; the next GetOrCreate replaces it
			continue
		}
		if err != nil {
			c.rooms.DeleteIfEmpty(code)
			return domain.Joined{}, err
		}
		c.sessions.Bind(connID, Membership{RoomCode: code, PlayerID: connID})
		return joined, nil
	}
	return domain.Joined{}, domain.ErrRoomClosed
}

// Leave removes the connection from its room and reaps the room when it empties.
func (c *Coordinator) Leave(ctx context.Context, connID string) error {
	m, ok := c.sessions.Unbind(connID)
	if !ok {
		return domain.ErrNotJoined
	}
	room, ok := c.rooms.Get(m.RoomCode)
	if !ok {
		return nil
	}
	empty, err := room.Leave(ctx, m.PlayerID)
	if errors.Is(err, domain.ErrRoomClosed) {
		return nil
	}
	if empty {
		c.rooms.DeleteIfEmpty(m.RoomCode)
	}
	return err
}

// SetTheme chooses the quiz theme for the caller's room.
func (c *Coordinator) SetTheme(ctx context.Context, connID, theme string) error {
	return c.withRoom(connID, func(room *Room, playerID string) error {
		return room.SetTheme(ctx, playerID, theme)
	})
}

// ToggleReady flips the caller's readiness.
func (c *Coordinator) ToggleReady(ctx context.Context, connID string) (bool, error) {
	var ready bool
	err := c.withRoom(connID, func(room *Room, playerID string) error {
		var err error
		ready, err = room.ToggleReady(ctx, playerID)
		return err
	})
	return ready, err
}

// Guess submits the caller's answer for the current round.
func (c *Coordinator) Guess(ctx context.Context, connID, answer string) (domain.GuessResult, error) {
	var res domain.GuessResult
	err := c.withRoom(connID, func(room *Room, playerID string) error {
		var err error
		res, err = room.Guess(ctx, playerID, answer)
		return err
	})
	return res, err
}

// PlayAgain resets the caller's finished room.
func (c *Coordinator) PlayAgain(ctx context.Context, connID string) error {
	return c.withRoom(connID, func(room *Room, playerID string) error {
		return room.PlayAgain(ctx, playerID)
	})
}

// RequestState resends the caller's room state to the caller only.
func (c *Coordinator) RequestState(ctx context.Context, connID string) error {
	return c.withRoom(connID, func(room *Room, playerID string) error {
		return room.RequestState(ctx, playerID)
	})
}

// Snapshot returns the view of one room.
func (c *Coordinator) Snapshot(ctx context.Context, roomCode string) (domain.RoomSnapshot, error) {
	room, ok := c.rooms.Get(domain.NormalizeRoomCode(roomCode))
	if !ok {
		return domain.RoomSnapshot{}, domain.ErrRoomNotFound
	}
	snap, err := room.Snapshot(ctx)
	if errors.Is(err, domain.ErrRoomClosed) {
		return domain.RoomSnapshot{}, domain.ErrRoomNotFound
	}
	return snap, err
}

// Scoreboard returns the live standings of one room.
func (c *Coordinator) Scoreboard(ctx context.Context, roomCode string) ([]domain.ScoreEntry, error) {
	room, ok := c.rooms.Get(domain.NormalizeRoomCode(roomCode))
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	board, err := room.Scoreboard(ctx)
	if errors.Is(err, domain.ErrRoomClosed) {
		return nil, domain.ErrRoomNotFound
	}
	return board, err
}

// Rooms lists snapshots of every open room ordered by code.
func (c *Coordinator) Rooms(ctx context.Context) ([]domain.RoomSnapshot, error) {
	rooms := c.rooms.List()
	out := make([]domain.RoomSnapshot, 0, len(rooms))
	for _, room := range rooms {
		snap, err := room.Snapshot(ctx)
		if errors.Is(err, domain.ErrRoomClosed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomCode < out[j].RoomCode })
	return out, nil
}

// Close tears down every room.
func (c *Coordinator) Close() {
	c.rooms.Close()
}

func (c *Coordinator) withRoom(connID string, fn func(room *Room, playerID string) error) error {
	m, ok := c.sessions.Lookup(connID)
	if !ok {
		return domain.ErrNotJoined
	}
	room, ok := c.rooms.Get(m.RoomCode)
	if !ok {
		c.sessions.Unbind(connID)
		return domain.ErrNotJoined
	}
	err := fn(room, m.PlayerID)
	if errors.Is(err, domain.ErrRoomClosed) {
		c.sessions.Unbind(connID)
		return domain.ErrNotJoined
	}
	return err
}
