package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/event"
)

const commandQueueSize = 64

// RoomDeps are the collaborators shared by every room.
type RoomDeps struct {
	Config    GameConfig
	Source    QuizSource
	Clock     Clock
	Publisher Publisher
	Logger    *slog.Logger
}

// RoomFactory builds a new room for a code. Registries call it lazily.
type RoomFactory func(code string) *Room

// NewRoomFactory returns a factory that wires deps into every room it creates.
func NewRoomFactory(deps RoomDeps) RoomFactory {
	return func(code string) *Room {
		return NewRoom(code, deps)
	}
}

// Room is one game session. All state is owned by a single goroutine that executes
// commands in arrival order; timers and quiz generation feed results back through
// the same queue, so no state is touched from any other goroutine.
type Room struct {
	code      string
	cfg       GameConfig
	source    QuizSource
	clock     Clock
	pub       Publisher
	log       *slog.Logger
	createdAt time.Time

	cmds   chan func()
	done   chan struct{}
	closed atomic.Bool

	// owned by the run goroutine
	closing    bool
	phase      domain.Phase
	creatorID  string
	players    []*domain.Player
	sinks      map[string]Sink
	theme      string
	generating bool
	genSeq     uint64
	genCancel  context.CancelFunc
	quizReady  bool
	rounds     []domain.Round
	current    int
	roundStart time.Time
	remaining  int
	answered   map[string]bool
	timer      Timer
	epoch      uint64
}

// NewRoom creates a room in the waiting phase and starts its command loop.
func NewRoom(code string, deps RoomDeps) *Room {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Publisher == nil {
		deps.Publisher = nopPublisher{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	r := &Room{
		code:      code,
		cfg:       deps.Config,
		source:    deps.Source,
		clock:     deps.Clock,
		pub:       deps.Publisher,
		log:       deps.Logger.With("room", code),
		createdAt: deps.Clock.Now(),
		cmds:      make(chan func(), commandQueueSize),
		done:      make(chan struct{}),
		phase:     domain.PhaseWaiting,
		sinks:     make(map[string]Sink),
	}
	go r.run()
	r.publish(domain.EventRoomOpened{RoomCode: code})
	return r
}

func (r *Room) Code() string { return r.code }

func (r *Room) CreatedAt() time.Time { return r.createdAt }

// Closed reports whether the room has been torn down or is being torn down.
func (r *Room) Closed() bool { return r.closed.Load() }

// Done is closed once the command loop has exited.
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) run() {
	defer close(r.done)
	for {
		r.exec(<-r.cmds)
		if r.closing {
			r.shutdown()
			return
		}
	}
}

func (r *Room) exec(cmd func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("room: command panic", "error", fmt.Errorf("%v", rec))
		}
	}()
	cmd()
}

// do runs f on the room goroutine and waits for it to finish.
func (r *Room) do(ctx context.Context, f func()) error {
	finished := make(chan struct{})
	cmd := func() {
		defer close(finished)
		f()
	}

	select {
	case r.cmds <- cmd:
	case <-r.done:
		return domain.ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-r.done:
		select {
		case <-finished:
			return nil
		default:
			return domain.ErrRoomClosed
		}
	}
}

// post enqueues f without waiting. Used by timers and quiz generation.
func (r *Room) post(f func()) {
	select {
	case r.cmds <- f:
	case <-r.done:
	}
}

// Join adds a player bound to sink. The first player ever to join becomes the creator.
func (r *Room) Join(ctx context.Context, playerID, nickname string, sink Sink) (domain.Joined, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return domain.Joined{}, domain.ErrNicknameRequired
	}

	var (
		joined domain.Joined
		err    error
	)
	if doErr := r.do(ctx, func() { joined, err = r.join(playerID, nickname, sink) }); doErr != nil {
		return domain.Joined{}, doErr
	}
	return joined, err
}

func (r *Room) join(id, nickname string, sink Sink) (domain.Joined, error) {
	if r.player(id) == nil {
		if len(r.players) >= r.cfg.MaxPlayers {
			return domain.Joined{}, domain.ErrRoomFull
		}
		if r.creatorID == "" {
			r.creatorID = id
		}
		r.players = append(r.players, &domain.Player{
			ID:       id,
			Nickname: nickname,
			JoinedAt: r.clock.Now(),
		})
		r.publish(domain.EventPlayerJoined{RoomCode: r.code, PlayerID: id})
		r.log.Info("player joined", "player", id, "players", len(r.players))
	}
	r.sinks[id] = sink

	joined := domain.Joined{ID: id, RoomCode: r.code, IsCreator: id == r.creatorID}
	sink.Send(domain.Message{Type: domain.MsgJoined, Payload: joined})
	r.broadcastState()
	return joined, nil
}

// Leave removes a player and reports whether the room is now empty.
func (r *Room) Leave(ctx context.Context, playerID string) (bool, error) {
	var (
		empty bool
		err   error
	)
	if doErr := r.do(ctx, func() { empty, err = r.leave(playerID) }); doErr != nil {
		return false, doErr
	}
	return empty, err
}

func (r *Room) leave(id string) (bool, error) {
	idx := r.indexOf(id)
	if idx < 0 {
		return len(r.players) == 0, domain.ErrPlayerNotFound
	}
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	delete(r.sinks, id)
	r.publish(domain.EventPlayerLeft{RoomCode: r.code, PlayerID: id})
	r.log.Info("player left", "player", id, "players", len(r.players))

	if len(r.players) == 0 {
		r.stopTimer()
		return true, nil
	}

	r.broadcastState()
	switch r.phase {
	case domain.PhaseWaiting:
		r.checkReadiness()
	case domain.PhasePlaying:
		r.broadcastScoreboard()
		if r.allAnswered() {
			r.endRound()
		}
	}
	return false, nil
}

// SetTheme lets the creator choose a theme, which starts quiz generation.
func (r *Room) SetTheme(ctx context.Context, playerID, theme string) error {
	theme = domain.NormalizeTheme(theme)
	var err error
	if doErr := r.do(ctx, func() { err = r.setTheme(playerID, theme) }); doErr != nil {
		return doErr
	}
	return err
}

func (r *Room) setTheme(id, theme string) error {
	switch {
	case r.player(id) == nil:
		return domain.ErrPlayerNotFound
	case id != r.creatorID:
		return domain.ErrNotCreator
	case r.phase != domain.PhaseWaiting:
		return domain.ErrNotWaiting
	case r.generating:
		return domain.ErrGenerationInProgress
	case r.quizReady:
		return domain.ErrQuizAlreadyReady
	case theme == "":
		return domain.ErrThemeRequired
	case !r.cfg.allowsTheme(theme):
		return domain.ErrUnknownTheme
	}

	r.theme = theme
	r.generating = true
	r.genSeq++
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.GenerationTimeout)
	r.genCancel = cancel

	r.broadcast(domain.MsgThemeSet, domain.ThemeSetPayload{Theme: theme})
	r.broadcast(domain.MsgGeneratingQuiz, nil)
	r.broadcastState()
	r.log.Info("generating quiz", "theme", theme)

	go r.generate(ctx, cancel, r.genSeq, theme)
	return nil
}

// generate runs off the room goroutine and reports back through the queue.
func (r *Room) generate(ctx context.Context, cancel context.CancelFunc, seq uint64, theme string) {
	defer cancel()

	start := r.clock.Now()
	questions, err := r.source.Generate(ctx, theme)
	var rounds []domain.Round
	if err == nil {
		rounds, err = buildRounds(questions, r.cfg.Rounds)
	}
	took := r.clock.Now().Sub(start)

	r.post(func() { r.finishGeneration(seq, theme, rounds, took, err) })
}

func (r *Room) finishGeneration(seq uint64, theme string, rounds []domain.Round, took time.Duration, err error) {
	if seq != r.genSeq || !r.generating {
		return
	}
	r.generating = false
	r.genCancel = nil

	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
		r.theme = ""
		r.log.Warn("quiz generation failed", "theme", theme, "error", err)
		r.broadcast(domain.MsgGenerationFailed, domain.GenerationFailedPayload{Theme: theme, Message: err.Error()})
		r.broadcastState()
		r.publish(domain.EventQuizFailed{RoomCode: r.code, Theme: theme, Err: err})
		return
	}

	r.rounds = rounds
	r.quizReady = true
	r.log.Info("quiz ready", "theme", theme, "rounds", len(rounds), "took", took)
	r.broadcast(domain.MsgQuizReady, nil)
	r.broadcastState()
	r.publish(domain.EventQuizGenerated{RoomCode: r.code, Theme: theme, Took: took})
}

// ToggleReady flips the caller's readiness and starts the game once everyone is ready.
func (r *Room) ToggleReady(ctx context.Context, playerID string) (bool, error) {
	var (
		ready bool
		err   error
	)
	if doErr := r.do(ctx, func() { ready, err = r.toggleReady(playerID) }); doErr != nil {
		return false, doErr
	}
	return ready, err
}

func (r *Room) toggleReady(id string) (bool, error) {
	p := r.player(id)
	switch {
	case p == nil:
		return false, domain.ErrPlayerNotFound
	case r.phase != domain.PhaseWaiting:
		return false, domain.ErrNotWaiting
	case !r.quizReady:
		return false, domain.ErrQuizNotReady
	}

	p.Ready = !p.Ready
	r.broadcastState()
	r.checkReadiness()
	return p.Ready, nil
}

// checkReadiness is the readiness barrier.
func (r *Room) checkReadiness() {
	if r.phase != domain.PhaseWaiting || !r.quizReady || len(r.players) < r.cfg.MinPlayers {
		return
	}
	for _, p := range r.players {
		if !p.Ready {
			return
		}
	}
	r.startGame()
}

// PlayAgain resets a finished game back to the waiting phase.
func (r *Room) PlayAgain(ctx context.Context, playerID string) error {
	var err error
	if doErr := r.do(ctx, func() { err = r.playAgain(playerID) }); doErr != nil {
		return doErr
	}
	return err
}

func (r *Room) playAgain(id string) error {
	if r.player(id) == nil {
		return domain.ErrPlayerNotFound
	}
	if r.phase != domain.PhaseGameOver {
		return domain.ErrGameNotOver
	}

	r.stopTimer()
	r.phase = domain.PhaseWaiting
	r.quizReady = false
	r.theme = ""
	r.generating = false
	r.genSeq++
	r.rounds = nil
	r.current = 0
	r.answered = nil
	for _, p := range r.players {
		p.Ready = false
		p.Score = 0
	}
	r.log.Info("room reset for a new game")
	r.publish(domain.EventGameReset{RoomCode: r.code})
	r.broadcastState()
	r.broadcastScoreboard()
	return nil
}

// RequestState resends the full room state to one player. It changes nothing.
func (r *Room) RequestState(ctx context.Context, playerID string) error {
	var err error
	if doErr := r.do(ctx, func() { err = r.requestState(playerID) }); doErr != nil {
		return doErr
	}
	return err
}

func (r *Room) requestState(id string) error {
	sink, ok := r.sinks[id]
	if !ok {
		return domain.ErrPlayerNotFound
	}

	sink.Send(domain.Message{Type: domain.MsgPlayersState, Payload: r.snapshot()})
	switch r.phase {
	case domain.PhaseWaiting:
		switch {
		case r.generating:
			sink.Send(domain.Message{Type: domain.MsgGeneratingQuiz})
		case r.quizReady:
			sink.Send(domain.Message{Type: domain.MsgQuizReady})
		}
	case domain.PhaseStarting:
		sink.Send(domain.Message{Type: domain.MsgGameStarting})
	case domain.PhasePlaying:
		sink.Send(domain.Message{Type: domain.MsgRound, Payload: r.rounds[r.current-1].Payload()})
		sink.Send(domain.Message{Type: domain.MsgTimer, Payload: r.remaining})
	case domain.PhaseGameOver:
		sink.Send(domain.Message{Type: domain.MsgGameOver, Payload: domain.GameOverPayload{FinalScoreboard: Scoreboard(r.players)}})
	}
	sink.Send(domain.Message{Type: domain.MsgScoreboard, Payload: Scoreboard(r.players)})
	return nil
}

// Snapshot returns the current room view.
func (r *Room) Snapshot(ctx context.Context) (domain.RoomSnapshot, error) {
	var snap domain.RoomSnapshot
	if err := r.do(ctx, func() { snap = r.snapshot() }); err != nil {
		return domain.RoomSnapshot{}, err
	}
	return snap, nil
}

// Scoreboard returns the current standings.
func (r *Room) Scoreboard(ctx context.Context) ([]domain.ScoreEntry, error) {
	var board []domain.ScoreEntry
	if err := r.do(ctx, func() { board = Scoreboard(r.players) }); err != nil {
		return nil, err
	}
	return board, nil
}

// CloseIfEmpty tears the room down when it has no players. It reports whether the
// room is closed afterwards.
func (r *Room) CloseIfEmpty() bool {
	var closing bool
	err := r.do(context.Background(), func() {
		if len(r.players) == 0 {
			r.markClosing()
			closing = true
		}
	})
	if err != nil {
		return r.Closed()
	}
	if closing {
		<-r.done
	}
	return closing
}

// Close tears the room down regardless of players. Timers and pending generation stop.
func (r *Room) Close() {
	_ = r.do(context.Background(), r.markClosing)
	<-r.done
}

func (r *Room) markClosing() {
	r.closing = true
	r.closed.Store(true)
}

func (r *Room) shutdown() {
	r.stopTimer()
	if r.genCancel != nil {
		r.genCancel()
		r.genCancel = nil
	}
	r.generating = false
	r.publish(domain.EventRoomClosed{RoomCode: r.code})
	r.log.Info("room closed")
}

func (r *Room) snapshot() domain.RoomSnapshot {
	views := make([]domain.PlayerView, 0, len(r.players))
	for _, p := range r.players {
		views = append(views, domain.PlayerView{
			ID:        p.ID,
			Nickname:  p.Nickname,
			Ready:     p.Ready,
			Score:     p.Score,
			IsCreator: p.ID == r.creatorID,
		})
	}
	return domain.RoomSnapshot{
		RoomCode:    r.code,
		Phase:       r.phase,
		Players:     views,
		CreatorID:   r.creatorID,
		Theme:       r.theme,
		Generating:  r.generating,
		QuizReady:   r.quizReady,
		GameStarted: r.phase == domain.PhasePlaying,
		GameEnded:   r.phase == domain.PhaseGameOver,
	}
}

func (r *Room) player(id string) *domain.Player {
	if i := r.indexOf(id); i >= 0 {
		return r.players[i]
	}
	return nil
}

func (r *Room) indexOf(id string) int {
	for i, p := range r.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (r *Room) broadcast(typ string, payload any) {
	msg := domain.Message{Type: typ, Payload: payload}
	for _, p := range r.players {
		if sink, ok := r.sinks[p.ID]; ok {
			sink.Send(msg)
		}
	}
}

func (r *Room) sendTo(id, typ string, payload any) {
	if sink, ok := r.sinks[id]; ok {
		sink.Send(domain.Message{Type: typ, Payload: payload})
	}
}

func (r *Room) broadcastState() {
	r.broadcast(domain.MsgPlayersState, r.snapshot())
}

func (r *Room) broadcastScoreboard() {
	board := Scoreboard(r.players)
	r.broadcast(domain.MsgScoreboard, board)
	r.publish(domain.EventScoreboardUpdated{RoomCode: r.code, Scoreboard: board})
}

func (r *Room) publish(e event.Event) {
	r.pub.Publish(context.Background(), e)
}
