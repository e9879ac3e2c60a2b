package app

import (
	"context"
	"fmt"
	"time"

	"quizroom-service/internal/domain"
)

// buildRounds turns the first n questions into rounds. Sources must supply at least n.
func buildRounds(questions []domain.Question, n int) ([]domain.Round, error) {
	if len(questions) < n {
		return nil, fmt.Errorf("%w: got %d, need %d", domain.ErrNotEnoughQuestions, len(questions), n)
	}
	rounds := make([]domain.Round, 0, n)
	for i, q := range questions[:n] {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		rounds = append(rounds, domain.Round{
			Index:         i + 1,
			Total:         n,
			Question:      q.Text,
			Options:       append([]string(nil), q.Options...),
			CorrectAnswer: domain.AnswerLabel(q.Answer),
		})
	}
	return rounds, nil
}

func (r *Room) startGame() {
	r.phase = domain.PhaseStarting
	r.log.Info("game starting", "theme", r.theme, "players", len(r.players))
	r.broadcast(domain.MsgGameStarting, nil)
	r.broadcastState()
	r.publish(domain.EventGameStarted{RoomCode: r.code, Theme: r.theme, Players: len(r.players)})
	r.schedule(r.cfg.StartGrace, r.beginPlaying)
}

func (r *Room) beginPlaying() {
	r.phase = domain.PhasePlaying
	r.broadcastState()
	r.startRound(1)
}

func (r *Room) startRound(index int) {
	r.current = index
	r.answered = make(map[string]bool, len(r.players))
	r.roundStart = r.clock.Now()
	r.remaining = r.cfg.roundSeconds()

	r.broadcast(domain.MsgRound, r.rounds[index-1].Payload())
	r.broadcast(domain.MsgTimer, r.remaining)
	r.schedule(time.Second, r.tick)
}

func (r *Room) tick() {
	r.remaining--
	r.broadcast(domain.MsgTimer, r.remaining)
	if r.remaining <= 0 {
		r.endRound()
		return
	}
	r.schedule(time.Second, r.tick)
}

// endRound closes the current round, either on timeout or once everyone has answered.
func (r *Room) endRound() {
	r.stopTimer()
	r.answered = nil
	if r.current >= len(r.rounds) {
		r.finishGame()
		return
	}
	r.startRound(r.current + 1)
}

func (r *Room) finishGame() {
	r.phase = domain.PhaseGameOver
	final := Scoreboard(r.players)
	r.log.Info("game over", "rounds", len(r.rounds))
	r.broadcast(domain.MsgGameOver, domain.GameOverPayload{FinalScoreboard: final})
	r.broadcastState()
	r.publish(domain.EventGameOver{RoomCode: r.code, FinalScoreboard: final})
}

// Guess scores one answer for the current round. A repeated guess is reported with
// Already set and never scores again.
func (r *Room) Guess(ctx context.Context, playerID, answer string) (domain.GuessResult, error) {
	label := domain.AnswerLabel(answer)
	if label == "" {
		return domain.GuessResult{}, domain.ErrAnswerRequired
	}

	var (
		res domain.GuessResult
		err error
	)
	if doErr := r.do(ctx, func() { res, err = r.guess(playerID, label) }); doErr != nil {
		return domain.GuessResult{}, doErr
	}
	return res, err
}

func (r *Room) guess(id, label string) (domain.GuessResult, error) {
	p := r.player(id)
	if p == nil {
		return domain.GuessResult{}, domain.ErrPlayerNotFound
	}
	if r.phase != domain.PhasePlaying || r.answered == nil {
		return domain.GuessResult{}, domain.ErrNotPlaying
	}

	if correct, ok := r.answered[id]; ok {
		res := domain.GuessResult{Correct: correct, Already: true}
		r.sendTo(id, domain.MsgGuessResult, res)
		return res, nil
	}

	elapsed := ElapsedSeconds(r.clock.Now().Sub(r.roundStart))
	res := domain.GuessResult{
		Correct:        label == r.rounds[r.current-1].CorrectAnswer,
		ElapsedSeconds: elapsed,
	}
	if res.Correct {
		res.Points = r.cfg.Scoring.Points(elapsed)
		p.Score += res.Points
	}
	r.answered[id] = res.Correct

	r.sendTo(id, domain.MsgGuessResult, res)
	r.broadcastScoreboard()
	r.publish(domain.EventGuessScored{RoomCode: r.code, PlayerID: id, Correct: res.Correct, Points: res.Points})

	if r.allAnswered() {
		r.endRound()
	}
	return res, nil
}

func (r *Room) allAnswered() bool {
	if r.answered == nil || len(r.players) == 0 {
		return false
	}
	for _, p := range r.players {
		if _, ok := r.answered[p.ID]; !ok {
			return false
		}
	}
	return true
}

// schedule replaces the pending timer. Callbacks from a replaced timer are ignored.
func (r *Room) schedule(d time.Duration, fn func()) {
	r.stopTimer()
	epoch := r.epoch
	r.timer = r.clock.AfterFunc(d, func() {
		r.post(func() {
			if epoch != r.epoch {
				return
			}
			r.timer = nil
			fn()
		})
	})
}

func (r *Room) stopTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.epoch++
}
