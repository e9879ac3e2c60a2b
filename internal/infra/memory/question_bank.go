package memory

import (
	"context"
	_ "embed"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"quizroom-service/internal/domain"
)

//go:embed bank.yaml
var builtinBank []byte

// BuiltinQuestions parses the embedded question bank, keyed by theme.
func BuiltinQuestions() (map[string][]domain.Question, error) {
	var bank map[string][]domain.Question
	if err := yaml.Unmarshal(builtinBank, &bank); err != nil {
		return nil, fmt.Errorf("parse builtin bank: %w", err)
	}
	out := make(map[string][]domain.Question, len(bank))
	for theme, questions := range bank {
		for i, q := range questions {
			if err := q.Validate(); err != nil {
				return nil, fmt.Errorf("builtin bank %s #%d: %w", theme, i+1, err)
			}
		}
		out[domain.NormalizeTheme(theme)] = questions
	}
	return out, nil
}

// StaticQuizSource draws a random selection from a fixed themed bank (useful for tests/demos
// and as the default source).
type StaticQuizSource struct {
	bank  map[string][]domain.Question
	count int

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewStaticQuizSource(bank map[string][]domain.Question, count int) *StaticQuizSource {
	normalized := make(map[string][]domain.Question, len(bank))
	for theme, questions := range bank {
		normalized[domain.NormalizeTheme(theme)] = questions
	}
	return &StaticQuizSource{
		bank:  normalized,
		count: count,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewBuiltinQuizSource serves the embedded bank.
func NewBuiltinQuizSource(count int) (*StaticQuizSource, error) {
	bank, err := BuiltinQuestions()
	if err != nil {
		return nil, err
	}
	return NewStaticQuizSource(bank, count), nil
}

func (s *StaticQuizSource) Generate(ctx context.Context, theme string) ([]domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	questions, ok := s.bank[domain.NormalizeTheme(theme)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrThemeNotFound, theme)
	}

	picked := append([]domain.Question(nil), questions...)
	s.mu.Lock()
	s.rnd.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	s.mu.Unlock()
	if s.count > 0 && len(picked) > s.count {
		picked = picked[:s.count]
	}
	return picked, nil
}

// Themes lists the themes the bank can serve.
func (s *StaticQuizSource) Themes() []string {
	themes := make([]string, 0, len(s.bank))
	for theme := range s.bank {
		themes = append(themes, theme)
	}
	sort.Strings(themes)
	return themes
}
