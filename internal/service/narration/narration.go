// Package narration tells children a little about the object they built,
// as text from a language model or the catalog, and as speech.
package narration

import (
	"context"
	"errors"
	"math/rand/v2"

	"blockcam/internal/catalog"
	"blockcam/internal/logger"
)

// Narrator writes a short introduction of a subject.
type Narrator interface {
	Narrate(ctx context.Context, subject string) (string, error)
}

// Speaker turns text into WAV audio.
type Speaker interface {
	Speak(ctx context.Context, text string) ([]byte, error)
}

// Source tells where a narration came from.
const (
	SourceModel   = "model"
	SourceCatalog = "catalog"
)

type Narration struct {
	Category string `json:"category"`
	Text     string `json:"text"`
	Source   string `json:"source"`
}

// Service narrates categories, falling back to catalog facts whenever the
// model is missing or fails.
type Service struct {
	narrator Narrator
	speaker  Speaker
	rng      *rand.Rand
	logger   *logger.Logger
}

// NewService creates a Service. narrator and speaker may be nil.
func NewService(narrator Narrator, speaker Speaker, log *logger.Logger) *Service {
	return &Service{narrator: narrator, speaker: speaker, logger: log}
}

// Narrate describes cat.
func (s *Service) Narrate(ctx context.Context, cat *catalog.Category) (*Narration, error) {
	if s.narrator != nil {
		text, err := s.narrator.Narrate(ctx, subject(cat))
		if err == nil && text != "" {
			return &Narration{Category: cat.Label, Text: text, Source: SourceModel}, nil
		}
		if err != nil && !errors.Is(err, ErrNotConfigured) {
			s.logger.Warning("Narration for %s failed, using catalog facts: %v", cat.Label, err)
		}
	}

	fact, err := cat.RandomFact(s.rng)
	if err != nil {
		return nil, err
	}
	return &Narration{Category: cat.Label, Text: fact.Text, Source: SourceCatalog}, nil
}

// Speak narrates cat and renders it as WAV.
func (s *Service) Speak(ctx context.Context, cat *catalog.Category) ([]byte, *Narration, error) {
	if s.speaker == nil {
		return nil, nil, ErrNotConfigured
	}
	n, err := s.Narrate(ctx, cat)
	if err != nil {
		return nil, nil, err
	}
	wav, err := s.speaker.Speak(ctx, n.Text)
	if err != nil {
		return nil, nil, err
	}
	return wav, n, nil
}

func subject(cat *catalog.Category) string {
	if cat.Title != "" {
		return cat.Title
	}
	return cat.Label
}
