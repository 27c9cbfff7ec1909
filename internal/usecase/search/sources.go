package search

import (
	"fmt"
	"slices"

	"github.com/kailas-cloud/kfsearch/internal/domain"
	"github.com/kailas-cloud/kfsearch/internal/domain/search/mode"
)

// Sources is the set of candidate sources built once at startup and read-only afterwards.
type Sources struct {
	// Dense maps model names to embedding collections.
	Dense map[string]DenseSource
	// CaptionModel and NoCapModel are the default models of the two dense modes.
	CaptionModel string
	NoCapModel   string
	OCR          KeywordSource
	Speech       KeywordSource
}

// DenseFor returns the dense source for a state. An empty model selects the state's default.
func (s *Sources) DenseFor(st mode.State, model string) (DenseSource, error) {
	if model == "" {
		switch st {
		case mode.DenseWithCaption:
			model = s.CaptionModel
		case mode.DenseWithoutCaption:
			model = s.NoCapModel
		default:
			return nil, fmt.Errorf("%w: %s is not a dense state", domain.ErrInvalidRequest, st)
		}
		if model == "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrModeNotConfigured, st)
		}
	}
	src, ok := s.Dense[model]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownModel, model)
	}
	return src, nil
}

// KeywordFor returns the keyword source for a state.
func (s *Sources) KeywordFor(st mode.State) (KeywordSource, error) {
	var src KeywordSource
	switch st {
	case mode.KeywordOCR:
		src = s.OCR
	case mode.KeywordSpeech:
		src = s.Speech
	default:
		return nil, fmt.Errorf("%w: %s is not a keyword state", domain.ErrInvalidRequest, st)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrModeNotConfigured, st)
	}
	return src, nil
}

// Models lists the configured dense model names, sorted.
func (s *Sources) Models() []string {
	names := make([]string, 0, len(s.Dense))
	for n := range s.Dense {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
