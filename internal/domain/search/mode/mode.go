package mode

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/kailas-cloud/kfsearch/internal/domain"
)

// Mode is the retrieval path requested by the client.
type Mode string

// Search mode constants.
const (
	// DenseCaption ranks by embedding similarity fused with caption BM25.
	DenseCaption   Mode = "dense-caption"
	DenseNoCaption Mode = "dense-nocap"
	OCR            Mode = "ocr"
	Speech         Mode = "speech"
)

// Default is used when the request carries no mode.
const Default = DenseCaption

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == DenseCaption || m == DenseNoCaption || m == OCR || m == Speech
}

// IsKeyword reports whether the mode yields unscored, backend-ordered hits.
func (m Mode) IsKeyword() bool {
	return m == OCR || m == Speech
}

// Parse converts a client mode string. Empty input yields Default.
func Parse(s string) (Mode, error) {
	if s == "" {
		return Default, nil
	}
	m := Mode(s)
	if !m.IsValid() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownMode, s)
	}
	return m, nil
}

// State is the dispatch decision taken once per request.
type State int

// Dispatch states.
const (
	Empty State = iota
	DenseWithCaption
	DenseWithoutCaption
	KeywordOCR
	KeywordSpeech
)

var stateNames = [...]string{"empty", "dense_with_caption", "dense_no_caption", "keyword_ocr", "keyword_speech"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Resolve picks the dispatch state for a validated mode and query.
// A query with no letters or digits cannot match anything and resolves to Empty.
func Resolve(m Mode, query string) State {
	if !searchable(query) {
		return Empty
	}
	switch m {
	case DenseCaption:
		return DenseWithCaption
	case DenseNoCaption:
		return DenseWithoutCaption
	case OCR:
		return KeywordOCR
	case Speech:
		return KeywordSpeech
	default:
		return Empty
	}
}

func searchable(q string) bool {
	return strings.IndexFunc(q, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
