package search

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/kfsearch/internal/domain"
	"github.com/kailas-cloud/kfsearch/internal/domain/search/mode"
)

func TestSourcesDenseFor(t *testing.T) {
	siglip := &mockDense{name: "siglip"}
	apple := &mockDense{name: "apple"}
	s := &Sources{
		Dense:        map[string]DenseSource{"siglip": siglip, "apple": apple},
		CaptionModel: "siglip",
		NoCapModel:   "apple",
	}

	src, err := s.DenseFor(mode.DenseWithCaption, "")
	if err != nil || src.Name() != "siglip" {
		t.Errorf("caption default: got %v, %v", src, err)
	}
	src, err = s.DenseFor(mode.DenseWithoutCaption, "")
	if err != nil || src.Name() != "apple" {
		t.Errorf("nocap default: got %v, %v", src, err)
	}
	src, err = s.DenseFor(mode.DenseWithCaption, "apple")
	if err != nil || src.Name() != "apple" {
		t.Errorf("explicit model: got %v, %v", src, err)
	}

	if _, err := s.DenseFor(mode.DenseWithCaption, "clip"); !errors.Is(err, domain.ErrUnknownModel) {
		t.Errorf("expected ErrUnknownModel, got %v", err)
	}
	if _, err := s.DenseFor(mode.KeywordOCR, ""); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestSourcesDenseFor_NotConfigured(t *testing.T) {
	s := &Sources{}
	if _, err := s.DenseFor(mode.DenseWithCaption, ""); !errors.Is(err, domain.ErrModeNotConfigured) {
		t.Errorf("expected ErrModeNotConfigured, got %v", err)
	}
}

func TestSourcesKeywordFor(t *testing.T) {
	s := &Sources{OCR: &mockKeyword{name: "ocr"}}

	src, err := s.KeywordFor(mode.KeywordOCR)
	if err != nil || src.Name() != "ocr" {
		t.Errorf("ocr: got %v, %v", src, err)
	}
	if _, err := s.KeywordFor(mode.KeywordSpeech); !errors.Is(err, domain.ErrModeNotConfigured) {
		t.Errorf("expected ErrModeNotConfigured, got %v", err)
	}
	if _, err := s.KeywordFor(mode.DenseWithCaption); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestSourcesModels(t *testing.T) {
	s := &Sources{Dense: map[string]DenseSource{"siglip": &mockDense{}, "apple": &mockDense{}, "openclip": &mockDense{}}}
	got := s.Models()
	want := []string{"apple", "openclip", "siglip"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
