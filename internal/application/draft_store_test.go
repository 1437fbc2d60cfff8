package application

import (
	"errors"
	"strings"
	"testing"

	"pagebot-core-console/internal/domain"

	"github.com/rs/zerolog"
)

func TestDraftStore_SetFieldAndGet(t *testing.T) {
	s := NewDraftStore(zerolog.Nop())

	if err := s.SetField("1", domain.FieldWebhookURL, "https://x"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := s.SetField("1", domain.FieldLocation, "NYC"); err != nil {
		t.Fatalf("SetField: %v", err)
	}

	d, ok := s.Get("1")
	if !ok {
		t.Fatal("expected a draft for page 1")
	}
	if d.WebhookURL != "https://x" || d.Location != "NYC" {
		t.Errorf("draft = %+v", d)
	}
	if d.Revision != 2 {
		t.Errorf("Revision = %d, want 2", d.Revision)
	}
	if _, ok := s.Get("2"); ok {
		t.Error("page 2 should have no draft")
	}
}

func TestDraftStore_EmptyValueIsNoop(t *testing.T) {
	s := NewDraftStore(zerolog.Nop())
	_ = s.SetField("1", domain.FieldWebhookURL, "https://x")

	if err := s.SetField("1", domain.FieldWebhookURL, ""); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	d, _ := s.Get("1")
	if d.WebhookURL != "https://x" {
		t.Errorf("WebhookURL = %q, empty input must not clear it", d.WebhookURL)
	}
	if d.Revision != 1 {
		t.Errorf("Revision = %d, a no-op must not bump it", d.Revision)
	}

	if err := s.SetField("2", domain.FieldField, ""); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if _, ok := s.Get("2"); ok {
		t.Error("an empty first edit must not create a draft")
	}
}

func TestDraftStore_LastWriteWinsPerField(t *testing.T) {
	s := NewDraftStore(zerolog.Nop())
	_ = s.SetField("1", domain.FieldField, "shoes")
	_ = s.SetField("1", domain.FieldShopLink, "https://y")
	_ = s.SetField("1", domain.FieldField, "hats")

	d, _ := s.Get("1")
	if d.Field != "hats" || d.ShopLink != "https://y" {
		t.Errorf("draft = %+v", d)
	}
}

func TestDraftStore_Rejects(t *testing.T) {
	s := NewDraftStore(zerolog.Nop())

	if err := s.SetField("1", domain.Field("color"), "red"); !errors.Is(err, domain.ErrInvalidField) {
		t.Errorf("unknown field err = %v, want InvalidField", err)
	}
	if err := s.SetField("", domain.FieldField, "x"); !errors.Is(err, domain.ErrUnknownPage) {
		t.Errorf("empty page err = %v, want UnknownPage", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestDraftStore_Normalizer(t *testing.T) {
	s := NewDraftStore(zerolog.Nop()).
		WithNormalizer(domain.FieldShopLink, strings.ToLower).
		WithNormalizer(domain.FieldField, func(string) string { return "" })

	_ = s.SetField("1", domain.FieldShopLink, "HTTPS://Y")
	_ = s.SetField("1", domain.FieldField, "Shoes")

	d, _ := s.Get("1")
	if d.ShopLink != "https://y" {
		t.Errorf("ShopLink = %q, want normalized", d.ShopLink)
	}
	if d.Field != "Shoes" {
		t.Errorf("Field = %q, an empty normalization keeps the input", d.Field)
	}
}

func TestDraftStore_ClearIfRevision(t *testing.T) {
	s := NewDraftStore(zerolog.Nop())
	_ = s.SetField("1", domain.FieldField, "shoes")
	d, _ := s.Get("1")

	_ = s.SetField("1", domain.FieldLocation, "NYC")
	if s.ClearIfRevision("1", d.Revision) {
		t.Fatal("a newer edit must keep the draft")
	}
	if _, ok := s.Get("1"); !ok {
		t.Fatal("draft should still exist")
	}

	d, _ = s.Get("1")
	if !s.ClearIfRevision("1", d.Revision) {
		t.Fatal("matching revision should clear")
	}
	if _, ok := s.Get("1"); ok {
		t.Fatal("draft should be gone")
	}
	if !s.ClearIfRevision("1", 42) {
		t.Error("clearing a missing draft reports true")
	}
}

func TestDraftStore_ClearAndReset(t *testing.T) {
	s := NewDraftStore(zerolog.Nop())
	_ = s.SetField("1", domain.FieldField, "a")
	_ = s.SetField("2", domain.FieldField, "b")

	s.Clear("1")
	if _, ok := s.Get("1"); ok {
		t.Error("Clear should drop page 1")
	}
	s.Reset()
	if s.Len() != 0 {
		t.Errorf("Len after Reset = %d", s.Len())
	}
}
