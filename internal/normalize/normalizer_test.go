package normalize

import (
	"context"
	"errors"
	"testing"

	"github.com/flashflowhq/ingest/internal/domain"
)

// fakeResolver is a test double for the external metadata resolver.
type fakeResolver struct {
	fields map[string]string
	err    error
	calls  int
}

func (f *fakeResolver) Resolve(ctx context.Context, rawURL string) (map[string]string, error) {
	f.calls++
	return f.fields, f.err
}

func TestText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  hello   world  ", "hello world"},
		{"tabs\tand\nnewlines", "tabs and newlines"},
		{"already clean", "already clean"},
		{"", ""},
		// NFD e + combining acute must normalize to the NFC composed form
		{"cafe\u0301", "caf\u00e9"},
	}
	for _, tt := range tests {
		if got := Text(tt.in); got != tt.want {
			t.Errorf("Text(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTikTok_CanonicalURL(t *testing.T) {
	n := New(nil)
	raw := domain.RawRow{Index: 0, Fields: map[string]string{
		"url":     "https://WWW.TikTok.com/@creator/video/7312345678901234567/?is_from_webapp=1#frag",
		"caption": "  my   caption ",
		"author":  "creator",
	}}

	rec, rowErr, err := n.Normalize(context.Background(), domain.SourceTikTokURL, raw)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if rowErr != nil {
		t.Fatalf("unexpected row error: %v", rowErr)
	}
	if rec.TikTok == nil {
		t.Fatal("expected tiktok variant")
	}
	wantURL := "https://www.tiktok.com/@creator/video/7312345678901234567"
	if rec.TikTok.URL != wantURL {
		t.Errorf("URL = %q, want %q", rec.TikTok.URL, wantURL)
	}
	if rec.ExternalID != "7312345678901234567" {
		t.Errorf("ExternalID = %q, want video id from path", rec.ExternalID)
	}
	if rec.TikTok.Caption != "my caption" {
		t.Errorf("Caption = %q, want collapsed whitespace", rec.TikTok.Caption)
	}
}

func TestNormalizeTikTok_MissingURL(t *testing.T) {
	n := New(nil)
	raw := domain.RawRow{Index: 0, Fields: map[string]string{"caption": "no link here"}}

	_, rowErr, err := n.Normalize(context.Background(), domain.SourceTikTokURL, raw)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if rowErr == nil || rowErr.Type != domain.ErrTypeMissingRequiredField {
		t.Errorf("expected missing_required_field, got %+v", rowErr)
	}
}

func TestNormalizeTikTok_WrongHost(t *testing.T) {
	n := New(nil)
	raw := domain.RawRow{Index: 0, Fields: map[string]string{
		"url": "https://example.com/video/123",
	}}

	_, rowErr, err := n.Normalize(context.Background(), domain.SourceTikTokURL, raw)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if rowErr == nil || rowErr.Type != domain.ErrTypeMalformedField {
		t.Errorf("expected malformed_field, got %+v", rowErr)
	}
}

func TestNormalizeTikTok_ResolverEnrichment(t *testing.T) {
	resolver := &fakeResolver{fields: map[string]string{
		"caption": "resolved caption",
		"author":  "resolved author",
	}}
	n := New(resolver)

	raw := domain.RawRow{Index: 0, Fields: map[string]string{
		"url": "https://www.tiktok.com/@creator/video/123",
	}}
	rec, rowErr, err := n.Normalize(context.Background(), domain.SourceTikTokURL, raw)
	if err != nil || rowErr != nil {
		t.Fatalf("unexpected error: %v / %v", err, rowErr)
	}
	if resolver.calls != 1 {
		t.Errorf("resolver calls = %d, want 1", resolver.calls)
	}
	if rec.TikTok.Caption != "resolved caption" || rec.TikTok.Author != "resolved author" {
		t.Errorf("expected resolver-enriched fields, got %+v", rec.TikTok)
	}
}

func TestNormalizeTikTok_ResolverSkippedWhenFieldsPresent(t *testing.T) {
	resolver := &fakeResolver{fields: map[string]string{"caption": "should not be used"}}
	n := New(resolver)

	raw := domain.RawRow{Index: 0, Fields: map[string]string{
		"url":     "https://www.tiktok.com/@creator/video/123",
		"caption": "supplied",
	}}
	rec, rowErr, err := n.Normalize(context.Background(), domain.SourceTikTokURL, raw)
	if err != nil || rowErr != nil {
		t.Fatalf("unexpected error: %v / %v", err, rowErr)
	}
	if resolver.calls != 0 {
		t.Errorf("resolver calls = %d, want 0 when fields are supplied", resolver.calls)
	}
	if rec.TikTok.Caption != "supplied" {
		t.Errorf("Caption = %q, want supplied value", rec.TikTok.Caption)
	}
}

func TestNormalizeTikTok_ResolverRowError(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("video is private")}
	n := New(resolver)

	raw := domain.RawRow{Index: 0, Fields: map[string]string{
		"url": "https://www.tiktok.com/@creator/video/123",
	}}
	_, rowErr, err := n.Normalize(context.Background(), domain.SourceTikTokURL, raw)
	if err != nil {
		t.Fatalf("a single unresolvable row must not be fatal: %v", err)
	}
	if rowErr == nil || rowErr.Type != domain.ErrTypeResolverError {
		t.Errorf("expected resolver_error, got %+v", rowErr)
	}
}

func TestNormalizeTikTok_ResolverDown(t *testing.T) {
	resolver := &fakeResolver{err: domain.ErrResolverUnavailable}
	n := New(resolver)

	raw := domain.RawRow{Index: 0, Fields: map[string]string{
		"url": "https://www.tiktok.com/@creator/video/123",
	}}
	_, _, err := n.Normalize(context.Background(), domain.SourceTikTokURL, raw)
	if !errors.Is(err, domain.ErrResolverUnavailable) {
		t.Errorf("expected fatal ErrResolverUnavailable, got %v", err)
	}
}

func TestNormalizeCSV_Success(t *testing.T) {
	n := New(nil)
	raw := domain.RawRow{Index: 0, Fields: map[string]string{
		"title":    " Morning  Routine ",
		"script":   "wake up\nstretch",
		"hashtags": "#morning #routine",
	}}

	rec, rowErr, err := n.Normalize(context.Background(), domain.SourceCSV, raw)
	if err != nil || rowErr != nil {
		t.Fatalf("unexpected error: %v / %v", err, rowErr)
	}
	if rec.CSV == nil {
		t.Fatal("expected csv variant")
	}
	if rec.CSV.Title != "Morning Routine" {
		t.Errorf("Title = %q, want normalized", rec.CSV.Title)
	}
	if rec.CSV.Script != "wake up stretch" {
		t.Errorf("Script = %q, want collapsed whitespace", rec.CSV.Script)
	}
}

func TestNormalizeCSV_NoAnchor(t *testing.T) {
	n := New(nil)
	raw := domain.RawRow{Index: 0, Fields: map[string]string{
		"hashtags": "#only #tags",
	}}

	_, rowErr, err := n.Normalize(context.Background(), domain.SourceCSV, raw)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if rowErr == nil || rowErr.Type != domain.ErrTypeMissingRequiredField {
		t.Errorf("expected missing_required_field, got %+v", rowErr)
	}
}

func TestNormalize_UnsupportedSource(t *testing.T) {
	n := New(nil)
	raw := domain.RawRow{Index: 0, Fields: map[string]string{"url": "https://www.tiktok.com/@a/video/1"}}

	_, rowErr, err := n.Normalize(context.Background(), domain.Source("instagram"), raw)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if rowErr == nil || rowErr.Type != domain.ErrTypeUnsupportedSource {
		t.Errorf("expected unsupported_source, got %+v", rowErr)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	n := New(nil)
	raw := domain.RawRow{Index: 3, Fields: map[string]string{
		"url":     "https://www.tiktok.com/@creator/video/999?utm_source=x",
		"caption": "same  caption",
	}}

	first, _, _ := n.Normalize(context.Background(), domain.SourceTikTokURL, raw)
	second, _, _ := n.Normalize(context.Background(), domain.SourceTikTokURL, raw)
	if first.NaturalKey() != second.NaturalKey() {
		t.Error("same input must always derive the same natural key")
	}
}
