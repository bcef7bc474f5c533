package normalize

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/flashflowhq/ingest/internal/domain"
)

// Resolver fetches raw metadata fields for a bare video URL (title, caption,
// author). It is implemented outside the ingestion core and may fail or be
// slow; it is the only network call the normalization step ever makes.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (map[string]string, error)
}

// Normalizer converts one raw input record into a canonical candidate record
// or a row-level validation error. Given the same raw fields (and resolver
// responses) it always produces the same record, so validate-only passes are
// cheap to re-run.
type Normalizer struct {
	resolver Resolver
}

// New creates a Normalizer. resolver may be nil, in which case bare URLs are
// ingested with whatever fields the caller supplied.
func New(resolver Resolver) *Normalizer {
	return &Normalizer{resolver: resolver}
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Text applies the canonical free-text normalization: unicode NFC, collapsed
// whitespace, trimmed. Dedup keys are computed over this form, so it must
// stay stable across releases.
func Text(s string) string {
	s = norm.NFC.String(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Normalize maps one raw row into the canonical record variant for the job's
// source. rowErr is a recoverable per-row failure; err is fatal for the whole
// batch (resolver down).
func (n *Normalizer) Normalize(ctx context.Context, source domain.Source, raw domain.RawRow) (rec *domain.CanonicalRecord, rowErr *domain.RowError, err error) {
	switch source {
	case domain.SourceTikTokURL:
		return n.normalizeTikTok(ctx, raw)
	case domain.SourceCSV:
		rec, rowErr = normalizeCSV(raw)
		return rec, rowErr, nil
	default:
		return nil, &domain.RowError{
			Type: domain.ErrTypeUnsupportedSource,
			Msg:  fmt.Sprintf("unsupported source type %q", source),
		}, nil
	}
}

func (n *Normalizer) normalizeTikTok(ctx context.Context, raw domain.RawRow) (*domain.CanonicalRecord, *domain.RowError, error) {
	rawURL := firstField(raw.Fields, "url", "tiktok_url", "link", "posted_url")
	if rawURL == "" {
		return nil, &domain.RowError{
			Type: domain.ErrTypeMissingRequiredField,
			Msg:  "row has no video URL",
		}, nil
	}

	cleanURL, videoID, ok := canonicalTikTokURL(rawURL)
	if !ok {
		return nil, &domain.RowError{
			Type: domain.ErrTypeMalformedField,
			Msg:  fmt.Sprintf("not a valid TikTok URL: %q", rawURL),
		}, nil
	}

	fields := raw.Fields
	caption := Text(firstField(fields, "caption", "description", "title"))
	author := Text(firstField(fields, "author", "account", "creator"))

	// Enrich bare URLs through the external resolver when nothing but the
	// link was supplied.
	if caption == "" && author == "" && n.resolver != nil {
		resolved, err := n.resolver.Resolve(ctx, cleanURL)
		if err != nil {
			if isUnavailable(err) {
				return nil, nil, fmt.Errorf("resolve %s: %w", cleanURL, err)
			}
			return nil, &domain.RowError{
				Type: domain.ErrTypeResolverError,
				Msg:  fmt.Sprintf("resolver failed for %s: %v", cleanURL, err),
			}, nil
		}
		caption = Text(firstField(resolved, "caption", "description", "title"))
		author = Text(firstField(resolved, "author", "account", "creator"))
	}

	externalID := strings.TrimSpace(firstField(fields, "external_id", "video_id", "id"))
	if externalID == "" {
		externalID = videoID
	}

	return &domain.CanonicalRecord{
		Source:     domain.SourceTikTokURL,
		ExternalID: externalID,
		TikTok: &domain.TikTokFields{
			URL:     cleanURL,
			Caption: caption,
			Author:  author,
		},
	}, nil, nil
}

func normalizeCSV(raw domain.RawRow) (*domain.CanonicalRecord, *domain.RowError) {
	fields := raw.Fields

	rec := &domain.CanonicalRecord{
		Source:     domain.SourceCSV,
		ExternalID: strings.TrimSpace(firstField(fields, "external_id", "id")),
		CSV: &domain.CSVFields{
			Title:    Text(firstField(fields, "title", "name")),
			Caption:  Text(firstField(fields, "caption", "description")),
			Script:   Text(firstField(fields, "script", "script_text", "body")),
			Hashtags: Text(firstField(fields, "hashtags", "tags")),
		},
	}

	// At least one content anchor must survive normalization.
	if rec.ExternalID == "" && rec.CSV.Title == "" && rec.CSV.Caption == "" && rec.CSV.Script == "" {
		return nil, &domain.RowError{
			Type: domain.ErrTypeMissingRequiredField,
			Msg:  "row has no content anchor (external_id, title, caption or script)",
		}
	}
	return rec, nil
}

var tiktokVideoIDRe = regexp.MustCompile(`/video/(\d+)`)

// canonicalTikTokURL parses and canonicalizes a TikTok video URL: lowercase
// host, stripped query and fragment, no trailing slash. Returns the embedded
// numeric video id when the path carries one.
func canonicalTikTokURL(raw string) (cleanURL, videoID string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", "", false
	}
	host := strings.ToLower(u.Host)
	if !strings.HasSuffix(host, "tiktok.com") {
		return "", "", false
	}

	u.Host = host
	u.Scheme = "https"
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")

	if m := tiktokVideoIDRe.FindStringSubmatch(u.Path); m != nil {
		videoID = m[1]
	}
	return u.String(), videoID, true
}

func firstField(fields map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := fields[k]; ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// isUnavailable distinguishes "resolver is down for the whole batch" from a
// single row the resolver could not handle.
func isUnavailable(err error) bool {
	return errors.Is(err, domain.ErrResolverUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
