package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// RawRow is one untrusted input record before normalization. Fields is the
// ad-hoc column mapping from the source (CSV header -> cell, or the handful
// of keys a pasted URL submission carries). Raw shapes never travel past the
// normalizer boundary.
type RawRow struct {
	Index  int               `json:"index"`
	Fields map[string]string `json:"fields"`
}

// TikTokFields is the canonical shape of a record ingested from a TikTok URL.
type TikTokFields struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
	Author  string `json:"author,omitempty"`
}

// CSVFields is the canonical shape of a record ingested from a CSV upload.
type CSVFields struct {
	Title    string `json:"title,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Script   string `json:"script,omitempty"`
	Hashtags string `json:"hashtags,omitempty"`
}

// CanonicalRecord is the tagged union produced by the normalizer: exactly one
// variant pointer is set, matching Source. Free-text fields are already
// unicode- and whitespace-normalized so natural keys are stable.
type CanonicalRecord struct {
	Source     Source        `json:"source"`
	ExternalID string        `json:"external_id,omitempty"`
	TikTok     *TikTokFields `json:"tiktok,omitempty"`
	CSV        *CSVFields    `json:"csv,omitempty"`
}

// Anchor returns the content anchor used for the composite natural key when
// no external id is supplied: the normalized URL for TikTok records, the
// first non-empty free-text field for CSV records.
func (r *CanonicalRecord) Anchor() string {
	switch {
	case r.TikTok != nil:
		if r.TikTok.URL != "" {
			return r.TikTok.URL
		}
		return r.TikTok.Caption
	case r.CSV != nil:
		for _, s := range []string{r.CSV.Caption, r.CSV.Script, r.CSV.Title} {
			if s != "" {
				return s
			}
		}
	}
	return ""
}

// NaturalKey derives the key used to detect whether an equivalent entity
// already exists. Precedence: explicit external id, then a SHA-256 of the
// source plus the content anchor. The source is part of the key so records
// from different sources never collide.
func (r *CanonicalRecord) NaturalKey() string {
	if r.ExternalID != "" {
		return string(r.Source) + ":id:" + r.ExternalID
	}
	sum := sha256.Sum256([]byte(string(r.Source) + "\x00" + r.Anchor()))
	return string(r.Source) + ":sha:" + hex.EncodeToString(sum[:])
}
