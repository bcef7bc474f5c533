package pipeline

import (
	"github.com/flashflowhq/ingest/internal/domain"
)

// RowsFromOutcomes rebuilds raw rows from stored outcomes so a retry pass can
// re-run the full pipeline without refetching the original source data. The
// normalizer runs again over the rebuilt fields: dedup targets may have
// changed since the prior attempt, and a row that now matches an interim
// commit must reclassify as duplicate rather than fail again.
//
// Rows whose normalization failed carry no payload; they are rebuilt from
// whatever identifying fields survive and will fail the same way until the
// operator fixes and resubmits them.
func RowsFromOutcomes(outcomes []domain.RowOutcome) []domain.RawRow {
	rows := make([]domain.RawRow, 0, len(outcomes))
	for i := range outcomes {
		o := &outcomes[i]
		fields := make(map[string]string)
		if o.ExternalID != "" {
			fields["external_id"] = o.ExternalID
		}
		if p := o.Payload; p != nil {
			switch {
			case p.TikTok != nil:
				fields["url"] = p.TikTok.URL
				fields["caption"] = p.TikTok.Caption
				fields["author"] = p.TikTok.Author
			case p.CSV != nil:
				fields["title"] = p.CSV.Title
				fields["caption"] = p.CSV.Caption
				fields["script"] = p.CSV.Script
				fields["hashtags"] = p.CSV.Hashtags
			}
			if p.ExternalID != "" {
				fields["external_id"] = p.ExternalID
			}
		}
		rows = append(rows, domain.RawRow{Index: o.RowIndex, Fields: fields})
	}
	return rows
}
