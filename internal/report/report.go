package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"

	"github.com/flashflowhq/ingest/internal/domain"
)

// maxSummaryExamples caps how many example ids each error group retains, so
// the operator-facing summary stays bounded regardless of batch size.
const maxSummaryExamples = 3

// Build partitions a job's current outcomes into the reconciliation buckets.
// Pure projection: re-callable at any time, including on a partial job, and
// always re-derived from the outcome set. Validate-phase successes appear in
// the committed bucket with an empty entity id — they are what a commit pass
// would persist.
func Build(job *domain.Job, outcomes []domain.RowOutcome) *domain.ReconciliationReport {
	rep := &domain.ReconciliationReport{
		JobID:         job.ID,
		Status:        job.Status,
		CommittedRows: []domain.RowOutcome{},
		FailedRows:    []domain.RowOutcome{},
		DuplicateRows: []domain.RowOutcome{},
	}
	for _, o := range outcomes {
		switch o.State {
		case domain.OutcomeCommitted, domain.OutcomeValidated:
			rep.CommittedRows = append(rep.CommittedRows, o)
		case domain.OutcomeDuplicate:
			rep.DuplicateRows = append(rep.DuplicateRows, o)
		case domain.OutcomeFailed:
			rep.FailedRows = append(rep.FailedRows, o)
		}
	}
	rep.ErrorSummary = Summarize(outcomes)
	return rep
}

// Summarize groups failed outcomes by their coarse error type, ordered by
// descending count (ties by type name for a stable report), keeping a capped
// set of example external ids per group.
func Summarize(outcomes []domain.RowOutcome) []domain.ErrorGroup {
	byType := make(map[string]*domain.ErrorGroup)
	for _, o := range outcomes {
		if o.State != domain.OutcomeFailed {
			continue
		}
		g, ok := byType[o.ErrorType]
		if !ok {
			g = &domain.ErrorGroup{ErrorType: o.ErrorType}
			byType[o.ErrorType] = g
		}
		g.Count++
		if len(g.Examples) < maxSummaryExamples {
			g.Examples = append(g.Examples, exampleID(o))
		}
	}

	groups := make([]domain.ErrorGroup, 0, len(byType))
	for _, g := range byType {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].ErrorType < groups[j].ErrorType
	})
	return groups
}

func exampleID(o domain.RowOutcome) string {
	if o.ExternalID != "" {
		return o.ExternalID
	}
	return fmt.Sprintf("row %d", o.RowIndex)
}

// FailedRowsCSV renders the failed outcomes as a row-per-record CSV carrying
// the external id, the full error, and the normalized payload fields for the
// job's source, so an operator can fix and resubmit without re-deriving the
// original data. Nothing here is truncated.
func FailedRowsCSV(source domain.Source, outcomes []domain.RowOutcome) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := append([]string{"external_id", "error_type", "error"}, payloadColumns(source)...)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("csv export: write header: %w", err)
	}

	for _, o := range outcomes {
		if o.State != domain.OutcomeFailed {
			continue
		}
		rec := append([]string{o.ExternalID, o.ErrorType, o.Error}, payloadValues(source, o.Payload)...)
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("csv export: write row %d: %w", o.RowIndex, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv export: flush: %w", err)
	}
	return buf.Bytes(), nil
}

func payloadColumns(source domain.Source) []string {
	switch source {
	case domain.SourceTikTokURL:
		return []string{"url", "caption", "author"}
	case domain.SourceCSV:
		return []string{"title", "caption", "script", "hashtags"}
	default:
		return nil
	}
}

func payloadValues(source domain.Source, p *domain.CanonicalRecord) []string {
	switch source {
	case domain.SourceTikTokURL:
		if p == nil || p.TikTok == nil {
			return []string{"", "", ""}
		}
		return []string{p.TikTok.URL, p.TikTok.Caption, p.TikTok.Author}
	case domain.SourceCSV:
		if p == nil || p.CSV == nil {
			return []string{"", "", "", ""}
		}
		return []string{p.CSV.Title, p.CSV.Caption, p.CSV.Script, p.CSV.Hashtags}
	default:
		return nil
	}
}
