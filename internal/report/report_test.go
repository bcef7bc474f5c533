package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/flashflowhq/ingest/internal/domain"
)

func TestBuild_Partitions(t *testing.T) {
	job := &domain.Job{ID: uuid.New(), Status: domain.StatusPartial}
	outcomes := []domain.RowOutcome{
		{RowIndex: 0, State: domain.OutcomeCommitted},
		{RowIndex: 1, State: domain.OutcomeValidated},
		{RowIndex: 2, State: domain.OutcomeDuplicate},
		{RowIndex: 3, State: domain.OutcomeFailed, ErrorType: domain.ErrTypeMalformedField},
		{RowIndex: 4, State: domain.OutcomeFailed, ErrorType: domain.ErrTypeMalformedField},
	}

	rep := Build(job, outcomes)

	if rep.JobID != job.ID || rep.Status != domain.StatusPartial {
		t.Errorf("report header = %s/%s, want job's id and status", rep.JobID, rep.Status)
	}
	// Validated rows count as committable successes and share the bucket.
	if len(rep.CommittedRows) != 2 {
		t.Errorf("committed bucket = %d rows, want 2", len(rep.CommittedRows))
	}
	if len(rep.DuplicateRows) != 1 {
		t.Errorf("duplicate bucket = %d rows, want 1", len(rep.DuplicateRows))
	}
	if len(rep.FailedRows) != 2 {
		t.Errorf("failed bucket = %d rows, want 2", len(rep.FailedRows))
	}

	total := len(rep.CommittedRows) + len(rep.DuplicateRows) + len(rep.FailedRows)
	if total != len(outcomes) {
		t.Errorf("buckets hold %d rows, want every one of the %d outcomes", total, len(outcomes))
	}
}

func TestBuild_EmptyOutcomes(t *testing.T) {
	job := &domain.Job{ID: uuid.New(), Status: domain.StatusPending}
	rep := Build(job, nil)

	if rep.CommittedRows == nil || rep.FailedRows == nil || rep.DuplicateRows == nil {
		t.Error("buckets must be empty slices, not nil, so they serialize as []")
	}
	if len(rep.ErrorSummary) != 0 {
		t.Errorf("error summary = %d groups, want 0", len(rep.ErrorSummary))
	}
}

func TestSummarize_GroupsAndCaps(t *testing.T) {
	var outcomes []domain.RowOutcome
	for i := 0; i < 5; i++ {
		outcomes = append(outcomes, domain.RowOutcome{
			RowIndex:   i,
			ExternalID: fmt.Sprintf("vid-%d", i),
			State:      domain.OutcomeFailed,
			ErrorType:  domain.ErrTypeMalformedField,
		})
	}
	outcomes = append(outcomes,
		domain.RowOutcome{RowIndex: 5, State: domain.OutcomeFailed, ErrorType: domain.ErrTypeMissingRequiredField},
		domain.RowOutcome{RowIndex: 6, State: domain.OutcomeCommitted},
	)

	groups := Summarize(outcomes)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}

	// Largest group first.
	if groups[0].ErrorType != domain.ErrTypeMalformedField || groups[0].Count != 5 {
		t.Errorf("group 0 = %s/%d, want malformed_field/5", groups[0].ErrorType, groups[0].Count)
	}
	if len(groups[0].Examples) != 3 {
		t.Errorf("examples capped at 3, got %d", len(groups[0].Examples))
	}
	if groups[0].Examples[0] != "vid-0" {
		t.Errorf("example 0 = %q, want the external id", groups[0].Examples[0])
	}

	if groups[1].ErrorType != domain.ErrTypeMissingRequiredField || groups[1].Count != 1 {
		t.Errorf("group 1 = %s/%d, want missing_required_field/1", groups[1].ErrorType, groups[1].Count)
	}
	// No external id on row 5, so the example falls back to the row index.
	if groups[1].Examples[0] != "row 5" {
		t.Errorf("example = %q, want row-index fallback", groups[1].Examples[0])
	}
}

func TestSummarize_StableTieOrder(t *testing.T) {
	outcomes := []domain.RowOutcome{
		{RowIndex: 0, State: domain.OutcomeFailed, ErrorType: domain.ErrTypeResolverError},
		{RowIndex: 1, State: domain.OutcomeFailed, ErrorType: domain.ErrTypeMalformedField},
	}
	groups := Summarize(outcomes)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].ErrorType != domain.ErrTypeMalformedField {
		t.Errorf("equal counts must order by type name, got %s first", groups[0].ErrorType)
	}
}

func TestFailedRowsCSV(t *testing.T) {
	outcomes := []domain.RowOutcome{
		{
			RowIndex:   0,
			ExternalID: "123",
			State:      domain.OutcomeFailed,
			ErrorType:  domain.ErrTypeResolverError,
			Error:      "resolver failed for https://www.tiktok.com/@a/video/123: video is private",
			Payload: &domain.CanonicalRecord{
				Source:     domain.SourceTikTokURL,
				ExternalID: "123",
				TikTok: &domain.TikTokFields{
					URL:     "https://www.tiktok.com/@a/video/123",
					Caption: "cap, with comma",
					Author:  "auth",
				},
			},
		},
		{RowIndex: 1, State: domain.OutcomeCommitted},
		{RowIndex: 2, State: domain.OutcomeFailed, ErrorType: domain.ErrTypeMissingRequiredField, Error: "row has no video URL"},
	}

	data, err := FailedRowsCSV(domain.SourceTikTokURL, outcomes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("export is not valid CSV: %v", err)
	}

	// Header + the two failed rows; committed rows never appear.
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	wantHeader := []string{"external_id", "error_type", "error", "url", "caption", "author"}
	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}

	row := records[1]
	if row[0] != "123" || row[1] != domain.ErrTypeResolverError {
		t.Errorf("row 1 identity columns = %v", row[:2])
	}
	if row[2] != "resolver failed for https://www.tiktok.com/@a/video/123: video is private" {
		t.Errorf("error column truncated or mangled: %q", row[2])
	}
	if row[4] != "cap, with comma" {
		t.Errorf("caption with comma not preserved: %q", row[4])
	}

	// A row that failed normalization has no payload; columns stay empty.
	if records[2][3] != "" || records[2][4] != "" {
		t.Errorf("payload columns for unnormalized row must be empty: %v", records[2])
	}
}

func TestFailedRowsCSV_CSVSourceColumns(t *testing.T) {
	outcomes := []domain.RowOutcome{
		{
			RowIndex:  0,
			State:     domain.OutcomeFailed,
			ErrorType: domain.ErrTypePersistenceError,
			Error:     "constraint violation",
			Payload: &domain.CanonicalRecord{
				Source: domain.SourceCSV,
				CSV:    &domain.CSVFields{Title: "t", Caption: "c", Script: "s", Hashtags: "#h"},
			},
		},
	}

	data, err := FailedRowsCSV(domain.SourceCSV, outcomes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("export is not valid CSV: %v", err)
	}
	if got, want := len(records[0]), 7; got != want {
		t.Fatalf("csv source header has %d columns, want %d", got, want)
	}
	if records[1][3] != "t" || records[1][6] != "#h" {
		t.Errorf("payload columns = %v", records[1][3:])
	}
}
