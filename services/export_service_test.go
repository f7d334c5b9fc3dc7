package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/urawa-cup/tournament-admin/models"
	"github.com/urawa-cup/tournament-admin/schedule"
	"github.com/urawa-cup/tournament-admin/storage"
)

func exportView() *schedule.Classified {
	return &schedule.Classified{
		Date: time.Date(2027, 3, 28, 0, 0, 0, 0, time.UTC),
		PlacementVenues: []schedule.VenueSchedule{
			{
				VenueID:   2,
				VenueName: "North Pitch",
				Matches: []*models.Match{
					{
						MatchOrder:  1,
						KickoffTime: "10:00",
						Home:        models.TeamSlot{DisplayName: "Epsilon"},
						Away:        models.TeamSlot{DisplayName: "Zeta"},
						HomeScore:   intPtr(2),
						AwayScore:   intPtr(2),
						RefereeMain: strPtr("Sato"),
						RefereeAsst: strPtr("Tanaka"),
					},
					{
						MatchOrder:  2,
						KickoffTime: "10:50",
						Home:        models.TeamSlot{DisplayName: "Epsilon"},
						Away:        models.TeamSlot{DisplayName: "Theta"},
					},
				},
			},
		},
		KnockoutMatches: []*models.Match{
			{
				MatchOrder:  4,
				KickoffTime: "13:00",
				Home:        models.TeamSlot{DisplayName: "Winner SF1"},
				Away:        models.TeamSlot{DisplayName: "Winner SF2"},
				RefereeMain: strPtr("Suzuki"),
			},
		},
		KnockoutVenueName: "Komaba Stadium",
	}
}

func TestBuildCSVColumnOrder(t *testing.T) {
	svc := NewExportService(nil)

	data, err := svc.BuildCSV(exportView())
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("reading produced CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header + 3 rows, got %d records", len(records))
	}

	wantHeader := []string{"venue", "match_order", "kickoff", "home", "away", "score", "referee"}
	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Errorf("header column %d: got %q, want %q", i, records[0][i], col)
		}
	}

	wantFirst := []string{"North Pitch", "1", "10:00", "Epsilon", "Zeta", "2-2", "Sato / Tanaka"}
	for i, cell := range wantFirst {
		if records[1][i] != cell {
			t.Errorf("row 1 column %d: got %q, want %q", i, records[1][i], cell)
		}
	}

	// Unplayed match has empty score; single referee gets no separator.
	if records[2][5] != "" {
		t.Errorf("unplayed match score: got %q, want empty", records[2][5])
	}

	// Knockout rows come after placement rows and carry the knockout venue.
	last := records[3]
	if last[0] != "Komaba Stadium" || last[3] != "Winner SF1" || last[6] != "Suzuki" {
		t.Errorf("unexpected knockout row: %v", last)
	}
}

func TestBuildCSVEmptyView(t *testing.T) {
	svc := NewExportService(nil)
	data, err := svc.BuildCSV(&schedule.Classified{})
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("reading produced CSV: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected header only, got %d records", len(records))
	}
}

func TestRenderPrint(t *testing.T) {
	svc := NewExportService(nil)
	out := string(svc.RenderPrint(exportView()))

	for _, want := range []string{
		"2027-03-28",
		"[North Pitch]",
		"[Komaba Stadium] Knockout",
		"Epsilon 2-2 Zeta",
		"Epsilon vs Theta",
		"Winner SF1 vs Winner SF2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("print output missing %q\n%s", want, out)
		}
	}
}

type mockUploader struct {
	key         string
	contentType string
	body        []byte
	err         error
}

func (m *mockUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.key = key
	m.contentType = contentType
	m.body, _ = io.ReadAll(reader)
	return &storage.UploadResult{Key: key, Location: "https://cdn.example.com/" + key}, nil
}

func (m *mockUploader) Delete(ctx context.Context, key string) error { return nil }
func (m *mockUploader) GetPublicURL(key string) string               { return "https://cdn.example.com/" + key }

func TestUploadCSV(t *testing.T) {
	up := &mockUploader{}
	svc := NewExportService(up)

	date := time.Date(2027, 3, 28, 0, 0, 0, 0, time.UTC)
	result, err := svc.UploadCSV(context.Background(), 12, date, []byte("venue,match_order\n"))
	if err != nil {
		t.Fatalf("UploadCSV: %v", err)
	}
	if up.key != "reports/12/final-day-2027-03-28.csv" {
		t.Errorf("unexpected object key %q", up.key)
	}
	if up.contentType != "text/csv" {
		t.Errorf("unexpected content type %q", up.contentType)
	}
	if result.Location == "" {
		t.Error("expected a public location on the result")
	}
}

func TestUploadCSVDisabled(t *testing.T) {
	svc := NewExportService(nil)
	_, err := svc.UploadCSV(context.Background(), 12, time.Now(), []byte("x"))
	if !errors.Is(err, ErrUploadsDisabled) {
		t.Errorf("expected ErrUploadsDisabled, got %v", err)
	}
}
