package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/urawa-cup/tournament-admin/models"
	"github.com/urawa-cup/tournament-admin/schedule"
	"github.com/urawa-cup/tournament-admin/storage"
)

// csvHeader is the stable column order report consumers depend on.
var csvHeader = []string{"venue", "match_order", "kickoff", "home", "away", "score", "referee"}

// ExportService turns a classified final-day view into CSV and print
// artifacts. Both are read-only projections of the snapshot passed in; no
// refetch happens here.
type ExportService interface {
	BuildCSV(view *schedule.Classified) ([]byte, error)
	RenderPrint(view *schedule.Classified) []byte
	UploadCSV(ctx context.Context, tournamentID int, date time.Time, csvData []byte) (*storage.UploadResult, error)
}

type exportService struct {
	uploader storage.FileUploader
}

// NewExportService builds an export service. uploader may be nil, in which
// case UploadCSV reports uploads as disabled.
func NewExportService(uploader storage.FileUploader) ExportService {
	return &exportService{uploader: uploader}
}

func (s *exportService) BuildCSV(view *schedule.Classified) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, venue := range view.PlacementVenues {
		for _, m := range venue.Matches {
			if err := w.Write(csvRow(venue.VenueName, m)); err != nil {
				return nil, fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}
	for _, m := range view.KnockoutMatches {
		if err := w.Write(csvRow(view.KnockoutVenueName, m)); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func csvRow(venueName string, m *models.Match) []string {
	return []string{
		venueName,
		fmt.Sprintf("%d", m.MatchOrder),
		m.KickoffTime,
		m.Home.DisplayName,
		m.Away.DisplayName,
		scoreText(m),
		refereeText(m),
	}
}

func scoreText(m *models.Match) string {
	if m.HomeScore == nil || m.AwayScore == nil {
		return ""
	}
	return fmt.Sprintf("%d-%d", *m.HomeScore, *m.AwayScore)
}

func refereeText(m *models.Match) string {
	parts := make([]string, 0, 2)
	if m.RefereeMain != nil && *m.RefereeMain != "" {
		parts = append(parts, *m.RefereeMain)
	}
	if m.RefereeAsst != nil && *m.RefereeAsst != "" {
		parts = append(parts, *m.RefereeAsst)
	}
	return strings.Join(parts, " / ")
}

// RenderPrint produces the plain-text rendering used by the print view.
func (s *exportService) RenderPrint(view *schedule.Classified) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "Final Day Schedule - %s\n", view.Date.Format("2006-01-02"))
	b.WriteString(strings.Repeat("=", 60))
	b.WriteString("\n\n")

	for _, venue := range view.PlacementVenues {
		fmt.Fprintf(&b, "[%s]\n", venue.VenueName)
		for _, m := range venue.Matches {
			writePrintLine(&b, m)
		}
		b.WriteString("\n")
	}

	if len(view.KnockoutMatches) > 0 {
		fmt.Fprintf(&b, "[%s] Knockout\n", view.KnockoutVenueName)
		for _, m := range view.KnockoutMatches {
			writePrintLine(&b, m)
		}
	}

	return []byte(b.String())
}

func writePrintLine(b *strings.Builder, m *models.Match) {
	score := scoreText(m)
	if score == "" {
		score = "vs"
	}
	fmt.Fprintf(b, "  %2d. %s  %s %s %s\n", m.MatchOrder, m.KickoffTime, m.Home.DisplayName, score, m.Away.DisplayName)
}

func (s *exportService) UploadCSV(ctx context.Context, tournamentID int, date time.Time, csvData []byte) (*storage.UploadResult, error) {
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	key := fmt.Sprintf("reports/%d/final-day-%s.csv", tournamentID, date.Format("2006-01-02"))
	result, err := s.uploader.Upload(ctx, key, "text/csv", bytes.NewReader(csvData))
	if err != nil {
		return nil, fmt.Errorf("failed to upload schedule CSV: %w", err)
	}
	return result, nil
}
