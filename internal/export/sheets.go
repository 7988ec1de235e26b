// Package export appends analysis digests to a Google Sheets spreadsheet
// so high-priority findings survive outside the app database.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"homebudget/internal/amqp"
)

type SheetsWriter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Options name the spreadsheet target and the service-account credentials
// used to reach it. Inline CredentialsJSON wins over CredentialsFile when
// both are set. SheetName defaults to "Alerts".
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

func NewSheetsWriter(ctx context.Context, opts Options) (*SheetsWriter, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(opts.SheetName)
	if sheetName == "" {
		sheetName = "Alerts"
	}

	credentialsJSON, err := loadCredentials(ctx, opts)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "sheet", sheetName)
	return &SheetsWriter{svc: svc, spreadsheetID: opts.SpreadsheetID, sheetName: sheetName}, nil
}

func loadCredentials(ctx context.Context, opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)

	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read service account credentials", "path", file, "size", len(data))
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendDigest writes one spreadsheet row per alert in the digest.
func (w *SheetsWriter) AppendDigest(ctx context.Context, msg *amqp.AlertDigestMessage) error {
	if w.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rows := make([][]any, 0, len(msg.Alerts))
	for _, a := range msg.Alerts {
		rows = append(rows, []any{
			msg.GeneratedAt.Format("2006-01-02 15:04:05"),
			a.Priority,
			a.Title,
			a.Timeline,
			a.ImpactEstimate,
			msg.HealthScore,
			msg.TotalIncome,
			msg.TotalExpenses,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	rng := fmt.Sprintf("%s!A:H", w.sheetName)
	vr := &gsheet.ValueRange{Values: rows}
	_, err := w.svc.Spreadsheets.Values.Append(w.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append digest rows to %s: %w", w.sheetName, err)
	}

	slog.InfoContext(ctx, "Digest appended to spreadsheet",
		"rows", len(rows),
		"sheet", w.sheetName)
	return nil
}
