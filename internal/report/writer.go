package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/stablewatch/velocity-monitor/internal/tracker"
)

// Writer publishes each report cycle to the output directory: a JSON summary
// that is overwritten every cycle, an append-only CSV history, and a dated
// HTML report with an optional PDF rendition.
type Writer struct {
	dir string
	// tokens fixes the CSV column layout. Rows are always shaped by this
	// list, never by whichever tokens a cycle happened to fetch.
	tokens []string
	pdf    bool
	logger *slog.Logger
}

func NewWriter(dir string, tokens []string, pdf bool, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, tokens: tokens, pdf: pdf, logger: logger}
}

// Publish writes all output formats for one report. A failure on any of the
// data files is returned to the caller; a failed PDF capture is only logged
// since the HTML it derives from is already on disk.
func (w *Writer) Publish(ctx context.Context, r *tracker.Report, history map[string][]SeriesPoint) error {
	dataDir := filepath.Join(w.dir, "data")
	reportDir := filepath.Join(w.dir, "reports")
	for _, d := range []string{dataDir, reportDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	jsonBytes, err := RenderJSON(r)
	if err != nil {
		return err
	}
	summaryPath := filepath.Join(dataDir, "velocity_summary.json")
	if err := os.WriteFile(summaryPath, jsonBytes, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if err := w.appendCSV(filepath.Join(dataDir, "velocity_history.csv"), r); err != nil {
		return err
	}

	htmlBytes, err := RenderHTML(r, history)
	if err != nil {
		return err
	}
	name := "velocity_report_" + r.GeneratedAt.Format("2006-01-02")
	htmlPath := filepath.Join(reportDir, name+".html")
	if err := os.WriteFile(htmlPath, htmlBytes, 0o644); err != nil {
		return fmt.Errorf("write html report: %w", err)
	}

	w.logger.Info("report published",
		"cycle_id", r.CycleID,
		"summary", summaryPath,
		"html", htmlPath)

	if w.pdf {
		abs, err := filepath.Abs(htmlPath)
		if err == nil {
			var pdfBytes []byte
			pdfBytes, err = CapturePDF(ctx, abs)
			if err == nil {
				err = os.WriteFile(filepath.Join(reportDir, name+".pdf"), pdfBytes, 0o644)
			}
		}
		if err != nil {
			w.logger.Warn("pdf capture failed", "report", htmlPath, "error", err)
		}
	}
	return nil
}

// appendCSV appends one row to the history log, writing the header first when
// the file does not exist yet.
func (w *Writer) appendCSV(path string, r *tracker.Report) error {
	_, statErr := os.Stat(path)
	newFile := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history csv: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if newFile {
		if err := cw.Write(CSVHeader(w.tokens)); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}
	if err := cw.Write(CSVRow(r, w.tokens)); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
