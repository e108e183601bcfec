// package formatter renders the download history as CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/vyra/internal/models"
	"github.com/desertthunder/vyra/internal/shared"
)

// Format names accepted by [Export].
const (
	FormatText     = "text"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

const timeLayout = "2006-01-02 15:04"

// ExportToCSV converts downloads to CSV with columns: ID, Track, Title, Artist, Quality, Source, Bytes, Path, Downloaded
func ExportToCSV(downloads []*models.Download) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Track", "Title", "Artist", "Quality", "Source", "Bytes", "Path", "Downloaded"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, d := range downloads {
		record := []string{
			d.ID(),
			d.TrackID(),
			d.Title(),
			d.Artist(),
			d.Quality(),
			d.Source(),
			strconv.FormatInt(d.SizeBytes(), 10),
			d.Path(),
			d.CreatedAt().UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts downloads to a Markdown document with a summary and a table
func ExportToMarkdown(downloads []*models.Download) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Downloads\n\n")
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", len(downloads)))
	buf.WriteString(fmt.Sprintf("**Total size**: %s\n\n", FormatBytes(totalBytes(downloads))))

	if len(downloads) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Artist | Title | Quality | Size | Downloaded |\n")
	buf.WriteString("|---|--------|-------|---------|------|------------|\n")
	for i, d := range downloads {
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s |\n",
			i+1,
			escapeCell(d.Artist()),
			escapeCell(d.Title()),
			d.Quality(),
			FormatBytes(d.SizeBytes()),
			d.CreatedAt().Format(timeLayout),
		))
	}

	return buf.Bytes(), nil
}

// ExportToText converts downloads to plain text, one line per track
func ExportToText(downloads []*models.Download) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Downloads: %d (%s)\n\n", len(downloads), FormatBytes(totalBytes(downloads))))

	for i, d := range downloads {
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s, %s]\n", i+1, d.Artist(), d.Title(), d.Quality(), FormatBytes(d.SizeBytes())))
		buf.WriteString(fmt.Sprintf("   %s\n", d.Path()))
	}

	return buf.Bytes(), nil
}

// Export renders downloads in the named format.
func Export(downloads []*models.Download, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatText, "txt":
		return ExportToText(downloads)
	case FormatCSV:
		return ExportToCSV(downloads)
	case FormatMarkdown, "md":
		return ExportToMarkdown(downloads)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want text, csv or markdown)", shared.ErrInvalidFlag, format)
	}
}

// WriteExport renders downloads in the named format and writes them to path.
func WriteExport(downloads []*models.Download, format, path string) error {
	data, err := Export(downloads, format)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}

	return nil
}

// FormatBytes renders n with a binary unit suffix, e.g. "3.4 MiB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func totalBytes(downloads []*models.Download) int64 {
	var total int64
	for _, d := range downloads {
		total += d.SizeBytes()
	}
	return total
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
