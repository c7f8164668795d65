package tables

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/greatvovan/ios-backup-browser/internal/metadata"
	"github.com/greatvovan/ios-backup-browser/pkg/models"
)

// The rich renderer is presentation only: every listing has a plain
// fallback, and piping output to a file or another tool always gets the
// plain form.
var isTTY = func() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

// RecordSource is a single-pass sequence of records to render.
type RecordSource interface {
	Next() bool
	Record() models.Record
	Err() error
}

// PrintList prints one item per line.
func PrintList(items []string) {
	for _, item := range items {
		fmt.Println(item)
	}
}

// PrintSummary prints name/value pairs aligned in two columns.
func PrintSummary(props []metadata.Property) {
	for _, p := range props {
		fmt.Printf("%-25s%s\n", p.Name, p.Value)
	}
}

// PrintApps prints the installed application table, sorted by name.
func PrintApps(apps []metadata.App) {
	sorted := make([]metadata.App, len(apps))
	copy(sorted, apps)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].BundleID < sorted[j].BundleID
	})

	if isTTY() {
		t := newTable("NAME", "TITLE", "VERSION", "TYPE", "BUNDLE ID")
		for _, app := range sorted {
			t.Row(app.Name, app.Title, app.Version, app.Genre, app.BundleID)
		}
		fmt.Println(t)
		return
	}
	for _, app := range sorted {
		fmt.Printf("%-39.39s %-19.19s %s\n", app.Name, app.Title, app.BundleID)
	}
}

// PrintFiles renders the file listing, draining the source. Rows appear in
// source order.
func PrintFiles(records RecordSource) error {
	if isTTY() {
		t := newTable("T", "MODIFIED", "SIZE", "DOMAIN", "NAMESPACE", "PATH")
		for records.Next() {
			rec := records.Record()
			t.Row(kindLetter(rec.Kind), modifiedCell(rec), sizeCell(rec), rec.Domain, rec.Namespace, rec.RelativePath)
		}
		fmt.Println(t)
	} else {
		for records.Next() {
			rec := records.Record()
			fmt.Printf("%-2s %-14s %8s  %-14.14s %-29.29s %s\n",
				kindLetter(rec.Kind), modifiedCell(rec), sizeCell(rec), rec.Domain, rec.Namespace, rec.RelativePath)
		}
	}
	return records.Err()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...)
}

func kindLetter(k models.Kind) string {
	switch k {
	case models.KindFile:
		return "F"
	case models.KindDirectory:
		return "D"
	case models.KindSymlink:
		return "S"
	case models.KindHardlink:
		return "H"
	}
	return ""
}

func sizeCell(rec models.Record) string {
	if rec.Kind != models.KindFile {
		return ""
	}
	size, ok := rec.Size()
	if !ok {
		return ""
	}
	return humanize.IBytes(uint64(size))
}

func modifiedCell(rec models.Record) string {
	mtime, ok := rec.LastModified()
	if !ok {
		return ""
	}
	return lsTime(mtime, time.Now())
}

// lsTime formats a timestamp the way ls -l does: recent entries show the
// time of day, older ones the year.
func lsTime(t, now time.Time) string {
	const sixMonths = 183 * 24 * time.Hour
	if d := now.Sub(t); d < sixMonths && d > -sixMonths {
		return t.Format("Jan 02 15:04")
	}
	return t.Format("Jan 02  2006")
}
