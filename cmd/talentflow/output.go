package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/kalambet/talentflow/internal/record"
	"github.com/kalambet/talentflow/internal/window"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorDim    = "\033[2m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+fmt.Sprintf(format, args...)))
}

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}

func printStep(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+fmt.Sprintf(format, args...)))
}

func statusLabel(s record.JobStatus) string {
	if s == record.JobArchived {
		return colorize(colorDim, string(s))
	}
	return colorize(colorGreen, string(s))
}

func stageLabel(s record.Stage) string {
	switch s {
	case record.StageHired:
		return colorize(colorGreen, string(s))
	case record.StageRejected:
		return colorize(colorRed, string(s))
	case record.StageOffer:
		return colorize(colorYellow, string(s))
	default:
		return string(s)
	}
}

func writeJobs(w io.Writer, jobs []record.Job, offset int) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tTITLE\tSTATUS\tTAGS")
	for i, j := range jobs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", offset+i+1, j.ID, j.Title, statusLabel(j.Status), strings.Join(j.Tags, ","))
	}
	tw.Flush()
}

func writeCandidateRows(w io.Writer, rows []window.Row[record.Candidate]) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tNAME\tEMAIL\tSTAGE")
	for _, r := range rows {
		c := r.Item
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.Index+1, c.ID, c.Name, c.Email, stageLabel(c.Stage))
	}
	tw.Flush()
}

// pagerLine renders a numeric pagination bar such as "1 … 4 [5] 6 … 20".
func pagerLine(page, total, pageSize int) string {
	items := window.Pages(page, total, pageSize)
	parts := make([]string, 0, len(items))
	for _, it := range items {
		switch {
		case it.Ellipsis:
			parts = append(parts, "…")
		case it.Current:
			parts = append(parts, colorize(colorBold, "["+strconv.Itoa(it.Page)+"]"))
		default:
			parts = append(parts, strconv.Itoa(it.Page))
		}
	}
	return strings.Join(parts, " ")
}
