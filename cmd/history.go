package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/sells-group/ppe-vision/internal/aggregate"
	"github.com/sells-group/ppe-vision/internal/ledger"
	"github.com/sells-group/ppe-vision/internal/model"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the analysis history",
	Long:  "Commands for listing, clearing, and exporting the bounded run history.",
}

// -- history list --

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st := openStore(ctx)
		defer st.Close() //nolint:errcheck

		runs := ledger.Open(ctx, st, ledger.WithRetry(cfg.Retry.Policy())).List()
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}
		formatHistoryList(os.Stdout, runs)
		return nil
	},
}

// -- history clear --

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the whole history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		yes, _ := cmd.Flags().GetBool("yes")
		if !yes && !confirm(cmd.InOrStdin(), os.Stderr, "Clear all history?") {
			fmt.Fprintln(os.Stderr, "Aborted.")
			return nil
		}

		st := openStore(ctx)
		defer st.Close() //nolint:errcheck

		l := ledger.Open(ctx, st, ledger.WithRetry(cfg.Retry.Policy()))
		if err := l.Clear(ctx); err != nil {
			return eris.Wrap(err, "history clear")
		}
		if l.Degraded() {
			fmt.Fprintln(os.Stderr, "warning: storage unavailable, stored history was not removed")
			return nil
		}
		fmt.Fprintln(os.Stderr, "History cleared.")
		return nil
	},
}

// -- history export --

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the history as JSON, CSV or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		kind, err := ledger.ParseExportKind(format)
		if err != nil {
			return err
		}

		st := openStore(ctx)
		defer st.Close() //nolint:errcheck

		l := ledger.Open(ctx, st, ledger.WithRetry(cfg.Retry.Policy()))
		now := time.Now().UTC()
		path := filepath.Join(cfg.Export.Dir, ledger.ExportFileName(kind, now))

		if err := exportHistory(l, kind, path, now); err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	historyListCmd.Flags().Bool("json", false, "print the runs as JSON")
	historyClearCmd.Flags().Bool("yes", false, "skip the confirmation prompt")
	historyExportCmd.Flags().String("format", string(ledger.ExportJSON), "export format (json, csv, xlsx)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}

// exportHistory writes an export to path. The JSON report carries the most
// recent run as its current statistics.
func exportHistory(l *ledger.Ledger, kind ledger.ExportKind, path string, now time.Time) error {
	snap := ledger.Snapshot{ExportedAt: now}
	if runs := l.List(); len(runs) > 0 {
		snap.Stats = runs[0].Counts
		snap.Detections = runs[0].Detections
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "history export: create %s", filepath.Dir(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "history export: create %s", path)
	}
	if err := l.Export(f, kind, snap); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrap(err, "history export")
	}
	return eris.Wrap(f.Close(), "history export: close")
}

// confirm asks a yes/no question on out and reads the answer from in.
func confirm(in io.Reader, out io.Writer, question string) bool {
	_, _ = fmt.Fprintf(out, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// historyStats holds aggregate statistics over the listed runs.
type historyStats struct {
	Runs       int
	Detections int
	Violations int
	Safe       int
	Compliance int
}

// computeHistoryStats totals the counts of all runs.
func computeHistoryStats(runs []model.RunResult) historyStats {
	var s historyStats
	var total model.Counts
	for _, r := range runs {
		total.Total += r.Counts.Total
		total.Violations += r.Counts.Violations
		total.Safe += r.Counts.Safe
	}
	s.Runs = len(runs)
	s.Detections = total.Total
	s.Violations = total.Violations
	s.Safe = total.Safe
	s.Compliance = aggregate.ComplianceRate(total)
	return s
}

// formatHistoryList writes a tabular list of runs to w, followed by totals.
func formatHistoryList(out io.Writer, runs []model.RunResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTIMESTAMP\tSOURCE\tTOTAL\tVIOLATIONS\tCOMPLIANCE\tSTATUS")
	_, _ = fmt.Fprintln(w, "--\t---------\t------\t-----\t----------\t----------\t------")

	for _, r := range runs {
		source := r.SourceName
		if utf8.RuneCountInString(source) > 30 {
			source = lo.Substring(source, 0, 27) + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d%%\t%s\n",
			truncateID(r.ID),
			r.Timestamp.Format("2006-01-02 15:04"),
			source,
			r.Counts.Total,
			r.Counts.Violations,
			r.ComplianceRatePct,
			r.Status(),
		)
	}
	_ = w.Flush()

	s := computeHistoryStats(runs)
	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Runs:\t%d\n", s.Runs)
	_, _ = fmt.Fprintf(w, "Detections:\t%d\n", s.Detections)
	_, _ = fmt.Fprintf(w, "Violations:\t%d\n", s.Violations)
	_, _ = fmt.Fprintf(w, "Safe:\t%d\n", s.Safe)
	_, _ = fmt.Fprintf(w, "Compliance:\t%d%%\n", s.Compliance)
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
