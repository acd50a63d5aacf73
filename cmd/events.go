package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/ppe-vision/internal/model"
	"github.com/sells-group/ppe-vision/internal/store"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect recorded PPE events",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded PPE events, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		events, err := st.ListEvents(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "events list")
		}
		if len(events) == 0 {
			fmt.Fprintln(os.Stderr, "No events found.")
			return nil
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(events)
		}
		formatEventsList(os.Stdout, events)
		return nil
	},
}

func init() {
	eventsListCmd.Flags().Int("limit", store.DefaultEventLimit, "max number of events to display")
	eventsListCmd.Flags().Bool("json", false, "print the events as JSON")

	eventsCmd.AddCommand(eventsListCmd)
	rootCmd.AddCommand(eventsCmd)
}

// formatEventsList writes a tabular list of events to w.
func formatEventsList(out io.Writer, events []model.Event) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tRUN\tTYPE\tSEVERITY\tLABEL\tCONFIDENCE\tSOURCE\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t---\t----\t--------\t-----\t----------\t------\t-------")
	for _, e := range events {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.0f%%\t%s\t%s\n",
			truncateID(e.ID),
			truncateID(e.RunID),
			e.Type,
			e.Severity,
			e.Label,
			e.Confidence*100,
			e.Source,
			e.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}
