package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/ppe-vision/internal/aggregate"
	"github.com/sells-group/ppe-vision/internal/classify"
	"github.com/sells-group/ppe-vision/internal/config"
	"github.com/sells-group/ppe-vision/internal/geometry"
	"github.com/sells-group/ppe-vision/internal/ledger"
	"github.com/sells-group/ppe-vision/internal/metrics"
	"github.com/sells-group/ppe-vision/internal/model"
	"github.com/sells-group/ppe-vision/internal/notify"
	"github.com/sells-group/ppe-vision/internal/overlay"
	"github.com/sells-group/ppe-vision/internal/session"
	"github.com/sells-group/ppe-vision/internal/store"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <payload.json|->",
	Short: "Analyze one inference result",
	Long: "Aggregates an inference payload into a run, appends it to the history, " +
		"records PPE events, raises the violation alert and optionally renders the overlay.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		source, _ := cmd.Flags().GetString("source")
		media, _ := cmd.Flags().GetString("media")
		nativeFlag, _ := cmd.Flags().GetString("native")
		displayFlag, _ := cmd.Flags().GetString("display")
		overlayPath, _ := cmd.Flags().GetString("overlay")
		output, _ := cmd.Flags().GetString("output")
		filterFlag, _ := cmd.Flags().GetString("filter")
		elapsed, _ := cmd.Flags().GetDuration("elapsed")

		kind, ok := model.ParseMediaKind(media)
		if !ok {
			return eris.Errorf("analyze: unknown media kind %q", media)
		}
		filter, err := classify.ParseFilter(filterFlag)
		if err != nil {
			return err
		}
		if source == "" {
			source = sourceName(args[0])
		}

		payload, err := readPayload(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}

		st := openStore(ctx)
		defer st.Close() //nolint:errcheck

		hist := ledger.Open(ctx, st, ledger.WithRetry(cfg.Retry.Policy()))
		m := metrics.New()
		sess := session.New(session.Deps{
			Ledger:      hist,
			Gate:        notify.NewGate(nil, cfg.Alert.Window()),
			Events:      st,
			Metrics:     m,
			Postprocess: postprocessors(cfg.Ingest),
		})

		if _, err := sess.Begin(source, kind); err != nil {
			return err
		}
		a, err := sess.Complete(ctx, payload)
		if err != nil {
			writeTextfile(m)
			return err
		}
		if elapsed > 0 && kind == model.MediaVideo {
			a.FramesPerSecond = aggregate.Throughput(a.Run.TotalFrames, elapsed)
			m.ObserveThroughput(a.FramesPerSecond)
		}

		if overlayPath != "" {
			rep, err := renderOverlay(overlayPath, filter.Apply(a.Run.Detections), nativeFlag, displayFlag)
			if err != nil {
				return err
			}
			m.ObserveSkipped(len(rep.Skipped))
		}

		if a.StorageErr == nil && hist.Degraded() {
			a.StorageErr = eris.Wrap(store.ErrStorageUnavailable, "history kept in memory")
		}
		if a.StorageErr != nil {
			fmt.Fprintf(os.Stderr, "warning: results not persisted: %v\n", a.StorageErr)
		}
		writeTextfile(m)

		switch output {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(a)
		case "yaml":
			return encodeYAML(os.Stdout, a)
		default:
			formatAnalysis(os.Stdout, a, filter)
			return nil
		}
	},
}

func init() {
	analyzeCmd.Flags().String("source", "", "source file name recorded with the run (default: payload file name)")
	analyzeCmd.Flags().String("media", string(model.MediaImage), "media kind (image, video)")
	analyzeCmd.Flags().String("native", "", "native media size WxH used to scale boxes")
	analyzeCmd.Flags().String("display", "", "display size WxH of the overlay (default: native size)")
	analyzeCmd.Flags().String("overlay", "", "write the rendered overlay PNG to this path")
	analyzeCmd.Flags().String("output", "table", "output format (table, json, yaml)")
	analyzeCmd.Flags().String("filter", string(classify.FilterAll), "detections to list and draw (all, violations, safe)")
	analyzeCmd.Flags().Duration("elapsed", 0, "processing time of a video run, used for frames per second")
	rootCmd.AddCommand(analyzeCmd)
}

// readPayload decodes the inference payload from a file or, for "-", from in.
func readPayload(in io.Reader, path string) (model.InferencePayload, error) {
	var p model.InferencePayload

	r := in
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return p, eris.Wrapf(err, "analyze: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		r = f
	}

	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return p, eris.Wrap(err, "analyze: decode payload")
	}
	return p, nil
}

func sourceName(path string) string {
	if path == "-" {
		return "stdin"
	}
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// postprocessors builds the ingestion chain from config. Zero values are
// no-ops.
func postprocessors(c config.IngestConfig) classify.Postprocessor {
	var ps []classify.Postprocessor
	if c.MinConfidence > 0 {
		ps = append(ps, classify.NewScoreFilter(c.MinConfidence))
	}
	if len(c.IgnoreLabels) > 0 {
		ps = append(ps, classify.NewLabelFilter(c.IgnoreLabels...))
	}
	return classify.Chain(ps...)
}

// renderOverlay paints detections and saves the overlay. The display size
// defaults to the native size.
func renderOverlay(path string, detections []model.Detection, nativeFlag, displayFlag string) (overlay.Report, error) {
	var native, display geometry.Size
	var err error
	if nativeFlag != "" {
		if native, err = geometry.ParseSize(nativeFlag); err != nil {
			return overlay.Report{}, err
		}
	}
	display = native
	if displayFlag != "" {
		if display, err = geometry.ParseSize(displayFlag); err != nil {
			return overlay.Report{}, err
		}
	}

	r, err := overlay.NewRenderer(cfg.Overlay)
	if err != nil {
		return overlay.Report{}, err
	}
	surface := overlay.NewSurface()
	rep := r.Render(surface, detections, native, display)
	if err := surface.SavePNG(path); err != nil {
		return rep, err
	}
	zap.L().Info("analyze: overlay written",
		zap.String("path", path),
		zap.Int("drawn", rep.Drawn),
		zap.Int("skipped", len(rep.Skipped)),
	)
	return rep, nil
}

func writeTextfile(m *metrics.Metrics) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		zap.L().Warn("analyze: metrics not written", zap.Error(err))
	}
}

// formatAnalysis writes the run statistics, detections, summary and alert.
func formatAnalysis(out io.Writer, a *session.Analysis, filter classify.Filter) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", truncateID(a.Run.ID))
	_, _ = fmt.Fprintf(w, "Source:\t%s\n", a.Run.SourceName)
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", a.Run.Status())
	_, _ = fmt.Fprintf(w, "Total:\t%d\n", a.Run.Counts.Total)
	_, _ = fmt.Fprintf(w, "Violations:\t%d\n", a.Run.Counts.Violations)
	_, _ = fmt.Fprintf(w, "Safe:\t%d\n", a.Run.Counts.Safe)
	_, _ = fmt.Fprintf(w, "Compliance:\t%d%%\n", a.Run.ComplianceRatePct)
	if a.Run.MediaKind == model.MediaVideo {
		_, _ = fmt.Fprintf(w, "Frames:\t%d\n", a.Run.TotalFrames)
		if a.FramesPerSecond > 0 {
			_, _ = fmt.Fprintf(w, "FPS:\t%.2f\n", a.FramesPerSecond)
		}
	}
	_, _ = fmt.Fprintf(w, "Event:\t%s (%s)\n", a.EventType, a.Severity)
	if a.Alert != nil {
		_, _ = fmt.Fprintf(w, "Alert:\t%s\n", a.Alert.Message)
	}
	_ = w.Flush()

	detections := filter.Apply(a.Run.Detections)
	if len(detections) > 0 {
		_, _ = fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "LABEL\tCATEGORY\tCONFIDENCE\tFRAME")
		_, _ = fmt.Fprintln(w, "-----\t--------\t----------\t-----")
		for _, d := range detections {
			frame := ""
			if d.Frame != nil {
				frame = fmt.Sprint(*d.Frame)
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%.0f%%\t%s\n", d.Label, classify.Classify(d.Label), d.Confidence*100, frame)
		}
		_ = w.Flush()
	}

	if len(a.Summary) > 0 {
		_, _ = fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "LABEL\tCATEGORY\tCONFIDENCE\tCOUNT\tFRAMES")
		_, _ = fmt.Fprintln(w, "-----\t--------\t----------\t-----\t------")
		for _, s := range a.Summary {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%.0f%%\t%d\t%s\n",
				s.Label, s.Category, s.RepresentativeConfidence*100, s.OccurrenceCount, formatFrames(s.Frames))
		}
		_ = w.Flush()
	}
}

func formatFrames(frames []int) string {
	parts := make([]string, len(frames))
	for i, f := range frames {
		parts[i] = fmt.Sprint(f)
	}
	return strings.Join(parts, ",")
}

// encodeYAML writes v as block YAML using its JSON field names. The value is
// round-tripped through JSON so raw bbox payloads come out as sequences.
func encodeYAML(out io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return eris.Wrap(err, "analyze: marshal report")
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return eris.Wrap(err, "analyze: convert report")
	}
	blockStyle(&doc)
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return eris.Wrap(err, "analyze: encode yaml")
	}
	return enc.Close()
}

// blockStyle drops the flow and quoting styles the JSON source carried.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
