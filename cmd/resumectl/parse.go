package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"alfredoptarigan/resume-ingest/internal/models"
	"alfredoptarigan/resume-ingest/internal/services"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>...",
	Short: "Parse one or more resume files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runParse(cmd.Context(), args, cmd.OutOrStdout())
	},
}

var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "List configured adapters in priority order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := loadConfig()
		pipeline, err := services.NewPipeline(cmd.Context(), cfg.Pipeline(), zap.NewNop())
		if err != nil {
			return err
		}
		return printAdapters(cmd.OutOrStdout(), pipeline.Registry.Descriptors())
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(adaptersCmd)

	parseCmd.Flags().IntP("concurrency", "c", 2, "number of files parsed at once")
	parseCmd.Flags().String("xlsx", "", "write an xlsx report to this path")
	parseCmd.Flags().Bool("output-json", false, "print results as JSON instead of a table")
	parseCmd.Flags().String("media-type", "", "media type for every file (default: from extension)")

	viper.BindPFlag("concurrency", parseCmd.Flags().Lookup("concurrency"))
	viper.BindPFlag("xlsx", parseCmd.Flags().Lookup("xlsx"))
	viper.BindPFlag("output-json", parseCmd.Flags().Lookup("output-json"))
	viper.BindPFlag("media-type", parseCmd.Flags().Lookup("media-type"))
}

type fileResult struct {
	File      string                  `json:"file"`
	RequestID string                  `json:"request_id,omitempty"`
	Adapter   string                  `json:"adapter,omitempty"`
	Candidate *models.ParsedCandidate `json:"candidate,omitempty"`
	Error     *models.ErrorBody       `json:"error,omitempty"`
}

func runParse(ctx context.Context, paths []string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger()
	defer logger.Sync()

	cfg := loadConfig()
	pipeline, err := services.NewPipeline(ctx, cfg.Pipeline(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	docs, err := readDocuments(paths, viper.GetString("media-type"))
	if err != nil {
		return err
	}

	results := services.RunBatch(ctx, pipeline.Parser, docs, viper.GetInt("concurrency"), logger.Named("worker"))

	if path := viper.GetString("xlsx"); path != "" {
		if err := writeReport(path, results); err != nil {
			return err
		}
		logger.Info("📊 report written", zap.String("path", path))
	}

	rows := toFileResults(results)
	if viper.GetBool("output-json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rows); err != nil {
			return err
		}
	} else if err := printResults(out, rows); err != nil {
		return err
	}

	failed := 0
	for _, r := range rows {
		if r.Error != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to parse", failed, len(rows))
	}
	return nil
}

func readDocuments(paths []string, mediaType string) ([]*models.UploadedDocument, error) {
	docs := make([]*models.UploadedDocument, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		mt := mediaType
		if mt == "" {
			mt = models.MediaTypeFromExtension(filepath.Ext(path))
		}
		if mt == "" {
			mt = models.MediaTypeOctet
		}
		docs = append(docs, models.NewUploadedDocument(content, mt, filepath.Base(path)))
	}
	return docs, nil
}

func toFileResults(results []services.BatchResult) []fileResult {
	rows := make([]fileResult, 0, len(results))
	for _, r := range results {
		row := fileResult{File: r.Job.Doc.FileName}
		if r.Result != nil {
			row.RequestID = r.Result.RequestID
			row.Adapter = r.Result.Adapter
			row.Candidate = r.Result.Candidate
		}
		if r.Err != nil {
			body := &models.ErrorBody{Message: r.Err.Error()}
			var pe *services.PipelineError
			if errors.As(r.Err, &pe) {
				body.Code = string(pe.Code)
				body.Message = pe.Message
			}
			row.Error = body
		}
		rows = append(rows, row)
	}
	return rows
}

func printResults(out io.Writer, rows []fileResult) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSTATUS\tNAME\tEMAIL\tTITLE\tEMPLOYER\tSOURCE\tCONFIDENCE")
	for _, r := range rows {
		status := "ok"
		if r.Error != nil {
			status = r.Error.Code
			if status == "" {
				status = "error"
			}
		}
		c := r.Candidate
		if c == nil {
			c = models.ErrorCandidate(0)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%s\t%s\t%s\t%.3f\n",
			r.File, status, c.FirstName, c.LastName, c.Email, c.CurrentTitle, c.CurrentEmployer, c.Source, c.Confidence)
	}
	return tw.Flush()
}

func printAdapters(out io.Writer, descs []services.AdapterDescriptor) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPRIORITY\tENABLED\tCONFIDENCE\tMEDIA TYPES")
	for _, d := range descs {
		fmt.Fprintf(tw, "%s\t%d\t%t\t%.2f\t%v\n", d.Name, d.Priority, d.Enabled, d.Confidence, d.MediaTypes)
	}
	return tw.Flush()
}

func writeReport(path string, results []services.BatchResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer f.Close()

	return services.WriteBatchReport(f, results)
}
