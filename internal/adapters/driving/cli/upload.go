package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/stevedore/internal/adapters/driving/tui"
	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driving"
	"github.com/custodia-labs/stevedore/internal/logger"
)

var (
	uploadHost        string
	uploadIndex       string
	uploadBucket      string
	uploadPath        string
	uploadTitleColumn string
	uploadTextColumn  string
	uploadOCR         bool
	uploadBatchSize   int
	uploadMaxRetries  int
	uploadTika        string
	uploadWorkers     int
	uploadPlain       bool
)

// progressInterval is how often plain progress output polls the run status.
var progressInterval = 500 * time.Millisecond

var uploadCmd = &cobra.Command{
	Use:   "upload <target>",
	Short: "Ingest documents into the search index",
	Long: `Ingests every document under target into the search index.

target is one of:
  a directory       every non-hidden file below it
  a file or glob    the matching files ("docs/*.pdf")
  a .csv/.tsv file  one record per row
  s3://bucket/path  every object under the prefix

Zip, mbox and pst archives are unpacked and each member is indexed with a
link to its archive. When --index is not given, the index name is derived
from the target's last path segment.

Flags override the config file; STEVEDORE_ES_HOST and STEVEDORE_TIKA_URL
override the config file but not the flags.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	f := uploadCmd.Flags()
	f.StringVarP(&uploadHost, "host", "H", "", "search index host (default localhost:9200)")
	f.StringVarP(&uploadIndex, "index", "i", "", "destination index (default derived from target)")
	f.StringVarP(&uploadBucket, "s3bucket", "b", "", "bucket documents are served from")
	f.StringVarP(&uploadPath, "s3path", "s", "", "key prefix documents are served from (default index name)")
	f.StringVar(&uploadTitleColumn, "title-column", "", "CSV column (name or index) used as the title")
	f.StringVar(&uploadTextColumn, "text-column", "", "CSV column (name or index) used as the text")
	f.BoolVar(&uploadOCR, "ocr", true, "OCR scanned PDFs (--ocr=false disables)")
	f.IntVar(&uploadBatchSize, "batch-size", domain.DefaultBatchSize, "documents per upload batch")
	f.IntVar(&uploadMaxRetries, "max-retries", domain.DefaultMaxAttempts, "attempts per batch on transport failure (0 retries forever)")
	f.StringVar(&uploadTika, "tika", "", "Tika server URL (default http://localhost:9998)")
	f.IntVar(&uploadWorkers, "workers", domain.DefaultExtractWorkers, "concurrent extractions per batch")
	f.BoolVar(&uploadPlain, "plain", false, "print plain progress lines instead of the progress view")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	if app == nil || app.Settings == nil || app.NewIngester == nil {
		return errNotConfigured
	}

	target, err := domain.ParseTarget(args[0])
	if err != nil {
		return err
	}

	req := resolveUpload(cmd, target)
	if err := req.Settings.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	ingester, closeIngester, err := app.NewIngester(ctx, req)
	if err != nil {
		return fmt.Errorf("prepare upload: %w", err)
	}
	defer func() {
		if err := closeIngester(); err != nil {
			logger.Warn("Failed to close index client: %v", err)
		}
	}()

	var report *domain.RunReport
	if useProgressView(cmd) {
		report, err = runWithProgressView(ctx, ingester, target, req.Settings.IndexName)
	} else {
		cmd.Printf("Ingesting %s into %s...\n", target.Raw, req.Settings.IndexName)
		report, err = ingestWithProgress(ctx, cmd, ingester, target)
	}
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	cmd.Print(tui.RenderReport(report, nil, tui.DefaultReportErrors))
	return nil
}

// resolveUpload layers changed flags over the config file and derives the
// index name and bucket from the target when they are still unset.
func resolveUpload(cmd *cobra.Command, target domain.Target) UploadRequest {
	settings := app.Settings.UploadSettings()
	svc := app.Settings.ServiceSettings()
	flags := cmd.Flags()

	if flags.Changed("host") {
		settings.IndexHost = uploadHost
	}
	if flags.Changed("index") {
		settings.IndexName = uploadIndex
	}
	if settings.IndexName == "" {
		settings.IndexName = target.DefaultIndexName()
	}
	if flags.Changed("s3bucket") {
		settings.S3Bucket = uploadBucket
	}
	if settings.S3Bucket == "" && target.Kind == domain.TargetS3 {
		settings.S3Bucket = target.Bucket
	}
	if flags.Changed("s3path") {
		settings.S3Path = uploadPath
	}
	if flags.Changed("title-column") {
		settings.TitleColumn = uploadTitleColumn
	}
	if flags.Changed("text-column") {
		settings.TextColumn = uploadTextColumn
	}
	if flags.Changed("ocr") {
		settings.OCR = uploadOCR
	}
	if flags.Changed("batch-size") {
		settings.BatchSize = uploadBatchSize
	}
	if flags.Changed("max-retries") {
		settings.Retry.MaxAttempts = uploadMaxRetries
	}
	if flags.Changed("workers") {
		settings.ExtractWorkers = uploadWorkers
	}
	if flags.Changed("tika") {
		svc.ExtractorURL = uploadTika
	}

	return UploadRequest{Target: target, Settings: settings, Services: svc}
}

// useProgressView reports whether output goes to a terminal that can show
// the progress view.
func useProgressView(cmd *cobra.Command) bool {
	if uploadPlain {
		return false
	}
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// runWithProgressView shows the progress view and holds back log lines until
// it has exited, so they do not tear the display.
func runWithProgressView(
	ctx context.Context,
	ingester driving.Ingester,
	target domain.Target,
	index string,
) (*domain.RunReport, error) {
	var held lockedBuffer
	logger.SetOutput(&held)
	defer func() {
		logger.SetOutput(os.Stderr)
		_, _ = io.Copy(os.Stderr, &held)
	}()
	return tui.RunProgress(ctx, ingester, target, index)
}

// ingestWithProgress runs the ingestion while printing a line whenever the
// progress counter moves.
func ingestWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	ingester driving.Ingester,
	target domain.Target,
) (*domain.RunReport, error) {
	type result struct {
		report *domain.RunReport
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := ingester.Ingest(ctx, target)
		done <- result{report, err}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	last := -1
	for {
		select {
		case res := <-done:
			return res.report, res.err
		case <-ticker.C:
			status, err := ingester.Status(ctx)
			if err != nil || status == nil || !status.Running {
				continue
			}
			if status.Progress != last {
				last = status.Progress
				cmd.Printf("  %d processed, %d built, %d committed, %d failed\n",
					status.Progress, status.RecordsBuilt, status.RecordsCommitted, status.ErrorCount)
			}
		}
	}
}

// lockedBuffer is a bytes.Buffer safe for the logger's concurrent writers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Read(p)
}
