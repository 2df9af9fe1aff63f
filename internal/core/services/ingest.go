package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
	"github.com/custodia-labs/stevedore/internal/core/ports/driving"
	"github.com/custodia-labs/stevedore/internal/logger"
)

// Ensure Ingester implements the interface.
var _ driving.Ingester = (*Ingester)(nil)

// Ingester runs the ingestion pipeline for one target at a time:
// enumerate, decompose archives, extract, build records, upload in batches.
type Ingester struct {
	factory    driven.ConnectorFactory
	decomposer driven.Decomposer
	builder    *RecordBuilder
	upload     *UploadPipeline
	index      driven.SearchIndex
	history    driven.RunStore
	settings   domain.UploadSettings

	mu      sync.RWMutex
	current *domain.RunContext
}

// NewIngester creates an ingester. history may be nil to skip run history.
func NewIngester(
	factory driven.ConnectorFactory,
	decomposer driven.Decomposer,
	builder *RecordBuilder,
	index driven.SearchIndex,
	history driven.RunStore,
	settings domain.UploadSettings,
) *Ingester {
	return &Ingester{
		factory:    factory,
		decomposer: decomposer,
		builder:    builder,
		upload:     NewUploadPipeline(index, settings.BatchSize, settings.Retry),
		index:      index,
		history:    history,
		settings:   settings,
	}
}

// Ingest runs one ingestion of target and returns its report.
// Only startup problems (bad settings, unreachable target, index bootstrap)
// are returned as errors; per-document failures end up in the report.
func (i *Ingester) Ingest(ctx context.Context, target domain.Target) (*domain.RunReport, error) {
	if err := i.settings.Validate(); err != nil {
		return nil, err
	}
	if i.index == nil {
		return nil, errNoIndex
	}

	run := domain.NewRunContext(uuid.New().String())
	i.setCurrent(run)
	defer run.Finish()

	logger.Section("Index")
	if err := i.index.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("prepare index %s: %w", i.settings.IndexName, err)
	}

	logger.Section("Ingest")
	logger.Info("Run %s: ingesting %s into %s", run.ID(), target.Raw, i.settings.IndexName)

	var err error
	if target.Kind == domain.TargetTabular {
		err = i.ingestRows(ctx, run, target)
	} else {
		err = i.ingestUnits(ctx, run, target)
	}
	if err != nil {
		return nil, err
	}

	run.Finish()
	report := run.Report(target.Raw, i.settings.IndexName)
	logger.Info("Run %s complete: %d built, %d committed, %d errors",
		report.ID, report.RecordsBuilt, report.RecordsCommitted, len(report.Errors))

	if i.history != nil {
		if err := i.history.Save(ctx, report); err != nil {
			logger.Warn("Failed to save run history: %v", err)
		}
	}
	return &report, nil
}

// Status returns the progress of the current or most recent run.
func (i *Ingester) Status(_ context.Context) (*domain.RunStatus, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.current == nil {
		return &domain.RunStatus{}, nil
	}
	st := i.current.Status()
	return &st, nil
}

func (i *Ingester) setCurrent(run *domain.RunContext) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.current = run
}

// ingestUnits processes files from a local or S3 target, a batch of source
// units at a time. One batch is uploaded before the next is enumerated.
func (i *Ingester) ingestUnits(ctx context.Context, run *domain.RunContext, target domain.Target) error {
	conn, err := i.factory.Create(ctx, target)
	if err != nil {
		return fmt.Errorf("open %s: %w", target.Raw, err)
	}
	defer conn.Close()

	if err := conn.Validate(ctx); err != nil {
		return fmt.Errorf("validate %s: %w", target.Raw, err)
	}

	for {
		units, planned, done := i.nextUnits(ctx, run, conn)
		if len(units) > 0 {
			records := i.buildUnits(ctx, run, units)
			for _, u := range units {
				u.Release()
			}
			run.AddBuilt(len(records))
			i.upload.Submit(ctx, run, records)
		}
		if planned > 0 {
			progress := run.Advance(planned)
			logger.Info("Processed %d units", progress)
		}
		if done {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// nextUnits reads up to one batch of units. Units the connector could not
// deliver are recorded and count towards the planned batch size.
func (i *Ingester) nextUnits(ctx context.Context, run *domain.RunContext, conn driven.Connector) (units []*domain.SourceUnit, planned int, done bool) {
	for planned < i.settings.BatchSize {
		unit, err := conn.Next(ctx)
		if errors.Is(err, io.EOF) {
			return units, planned, true
		}
		if ue, ok := driven.AsUnitError(err); ok {
			logger.Warn("Skipping %s: %v", ue.Ref, ue.Err)
			run.RecordError(ue.Ref, ue.Err.Error())
			planned++
			continue
		}
		if err != nil {
			logger.Error("Enumeration stopped: %v", err)
			run.RecordError(conn.Type(), fmt.Sprintf("enumeration stopped: %v", err))
			return units, planned, true
		}
		units = append(units, unit)
		planned++
	}
	return units, planned, false
}

// buildUnits extracts a batch of units, possibly concurrently, and returns
// their records in unit order.
func (i *Ingester) buildUnits(ctx context.Context, run *domain.RunContext, units []*domain.SourceUnit) []*domain.Record {
	results := make([][]*domain.Record, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(i.settings.ExtractWorkers, 1))
	for idx, unit := range units {
		g.Go(func() error {
			results[idx] = i.buildUnit(gctx, run, unit)
			return nil
		})
	}
	_ = g.Wait()

	var records []*domain.Record
	for _, recs := range results {
		records = append(records, recs...)
	}
	return records
}

// buildUnit turns one source unit into records: one for a plain file, one
// per member for an archive.
func (i *Ingester) buildUnit(ctx context.Context, run *domain.RunContext, unit *domain.SourceUnit) []*domain.Record {
	if format, ok := domain.ArchiveFormatFor(unit.Path); ok {
		return i.expandArchive(ctx, run, unit, format)
	}

	rec, err := i.builder.Build(ctx, BuildUnit{
		Path:               unit.Path,
		ID:                 DocumentID(unit.DownloadURL),
		SourceURL:          unit.DownloadURL,
		Ref:                unit.Ref,
		Name:               filepath.Base(unit.Path),
		ResolveAttachments: siblingAttachments(unit),
	})
	if err != nil {
		logger.Warn("Skipping %s: %v", unit.Ref, err)
		run.RecordError(unit.Ref, err.Error())
		return nil
	}
	return []*domain.Record{rec}
}

// expandArchive builds a record per archive member. Members share the
// archive's download URL and are told apart by name.
func (i *Ingester) expandArchive(ctx context.Context, run *domain.RunContext, unit *domain.SourceUnit, format domain.ArchiveFormat) []*domain.Record {
	it, err := i.decomposer.Open(ctx, unit.Path, format)
	if err != nil {
		logger.Warn("Skipping archive %s: %v", unit.Ref, err)
		run.RecordError(unit.Ref, fmt.Sprintf("open %s archive: %v", format, err))
		return nil
	}
	defer it.Close()

	url := unit.DownloadURL
	var records []*domain.Record
	for it.Next() {
		entry := it.Entry()
		ref := unit.Ref + "!" + entry.Name

		path, err := entry.Materialise(it.Dir())
		if err != nil {
			logger.Warn("Skipping archive member %s: %v", ref, err)
			continue
		}

		rec, err := i.builder.Build(ctx, BuildUnit{
			Path:        path,
			ID:          MemberID(url, entry.Name),
			SourceURL:   url,
			Ref:         ref,
			Name:        domain.Basename(entry.Name),
			Attachments: LinkIDs(url, entry),
		})
		if rmErr := os.Remove(path); rmErr != nil {
			logger.Warn("Failed to remove scratch file %s: %v", path, rmErr)
		}
		if err != nil {
			logger.Warn("Skipping archive member %s: %v", ref, err)
			run.RecordError(ref, err.Error())
			continue
		}
		records = append(records, rec)
	}
	if err := it.Err(); err != nil {
		logger.Warn("Archive %s ended early: %v", unit.Ref, err)
		run.RecordError(unit.Ref, fmt.Sprintf("read %s archive: %v", format, err))
	}
	logger.Debug("Archive %s produced %d records", unit.Ref, len(records))
	return records
}

// siblingAttachments resolves the attachment names an extractor lists for a
// message to files next to it, as written by mail export tools:
// <dir>/<name> or <dir>/<message base>-<name>.
func siblingAttachments(unit *domain.SourceUnit) func(domain.Extraction) []string {
	return func(ext domain.Extraction) []string {
		var names []string
		for _, v := range ext.MetaList(domain.MetaXAttachments) {
			for _, name := range strings.Split(v, "|") {
				if name = strings.TrimSpace(name); name != "" {
					names = append(names, name)
				}
			}
		}
		if len(names) == 0 {
			return nil
		}

		dir := filepath.Dir(unit.Path)
		base := strings.TrimSuffix(filepath.Base(unit.Path), filepath.Ext(unit.Path))
		urlDir := unit.DownloadURL[:strings.LastIndex(unit.DownloadURL, "/")+1]

		var ids []string
		for _, name := range names {
			for _, candidate := range []string{name, base + "-" + name} {
				if _, err := os.Stat(filepath.Join(dir, candidate)); err == nil {
					ids = append(ids, DocumentID(urlDir+path.Base(candidate)))
					break
				}
			}
		}
		return ids
	}
}

// ingestRows processes a tabular target, a batch of rows at a time.
func (i *Ingester) ingestRows(ctx context.Context, run *domain.RunContext, target domain.Target) error {
	rows, err := i.factory.Rows(ctx, target)
	if err != nil {
		return fmt.Errorf("open %s: %w", target.Raw, err)
	}
	defer rows.Close()

	unit := RowUnit{SourceURL: rows.DownloadURL(), SourceName: rows.SourceName()}
	for done := false; !done; {
		var records []*domain.Record
		planned := 0
		for planned < i.settings.BatchSize {
			row, err := rows.Next()
			if errors.Is(err, io.EOF) {
				done = true
				break
			}
			planned++
			if ue, ok := driven.AsUnitError(err); ok {
				logger.Warn("Skipping row %s: %v", ue.Ref, ue.Err)
				run.RecordError(ue.Ref, ue.Err.Error())
				continue
			}
			if err != nil {
				logger.Error("Reading %s stopped: %v", unit.SourceName, err)
				run.RecordError(unit.SourceName, fmt.Sprintf("read rows: %v", err))
				done = true
				break
			}

			unit.Row = row
			rec, err := i.builder.BuildRow(ctx, unit)
			if err != nil {
				logger.Warn("Skipping row %d of %s: %v", row.Ordinal, unit.SourceName, err)
				run.RecordError(fmt.Sprintf("%s:%d", unit.SourceName, row.Ordinal), err.Error())
				continue
			}
			records = append(records, rec)
		}

		run.AddBuilt(len(records))
		i.upload.Submit(ctx, run, records)
		if planned > 0 {
			logger.Info("Processed %d rows", run.Advance(planned))
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
