package operations

import (
	"context"
	"fmt"

	"sricli/internal/config"
	"sricli/internal/dataprocessing"
	apperrors "sricli/internal/errors"
	"sricli/internal/exporter"
	"sricli/internal/fetcher"
	"sricli/internal/files"
	"sricli/internal/infrastructure"
	"sricli/pkg/contracts/domain"
)

// Step identifiers and display names.
const (
	StepIDFetch     = "fetch"
	StepIDProcess   = "process"
	StepIDSummarize = "summarize"

	StepNameFetch     = "Portal Fetch"
	StepNameProcess   = "Dataset Processing"
	StepNameSummarize = "Province Summary"
)

// Keys for values passed between steps through the State.
const (
	ValueKeyRecords     = "records"
	ValueKeyLoadStats   = "load_stats"
	ValueKeyFetchResult = "fetch_result"
)

// PortalFetcher is the fetcher surface the fetch step needs.
// *fetcher.Fetcher implements it.
type PortalFetcher interface {
	FetchRange(ctx context.Context, from, to string, force bool) (*fetcher.FetchResult, error)
}

// FetchStep downloads the raw datasets for the requested period from the
// SRI portal.
type FetchStep struct {
	fetcher PortalFetcher
}

// NewFetchStep creates the portal fetch step.
func NewFetchStep(f PortalFetcher) *FetchStep {
	return &FetchStep{fetcher: f}
}

func (s *FetchStep) ID() string   { return StepIDFetch }
func (s *FetchStep) Name() string { return StepNameFetch }

// Execute fetches every portal dataset inside the params' period range.
// Files already on disk keep the run going even when every download fails,
// so the failure only aborts when nothing is available locally either.
func (s *FetchStep) Execute(ctx context.Context, state *State) error {
	from, to := state.Params().PeriodRange()

	result, err := s.fetcher.FetchRange(ctx, from, to, state.Params().Force)
	if err != nil {
		return err
	}

	state.SetValue(ValueKeyFetchResult, result)

	if step := state.Step(StepIDFetch); step != nil {
		step.UpdateProgress(100, fmt.Sprintf("%d downloaded, %d already present, %d failed",
			len(result.Downloaded), len(result.Skipped), len(result.Failed)))
	}

	if len(result.Failed) > 0 && len(result.Downloaded) == 0 && len(result.Skipped) == 0 {
		return apperrors.NewNetworkError(
			fmt.Sprintf("all %d downloads failed and no local datasets cover the range", len(result.Failed)), nil)
	}
	return nil
}

// ProcessStep loads every raw dataset in the period range, cleans the
// records and exports the combined clean dataset plus the per-month splits.
type ProcessStep struct {
	loader    *dataprocessing.Loader
	exporter  *exporter.DatasetExporter
	discovery *files.Discovery
	paths     *config.Paths
	metrics   *infrastructure.BusinessMetrics
}

// NewProcessStep creates the dataset processing step. metrics may be nil.
func NewProcessStep(loader *dataprocessing.Loader, exp *exporter.DatasetExporter, discovery *files.Discovery, paths *config.Paths, metrics *infrastructure.BusinessMetrics) *ProcessStep {
	return &ProcessStep{
		loader:    loader,
		exporter:  exp,
		discovery: discovery,
		paths:     paths,
		metrics:   metrics,
	}
}

func (s *ProcessStep) ID() string   { return StepIDProcess }
func (s *ProcessStep) Name() string { return StepNameProcess }

func (s *ProcessStep) Execute(ctx context.Context, state *State) error {
	step := state.Step(StepIDProcess)
	from, to := state.Params().PeriodRange()

	datasets, err := s.discovery.FindDatasetFiles(s.paths.RawDir)
	if err != nil {
		return err
	}

	var paths []string
	for _, ds := range datasets {
		if inRange(ds.Period(), from, to) {
			paths = append(paths, ds.Path)
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("%w: no datasets under %s for the requested range", apperrors.ErrDatasetNotFound, s.paths.RawDir)
	}

	if step != nil {
		step.UpdateProgress(10, fmt.Sprintf("loading %d dataset files", len(paths)))
	}

	records, stats, err := s.loader.LoadAll(ctx, paths)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return apperrors.ErrNoData
	}

	infrastructure.RecordProcessingMetrics(ctx, s.metrics, TypeIngest, int64(stats.Records), int64(stats.ParseFailures))

	if step != nil {
		step.UpdateProgress(60, fmt.Sprintf("%d records cleaned, %d parse failures", stats.Records, stats.ParseFailures))
	}

	if err := s.exporter.ExportCleanDataset(records, s.paths.CleanCSV); err != nil {
		return err
	}
	if err := s.exporter.ExportMonthlyFiles(records, s.paths.GetReportPath("monthly")); err != nil {
		return err
	}

	state.SetValue(ValueKeyRecords, records)
	state.SetValue(ValueKeyLoadStats, stats)

	if step != nil {
		step.UpdateProgress(100, fmt.Sprintf("%d records from %d files exported", stats.Records, len(paths)))
	}
	return nil
}

// inRange mirrors the fetcher's period filter for on-disk datasets.
func inRange(period, from, to string) bool {
	if from != "" && period < from {
		return false
	}
	if to != "" && period > to {
		return false
	}
	return true
}

// SummarizeStep turns the cleaned records into the per-province summary
// reports. When it runs without a preceding process step it reloads the
// clean dataset from disk.
type SummarizeStep struct {
	summarizer *dataprocessing.Summarizer
	loader     *dataprocessing.Loader
	paths      *config.Paths
}

// NewSummarizeStep creates the summary step.
func NewSummarizeStep(summarizer *dataprocessing.Summarizer, loader *dataprocessing.Loader, paths *config.Paths) *SummarizeStep {
	return &SummarizeStep{
		summarizer: summarizer,
		loader:     loader,
		paths:      paths,
	}
}

func (s *SummarizeStep) ID() string   { return StepIDSummarize }
func (s *SummarizeStep) Name() string { return StepNameSummarize }

func (s *SummarizeStep) Execute(ctx context.Context, state *State) error {
	records := s.recordsFrom(ctx, state)
	if len(records) == 0 {
		return apperrors.ErrNoData
	}

	summaries, err := s.summarizer.GenerateFromRecords(ctx, records)
	if err != nil {
		return err
	}

	if err := s.summarizer.WriteCSV(ctx, s.paths.SummaryCSV, summaries); err != nil {
		return err
	}
	if err := s.summarizer.WriteJSON(ctx, s.paths.SummaryJSON, summaries); err != nil {
		return err
	}

	if step := state.Step(StepIDSummarize); step != nil {
		step.UpdateProgress(100, fmt.Sprintf("%d provinces summarized", len(summaries)))
	}
	return nil
}

func (s *SummarizeStep) recordsFrom(ctx context.Context, state *State) []domain.SalesRecord {
	if v, ok := state.Value(ValueKeyRecords); ok {
		if records, ok := v.([]domain.SalesRecord); ok {
			return records
		}
	}
	records, _ := s.loader.LoadOrEmpty(ctx, s.paths.CleanCSV)
	return records
}
