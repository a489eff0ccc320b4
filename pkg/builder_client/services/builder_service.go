package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/archive"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/capability"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/resources"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/scaffold"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/models"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/repositories"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/storage"
)

const (
	DefaultBuildTTL         = 24 * time.Hour
	defaultSweepConcurrency = 4
	downloadPath            = "/api/builder/download/"
)

// CapabilityFetcher haalt het ruwe CapabilityStatement document op.
type CapabilityFetcher interface {
	FetchCapabilityStatement(ctx context.Context, url string) ([]byte, error)
}

type Options struct {
	ScratchDir       string
	TTL              time.Duration
	PublicBaseURL    string
	SweepConcurrency int64
}

// BuilderService orchestrates fetch, analysis, validation, generation,
// packaging and persistence of scaffold builds.
type BuilderService struct {
	repo      repositories.BuildRepository
	store     storage.ArtifactStore
	fetcher   CapabilityFetcher
	analyzer  *capability.Analyzer
	checker   *resources.Checker
	generator *scaffold.Generator
	opts      Options
	log       zerolog.Logger
	now       func() time.Time
}

func NewBuilderService(
	repo repositories.BuildRepository,
	store storage.ArtifactStore,
	fetcher CapabilityFetcher,
	generator *scaffold.Generator,
	opts Options,
	logger zerolog.Logger,
) *BuilderService {
	if opts.TTL <= 0 {
		opts.TTL = DefaultBuildTTL
	}
	if opts.SweepConcurrency <= 0 {
		opts.SweepConcurrency = defaultSweepConcurrency
	}
	if opts.ScratchDir == "" {
		opts.ScratchDir = filepath.Join(os.TempDir(), "fhir-builder")
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")

	return &BuilderService{
		repo:      repo,
		store:     store,
		fetcher:   fetcher,
		analyzer:  capability.NewAnalyzer(logger),
		checker:   resources.NewChecker(resources.DefaultTables()),
		generator: generator,
		opts:      opts,
		log:       logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source.
func (s *BuilderService) WithClock(now func() time.Time) *BuilderService {
	s.now = now
	return s
}

// CreateBuild runs one build end to end. The scratch directory is removed on
// every path; a failed build leaves no artifact and a deleted_on_error record.
func (s *BuilderService) CreateBuild(ctx context.Context, req models.BuildRequest) (*models.BuildResult, error) {
	req.Normalize()

	created := s.now()
	build := &models.Build{
		ID:                     uuid.NewString(),
		Status:                 models.BuildPending,
		Stack:                  req.Stack,
		Resources:              req.Resources,
		CapabilityStatementUrl: req.CapabilityStatementUrl,
		AppName:                req.AppName,
		CreatedAt:              created,
		ExpiresAt:              created.Add(s.opts.TTL),
	}
	log := s.log.With().Str("buildId", build.ID).Str("stack", string(build.Stack)).Logger()

	if err := s.repo.Create(ctx, build); err != nil {
		return nil, fmt.Errorf("databasefout: %w", err)
	}

	scratch := filepath.Join(s.opts.ScratchDir, build.ID)
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			log.Warn().Err(err).Str("dir", scratch).Msg("scratch cleanup failed")
		}
	}()

	if err := s.runBuild(ctx, build, req, scratch); err != nil {
		s.discard(ctx, build, log)
		log.Warn().Err(err).Msg("build failed")
		return nil, err
	}

	log.Info().Int64("sizeBytes", build.SizeBytes).Msg("build ready")
	return &models.BuildResult{
		BuildID:     build.ID,
		DownloadUrl: s.opts.PublicBaseURL + downloadPath + build.ID,
		ExpiresAt:   build.ExpiresAt,
		Metadata: models.BuildMetadata{
			Stack:       build.Stack,
			Resources:   build.Resources,
			GeneratedAt: created,
		},
	}, nil
}

func (s *BuilderService) runBuild(ctx context.Context, build *models.Build, req models.BuildRequest, scratch string) error {
	analysis, err := s.fetchAndAnalyze(ctx, req.CapabilityStatementUrl)
	if err != nil {
		return err
	}
	build.ServerUrl = analysis.ServerUrl
	if err := s.advance(ctx, build, models.BuildCapabilityFetched); err != nil {
		return err
	}

	check := s.checker.Validate(req.Resources, analysis.SupportedResources)
	if !check.Valid {
		return &UnsupportedResourcesError{
			Unsupported: check.UnsupportedResources,
			Supported:   analysis.SupportedResources,
			Suggestions: check.Suggestions,
		}
	}
	if err := s.advance(ctx, build, models.BuildValidated); err != nil {
		return err
	}

	if err := s.generator.Generate(ctx, scratch, req, analysis); err != nil {
		return fmt.Errorf("generate scaffold: %w", err)
	}
	if err := s.advance(ctx, build, models.BuildGenerated); err != nil {
		return err
	}

	data, err := archive.Pack(scratch)
	if err != nil {
		return fmt.Errorf("package scaffold: %w", err)
	}
	if err := s.advance(ctx, build, models.BuildPackaged); err != nil {
		return err
	}

	if err := s.store.Put(ctx, build.ID, data); err != nil {
		return fmt.Errorf("persist artifact: %w", err)
	}
	build.Status = models.BuildReady
	build.SizeBytes = int64(len(data))
	if err := s.repo.Save(ctx, build); err != nil {
		return fmt.Errorf("databasefout: %w", err)
	}
	return nil
}

func (s *BuilderService) advance(ctx context.Context, build *models.Build, status models.BuildStatus) error {
	if err := s.repo.UpdateStatus(ctx, build.ID, status); err != nil {
		return fmt.Errorf("databasefout: %w", err)
	}
	build.Status = status
	return nil
}

// discard removes whatever a failed build persisted. It runs detached from
// the request context so a cancelled request still cleans up.
func (s *BuilderService) discard(ctx context.Context, build *models.Build, log zerolog.Logger) {
	ctx = context.WithoutCancel(ctx)
	if err := s.store.Delete(ctx, build.ID); err != nil {
		log.Warn().Err(err).Msg("artifact cleanup failed")
	}
	if err := s.repo.UpdateStatus(ctx, build.ID, models.BuildDeletedOnError); err != nil {
		log.Warn().Err(err).Msg("status update failed")
	}
}

func (s *BuilderService) fetchAndAnalyze(ctx context.Context, url string) (*models.CapabilityAnalysis, error) {
	raw, err := s.fetcher.FetchCapabilityStatement(ctx, url)
	if err != nil {
		return nil, err
	}
	analysis, err := s.analyzer.Analyze(raw)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", url, err)
	}
	return analysis, nil
}

// GetBuild returns the archive bytes. Expiry is not checked here: an
// artifact stays downloadable until the sweep removes it.
func (s *BuilderService) GetBuild(ctx context.Context, buildID string) ([]byte, error) {
	data, err := s.store.Get(ctx, buildID)
	if errors.Is(err, storage.ErrArtifactNotFound) {
		return nil, ErrBuildNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *BuilderService) GetBuildRecord(ctx context.Context, buildID string) (*models.Build, error) {
	build, err := s.repo.GetByID(ctx, buildID)
	if err != nil {
		return nil, fmt.Errorf("databasefout: %w", err)
	}
	if build == nil {
		return nil, ErrBuildNotFound
	}
	return build, nil
}

// SweepExpired deletes artifacts whose storage modification time is older
// than the build TTL and marks their records expired. Individual failures are
// logged and counted; only a failure to list the store is returned.
func (s *BuilderService) SweepExpired(ctx context.Context) (models.SweepReport, error) {
	infos, err := s.store.List(ctx)
	if err != nil {
		return models.SweepReport{}, err
	}
	cutoff := s.now().Add(-s.opts.TTL)
	report := models.SweepReport{Scanned: len(infos)}

	var (
		mu      sync.Mutex
		deleted []string
	)
	sem := semaphore.NewWeighted(s.opts.SweepConcurrency)
	g, gctx := errgroup.WithContext(ctx)

	for _, info := range infos {
		if !info.ModTime.Before(cutoff) {
			continue
		}
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			if err := s.store.Delete(gctx, info.BuildID); err != nil {
				s.log.Warn().Err(err).Str("buildId", info.BuildID).Msg("[sweep] delete failed")
				mu.Lock()
				report.Failed++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			deleted = append(deleted, info.BuildID)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	report.Deleted = len(deleted)

	if purger, ok := s.store.(storage.StalePurger); ok {
		n, err := purger.PurgeStale(ctx, cutoff)
		if err != nil {
			s.log.Warn().Err(err).Msg("[sweep] purging stale temp files failed")
		}
		report.TempRemoved = n
	}

	if len(deleted) > 0 {
		if _, err := s.repo.MarkExpired(ctx, deleted); err != nil {
			s.log.Warn().Err(err).Int("count", len(deleted)).Msg("[sweep] marking records expired failed")
		}
	}
	s.log.Info().
		Int("scanned", report.Scanned).
		Int("deleted", report.Deleted).
		Int("failed", report.Failed).
		Int("tempRemoved", report.TempRemoved).
		Msg("[sweep] done")
	return report, nil
}

// AnalyzeURL fetches and analyzes a CapabilityStatement for preview and
// attaches a complexity estimate for the recommended resources.
func (s *BuilderService) AnalyzeURL(ctx context.Context, url string) (*models.CapabilityAnalysis, error) {
	analysis, err := s.fetchAndAnalyze(ctx, url)
	if err != nil {
		return nil, err
	}
	estimate := s.checker.EstimateComplexity(analysis.RecommendedResources)
	analysis.Complexity = &estimate
	return analysis, nil
}

// CheckResources validates a resource selection against a server without
// building anything.
func (s *BuilderService) CheckResources(ctx context.Context, input models.ValidateResourcesInput) (*models.ValidateResourcesResponse, error) {
	analysis, err := s.fetchAndAnalyze(ctx, strings.TrimSpace(input.CapabilityStatementUrl))
	if err != nil {
		return nil, err
	}
	return &models.ValidateResourcesResponse{
		Success:    true,
		Check:      s.checker.Validate(input.Resources, analysis.SupportedResources),
		Complexity: s.checker.EstimateComplexity(input.Resources),
	}, nil
}

func (s *BuilderService) ListStacks() []models.StackInfo {
	return s.generator.Stacks()
}
