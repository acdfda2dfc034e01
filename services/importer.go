package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"feed_importer/feeds"
	"feed_importer/models"
	"feed_importer/storage"
)

var (
	ErrNoStrategy = errors.New("no suitable strategy for this content")
	ErrNoRecords  = errors.New("no records extracted")
	ErrUnparsable = errors.New("content could not be parsed")
)

// CatalogStore persists catalog rows keyed by (tenant, external id).
// FindByExternalID returns nil, nil when no row exists.
type CatalogStore interface {
	FindByExternalID(ctx context.Context, tenantID, externalID string) (*models.CatalogRow, error)
	Create(ctx context.Context, row *models.CatalogRow) error
	Update(ctx context.Context, row *models.CatalogRow) error
}

// Validator rejects records that must not reach the catalog.
type Validator interface {
	Validate(p *models.NormalizedProperty) error
}

// Archiver keeps a copy of raw input and returns where it was stored.
type Archiver interface {
	Archive(ctx context.Context, tenantID, content string) (string, error)
}

type ImporterOptions struct {
	Concurrency int
	Validator   Validator
	Archive     Archiver
	Logger      *slog.Logger
	Now         func() time.Time
}

// Importer detects the feed dialect, parses it and reconciles the records
// against a catalog store.
type Importer struct {
	registry    *feeds.Registry
	store       CatalogStore
	validator   Validator
	archive     Archiver
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

func NewImporter(registry *feeds.Registry, store CatalogStore, opts ImporterOptions) *Importer {
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Importer{
		registry:    registry,
		store:       store,
		validator:   opts.Validator,
		archive:     opts.Archive,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
		now:         opts.Now,
	}
}

func (i *Importer) Registry() *feeds.Registry {
	return i.registry
}

// DetectAndParse tries every strategy that accepts the content, country-scoped
// ones first, and returns the first non-empty result.
func (i *Importer) DetectAndParse(ctx context.Context, content, countryHint string) (*models.ParseResult, error) {
	candidates := i.registry.Candidates(content, countryHint)
	if len(candidates) == 0 {
		return nil, ErrNoStrategy
	}
	code := ""
	if countryHint != "" {
		code = i.registry.CountryCode(countryHint)
	}

	var lastErr error
	var emptyFrom feeds.Strategy
	for _, s := range candidates {
		records, err := s.Parse(ctx, content, code)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			i.logger.Warn("strategy failed", "strategy", s.Format(), "error", err)
			lastErr = err
			continue
		}
		if len(records) == 0 {
			i.logger.Debug("strategy extracted nothing", "strategy", s.Format())
			if emptyFrom == nil {
				emptyFrom = s
			}
			continue
		}
		return newParseResult(s, code, records), nil
	}

	if emptyFrom != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoRecords, emptyFrom.Name())
	}
	return nil, fmt.Errorf("%w: %w", ErrUnparsable, lastErr)
}

// ParseWithFormat runs the named strategy without detection. An unknown
// format falls back to DetectAndParse.
func (i *Importer) ParseWithFormat(ctx context.Context, content string, format models.Format, country string) (*models.ParseResult, error) {
	s, ok := i.registry.ByFormat(format)
	if !ok {
		i.logger.Debug("unknown format, detecting", "format", format)
		return i.DetectAndParse(ctx, content, country)
	}
	code := ""
	if country != "" {
		code = i.registry.CountryCode(country)
	}

	records, err := s.Parse(ctx, content, code)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrUnparsable, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRecords, s.Name())
	}
	return newParseResult(s, code, records), nil
}

func newParseResult(s feeds.Strategy, code string, records []models.NormalizedProperty) *models.ParseResult {
	if code == "" {
		code = records[0].CountryCode
	}
	return &models.ParseResult{
		StrategyName: s.Name(),
		Format:       s.Format(),
		CountryCode:  code,
		Records:      records,
	}
}

type outcomeKind int

const (
	outcomePending outcomeKind = iota
	outcomeCreated
	outcomeUpdated
	outcomeFailed
)

type outcome struct {
	kind outcomeKind
	err  error
}

// ImportToDatabase creates or updates one catalog row per record. Records
// sharing an external id are reconciled in input order by a single worker;
// distinct ids run in parallel. A failed record never stops the batch, and
// counts and error order do not depend on scheduling.
func (i *Importer) ImportToDatabase(ctx context.Context, tenantID string, records []models.NormalizedProperty, store CatalogStore) *models.ImportResult {
	outcomes := make([]outcome, len(records))

	var order []string
	groups := make(map[string][]int)
	for idx := range records {
		if i.validator != nil {
			if err := i.validator.Validate(&records[idx]); err != nil {
				outcomes[idx] = outcome{kind: outcomeFailed, err: err}
				continue
			}
		}
		id := records[idx].ExternalID
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}
		groups[id] = append(groups[id], idx)
	}

	var g errgroup.Group
	g.SetLimit(i.concurrency)
	for _, id := range order {
		indexes := groups[id]
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			for _, idx := range indexes {
				if err := ctx.Err(); err != nil {
					return nil
				}
				outcomes[idx] = i.reconcile(ctx, tenantID, &records[idx], store)
			}
			return nil
		})
	}
	g.Wait()

	result := &models.ImportResult{
		Records: records,
		Errors:  []string{},
	}
	for idx, o := range outcomes {
		if o.kind == outcomePending {
			o = outcome{kind: outcomeFailed, err: fmt.Errorf("not processed: %w", context.Cause(ctx))}
		}
		switch o.kind {
		case outcomeCreated:
			result.CreatedCount++
		case outcomeUpdated:
			result.UpdatedCount++
		case outcomeFailed:
			result.SkippedCount++
			result.Errors = append(result.Errors, fmt.Sprintf("record %d (%s): %v", idx+1, records[idx].ExternalID, o.err))
		}
	}
	result.Success = len(result.Errors) == 0
	return result
}

func (i *Importer) reconcile(ctx context.Context, tenantID string, p *models.NormalizedProperty, store CatalogStore) outcome {
	now := i.now()
	existing, err := store.FindByExternalID(ctx, tenantID, p.ExternalID)
	if err != nil {
		return outcome{kind: outcomeFailed, err: fmt.Errorf("lookup: %w", err)}
	}
	if existing == nil {
		row := models.NewCatalogRow(tenantID, p, now)
		if err := store.Create(ctx, row); err != nil {
			return outcome{kind: outcomeFailed, err: fmt.Errorf("create: %w", err)}
		}
		return outcome{kind: outcomeCreated}
	}
	existing.Apply(p, now)
	if err := store.Update(ctx, existing); err != nil {
		return outcome{kind: outcomeFailed, err: fmt.Errorf("update: %w", err)}
	}
	return outcome{kind: outcomeUpdated}
}

type ImportRequest struct {
	TenantID string
	Content  string
	Country  string
	Format   models.Format
	DryRun   bool
}

// Import archives the raw input when an archive is configured, parses it and
// reconciles the records. Dry runs reconcile against an empty in-memory store.
// The error is non-nil only for batch-fatal failures.
func (i *Importer) Import(ctx context.Context, req ImportRequest) (*models.ImportResult, error) {
	if req.TenantID == "" {
		return nil, errors.New("tenant id is required")
	}
	logger := i.logger.With("tenant", req.TenantID)

	archiveKey := ""
	if i.archive != nil && !req.DryRun {
		key, err := i.archive.Archive(ctx, req.TenantID, req.Content)
		if err != nil {
			logger.Warn("raw input not archived", "error", err)
		} else {
			archiveKey = key
		}
	}

	var parsed *models.ParseResult
	var err error
	if req.Format != "" {
		parsed, err = i.ParseWithFormat(ctx, req.Content, req.Format, req.Country)
	} else {
		parsed, err = i.DetectAndParse(ctx, req.Content, req.Country)
	}
	if err != nil {
		logger.Error("import failed", "error", err)
		return nil, err
	}

	var store CatalogStore = i.store
	if req.DryRun || store == nil {
		store = storage.NewMemoryStore()
	}

	start := time.Now()
	result := i.ImportToDatabase(ctx, req.TenantID, parsed.Records, store)
	result.StrategyName = parsed.StrategyName
	result.CountryCode = parsed.CountryCode
	result.ArchiveKey = archiveKey

	logger.Info("import finished",
		"strategy", parsed.Format,
		"records", len(parsed.Records),
		"created", result.CreatedCount,
		"updated", result.UpdatedCount,
		"skipped", result.SkippedCount,
		"dry_run", req.DryRun,
		"duration", time.Since(start),
	)
	for _, msg := range result.Errors {
		logger.Warn("record not imported", "detail", msg)
	}
	return result, nil
}
