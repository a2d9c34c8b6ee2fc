package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/nodewire/pkg/cache"
	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/errors"
	"github.com/matzehuels/nodewire/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// The CLI and the HTTP host both use it so caching behaves the same everywhere.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute loads snap into a fresh document and renders the requested
// formats, serving what it can from the cache.
func (r *Runner) Execute(ctx context.Context, snap document.Snapshot, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	doc := document.New()
	if err := doc.Import(snap, false); err != nil {
		return nil, err
	}
	if !doc.HasModule(opts.Module) {
		return nil, errors.New(errors.ErrCodeModuleNotFound, "module %q", opts.Module)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("hash snapshot: %w", err)
	}
	result := &Result{
		SnapshotHash: cache.Hash(data),
		Artifacts:    make(map[string][]byte, len(opts.Formats)),
	}
	result.Stats.NodeCount = doc.NodeCount(opts.Module)
	result.Stats.ConnectionCount = doc.ConnectionCount(opts.Module)

	var missing []string
	for _, format := range opts.Formats {
		if opts.Refresh {
			missing = append(missing, format)
			continue
		}
		key := r.Keyer.ArtifactKey(result.SnapshotHash, opts.ArtifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			result.Artifacts[format] = data
			result.CacheInfo.Hits = append(result.CacheInfo.Hits, format)
			continue
		} else if err != nil {
			opts.Logger.Debug("cache read failed", "format", format, "error", err)
		}
		missing = append(missing, format)
	}
	result.CacheInfo.RenderHit = len(missing) == 0

	if len(missing) == 0 {
		opts.Logger.Debug("all artifacts cached", "formats", opts.Formats)
		return result, nil
	}

	start := time.Now()
	observability.Render().OnRenderStart(ctx, missing)
	rendered, err := r.render(ctx, doc, missing, opts)
	result.Stats.RenderTime = time.Since(start)
	observability.Render().OnRenderComplete(ctx, missing, result.Stats.RenderTime, err)
	if err != nil {
		return nil, err
	}

	for _, format := range slices.Sorted(maps.Keys(rendered)) {
		result.Artifacts[format] = rendered[format]
		key := r.Keyer.ArtifactKey(result.SnapshotHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, rendered[format], cache.DefaultTTL); err != nil {
			opts.Logger.Debug("cache write failed", "format", format, "error", err)
		}
	}

	opts.Logger.Info("rendered outputs",
		"module", opts.Module,
		"nodes", result.Stats.NodeCount,
		"formats", missing,
		"duration", result.Stats.RenderTime)

	return result, nil
}

func (r *Runner) render(ctx context.Context, doc *document.Document, formats []string, opts Options) (map[string][]byte, error) {
	src, err := prepare(doc, opts)
	if err != nil {
		return nil, err
	}
	return renderFormats(ctx, src, formats, opts)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
