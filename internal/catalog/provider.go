package catalog

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/taskhub/pkg/logger"
	"github.com/charlesng35/taskhub/pkg/metrics"
)

// ErrUnknownCode is returned by Classify when a code is not part of the catalog.
var ErrUnknownCode = errors.New("catalog: unknown code")

type snapshot struct {
	catalog  *Catalog
	err      error
	source   string
	loadedAt time.Time
}

// Provider serves category lookups from the snapshot built at startup. It is safe for
// concurrent use; Reload swaps the snapshot atomically.
type Provider struct {
	current atomic.Pointer[snapshot]
	log     *zap.Logger
	now     func() time.Time
}

// Option customises a Provider.
type Option func(*Provider)

// WithLogger overrides the provider logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Provider) {
		if log != nil {
			p.log = log
		}
	}
}

// WithNow overrides the clock used for LoadedAt.
func WithNow(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// Load builds a provider from the catalog file at path. A missing or malformed file
// never fails: the provider falls back to an empty catalog and reports Degraded.
func Load(path string, opts ...Option) *Provider {
	p := newProvider(opts...)

	c, err := ReadFile(path)
	if err != nil {
		p.log.Warn("notification catalog unavailable; continuing with empty catalog",
			zap.String("path", path),
			zap.Error(err),
		)
		c = Empty()
	} else {
		p.log.Info("notification catalog loaded",
			zap.String("path", path),
			zap.Int("categories", c.Len()),
		)
	}

	p.store(c, err, path)
	return p
}

// NewProvider wraps an already built catalog.
func NewProvider(c *Catalog, opts ...Option) *Provider {
	p := newProvider(opts...)
	if c == nil {
		c = Empty()
	}
	p.store(c, nil, "")
	return p
}

func newProvider(opts ...Option) *Provider {
	p := &Provider{
		log: logger.WithModule("catalog"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Reload replaces the snapshot with the contents of path. On failure the previous
// snapshot stays active and the error is returned. Nothing calls this implicitly.
func (p *Provider) Reload(path string) error {
	c, err := ReadFile(path)
	if err != nil {
		p.log.Warn("notification catalog reload failed", zap.String("path", path), zap.Error(err))
		return err
	}
	p.store(c, nil, path)
	p.log.Info("notification catalog reloaded", zap.String("path", path), zap.Int("categories", c.Len()))
	return nil
}

func (p *Provider) store(c *Catalog, err error, source string) {
	p.current.Store(&snapshot{catalog: c, err: err, source: source, loadedAt: p.now()})
	if err != nil {
		metrics.CatalogDegraded.Set(1)
	} else {
		metrics.CatalogDegraded.Set(0)
	}
}

func (p *Provider) snapshot() *snapshot {
	if p == nil {
		return &snapshot{catalog: Empty()}
	}
	if s := p.current.Load(); s != nil {
		return s
	}
	return &snapshot{catalog: Empty()}
}

// Degraded reports whether the active catalog is the empty fallback after a load failure.
func (p *Provider) Degraded() bool {
	return p.snapshot().err != nil
}

// Err returns the load failure behind a degraded catalog.
func (p *Provider) Err() error {
	return p.snapshot().err
}

// Status describes the active snapshot for health reporting.
type Status struct {
	Source     string    `json:"source"`
	Categories int       `json:"categories"`
	Degraded   bool      `json:"degraded"`
	Error      string    `json:"error,omitempty"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// Status returns a summary of the active snapshot.
func (p *Provider) Status() Status {
	s := p.snapshot()
	status := Status{
		Source:     s.source,
		Categories: s.catalog.Len(),
		Degraded:   s.err != nil,
		LoadedAt:   s.loadedAt,
	}
	if s.err != nil {
		status.Error = s.err.Error()
	}
	return status
}

// Categories returns the ordered category list of the active snapshot.
func (p *Provider) Categories() []CategoryDefinition {
	return p.snapshot().catalog.Categories()
}

// GetCategoryByCode returns the category for code, ignoring case. Blank or unknown codes return false.
func (p *Provider) GetCategoryByCode(code string) (CategoryDefinition, bool) {
	return p.snapshot().catalog.CategoryByCode(code)
}

// GetSubCategoryByCode returns the sub-category for code, ignoring case. Blank or unknown codes return false.
func (p *Provider) GetSubCategoryByCode(code string) (SubCategoryDefinition, bool) {
	return p.snapshot().catalog.SubCategoryByCode(code)
}

// ParentOf resolves the owning category of a sub-category through its lookup key.
func (p *Provider) ParentOf(sub SubCategoryDefinition) (CategoryDefinition, bool) {
	return p.GetCategoryByCode(sub.CategoryCode)
}

// Category returns the owning category of s in provider's active catalog.
func (s SubCategoryDefinition) Category(provider *Provider) (CategoryDefinition, bool) {
	if provider == nil {
		return CategoryDefinition{}, false
	}
	return provider.ParentOf(s)
}

// Classification is the canonical category pair attached to a notification.
type Classification struct {
	MainCategoryCode string
	SubCategoryCode  string
}

// Classify resolves an event's category pair to canonical codes. When only a sub-category
// is given its owner is used as main category; a sub-category belonging to another category
// is rejected. A degraded provider passes normalised codes through unchecked so events keep flowing.
func (p *Provider) Classify(mainCode, subCode string) (Classification, error) {
	mainCode = strings.TrimSpace(mainCode)
	subCode = strings.TrimSpace(subCode)
	if mainCode == "" && subCode == "" {
		return Classification{}, fmt.Errorf("%w: category is required", ErrUnknownCode)
	}

	if p.Degraded() {
		return Classification{MainCategoryCode: normalizeCode(mainCode), SubCategoryCode: normalizeCode(subCode)}, nil
	}

	var result Classification
	if subCode != "" {
		sub, ok := p.GetSubCategoryByCode(subCode)
		if !ok {
			return Classification{}, fmt.Errorf("%w: sub-category %q", ErrUnknownCode, subCode)
		}
		result.SubCategoryCode = sub.Code
		result.MainCategoryCode = sub.CategoryCode
	}

	if mainCode != "" {
		category, ok := p.GetCategoryByCode(mainCode)
		if !ok {
			return Classification{}, fmt.Errorf("%w: category %q", ErrUnknownCode, mainCode)
		}
		if result.MainCategoryCode != "" && result.MainCategoryCode != category.Code {
			return Classification{}, fmt.Errorf("%w: sub-category %q does not belong to %q", ErrUnknownCode, subCode, category.Code)
		}
		result.MainCategoryCode = category.Code
	}

	return result, nil
}
