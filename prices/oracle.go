// Package prices looks up local ingredient prices, falling back to a fixed catalog
// when live research is unavailable.
package prices

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nutribudget"
	"nutribudget/activity"
)

const defaultResearchTimeout = 20 * time.Second

type Oracle struct {
	researcher nutribudget.Researcher
	catalog    []nutribudget.PricedIngredient
	timeout    time.Duration
}

type Option func(*Oracle)

// WithCatalog replaces the built-in fallback catalog. Empty catalogs are ignored.
func WithCatalog(items []nutribudget.PricedIngredient) Option {
	return func(o *Oracle) {
		if len(items) > 0 {
			o.catalog = items
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *Oracle) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// NewOracle creates an oracle. researcher may be nil, in which case every lookup
// uses the catalog.
func NewOracle(researcher nutribudget.Researcher, opts ...Option) *Oracle {
	o := &Oracle{
		researcher: researcher,
		catalog:    MockCatalog(),
		timeout:    defaultResearchTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Catalog returns a copy of the fallback catalog.
func (o *Oracle) Catalog() []nutribudget.PricedIngredient {
	return append([]nutribudget.PricedIngredient(nil), o.catalog...)
}

// FetchPrices returns a non-empty ingredient list for location. It never fails: any
// research problem is logged and answered from the catalog. Exactly one activity entry
// summarizes the outcome.
func (o *Oracle) FetchPrices(ctx context.Context, location string, categories []string, log *activity.Log) []nutribudget.PricedIngredient {
	items, err := o.research(ctx, location, categories)
	if err == nil {
		slog.Info("ORACLE: Research succeeded", "location", location, "ingredients", len(items))
		log.Appendf("✅ Found %d ingredient prices near %s from %s", len(items), location, provenance(items))
		return items
	}

	slog.Warn("ORACLE: Falling back to catalog", "location", location, "error", err)
	log.Appendf("⚠️ Live price research unavailable, using %d typical prices", len(o.catalog))
	return o.Catalog()
}

// provenance names where research answers came from for the activity log.
func provenance(items []nutribudget.PricedIngredient) string {
	mock := 0
	for _, it := range items {
		if it.Source == nutribudget.SourceMock {
			mock++
		}
	}
	switch mock {
	case 0:
		return "live research"
	case len(items):
		return "sample prices"
	default:
		return "live research and sample prices"
	}
}

func (o *Oracle) research(ctx context.Context, location string, categories []string) ([]nutribudget.PricedIngredient, error) {
	if o.researcher == nil {
		return nil, fmt.Errorf("%w: no research capability configured", nutribudget.ErrCapabilityUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	text, err := o.researcher.Research(ctx, Query(location, categories))
	if err != nil {
		return nil, fmt.Errorf("%w: research failed after %s: %v", nutribudget.ErrCapabilityUnavailable, time.Since(start).Round(time.Millisecond), err)
	}
	return ParseIngredients(text)
}
