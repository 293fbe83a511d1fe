package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/obsidianstack/sentinel/pkg/types"
	"github.com/obsidianstack/sentinel/server/internal/collector"
	"github.com/obsidianstack/sentinel/server/internal/config"
	"github.com/obsidianstack/sentinel/server/internal/telemetry"
)

const defaultScrapeTimeout = 10 * time.Second

// TargetTag is the sample tag carrying the target ID.
const TargetTag = "target"

var (
	errMissingFamily = errors.New("metric family not present")
	errZeroDivisor   = errors.New("divisor is zero")
)

// Options configures a Scraper. The zero value is usable.
type Options struct {
	Client  *http.Client
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// Scraper polls every target on a fixed interval.
type Scraper struct {
	targets  []config.TargetConfig
	rec      collector.Recorder
	interval time.Duration
	client   *http.Client
	log      *slog.Logger
	metrics  *telemetry.Metrics
}

// New creates a Scraper recording into rec.
func New(targets []config.TargetConfig, rec collector.Recorder, interval time.Duration, opts Options) *Scraper {
	s := &Scraper{
		targets:  targets,
		rec:      rec,
		interval: interval,
		client:   opts.Client,
		log:      opts.Logger,
		metrics:  opts.Metrics,
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: defaultScrapeTimeout}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Run scrapes every target immediately and then every interval until ctx is
// cancelled.
func (s *Scraper) Run(ctx context.Context) {
	if len(s.targets) == 0 {
		return
	}
	s.ScrapeAll(ctx)

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.ScrapeAll(ctx)
		}
	}
}

// ScrapeAll scrapes each target once and returns the number of samples
// recorded.
func (s *Scraper) ScrapeAll(ctx context.Context) int {
	var n int
	for _, t := range s.targets {
		recorded, err := s.Scrape(ctx, t)
		if err != nil {
			s.metrics.ScrapeError(t.ID)
			s.log.Warn("scraper: fetch failed", "target", t.ID, "endpoint", t.Endpoint, "err", err)
			continue
		}
		n += recorded
	}
	return n
}

// Scrape fetches one target and records its gauges. Gauges whose families
// are absent, or whose divisor is zero, are skipped.
func (s *Scraper) Scrape(ctx context.Context, t config.TargetConfig) (int, error) {
	mfs, err := s.fetch(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("scrape %q: %w", t.ID, err)
	}

	tags := map[string]string{TargetTag: t.ID}
	var n int
	for _, g := range t.Gauges {
		v, err := gaugeValue(mfs, g)
		if err != nil {
			s.log.Debug("scraper: gauge skipped", "target", t.ID, "gauge", g.Name, "reason", err)
			continue
		}
		s.rec.Record(g.Name, v, types.UnitCount, tags)
		n++
	}
	return n, nil
}

func (s *Scraper) fetch(ctx context.Context, t config.TargetConfig) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	if t.Auth.Mode == "apikey" {
		req.Header.Set(t.Auth.EffectiveHeader(), t.Auth.Key())
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseMetrics(resp.Body)
}

// gaugeValue computes sum(g.Metric) / sum(g.DivideBy) * g.Scale.
func gaugeValue(mfs map[string]*dto.MetricFamily, g config.GaugeConfig) (float64, error) {
	mf, ok := mfs[g.Metric]
	if !ok {
		return 0, fmt.Errorf("%s: %w", g.Metric, errMissingFamily)
	}
	v := sumFamily(mf)

	if g.DivideBy != "" {
		div, ok := mfs[g.DivideBy]
		if !ok {
			return 0, fmt.Errorf("%s: %w", g.DivideBy, errMissingFamily)
		}
		d := sumFamily(div)
		if d == 0 {
			return 0, fmt.Errorf("%s: %w", g.DivideBy, errZeroDivisor)
		}
		v /= d
	}

	scale := g.Scale
	if scale == 0 {
		scale = 1
	}
	return v * scale, nil
}

// parseMetrics decodes a Prometheus text exposition from r into metric families.
// A partial result with a non-fatal parse warning is still returned successfully.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// sumFamily adds up all counter, gauge, or untyped values in a MetricFamily.
// Returns 0 if mf is nil.
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		}
	}
	return total
}
