package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/careconnect/pkg/logging"
)

// ResultSource records which lookup produced a recommendation list.
type ResultSource string

const (
	SourcePrimary  ResultSource = "primary"
	SourceRelaxed  ResultSource = "relaxed"
	SourceFallback ResultSource = "fallback"
	SourceCache    ResultSource = "cache"
)

// Result is a ranked recommendation list.
type Result struct {
	Service  string           `json:"service"`
	Location string           `json:"location,omitempty"`
	Source   ResultSource     `json:"source"`
	Clinics  []Recommendation `json:"clinics"`
}

// Top returns the best recommendation, if any.
func (r Result) Top() (Recommendation, bool) {
	if len(r.Clinics) == 0 {
		return Recommendation{}, false
	}
	return r.Clinics[0], true
}

var ErrMissingService = errors.New("clinic: service is required")

// Options tunes a Recommender.
type Options struct {
	MinRating float64
	Limit     int
	Ranking   RankingMode
}

// Recorder observes recommendation lookups. Implemented by the metrics package.
type Recorder interface {
	ObserveRecommendation(source string, duration time.Duration)
}

// Recommender produces ranked clinic lists, degrading from the primary
// query to a relaxed query and then to the static fallback table.
type Recommender struct {
	source   Source
	cache    ResultCache
	opts     Options
	logger   *logging.Logger
	recorder Recorder
}

func NewRecommender(source Source, cache ResultCache, opts Options, logger *logging.Logger) *Recommender {
	if opts.MinRating <= 0 {
		opts.MinRating = 4.0
	}
	if opts.Limit <= 0 {
		opts.Limit = 5
	}
	if opts.Ranking == "" {
		opts.Ranking = RankByRating
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Recommender{source: source, cache: cache, opts: opts, logger: logger}
}

// WithRecorder attaches a metrics recorder.
func (r *Recommender) WithRecorder(rec Recorder) *Recommender {
	r.recorder = rec
	return r
}

// Recommend returns clinics for service near location. Directory failures
// never surface as errors; they degrade to the fallback table.
func (r *Recommender) Recommend(ctx context.Context, service, location string) (Result, error) {
	service = strings.ToLower(strings.TrimSpace(service))
	if service == "" {
		return Result{}, ErrMissingService
	}
	location = strings.TrimSpace(location)
	start := time.Now()

	key := cacheKey(service, location)
	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, key); ok {
			cached.Source = SourceCache
			r.observe(cached.Source, start)
			return cached, nil
		}
	}

	clinics, source := r.lookup(ctx, service)
	if len(clinics) > r.opts.Limit {
		clinics = clinics[:r.opts.Limit]
	}
	result := Result{
		Service:  service,
		Location: location,
		Source:   source,
		Clinics:  Rank(clinics, service, OriginFor(location), r.opts.Ranking),
	}

	if r.cache != nil && source != SourceFallback {
		r.cache.Set(ctx, key, result)
	}
	r.observe(source, start)
	return result, nil
}

func (r *Recommender) lookup(ctx context.Context, service string) ([]Clinic, ResultSource) {
	if r.source == nil {
		return FallbackClinics(service), SourceFallback
	}

	clinics, err := r.source.FindClinics(ctx, Query{Service: service, MinRating: r.opts.MinRating, Limit: r.opts.Limit})
	if err != nil {
		r.logger.Warn("clinic query failed, using fallback list", "service", service, "error", err)
		return FallbackClinics(service), SourceFallback
	}
	if len(clinics) > 0 {
		return clinics, SourcePrimary
	}

	clinics, err = r.source.FindClinics(ctx, Query{MinRating: r.opts.MinRating, Limit: r.opts.Limit})
	if err != nil {
		r.logger.Warn("relaxed clinic query failed, using fallback list", "service", service, "error", err)
		return FallbackClinics(service), SourceFallback
	}
	if len(clinics) > 0 {
		return clinics, SourceRelaxed
	}

	r.logger.Info("no clinics in directory, using fallback list", "service", service)
	return FallbackClinics(service), SourceFallback
}

func (r *Recommender) observe(source ResultSource, start time.Time) {
	if r.recorder != nil {
		r.recorder.ObserveRecommendation(string(source), time.Since(start))
	}
}

func cacheKey(service, location string) string {
	loc := strings.ToLower(strings.Join(strings.Fields(location), " "))
	return fmt.Sprintf("clinics:%s:%s", service, loc)
}
