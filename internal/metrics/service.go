package metrics

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/swayne275/bitly-metrics/internal/errx"
)

// Upstream is the slice of the Bitly API the pipeline consumes. The bitly
// package provides the production implementation.
type Upstream interface {
	DefaultGroup(ctx context.Context, token string) (string, error)
	GroupLinks(ctx context.Context, token, groupGUID string) ([]Link, error)
	CountrySeries(ctx context.Context, token string, link Link) (CountrySeries, error)
}

// Options carries per-request knobs for the aggregation.
type Options struct {
	// Country, when set, restricts the result to that country code
	// (compared case-insensitively).
	Country string
}

// Service defines the aggregation operation the HTTP layer calls.
type Service interface {
	CountryAverages(ctx context.Context, token string, opts Options) (Aggregate, error)
}

// service implements the Service interface.
type service struct {
	upstream Upstream
	logger   *slog.Logger
}

// NewService creates a new service instance.
func NewService(upstream Upstream, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		upstream: upstream,
		logger:   logger,
	}
}

// CountryAverages resolves the caller's default group, lists its links, and
// fans out one country-series fetch per link before reducing each series to
// per-country daily averages.
//
// The fan-out is all-or-nothing: if any link's fetch fails, the whole request
// fails with that error and partial results are discarded. The first failure
// also cancels the group context, so still-pending sibling fetches may be cut
// short rather than completing for nothing.
func (s *service) CountryAverages(ctx context.Context, token string, opts Options) (Aggregate, error) {
	const op = "metrics.service.CountryAverages"

	if strings.TrimSpace(token) == "" {
		return nil, errx.E(op, errx.BadCredential, errors.New("missing access token"))
	}

	groupGUID, err := s.upstream.DefaultGroup(ctx, token)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}

	links, err := s.upstream.GroupLinks(ctx, token, groupGUID)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}

	s.logger.DebugContext(ctx, "fetching country click series",
		"group", groupGUID,
		"links", len(links),
	)

	// Fan out one fetch per link; join on all of them before reducing.
	series := make([]CountrySeries, len(links))
	g, gctx := errgroup.WithContext(ctx)
	for i, link := range links {
		g.Go(func() error {
			cs, err := s.upstream.CountrySeries(gctx, token, link)
			if err != nil {
				return err
			}
			series[i] = cs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}

	out := make(Aggregate, len(links))
	for i, link := range links {
		averages, err := Reduce(series[i])
		if err != nil {
			return nil, errx.E(op, errx.KindOf(err), err)
		}
		if opts.Country != "" {
			averages = filterCountry(averages, opts.Country)
		}
		out[link.ID] = averages
	}

	return out, nil
}

// filterCountry keeps only the requested country in a reduced mapping.
func filterCountry(averages map[string]float64, country string) map[string]float64 {
	want := strings.ToLower(country)
	out := make(map[string]float64, 1)
	for c, avg := range averages {
		if strings.ToLower(c) == want {
			out[c] = avg
		}
	}
	return out
}
