package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/swayne275/bitly-metrics/internal/errx"
)

/***************
 * Mocks
 ***************/

// mockUpstream implements the Upstream interface for testing. Call counters
// are atomic because CountrySeries runs from concurrent goroutines.
type mockUpstream struct {
	defaultGroupFunc  func(ctx context.Context, token string) (string, error)
	groupLinksFunc    func(ctx context.Context, token, groupGUID string) ([]Link, error)
	countrySeriesFunc func(ctx context.Context, token string, link Link) (CountrySeries, error)

	defaultGroupCalls  atomic.Int64
	groupLinksCalls    atomic.Int64
	countrySeriesCalls atomic.Int64
}

func (m *mockUpstream) DefaultGroup(ctx context.Context, token string) (string, error) {
	m.defaultGroupCalls.Add(1)
	if m.defaultGroupFunc != nil {
		return m.defaultGroupFunc(ctx, token)
	}
	return "Bj71ifpGx2i", nil
}

func (m *mockUpstream) GroupLinks(ctx context.Context, token, groupGUID string) ([]Link, error) {
	m.groupLinksCalls.Add(1)
	if m.groupLinksFunc != nil {
		return m.groupLinksFunc(ctx, token, groupGUID)
	}
	return nil, nil
}

func (m *mockUpstream) CountrySeries(ctx context.Context, token string, link Link) (CountrySeries, error) {
	m.countrySeriesCalls.Add(1)
	if m.countrySeriesFunc != nil {
		return m.countrySeriesFunc(ctx, token, link)
	}
	return CountrySeries{"US": []int64{1}}, nil
}

func (m *mockUpstream) totalCalls() int64 {
	return m.defaultGroupCalls.Load() + m.groupLinksCalls.Load() + m.countrySeriesCalls.Load()
}

func testLinks(n int) []Link {
	links := make([]Link, n)
	for i := range links {
		id := fmt.Sprintf("bit.ly/l%03d", i)
		links[i] = Link{ID: id, ShortURL: "https://" + id}
	}
	return links
}

/***************
 * Pipeline Tests
 ***************/

func TestCountryAverages_Success(t *testing.T) {
	links := testLinks(3)
	upstream := &mockUpstream{
		groupLinksFunc: func(ctx context.Context, token, groupGUID string) ([]Link, error) {
			if groupGUID != "Bj71ifpGx2i" {
				t.Errorf("groupGUID = %q, want Bj71ifpGx2i", groupGUID)
			}
			return links, nil
		},
		countrySeriesFunc: func(ctx context.Context, token string, link Link) (CountrySeries, error) {
			return CountrySeries{
				"US": []int64{10, 20, 30},
				"DE": []int64{4, 6},
			}, nil
		},
	}

	svc := NewService(upstream, nil)
	agg, err := svc.CountryAverages(context.Background(), "tok123", Options{})
	if err != nil {
		t.Fatalf("CountryAverages() failed: %v", err)
	}

	// Result key set must exactly equal the listed links.
	if len(agg) != len(links) {
		t.Fatalf("len(agg) = %d, want %d", len(agg), len(links))
	}
	for _, link := range links {
		countries, ok := agg[link.ID]
		if !ok {
			t.Fatalf("result missing link %q", link.ID)
		}
		if got := countries["US"]; got != 20.0 {
			t.Errorf("agg[%s][US] = %v, want 20.0", link.ID, got)
		}
		if got := countries["DE"]; got != 5.0 {
			t.Errorf("agg[%s][DE] = %v, want 5.0", link.ID, got)
		}
	}
}

func TestCountryAverages_EmptyCredential(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty string", ""},
		{"whitespace only", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := &mockUpstream{}
			svc := NewService(upstream, nil)

			_, err := svc.CountryAverages(context.Background(), tt.token, Options{})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errx.KindOf(err); got != errx.BadCredential {
				t.Errorf("KindOf() = %v, want BadCredential", got)
			}
			if calls := upstream.totalCalls(); calls != 0 {
				t.Errorf("upstream calls = %d, want 0", calls)
			}
		})
	}
}

func TestCountryAverages_GroupResolutionFailure(t *testing.T) {
	upstream := &mockUpstream{
		defaultGroupFunc: func(ctx context.Context, token string) (string, error) {
			return "", errx.E("bitly.client.DefaultGroup", errx.BadCredential,
				errors.New("bitly responded 403: forbidden"))
		},
	}
	svc := NewService(upstream, nil)

	_, err := svc.CountryAverages(context.Background(), "bad-token", Options{})
	if got := errx.KindOf(err); got != errx.BadCredential {
		t.Errorf("KindOf() = %v, want BadCredential", got)
	}
	if calls := upstream.groupLinksCalls.Load(); calls != 0 {
		t.Errorf("GroupLinks calls = %d, want 0 after group resolution failure", calls)
	}
}

func TestCountryAverages_EmptyGroup(t *testing.T) {
	upstream := &mockUpstream{} // GroupLinks returns no links
	svc := NewService(upstream, nil)

	agg, err := svc.CountryAverages(context.Background(), "tok", Options{})
	if err != nil {
		t.Fatalf("CountryAverages() failed: %v", err)
	}
	if agg == nil {
		t.Fatal("expected empty non-nil aggregate")
	}
	if len(agg) != 0 {
		t.Errorf("len(agg) = %d, want 0", len(agg))
	}
	if calls := upstream.countrySeriesCalls.Load(); calls != 0 {
		t.Errorf("CountrySeries calls = %d, want 0 for empty group", calls)
	}
}

func TestCountryAverages_FanOutFailureIsAllOrNothing(t *testing.T) {
	links := testLinks(3)
	upstream := &mockUpstream{
		groupLinksFunc: func(ctx context.Context, token, groupGUID string) ([]Link, error) {
			return links, nil
		},
		countrySeriesFunc: func(ctx context.Context, token string, link Link) (CountrySeries, error) {
			if link.ID == links[1].ID {
				return nil, errx.E("bitly.client.CountrySeries", errx.UpstreamHTTP,
					errors.New("bitly responded 503: unavailable"))
			}
			return CountrySeries{"US": []int64{5}}, nil
		},
	}
	svc := NewService(upstream, nil)

	agg, err := svc.CountryAverages(context.Background(), "tok", Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if agg != nil {
		t.Errorf("expected no partial aggregate, got %v", agg)
	}
	if got := errx.KindOf(err); got != errx.UpstreamHTTP {
		t.Errorf("KindOf() = %v, want UpstreamHTTP", got)
	}

	// The failing link's error must surface verbatim in the chain.
	var e *errx.Error
	if !errors.As(err, &e) {
		t.Fatal("expected *errx.Error")
	}
	if want := "bitly responded 503"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want it to contain %q", err.Error(), want)
	}
}

func TestCountryAverages_ConcurrentFanOut(t *testing.T) {
	const (
		numLinks     = 50
		perCallDelay = 40 * time.Millisecond
	)

	upstream := &mockUpstream{
		groupLinksFunc: func(ctx context.Context, token, groupGUID string) ([]Link, error) {
			return testLinks(numLinks), nil
		},
		countrySeriesFunc: func(ctx context.Context, token string, link Link) (CountrySeries, error) {
			time.Sleep(perCallDelay)
			return CountrySeries{"US": []int64{1, 2, 3}}, nil
		},
	}
	svc := NewService(upstream, nil)

	start := time.Now()
	agg, err := svc.CountryAverages(context.Background(), "tok", Options{})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("CountryAverages() failed: %v", err)
	}
	if len(agg) != numLinks {
		t.Fatalf("len(agg) = %d, want %d", len(agg), numLinks)
	}

	// Serial execution would take numLinks * perCallDelay (2s). Allow a
	// generous factor over a single call for scheduler noise.
	if limit := 10 * perCallDelay; elapsed > limit {
		t.Errorf("fan-out took %v, want under %v (serial would be %v)",
			elapsed, limit, numLinks*perCallDelay)
	}

	if calls := upstream.countrySeriesCalls.Load(); calls != numLinks {
		t.Errorf("CountrySeries calls = %d, want %d", calls, numLinks)
	}
}

func TestCountryAverages_CountryFilter(t *testing.T) {
	upstream := &mockUpstream{
		groupLinksFunc: func(ctx context.Context, token, groupGUID string) ([]Link, error) {
			return testLinks(1), nil
		},
		countrySeriesFunc: func(ctx context.Context, token string, link Link) (CountrySeries, error) {
			return CountrySeries{
				"US": []int64{10},
				"DE": []int64{20},
			}, nil
		},
	}
	svc := NewService(upstream, nil)

	t.Run("filter is case-insensitive", func(t *testing.T) {
		agg, err := svc.CountryAverages(context.Background(), "tok", Options{Country: "us"})
		if err != nil {
			t.Fatalf("CountryAverages() failed: %v", err)
		}

		countries := agg["bit.ly/l000"]
		if len(countries) != 1 {
			t.Fatalf("len(countries) = %d, want 1", len(countries))
		}
		if got := countries["US"]; got != 10.0 {
			t.Errorf("countries[US] = %v, want 10.0", got)
		}
	})

	t.Run("unmatched filter leaves links with empty mappings", func(t *testing.T) {
		agg, err := svc.CountryAverages(context.Background(), "tok", Options{Country: "FR"})
		if err != nil {
			t.Fatalf("CountryAverages() failed: %v", err)
		}
		if countries := agg["bit.ly/l000"]; len(countries) != 0 {
			t.Errorf("countries = %v, want empty", countries)
		}
	})
}

func TestCountryAverages_ReduceFailureFailsRequest(t *testing.T) {
	upstream := &mockUpstream{
		groupLinksFunc: func(ctx context.Context, token, groupGUID string) ([]Link, error) {
			return testLinks(2), nil
		},
		countrySeriesFunc: func(ctx context.Context, token string, link Link) (CountrySeries, error) {
			// One link carries a country with no recorded days.
			if link.ID == "bit.ly/l001" {
				return CountrySeries{"US": []int64{}}, nil
			}
			return CountrySeries{"US": []int64{3}}, nil
		},
	}
	svc := NewService(upstream, nil)

	_, err := svc.CountryAverages(context.Background(), "tok", Options{})
	if got := errx.KindOf(err); got != errx.UpstreamData {
		t.Errorf("KindOf() = %v, want UpstreamData", got)
	}
}
