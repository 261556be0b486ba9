package metrics

import (
	"fmt"

	"github.com/swayne275/bitly-metrics/internal/errx"
)

// Reduce collapses one link's country click series into per-country daily
// averages: sum of the country's daily counts divided by the number of days
// recorded for it. Pure function; reducing the same series twice yields the
// same result.
//
// A country present with no recorded days means Bitly handed back a shape we
// cannot average, so it fails as an upstream data error rather than dividing
// by zero.
func Reduce(series CountrySeries) (map[string]float64, error) {
	const op = "metrics.reduce"

	out := make(map[string]float64, len(series))
	for country, days := range series {
		if len(days) == 0 {
			return nil, errx.E(op, errx.UpstreamData,
				fmt.Errorf("country %q has no recorded days", country))
		}

		var sum int64
		for _, clicks := range days {
			sum += clicks
		}
		out[country] = float64(sum) / float64(len(days))
	}

	return out, nil
}
