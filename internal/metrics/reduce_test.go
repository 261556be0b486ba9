package metrics

import (
	"reflect"
	"testing"

	"github.com/swayne275/bitly-metrics/internal/errx"
)

func TestReduce(t *testing.T) {
	tests := []struct {
		name   string
		series CountrySeries
		want   map[string]float64
	}{
		{
			name:   "three day window averages",
			series: CountrySeries{"US": []int64{10, 20, 30}},
			want:   map[string]float64{"US": 20.0},
		},
		{
			name: "multiple countries with different day counts",
			series: CountrySeries{
				"US": []int64{10, 20, 30},
				"DE": []int64{5},
				"MX": []int64{0, 0, 0, 4},
			},
			want: map[string]float64{
				"US": 20.0,
				"DE": 5.0,
				"MX": 1.0,
			},
		},
		{
			name:   "zero clicks every day",
			series: CountrySeries{"US": []int64{0, 0, 0}},
			want:   map[string]float64{"US": 0.0},
		},
		{
			name:   "non-integral average",
			series: CountrySeries{"US": []int64{1, 2}},
			want:   map[string]float64{"US": 1.5},
		},
		{
			name:   "empty series reduces to empty mapping",
			series: CountrySeries{},
			want:   map[string]float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reduce(tt.series)
			if err != nil {
				t.Fatalf("Reduce() failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Reduce() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReduce_Idempotent(t *testing.T) {
	series := CountrySeries{
		"US": []int64{10, 20, 30},
		"DE": []int64{7, 7, 7, 7},
	}

	first, err := Reduce(series)
	if err != nil {
		t.Fatalf("Reduce() failed: %v", err)
	}
	second, err := Reduce(series)
	if err != nil {
		t.Fatalf("Reduce() failed on second call: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Reduce() is not idempotent: %v != %v", first, second)
	}
}

func TestReduce_EmptyDaySequence(t *testing.T) {
	series := CountrySeries{
		"US": []int64{10},
		"DE": []int64{},
	}

	_, err := Reduce(series)
	if err == nil {
		t.Fatal("expected error for country with no recorded days")
	}
	if got := errx.KindOf(err); got != errx.UpstreamData {
		t.Errorf("KindOf() = %v, want UpstreamData", got)
	}
}
