package metrics

// Link is one shortened URL owned by the caller's default group on Bitly.
// It lives for a single request: listed, fetched against, then discarded.
type Link struct {
	// ID is the scheme-stripped domain/hash of the bitlink, e.g.
	// "bit.ly/2FKV2as". It is the path segment the Bitly metrics endpoints
	// expect and the key links are reported under in responses.
	ID string

	// ShortURL is the full short link as returned by the listing endpoint.
	ShortURL string
}

// CountrySeries maps a country code to the ordered daily click counts for one
// link over the trailing window. Bitly supplies the counts already bucketed
// per day; nothing here re-buckets them.
type CountrySeries map[string][]int64

// Aggregate is the terminal artifact of the pipeline: link ID to country to
// average daily clicks over the window.
type Aggregate map[string]map[string]float64
