// Package words supplies search terms: a local word file when one exists,
// Google daily trends otherwise.
package words

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	apihttp "github.com/mrfarmer/rewards-farmer-bot/internal/adapters/http"
	"github.com/mrfarmer/rewards-farmer-bot/pkg/utils"
)

// ErrUnavailable means neither the word file nor the trends API produced any
// usable terms.
var ErrUnavailable = errors.New("couldn't get search words")

const (
	trendsEndpoint      = "https://trends.google.com/trends/api/dailytrends"
	suggestionsEndpoint = "https://api.bing.com/osjson.aspx"

	// Trends responses are armored with this junk prefix before the JSON.
	trendsJunkPrefix = ")]}',"

	maxTrendsDayWalkback = 7
)

type trendsParams struct {
	HL  string `url:"hl"`
	ED  string `url:"ed"`
	Geo string `url:"geo"`
	NS  int    `url:"ns"`
}

// Source hands out search words. The file pool is read once and sampled
// without replacement so one run never repeats a query.
type Source struct {
	client *apihttp.APIClient
	path   string
	now    func() time.Time

	mu     sync.Mutex
	pool   []string
	loaded bool
}

func NewSource(path string, client *apihttp.APIClient) *Source {
	return &Source{client: client, path: path, now: time.Now}
}

// Take returns up to n words, preferring the local file. When the file is
// missing or exhausted it falls back to trending searches.
func (s *Source) Take(n int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.pool = readWordFile(s.path)
		s.loaded = true
	}

	out := make([]string, 0, n)
	for len(out) < n && len(s.pool) > 0 {
		i := utils.RandomRange(0, len(s.pool)-1)
		out = append(out, s.pool[i])
		s.pool = append(s.pool[:i], s.pool[i+1:]...)
	}
	if len(out) == n {
		return out, nil
	}

	trending, err := s.fetchTrending(n - len(out))
	if err != nil && len(out) == 0 {
		return nil, err
	}
	out = append(out, trending...)
	if len(out) == 0 {
		return nil, ErrUnavailable
	}
	return out, nil
}

// RelatedTerms queries the suggestion endpoint for a word. Best effort; an
// empty slice on any failure.
func (s *Source) RelatedTerms(word string) []string {
	if s.client == nil {
		return nil
	}
	endpoint := fmt.Sprintf("%s?query=%s", suggestionsEndpoint, url.QueryEscape(word))
	raw, err := s.client.FetchRaw(endpoint, nil)
	if err != nil {
		return nil
	}

	// Response shape: ["query", ["suggestion", ...]]
	var payload []json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload) < 2 {
		return nil
	}
	var terms []string
	if err := json.Unmarshal(payload[1], &terms); err != nil {
		return nil
	}
	return terms
}

// fetchTrending walks back day by day collecting trending queries until it
// has enough. Must be called with s.mu held.
func (s *Source) fetchTrending(n int) ([]string, error) {
	if s.client == nil {
		return nil, ErrUnavailable
	}

	seen := map[string]bool{}
	var out []string
	day := s.now()

	for i := 0; i < maxTrendsDayWalkback && len(out) < n; i++ {
		params, err := utils.EncodeURLParams(trendsParams{
			HL:  "en-US",
			ED:  day.Format("20060102"),
			Geo: "US",
			NS:  15,
		})
		if err != nil {
			return nil, err
		}

		raw, err := s.client.FetchRaw(trendsEndpoint+"?"+params, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		for _, q := range parseTrendingQueries(raw) {
			q = strings.ToLower(strings.TrimSpace(q))
			if q == "" || seen[q] {
				continue
			}
			seen[q] = true
			out = append(out, q)
			if len(out) == n {
				break
			}
		}
		day = day.AddDate(0, 0, -1)
	}

	if len(out) == 0 {
		return nil, ErrUnavailable
	}
	return out, nil
}

func parseTrendingQueries(raw []byte) []string {
	body := strings.TrimPrefix(string(raw), trendsJunkPrefix)

	var payload struct {
		Default struct {
			TrendingSearchesDays []struct {
				TrendingSearches []struct {
					Title struct {
						Query string `json:"query"`
					} `json:"title"`
					RelatedQueries []struct {
						Query string `json:"query"`
					} `json:"relatedQueries"`
				} `json:"trendingSearches"`
			} `json:"trendingSearchesDays"`
		} `json:"default"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil
	}

	var out []string
	for _, day := range payload.Default.TrendingSearchesDays {
		for _, ts := range day.TrendingSearches {
			out = append(out, ts.Title.Query)
			for _, rq := range ts.RelatedQueries {
				out = append(out, rq.Query)
			}
		}
	}
	return out
}

func readWordFile(path string) []string {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var pool []string
	for _, line := range strings.Split(string(b), "\n") {
		word := strings.TrimSpace(line)
		if word != "" {
			pool = append(pool, word)
		}
	}
	return pool
}
