package shipping

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Geocoder resolves a place name to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (Point, error)
}

// ErrNoResult is returned when the geocoding service has no match for the
// requested place name.
var ErrNoResult = errors.New("place not found")

// NominatimClient geocodes place names through the OpenStreetMap Nominatim
// search API. Results are cached in memory: store and customer locations are
// a small, hot set and the upstream service rate-limits aggressively.
type NominatimClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string

	mu    sync.RWMutex
	cache map[string]Point
}

// NominatimConfig configures a NominatimClient.
type NominatimConfig struct {
	// BaseURL is the search endpoint root, e.g. https://nominatim.openstreetmap.org.
	BaseURL string
	// UserAgent is sent with every request; Nominatim requires an identifying agent.
	UserAgent string
	// Timeout bounds a single geocoding request. Defaults to 5s.
	Timeout time.Duration
}

// NewNominatimClient creates a geocoding client for the given endpoint.
func NewNominatimClient(cfg NominatimConfig) *NominatimClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NominatimClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		cache:      make(map[string]Point),
	}
}

// Geocode resolves a place name to a coordinate pair. It returns ErrNoResult
// when the service has no match.
func (c *NominatimClient) Geocode(ctx context.Context, place string) (Point, error) {
	if p, ok := c.cached(place); ok {
		return p, nil
	}

	q := url.Values{}
	q.Set("q", place)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return Point{}, errors.Wrap(err, "build geocode request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Point{}, errors.Wrapf(err, "geocode %q", place)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Point{}, errors.Errorf("geocode %q: unexpected status %d", place, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Point{}, errors.Wrapf(err, "read geocode response for %q", place)
	}

	p, found, err := parseSearchResponse(body)
	if err != nil {
		return Point{}, errors.Wrapf(err, "parse geocode response for %q", place)
	}
	if !found {
		return Point{}, errors.Wrapf(ErrNoResult, "place %q", place)
	}

	c.store(place, p)
	return p, nil
}

func (c *NominatimClient) cached(place string) (Point, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.cache[place]
	return p, ok
}

func (c *NominatimClient) store(place string, p Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[place] = p
}

// parseSearchResponse extracts lat/lon from the first element of a Nominatim
// search response. Nominatim encodes coordinates as JSON strings.
func parseSearchResponse(data []byte) (Point, bool, error) {
	var (
		p     Point
		found bool
	)

	d := jx.DecodeBytes(data)
	if err := d.Arr(func(d *jx.Decoder) error {
		if found {
			return d.Skip()
		}
		return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			switch string(key) {
			case "lat":
				s, err := d.Str()
				if err != nil {
					return err
				}
				v, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return errors.Wrap(err, "parse lat")
				}
				p.Lat = v
				found = true
				return nil
			case "lon":
				s, err := d.Str()
				if err != nil {
					return err
				}
				v, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return errors.Wrap(err, "parse lon")
				}
				p.Lon = v
				found = true
				return nil
			default:
				return d.Skip()
			}
		})
	}); err != nil {
		return Point{}, false, err
	}

	return p, found, nil
}
