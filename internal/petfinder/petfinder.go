// Package petfinder fetches adoptable dogs from the Petfinder v2 API.
package petfinder

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/dogfinder/internal/dogs"
)

const (
	apiURL    = "https://api.petfinder.com/v2"
	userAgent = "spigell/dogfinder"
	// Max value for search per page.
	perPage = "100"

	defaultPageInterval   = 300 * time.Millisecond
	defaultSearchesPerMin = 5
	defaultOrgTTL         = time.Hour
	defaultZipWorkers     = 2
	defaultRetryDelay     = time.Second
)

// ErrRateLimited is returned when a search is attempted above the configured search rate.
var ErrRateLimited = errors.New("rate limit exceeded, try again in a minute")

// Options tune the politeness of the client. Zero values mean defaults.
type Options struct {
	// PageInterval is the minimal gap between two requests.
	PageInterval time.Duration `mapstructure:"page-interval"`
	// SearchesPerMinute caps Fetch calls.
	SearchesPerMinute int `mapstructure:"searches-per-minute"`
	// OrganizationTTL is how long organization lookups stay cached.
	OrganizationTTL time.Duration `mapstructure:"organization-ttl"`
	// ZipWorkers bounds how many zip codes are searched concurrently.
	ZipWorkers int `mapstructure:"zip-workers"`
	// RetryDelay is the base delay between retries of throttled or failed requests.
	RetryDelay time.Duration `mapstructure:"retry-delay"`
}

type Client struct {
	clientID     string
	clientSecret string
	logger       *zap.Logger
	HTTPClient   *http.Client
	UserAgent    string
	APIURL       string

	pacer      *rate.Limiter
	searches   *rate.Limiter
	zipWorkers int
	retryDelay time.Duration
	now        func() time.Time

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time

	orgs *organizationCache
}

func New(logger *zap.Logger, clientID, clientSecret string, opts Options) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PageInterval <= 0 {
		opts.PageInterval = defaultPageInterval
	}
	if opts.SearchesPerMinute <= 0 {
		opts.SearchesPerMinute = defaultSearchesPerMin
	}
	if opts.OrganizationTTL <= 0 {
		opts.OrganizationTTL = defaultOrgTTL
	}
	if opts.ZipWorkers <= 0 {
		opts.ZipWorkers = defaultZipWorkers
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}

	c := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger,
		APIURL:       apiURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		UserAgent:  userAgent,
		pacer:      rate.NewLimiter(rate.Every(opts.PageInterval), 1),
		searches:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.SearchesPerMinute)), opts.SearchesPerMinute),
		zipWorkers: opts.ZipWorkers,
		retryDelay: opts.RetryDelay,
		now:        time.Now,
	}
	c.orgs = newOrganizationCache(opts.OrganizationTTL, func() time.Time { return c.now() })
	return c
}

// Fetch searches every zip code of q and returns fresh dogs unique by id and fingerprint,
// newest first.
func (c *Client) Fetch(ctx context.Context, q Query) ([]dogs.Dog, error) {
	return c.fetch(ctx, q)
}

// GetDog returns a single listing or nil when it no longer exists.
func (c *Client) GetDog(ctx context.Context, id string) (*dogs.Dog, error) {
	return c.getAnimal(ctx, id)
}
