package petfinder

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/dogfinder/internal/dogs"
	"github.com/spigell/dogfinder/internal/logger"
)

const (
	Source = "petfinder"

	defaultRadiusMi = 100
	defaultAges     = "baby,young"
	defaultMaxAge   = 24 * time.Hour
)

// DefaultZipCodes are searched when none are configured.
var DefaultZipCodes = []string{"08401", "11211", "19003"}

// Query describes one search across several zip codes.
type Query struct {
	ZipCodes []string      `mapstructure:"zip-codes"`
	RadiusMi int           `mapstructure:"radius"`
	Ages     []string      `mapstructure:"ages"`
	// MaxAge drops listings published earlier than now minus MaxAge.
	MaxAge time.Duration `mapstructure:"max-age"`
}

// SearchParams is a single zip code search request.
type SearchParams struct {
	// pfparam is custom tag for reflect. Please see buildParams.
	Type     string `pfparam:"type"`
	Status   string `pfparam:"status"`
	Location string `pfparam:"location"`
	Distance int    `pfparam:"distance"`
	Age      string `pfparam:"age"`
	Sort     string `pfparam:"sort"`
	Limit    string `pfparam:"limit"`
	Page     int    `pfparam:"page"`
}

type pagination struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

type animalsResponse struct {
	Animals    []any      `json:"animals"`
	Pagination pagination `json:"pagination"`
}

type animalResponse struct {
	Animal map[string]any `json:"animal"`
}

func (q Query) withDefaults() Query {
	var zips []string
	for _, z := range q.ZipCodes {
		if z = strings.TrimSpace(z); z != "" {
			zips = append(zips, z)
		}
	}
	if len(zips) == 0 {
		zips = append(zips, DefaultZipCodes...)
	}
	q.ZipCodes = zips

	if q.RadiusMi <= 0 {
		q.RadiusMi = defaultRadiusMi
	}
	if q.MaxAge <= 0 {
		q.MaxAge = defaultMaxAge
	}
	return q
}

func (q Query) ages() string {
	var ages []string
	for _, a := range q.Ages {
		if a = strings.TrimSpace(a); a != "" {
			ages = append(ages, strings.ToLower(a))
		}
	}
	if len(ages) == 0 {
		return defaultAges
	}
	return strings.Join(ages, ",")
}

func (c *Client) fetch(ctx context.Context, q Query) ([]dogs.Dog, error) {
	if !c.searches.Allow() {
		return nil, ErrRateLimited
	}

	q = q.withDefaults()
	cutoff := c.now().Add(-q.MaxAge)

	perZip := make([][]Animal, len(q.ZipCodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.zipWorkers)
	for i, zip := range q.ZipCodes {
		g.Go(func() error {
			animals, err := c.searchZip(gctx, &SearchParams{
				Location: zip,
				Distance: q.RadiusMi,
				Age:      q.ages(),
			}, cutoff)
			if err != nil {
				return fmt.Errorf("search zip %s: %w", zip, err)
			}
			perZip[i] = animals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[int]bool)
	prints := make(map[string]bool)
	var fresh []Animal
	for _, animals := range perZip {
		for _, a := range animals {
			if seen[a.ID] {
				continue
			}
			published := a.Published()
			if published.IsZero() || published.Before(cutoff) {
				continue
			}
			// Overlapping zip searches return the same dog cross-posted under another id.
			if fp, ok := a.fingerprint(); ok {
				if prints[fp] {
					c.logger.Debug("skipping cross-posted listing", zap.Int("id", a.ID))
					continue
				}
				prints[fp] = true
			}
			seen[a.ID] = true
			fresh = append(fresh, a)
		}
	}

	result := make([]dogs.Dog, 0, len(fresh))
	for i := range fresh {
		result = append(result, fresh[i].ToDog(c.shelterFor(ctx, &fresh[i])))
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].PublishedAt.After(result[j].PublishedAt)
	})

	c.logger.Info("petfinder search completed",
		zap.Strings("zip_codes", q.ZipCodes),
		zap.Int("radius_mi", q.RadiusMi),
		zap.Int("dogs", len(result)),
	)

	return result, nil
}

// searchZip walks the result pages of a recency-sorted search until they get older than cutoff.
func (c *Client) searchZip(ctx context.Context, params *SearchParams, cutoff time.Time) ([]Animal, error) {
	log := logger.With(c.logger, logger.Search(Source, params.Location)...)

	params.Type = "dog"
	params.Status = "adoptable"
	params.Sort = "recent"
	// Set limit max as possible. It should be faster.
	if params.Limit == "" {
		params.Limit = perPage
	}
	if params.Page == 0 {
		params.Page = 1
	}

	var animals []Animal
	for {
		var response animalsResponse
		if err := c.getJSON(ctx, c.APIURL+AnimalsPath, buildParams(params), &response); err != nil {
			return nil, err
		}

		page, err := decodeAnimals(response.Animals)
		if err != nil {
			return nil, err
		}
		animals = append(animals, page...)

		if len(page) == 0 {
			break
		}
		if params.Page >= response.Pagination.TotalPages {
			break
		}
		if last := page[len(page)-1].Published(); !last.IsZero() && last.Before(cutoff) {
			log.Debug("older listings reached; stop paging", zap.Int("page", params.Page))
			break
		}

		log.Debug("additional request needed", zap.String("reason", fmt.Sprintf(
			"current page (%d) < all page count (%d)", params.Page, response.Pagination.TotalPages),
		))
		params.Page++
	}

	log.Debug("zip search done", zap.Int("animals", len(animals)), zap.Int("pages", params.Page))
	return animals, nil
}

func (c *Client) getAnimal(ctx context.Context, id string) (*dogs.Dog, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("animal id is required")
	}

	var response animalResponse
	err := c.getJSON(ctx, fmt.Sprintf("%s%s/%s", c.APIURL, AnimalsPath, url.PathEscape(id)), nil, &response)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if response.Animal == nil {
		return nil, nil
	}

	animals, err := decodeAnimals([]any{response.Animal})
	if err != nil {
		return nil, err
	}
	d := animals[0].ToDog(c.shelterFor(ctx, &animals[0]))
	return &d, nil
}

func buildParams(params *SearchParams) url.Values {
	q := url.Values{}
	fields := reflect.VisibleFields(reflect.TypeOf(*params))
	for _, field := range fields {
		key := field.Tag.Get("pfparam")
		if key == "" {
			continue
		}
		v := reflect.ValueOf(params).Elem().Field(field.Index[0])
		switch v.Kind() {
		case reflect.Int:
			if v.Int() != 0 {
				q.Set(key, strconv.FormatInt(v.Int(), 10))
			}
		default:
			if value := fmt.Sprintf("%v", v.Interface()); value != "" {
				q.Set(key, value)
			}
		}
	}

	return q
}
