package petfinder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func published(ago time.Duration) string {
	return now.Add(-ago).Format(time.RFC3339)
}

type fakePetfinder struct {
	mu          sync.Mutex
	tokens      int
	orgHits     int
	pages       map[string]int
	rejected    int
	reject      string
	unavailable int
}

func (f *fakePetfinder) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "client_credentials" || r.PostForm.Get("client_id") != "id" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.tokens++
		token := fmt.Sprintf("tok-%d", f.tokens)
		f.mu.Unlock()
		writeJSON(w, map[string]any{"token_type": "Bearer", "expires_in": 3600, "access_token": token})
	})

	mux.HandleFunc("GET /animals", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		q := r.URL.Query()
		if q.Get("type") != "dog" || q.Get("status") != "adoptable" || q.Get("sort") != "recent" || q.Get("limit") != "100" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if q.Get("distance") != "50" || q.Get("age") != "baby,young" {
			t.Errorf("unexpected search filters: %s", r.URL.RawQuery)
		}

		zip, page := q.Get("location"), q.Get("page")
		f.mu.Lock()
		f.pages[zip+"/"+page]++
		f.mu.Unlock()

		switch zip + "/" + page {
		case "08401/1":
			writeJSON(w, map[string]any{
				"animals": []any{
					map[string]any{
						"id": 1, "name": "Biscuit", "organization_id": "NJ1", "published_at": published(time.Hour),
						"breeds": map[string]any{"primary": "Beagle", "secondary": nil, "mixed": true},
						"age":    "Young", "size": "Small", "distance": 3.2, "tags": []any{"Friendly"},
						"environment": map[string]any{"children": true, "dogs": nil, "cats": false},
						"photos":      []any{map[string]any{"small": "s.jpg", "large": "l.jpg"}},
					},
					map[string]any{
						"id": 2, "name": "Pepper", "published_at": published(2 * time.Hour),
						"breeds":  map[string]any{"primary": "Poodle"},
						"contact": map[string]any{"email": "adopt@happy-paws.org", "address": map[string]any{"city": "Ventnor", "state": "NJ"}},
					},
				},
				"pagination": map[string]any{"current_page": 1, "total_pages": 3},
			})
		case "08401/2":
			writeJSON(w, map[string]any{
				"animals": []any{
					map[string]any{"id": 3, "name": "Old", "published_at": published(30 * time.Hour)},
				},
				"pagination": map[string]any{"current_page": 2, "total_pages": 3},
			})
		case "11211/1":
			writeJSON(w, map[string]any{
				"animals": []any{
					map[string]any{"id": 1, "name": "Biscuit", "organization_id": "NJ1", "published_at": published(time.Hour)},
					map[string]any{
						"id": 5, "name": " pepper", "published_at": published(90 * time.Minute),
						"breeds": map[string]any{"primary": "poodle"},
					},
					map[string]any{
						"id": 4, "name": "Luna", "published_at": published(30 * time.Minute), "distance": "7.5",
						"contact": map[string]any{"address": map[string]any{"city": "Brooklyn", "state": "NY"}},
					},
				},
				"pagination": map[string]any{"current_page": 1, "total_pages": 1},
			})
		default:
			writeJSON(w, map[string]any{"animals": []any{}, "pagination": map[string]any{"total_pages": 1}})
		}
	})

	mux.HandleFunc("GET /animals/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		if r.PathValue("id") != "42" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"animal": map[string]any{
			"id": 42, "name": "Rex", "organization_id": "NJ1", "published_at": published(5 * time.Hour),
			"breeds": map[string]any{"primary": "Labrador Retriever"},
		}})
	})

	mux.HandleFunc("GET /organizations/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		f.mu.Lock()
		f.orgHits++
		busy := f.unavailable > 0
		if busy {
			f.unavailable--
		}
		f.mu.Unlock()
		if busy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.PathValue("id") != "NJ1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"organization": map[string]any{
			"id": "NJ1", "name": "Atlantic Rescue", "email": "hello@atlantic.org", "phone": "555-0100",
		}})
	})

	return mux
}

func (f *fakePetfinder) authorized(w http.ResponseWriter, r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject != "" && r.Header.Get("Authorization") == "Bearer "+f.reject {
		f.rejected++
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	if r.Header.Get("Authorization") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func newTestClient(t *testing.T, fake *fakePetfinder, opts Options) *Client {
	t.Helper()
	if fake.pages == nil {
		fake.pages = map[string]int{}
	}
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	if opts.PageInterval == 0 {
		opts.PageInterval = time.Millisecond
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Millisecond
	}
	c := New(zap.NewNop(), "id", "secret", opts)
	c.APIURL = server.URL
	c.now = func() time.Time { return now }
	return c
}

func TestFetch(t *testing.T) {
	fake := &fakePetfinder{}
	c := newTestClient(t, fake, Options{})

	got, err := c.Fetch(context.Background(), Query{ZipCodes: []string{"08401", " 11211 "}, RadiusMi: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ids []string
	for _, d := range got {
		ids = append(ids, d.ID)
	}
	if fmt.Sprint(ids) != "[4 1 2]" {
		t.Fatalf("expected fresh unique dogs newest first without cross-posts, got %v", ids)
	}

	if fake.pages["08401/3"] != 0 {
		t.Fatalf("paging must stop once listings are older than the cutoff")
	}
	if fake.pages["08401/2"] != 1 {
		t.Fatalf("expected page 2 to be requested once, got %d", fake.pages["08401/2"])
	}
	if fake.tokens != 1 {
		t.Fatalf("expected a single token request, got %d", fake.tokens)
	}

	luna, biscuit, pepper := got[0], got[1], got[2]
	if luna.Shelter.Name != "Shelter in Brooklyn, NY" || luna.Location.DistanceMi != 7.5 {
		t.Fatalf("unexpected Luna: %+v", luna)
	}
	if biscuit.Shelter.Name != "Atlantic Rescue" || biscuit.Shelter.Phone != "555-0100" {
		t.Fatalf("unexpected Biscuit shelter: %+v", biscuit.Shelter)
	}
	if fmt.Sprint(biscuit.Breeds) != "[Beagle Mix]" {
		t.Fatalf("unexpected Biscuit breeds: %v", biscuit.Breeds)
	}
	if fmt.Sprint(biscuit.Tags) != "[Friendly Good with kids Not good with cats]" {
		t.Fatalf("unexpected Biscuit tags: %v", biscuit.Tags)
	}
	if fmt.Sprint(biscuit.Photos) != "[l.jpg]" {
		t.Fatalf("unexpected Biscuit photos: %v", biscuit.Photos)
	}
	if !biscuit.PublishedAt.Equal(now.Add(-time.Hour)) {
		t.Fatalf("unexpected publishedAt: %v", biscuit.PublishedAt)
	}
	if pepper.Shelter.Name != "Happy Paws" || pepper.Shelter.Email != "adopt@happy-paws.org" {
		t.Fatalf("unexpected Pepper shelter: %+v", pepper.Shelter)
	}
}

func TestFetchRateLimited(t *testing.T) {
	c := newTestClient(t, &fakePetfinder{}, Options{SearchesPerMinute: 1})

	if _, err := c.Fetch(context.Background(), Query{ZipCodes: []string{"99999"}, RadiusMi: 50}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Fetch(context.Background(), Query{ZipCodes: []string{"99999"}, RadiusMi: 50}); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestGetDog(t *testing.T) {
	fake := &fakePetfinder{}
	c := newTestClient(t, fake, Options{})

	for i := 0; i < 2; i++ {
		d, err := c.GetDog(context.Background(), "42")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d == nil || d.Name != "Rex" || d.Shelter.Name != "Atlantic Rescue" {
			t.Fatalf("unexpected dog: %+v", d)
		}
	}
	if fake.orgHits != 1 {
		t.Fatalf("organization must be cached, got %d lookups", fake.orgHits)
	}

	d, err := c.GetDog(context.Background(), "7")
	if err != nil || d != nil {
		t.Fatalf("expected nil dog for unknown id, got %+v, %v", d, err)
	}
}

func TestOrganizationCacheExpires(t *testing.T) {
	fake := &fakePetfinder{}
	c := newTestClient(t, fake, Options{OrganizationTTL: time.Minute})

	if _, err := c.organization(context.Background(), "NJ1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.now = func() time.Time { return now.Add(2 * time.Minute) }
	if _, err := c.organization(context.Background(), "NJ1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.orgHits != 2 {
		t.Fatalf("expired entry must be refreshed, got %d lookups", fake.orgHits)
	}

	org, err := c.organization(context.Background(), "missing")
	if err != nil || org != nil {
		t.Fatalf("expected nil organization, got %+v, %v", org, err)
	}
}

func TestRejectedTokenIsRenewed(t *testing.T) {
	fake := &fakePetfinder{reject: "tok-1"}
	c := newTestClient(t, fake, Options{})

	d, err := c.GetDog(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d == nil || fake.rejected != 1 || fake.tokens != 2 {
		t.Fatalf("expected one rejection and a renewed token, got rejected=%d tokens=%d", fake.rejected, fake.tokens)
	}
}

func TestServerErrorsAreRetried(t *testing.T) {
	fake := &fakePetfinder{unavailable: 2}
	c := newTestClient(t, fake, Options{})

	org, err := c.organization(context.Background(), "NJ1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if org == nil || fake.orgHits != 3 {
		t.Fatalf("expected success on the third attempt, got %+v after %d requests", org, fake.orgHits)
	}

	fake.unavailable = maxAttempts
	c.orgs = newOrganizationCache(time.Hour, c.now)
	if _, err := c.organization(context.Background(), "NJ1"); err == nil {
		t.Fatal("expected error once attempts are exhausted")
	}
}

func TestMissingCredentials(t *testing.T) {
	c := New(nil, "", "", Options{})
	if _, err := c.GetDog(context.Background(), "1"); err == nil {
		t.Fatal("expected credentials error")
	}
}

func TestBuildParams(t *testing.T) {
	q := buildParams(&SearchParams{Type: "dog", Location: "08401", Distance: 25, Page: 2})
	if got := q.Encode(); got != "distance=25&location=08401&page=2&type=dog" {
		t.Fatalf("unexpected params: %s", got)
	}
}

func TestFallbackShelterName(t *testing.T) {
	cases := []struct {
		contact Contact
		want    string
	}{
		{Contact{Email: "info@second-chance.rescue.org"}, "Second Chance Rescue"},
		{Contact{Email: "a@b.com", Address: Address{City: "Camden", State: "NJ"}}, "B"},
		{Contact{Email: "broken", Address: Address{City: "Camden", State: "NJ"}}, "Shelter in Camden, NJ"},
		{Contact{Address: Address{City: "Camden"}}, "Unknown Shelter"},
		{Contact{}, "Unknown Shelter"},
	}

	for _, tc := range cases {
		if got := fallbackShelterName(tc.contact); got != tc.want {
			t.Fatalf("fallbackShelterName(%+v) = %q, want %q", tc.contact, got, tc.want)
		}
	}
}
