package petfinder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/dogfinder/internal/dogs"
)

const (
	OrganizationsPath = "/organizations"
	unknownShelter    = "Unknown Shelter"
)

type Organization struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Address Address `json:"address"`
}

type organizationResponse struct {
	Organization *Organization `json:"organization"`
}

type organizationEntry struct {
	org     *Organization
	expires time.Time
}

// organizationCache keeps successful lookups for a fixed TTL. Misses are not cached.
type organizationCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]organizationEntry
}

func newOrganizationCache(ttl time.Duration, now func() time.Time) *organizationCache {
	return &organizationCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]organizationEntry),
	}
}

func (c *organizationCache) get(id string) (*Organization, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expires) {
		delete(c.entries, id)
		return nil, false
	}
	return entry.org, true
}

func (c *organizationCache) put(id string, org *Organization) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = organizationEntry{org: org, expires: c.now().Add(c.ttl)}
}

// organization returns the organization or nil when Petfinder does not know it.
func (c *Client) organization(ctx context.Context, id string) (*Organization, error) {
	if org, ok := c.orgs.get(id); ok {
		return org, nil
	}

	var response organizationResponse
	err := c.getJSON(ctx, fmt.Sprintf("%s%s/%s", c.APIURL, OrganizationsPath, id), nil, &response)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if response.Organization != nil {
		c.orgs.put(id, response.Organization)
	}

	return response.Organization, nil
}

// shelterFor resolves the shelter shown for a listing. Lookup failures fall back to the
// listing's own contact details.
func (c *Client) shelterFor(ctx context.Context, a *Animal) dogs.Shelter {
	if a.OrganizationID != "" {
		org, err := c.organization(ctx, a.OrganizationID)
		if err != nil {
			c.logger.Warn("organization lookup failed; using listing contact",
				zap.String("organization_id", a.OrganizationID), zap.Error(err))
		}
		if org != nil {
			shelter := dogs.Shelter{Name: org.Name, Email: org.Email, Phone: org.Phone}
			if shelter.Name == "" {
				shelter.Name = unknownShelter
			}
			if shelter.Email == "" {
				shelter.Email = a.Contact.Email
			}
			if shelter.Phone == "" {
				shelter.Phone = a.Contact.Phone
			}
			return shelter
		}
	}

	return dogs.Shelter{
		Name:  fallbackShelterName(a.Contact),
		Email: a.Contact.Email,
		Phone: a.Contact.Phone,
	}
}

// fallbackShelterName guesses a name from the contact email domain, then from the city.
func fallbackShelterName(contact Contact) string {
	if name := nameFromEmail(contact.Email); name != "" {
		return name
	}
	city, state := strings.TrimSpace(contact.Address.City), strings.TrimSpace(contact.Address.State)
	if city != "" && state != "" {
		return fmt.Sprintf("Shelter in %s, %s", city, state)
	}
	return unknownShelter
}

func nameFromEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at == -1 {
		return ""
	}
	domain := strings.ToLower(strings.TrimSpace(email[at+1:]))
	for _, suffix := range []string{".org", ".com", ".net"} {
		domain = strings.ReplaceAll(domain, suffix, "")
	}
	domain = strings.NewReplacer(".", " ", "-", " ").Replace(domain)

	words := strings.Fields(domain)
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}
