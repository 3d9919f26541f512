package petfinder

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/dogfinder/internal/dogs"
)

const AnimalsPath = "/animals"

// Animal is a Petfinder listing as returned by the animals endpoints.
type Animal struct {
	ID             int         `json:"id"`
	OrganizationID string      `json:"organization_id"`
	URL            string      `json:"url"`
	Type           string      `json:"type"`
	Age            string      `json:"age"`
	Gender         string      `json:"gender"`
	Size           string      `json:"size"`
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	Status         string      `json:"status"`
	PublishedAt    string      `json:"published_at"`
	Distance       float64     `json:"distance"`
	Tags           []string    `json:"tags"`
	Breeds         Breeds      `json:"breeds"`
	Photos         []Photo     `json:"photos"`
	Contact        Contact     `json:"contact"`
	Environment    Environment `json:"environment"`
	Attributes     Attributes  `json:"attributes"`
}

type Breeds struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Mixed     bool   `json:"mixed"`
	Unknown   bool   `json:"unknown"`
}

type Photo struct {
	Small  string `json:"small"`
	Medium string `json:"medium"`
	Large  string `json:"large"`
	Full   string `json:"full"`
}

type Contact struct {
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Address Address `json:"address"`
}

type Address struct {
	City     string `json:"city"`
	State    string `json:"state"`
	Postcode string `json:"postcode"`
}

// Environment holds the shelter's answers; nil means unknown.
type Environment struct {
	Children *bool `json:"children"`
	Dogs     *bool `json:"dogs"`
	Cats     *bool `json:"cats"`
}

type Attributes struct {
	HouseTrained   bool `json:"house_trained"`
	SpecialNeeds   bool `json:"special_needs"`
	ShotsCurrent   bool `json:"shots_current"`
	SpayedNeutered bool `json:"spayed_neutered"`
}

// decodeAnimals converts raw JSON objects into listings. Untyped numbers and nulls are tolerated.
func decodeAnimals(items []any) ([]Animal, error) {
	var animals []Animal

	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           &animals,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("decode animals: %w", err)
	}

	return animals, nil
}

// Published parses published_at. The zero time is returned when it is missing or malformed.
func (a *Animal) Published() time.Time {
	raw := strings.TrimSpace(a.PublishedAt)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// ToDog converts the listing into the matching engine's representation.
// Environment answers and attributes become tags so temperament rules can see them.
func (a *Animal) ToDog(shelter dogs.Shelter) dogs.Dog {
	d := dogs.Dog{
		ID:          strconv.Itoa(a.ID),
		Name:        strings.TrimSpace(a.Name),
		Breeds:      a.breedNames(),
		Age:         a.Age,
		Size:        a.Size,
		Gender:      a.Gender,
		Photos:      a.photoURLs(),
		PublishedAt: a.Published(),
		Location: dogs.Location{
			City:       a.Contact.Address.City,
			State:      a.Contact.Address.State,
			DistanceMi: a.Distance,
		},
		Tags:        a.allTags(),
		URL:         a.URL,
		Shelter:     shelter,
		Description: strings.TrimSpace(a.Description),
		Status:      a.Status,
	}

	return d
}

// fingerprint identifies the animal across listing ids. Unnamed listings are not fingerprinted.
func (a *Animal) fingerprint() (string, bool) {
	if strings.TrimSpace(a.Name) == "" {
		return "", false
	}
	d := dogs.Dog{Name: a.Name, Breeds: a.breedNames(), Age: a.Age, Size: a.Size, Gender: a.Gender}
	return d.Fingerprint(), true
}

func (a *Animal) breedNames() []string {
	breeds := []string{}
	for _, b := range []string{a.Breeds.Primary, a.Breeds.Secondary} {
		if b = strings.TrimSpace(b); b != "" {
			breeds = append(breeds, b)
		}
	}
	if a.Breeds.Mixed && len(breeds) == 1 && !strings.Contains(strings.ToLower(breeds[0]), "mix") {
		breeds[0] += " Mix"
	}
	return breeds
}

func (a *Animal) photoURLs() []string {
	photos := []string{}
	for _, p := range a.Photos {
		for _, u := range []string{p.Large, p.Full, p.Medium, p.Small} {
			if u != "" {
				photos = append(photos, u)
				break
			}
		}
	}
	return photos
}

func (a *Animal) allTags() []string {
	tags := []string{}
	seen := map[string]bool{}
	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		key := dogs.Fold(tag)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		tags = append(tags, tag)
	}

	for _, t := range a.Tags {
		add(t)
	}
	addEnvironment(add, a.Environment.Children, "Good with kids", "Not good with kids")
	addEnvironment(add, a.Environment.Dogs, "Good with dogs", "Not good with dogs")
	addEnvironment(add, a.Environment.Cats, "Good with cats", "Not good with cats")
	if a.Attributes.HouseTrained {
		add("House trained")
	}
	if a.Attributes.SpecialNeeds {
		add("Special needs")
	}

	return tags
}

func addEnvironment(add func(string), answer *bool, yes, no string) {
	switch {
	case answer == nil:
	case *answer:
		add(yes)
	default:
		add(no)
	}
}
