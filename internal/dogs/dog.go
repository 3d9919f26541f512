package dogs

import (
	"strings"
	"time"
)

const (
	DogIDField      = "ID"
	DogShelterField = "Shelter"
)

// Dog is a single adoptable listing. It is never mutated once it reaches the matching engine.
type Dog struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Breeds      []string  `json:"breeds"`
	Age         string    `json:"age"`
	Size        string    `json:"size"`
	Gender      string    `json:"gender,omitempty"`
	Photos      []string  `json:"photos"`
	PublishedAt time.Time `json:"publishedAt"`
	Location    Location  `json:"location"`
	Tags        []string  `json:"tags"`
	URL         string    `json:"url,omitempty"`
	Shelter     Shelter   `json:"shelter"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status,omitempty"`
}

type Location struct {
	City       string  `json:"city,omitempty"`
	State      string  `json:"state,omitempty"`
	DistanceMi float64 `json:"distanceMi"`
}

type Shelter struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// PrimaryBreed returns the first listed breed or an empty string.
func (d *Dog) PrimaryBreed() string {
	if len(d.Breeds) == 0 {
		return ""
	}
	return d.Breeds[0]
}

// HasTag reports whether any tag contains one of the markers, case-insensitively.
func (d *Dog) HasTag(markers ...string) bool {
	for _, tag := range d.Tags {
		t := Fold(tag)
		if t == "" {
			continue
		}
		for _, m := range markers {
			if strings.Contains(t, Fold(m)) {
				return true
			}
		}
	}
	return false
}

// Fingerprint identifies the same animal cross-posted under different listing ids.
func (d *Dog) Fingerprint() string {
	secondary := ""
	if len(d.Breeds) > 1 {
		secondary = d.Breeds[1]
	}

	parts := []string{
		Fold(d.Name),
		Fold(d.PrimaryBreed()),
		Fold(secondary),
		Fold(d.Age),
		Fold(d.Size),
		Fold(d.Gender),
	}

	return strings.Join(parts, "|||")
}

func (d *Dog) GetStringField(name string) string {
	switch name {
	case DogIDField:
		return d.ID
	case DogShelterField:
		return d.Shelter.Name
	default:
		return ""
	}
}

// Fold normalizes a value for comparison only: trimmed, lower-cased, inner whitespace collapsed.
func Fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
