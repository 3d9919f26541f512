package dogs

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type Dogs struct {
	Items []*Dog
}

func New(items []Dog) *Dogs {
	list := &Dogs{Items: make([]*Dog, 0, len(items))}
	for i := range items {
		d := items[i]
		list.Items = append(list.Items, &d)
	}
	return list
}

func (v *Dogs) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Items)
}

// List returns copies of the remaining dogs in order.
func (v *Dogs) List() []Dog {
	list := make([]Dog, 0, v.Len())
	for _, d := range v.Items {
		list = append(list, *d)
	}
	return list
}

func (v *Dogs) IDs() []string {
	ids := make([]string, 0, v.Len())
	for _, d := range v.Items {
		ids = append(ids, d.ID)
	}
	return ids
}

func (v *Dogs) FindByID(id string) *Dog {
	for _, d := range v.Items {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// Keep retains the dogs for which keep returns true and returns the ids of the dropped ones.
// Relative order of the kept dogs is preserved.
func (v *Dogs) Keep(keep func(*Dog) bool) []string {
	var dropped []string
	kept := v.Items[:0]
	for _, d := range v.Items {
		if keep(d) {
			kept = append(kept, d)
			continue
		}
		dropped = append(dropped, d.ID)
	}
	for i := len(kept); i < len(v.Items); i++ {
		v.Items[i] = nil
	}
	v.Items = kept
	return dropped
}

// Exclude removes dogs whose field equals one of targets and returns the removed ids.
func (v *Dogs) Exclude(name string, targets []string) []string {
	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		set[t] = struct{}{}
	}
	return v.Keep(func(d *Dog) bool {
		_, found := set[d.GetStringField(name)]
		return !found
	})
}

func (v *Dogs) DumpToTmpFile(pattern string, payload any) (string, error) {
	if pattern == "" {
		pattern = "dogs_*.json"
	}
	if payload == nil {
		payload = v
	}

	file, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ReportByShelter groups a short summary of each dog under its shelter.
func (v *Dogs) ReportByShelter() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, d := range v.Items {
		key := d.Shelter.Name
		if key == "" {
			key = "Unknown Shelter"
		}
		if d.Shelter.Email != "" {
			key = fmt.Sprintf("%s (%s)", key, d.Shelter.Email)
		}
		report[key] = append(report[key], map[string]string{
			"name":     d.Name,
			"breeds":   strings.Join(d.Breeds, ", "),
			"age":      d.Age,
			"size":     d.Size,
			"url":      d.URL,
			"location": strings.Trim(fmt.Sprintf("%s, %s", d.Location.City, d.Location.State), ", "),
			"distance": fmt.Sprintf("%.1f mi", d.Location.DistanceMi),
		})
	}
	return report
}
