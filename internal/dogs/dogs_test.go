package dogs

import "testing"

func TestKeepPreservesOrder(t *testing.T) {
	list := New([]Dog{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}})

	dropped := list.Keep(func(d *Dog) bool { return d.ID != "2" })

	if len(dropped) != 1 || dropped[0] != "2" {
		t.Fatalf("unexpected dropped ids: %v", dropped)
	}

	want := []string{"1", "3", "4"}
	got := list.IDs()
	if len(got) != len(want) {
		t.Fatalf("expected %d dogs, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestExcludeByShelter(t *testing.T) {
	list := New([]Dog{
		{ID: "1", Shelter: Shelter{Name: "Happy Tails"}},
		{ID: "2", Shelter: Shelter{Name: "Paws"}},
	})

	removed := list.Exclude(DogShelterField, []string{"Paws"})
	if len(removed) != 1 || removed[0] != "2" {
		t.Fatalf("unexpected removed ids: %v", removed)
	}
	if list.FindByID("2") != nil {
		t.Fatalf("expected dog 2 to be removed")
	}
}

func TestFingerprintIgnoresCaseAndWhitespace(t *testing.T) {
	a := Dog{Name: "Biscuit ", Breeds: []string{"Beagle"}, Age: "Young", Size: "Medium", Gender: "Male"}
	b := Dog{Name: "biscuit", Breeds: []string{" BEAGLE"}, Age: "young", Size: "medium", Gender: "male"}

	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("expected equal fingerprints, got %q and %q", a.Fingerprint(), b.Fingerprint())
	}
}

func TestHasTag(t *testing.T) {
	d := Dog{Tags: []string{"Energetic", "Good with  kids"}}

	if !d.HasTag("energetic") {
		t.Fatalf("expected energetic tag to match")
	}
	if !d.HasTag("good with kids") {
		t.Fatalf("expected whitespace-folded tag to match")
	}
	if d.HasTag("quiet") {
		t.Fatalf("did not expect quiet tag to match")
	}
}

func TestReportByShelter(t *testing.T) {
	list := New([]Dog{
		{ID: "1", Name: "Rex", Breeds: []string{"Boxer", "Beagle"}, Shelter: Shelter{Name: "Paws", Email: "hi@paws.org"}},
		{ID: "2", Name: "Max"},
	})

	report := list.ReportByShelter()

	entries, ok := report["Paws (hi@paws.org)"]
	if !ok || len(entries) != 1 {
		t.Fatalf("expected one entry for Paws, got %v", report)
	}
	if entries[0]["breeds"] != "Boxer, Beagle" {
		t.Fatalf("unexpected breeds: %q", entries[0]["breeds"])
	}
	if _, ok := report["Unknown Shelter"]; !ok {
		t.Fatalf("expected unknown shelter bucket")
	}
}

func TestListReturnsCopies(t *testing.T) {
	list := New([]Dog{{ID: "1", Name: "Rex"}, {ID: "2"}})
	list.Exclude(DogIDField, []string{"2"})

	copies := list.List()
	if len(copies) != 1 || copies[0].ID != "1" {
		t.Fatalf("unexpected list: %+v", copies)
	}

	copies[0].Name = "Changed"
	if list.FindByID("1").Name != "Rex" {
		t.Fatal("List must not alias the stored dogs")
	}
}
