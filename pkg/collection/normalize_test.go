package collection

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize_FullRelease(t *testing.T) {
	r := Release{
		ID:         249504,
		InstanceID: 1402673,
		DateAdded:  "2017-06-22T13:31:10-07:00",
		BasicInformation: BasicInformation{
			ID:         249504,
			Title:      " Never Gonna Give You Up ",
			Year:       1987,
			Thumb:      "https://i.discogs.com/thumb.jpg",
			CoverImage: "https://i.discogs.com/cover.jpg",
			URI:        "/release/249504-Rick-Astley-Never-Gonna-Give-You-Up",
			Artists:    []Artist{{Name: "Rick Astley (2)"}},
			Labels:     []Label{{Name: "RCA", CatNo: "PB 41447"}, {Name: "BMG"}},
			Formats: []Format{
				{Name: "Vinyl", Qty: "1", Descriptions: []string{`7"`, "Single", "45 RPM"}},
			},
		},
	}

	got := Normalize(r)
	want := Record{
		ID:            249504,
		InstanceID:    1402673,
		Title:         "Never Gonna Give You Up",
		Artist:        "Rick Astley",
		Year:          1987,
		Labels:        []string{"RCA", "BMG"},
		CatalogNumber: "PB 41447",
		Formats:       []string{`Vinyl 7", Single, 45 RPM`},
		Bucket:        `7"`,
		CoverImage:    "https://i.discogs.com/cover.jpg",
		URL:           "https://www.discogs.com/release/249504-Rick-Astley-Never-Gonna-Give-You-Up",
		DateAdded:     time.Date(2017, 6, 22, 13, 31, 10, 0, time.FixedZone("", -7*3600)),
	}

	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
	}
	if got.DateAddedString() != "2017-06-22" {
		t.Errorf("DateAddedString() = %q", got.DateAddedString())
	}
	if got.Label() != "RCA, BMG" {
		t.Errorf("Label() = %q", got.Label())
	}
}

func TestNormalize_MissingFieldsStayEmpty(t *testing.T) {
	got := Normalize(Release{})

	if got.Title != "" || got.Artist != "" || got.YearString() != "" || got.Format() != "" ||
		got.CatalogNumber != "" || got.CoverImage != "" || got.URL != "" || got.DateAddedString() != "" {
		t.Errorf("Expected empty fields, got %+v", got)
	}
	if got.Bucket != "Other" {
		t.Errorf("Bucket = %q, want Other", got.Bucket)
	}
}

func TestNormalize_MultipleArtistsAndQuantity(t *testing.T) {
	r := Release{BasicInformation: BasicInformation{
		Artists: []Artist{{Name: "Miles Davis"}, {Name: ""}, {Name: "John Coltrane (3)"}},
		Formats: []Format{
			{Name: "Vinyl", Qty: "2", Descriptions: []string{"LP", "Album"}},
			{Name: "CD", Qty: "1"},
		},
		Thumb: "https://i.discogs.com/t.jpg",
	}}

	got := Normalize(r)
	if got.Artist != "Miles Davis, John Coltrane" {
		t.Errorf("Artist = %q", got.Artist)
	}
	if got.Format() != "2x Vinyl LP, Album; CD" {
		t.Errorf("Format() = %q", got.Format())
	}
	if got.Bucket != `12"` {
		t.Errorf("Bucket = %q, want 12\"", got.Bucket)
	}
	if got.CoverImage != "https://i.discogs.com/t.jpg" {
		t.Errorf("CoverImage should fall back to thumb, got %q", got.CoverImage)
	}
}

func TestDetectBucket(t *testing.T) {
	tests := []struct {
		tokens []string
		want   string
	}{
		{[]string{"vinyl", `12"`, "33 ⅓ rpm"}, `12"`},
		{[]string{"vinyl", `10"`}, `10"`},
		{[]string{"shellac", "10 in"}, `10"`},
		{[]string{"vinyl", "lp", "album"}, `12"`},
		{[]string{"cd", "album"}, "CD"},
		{[]string{"cassette"}, "Cassette"},
		{[]string{"reel-to-reel", "tape"}, "Cassette"},
		{[]string{"file", "mp3"}, "Other"},
		{nil, "Other"},
	}

	for _, tt := range tests {
		if got := DetectBucket(tt.tokens); got != tt.want {
			t.Errorf("DetectBucket(%v) = %q, want %q", tt.tokens, got, tt.want)
		}
	}
}

func TestReleaseURL(t *testing.T) {
	tests := []struct {
		name string
		r    Release
		want string
	}{
		{"absolute uri", Release{BasicInformation: BasicInformation{URI: "https://www.discogs.com/release/1"}}, "https://www.discogs.com/release/1"},
		{"relative uri without slash", Release{BasicInformation: BasicInformation{URI: "release/2"}}, "https://www.discogs.com/release/2"},
		{"release resource", Release{BasicInformation: BasicInformation{ResourceURL: "https://api.discogs.com/releases/3"}}, "https://www.discogs.com/release/3"},
		{"master resource", Release{BasicInformation: BasicInformation{ResourceURL: "https://api.discogs.com/masters/4"}}, "https://www.discogs.com/master/4"},
		{"basic id", Release{BasicInformation: BasicInformation{ID: 5}}, "https://www.discogs.com/release/5"},
		{"release id", Release{ID: 6}, "https://www.discogs.com/release/6"},
		{"nothing", Release{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := releaseURL(tt.r, tt.r.BasicInformation); got != tt.want {
				t.Errorf("releaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeAll_PreservesOrder(t *testing.T) {
	releases := []Release{
		{ID: 3, BasicInformation: BasicInformation{Title: "Zebra"}},
		{ID: 1, BasicInformation: BasicInformation{Title: "apple"}},
		{ID: 2, BasicInformation: BasicInformation{Title: "Mango"}},
	}

	records := NormalizeAll(releases)
	var titles []string
	for _, r := range records {
		titles = append(titles, r.Title)
	}
	if diff := cmp.Diff([]string{"Zebra", "apple", "Mango"}, titles); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}
