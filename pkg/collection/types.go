package collection

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Pagination is the metadata block of one collection page.
type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Items   int `json:"items"`
}

// Page is one response of the collection releases endpoint.
type Page struct {
	Pagination Pagination `json:"pagination"`
	Releases   []Release  `json:"releases"`
}

// Folder is a named subset of a user's collection.
type Folder struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Release is one entry of a collection page as Discogs sends it.
//
// Decoding never fails on unexpected field types: such fields keep their
// zero value and Degraded is set.
type Release struct {
	ID               int64            `json:"id"`
	InstanceID       int64            `json:"instance_id"`
	DateAdded        string           `json:"date_added"`
	Rating           int              `json:"rating"`
	BasicInformation BasicInformation `json:"basic_information"`

	Degraded bool `json:"-"`
}

// BasicInformation describes the release itself.
type BasicInformation struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Year        int      `json:"year"`
	Thumb       string   `json:"thumb"`
	CoverImage  string   `json:"cover_image"`
	ResourceURL string   `json:"resource_url"`
	URI         string   `json:"uri"`
	Artists     []Artist `json:"artists"`
	Labels      []Label  `json:"labels"`
	Formats     []Format `json:"formats"`
}

type Artist struct {
	Name string `json:"name"`
}

type Label struct {
	Name  string `json:"name"`
	CatNo string `json:"catno"`
}

type Format struct {
	Name         string   `json:"name"`
	Qty          string   `json:"qty"`
	Text         string   `json:"text"`
	Descriptions []string `json:"descriptions"`
}

// UnmarshalJSON decodes strictly first and falls back to field-by-field
// decoding when the payload does not match the expected shape.
func (r *Release) UnmarshalJSON(data []byte) error {
	type plain Release
	var p plain
	if err := json.Unmarshal(data, &p); err == nil {
		*r = Release(p)
		return nil
	}

	*r = Release{Degraded: true}

	fields, ok := objectFields(data)
	if !ok {
		return nil
	}
	r.ID, _ = lenientInt(fields["id"])
	r.InstanceID, _ = lenientInt(fields["instance_id"])
	r.DateAdded, _ = lenientString(fields["date_added"])
	rating, _ := lenientInt(fields["rating"])
	r.Rating = int(rating)
	if raw, ok := fields["basic_information"]; ok {
		r.BasicInformation = lenientBasicInformation(raw)
	}
	return nil
}

func lenientBasicInformation(data json.RawMessage) BasicInformation {
	var b BasicInformation
	if json.Unmarshal(data, &b) == nil {
		return b
	}

	fields, ok := objectFields(data)
	if !ok {
		return BasicInformation{}
	}
	b = BasicInformation{}
	b.ID, _ = lenientInt(fields["id"])
	year, _ := lenientInt(fields["year"])
	b.Year = int(year)
	b.Title, _ = lenientString(fields["title"])
	b.Thumb, _ = lenientString(fields["thumb"])
	b.CoverImage, _ = lenientString(fields["cover_image"])
	b.ResourceURL, _ = lenientString(fields["resource_url"])
	b.URI, _ = lenientString(fields["uri"])
	b.Artists = lenientSlice[Artist](fields["artists"])
	b.Labels = lenientSlice[Label](fields["labels"])
	b.Formats = lenientSlice[Format](fields["formats"])
	return b
}

func objectFields(data []byte) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

// lenientSlice decodes the elements of a JSON array that match T and drops
// the others.
func lenientSlice[T any](data json.RawMessage) []T {
	if len(data) == 0 {
		return nil
	}
	var all []T
	if json.Unmarshal(data, &all) == nil {
		return all
	}

	var items []json.RawMessage
	if json.Unmarshal(data, &items) != nil {
		return nil
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if json.Unmarshal(item, &v) == nil {
			out = append(out, v)
		}
	}
	return out
}

func lenientInt(data json.RawMessage) (int64, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0, false
	}
	var n int64
	if json.Unmarshal(data, &n) == nil {
		return n, true
	}
	var f float64
	if json.Unmarshal(data, &f) == nil {
		return int64(f), true
	}
	var s string
	if json.Unmarshal(data, &s) == nil {
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func lenientString(data json.RawMessage) (string, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", false
	}
	var s string
	if json.Unmarshal(data, &s) == nil {
		return s, true
	}
	var n json.Number
	if json.Unmarshal(data, &n) == nil {
		return n.String(), true
	}
	return "", false
}
