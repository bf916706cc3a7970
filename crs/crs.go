// Package crs resolves coordinate reference system identifiers to transform
// definitions. Definitions are proj4-style parameter strings, evaluated in
// pure Go for the longlat, merc and tmerc/utm families. Unknown identifiers
// can be fetched lazily from an external definition service with a bounded
// wait (see Registry).
package crs

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ID is a normalized authority:code pair. Two textual spellings that resolve
// to the same authority and code compare equal.
type ID struct {
	Authority string
	Code      string
}

var (
	idRegexURL = regexp.MustCompile("^https?://.+/def/crs/(?P<authority>[^/]+)/[^/]+/(?P<code>[^/]+)$")
	idRegexURN = regexp.MustCompile("^urn:ogc:def:crs:(?P<authority>[^:]+)::(?P<code>[^:]+)$")
)

// Parse normalizes a CRS identifier. Accepted spellings are
// "authority:code" (any case), OGC URNs, OGC URL identifiers and a bare
// numeric code (defaulting to the EPSG authority).
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ID{}, fmt.Errorf("empty crs identifier")
	}
	if parts := idRegexURL.FindStringSubmatch(s); parts != nil {
		return newID(parts[1], parts[2]), nil
	}
	if parts := idRegexURN.FindStringSubmatch(s); parts != nil {
		return newID(parts[1], parts[2]), nil
	}
	if i := strings.LastIndex(s, ":"); i >= 0 {
		authority, code := s[:i], s[i+1:]
		if authority == "" || code == "" {
			return ID{}, fmt.Errorf(`could not parse crs identifier %q`, s)
		}
		return newID(authority, code), nil
	}
	if !isDigits(s) {
		return ID{}, fmt.Errorf(`could not parse crs identifier %q`, s)
	}
	return newID("EPSG", s), nil
}

// MustParse is Parse for statically known identifiers.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

func newID(authority, code string) ID {
	return ID{Authority: strings.ToUpper(authority), Code: strings.ToUpper(code)}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (id ID) String() string {
	return id.Authority + ":" + id.Code
}

func (id ID) Equal(other ID) bool {
	return id == other
}

// MarshalJSON encodes the identifier in its authority:code spelling.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// WGS84 is the geographic reference system extents default to.
var WGS84 = ID{Authority: "EPSG", Code: "4326"}

// IsGeographic reports whether the identifier names the geographic reference
// system (WGS84 in either its EPSG or OGC spelling).
func (id ID) IsGeographic() bool {
	if id == WGS84 {
		return true
	}
	return id.Authority == "OGC" && id.Code == "CRS84"
}
