// Package address converts between free-text delivery addresses and their structured form.
//
// Parsing is lossy: only the first two comma separated segments are kept, and formatting the
// parsed components does not necessarily reproduce the input. Stored orders depend on this exact
// behavior, so the rules must not be tightened.
package address

import (
	"regexp"
	"strings"
)

// Components is the structured form of a delivery address
type Components struct {
	Street          string `json:"street"`
	StreetNumber    string `json:"street_number"`
	City            string `json:"city"`
	ApartmentNumber string `json:"apartment_number"`
}

// IsZero reports whether no component is set
func (c Components) IsZero() bool {
	return c.Street == "" && c.StreetNumber == "" && c.City == "" && c.ApartmentNumber == ""
}

var streetNumberPattern = regexp.MustCompile(`^(.+?)\s+(\d+[A-Za-z]*)$`)

// Parse splits "<Street> <Number>, <City>[, Country]" into components.
// A first segment without a trailing number becomes the street with an empty number.
func Parse(s string) Components {
	var c Components

	segments := strings.Split(s, ",")
	first := strings.TrimSpace(segments[0])
	if m := streetNumberPattern.FindStringSubmatch(first); m != nil {
		c.Street = m[1]
		c.StreetNumber = m[2]
	} else {
		c.Street = first
	}

	if len(segments) > 1 {
		c.City = strings.TrimSpace(segments[1])
	}

	return c
}

// Format renders components as "<Street> <Number>, <City>" with an ", Ap. <n>" suffix
// when an apartment number is present. Empty parts are skipped.
func Format(c Components) string {
	head := strings.TrimSpace(strings.TrimSpace(c.Street) + " " + strings.TrimSpace(c.StreetNumber))

	parts := make([]string, 0, 3)
	if head != "" {
		parts = append(parts, head)
	}
	if city := strings.TrimSpace(c.City); city != "" {
		parts = append(parts, city)
	}
	if ap := strings.TrimSpace(c.ApartmentNumber); ap != "" {
		parts = append(parts, "Ap. "+ap)
	}

	return strings.Join(parts, ", ")
}
