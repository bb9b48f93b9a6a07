package reporting

import (
	"sort"
	"strings"

	"jacow_reports/internal/domain"
)

const (
	cellSeparator    = "; "
	countrySeparator = ", "
	addressSeparator = " | "
)

type personColumn struct {
	title string
	holds func(domain.PersonLink) bool
	data  func(domain.PersonLink) string
}

func isSpeaker(p domain.PersonLink) bool   { return p.IsSpeaker }
func isPrimary(p domain.PersonLink) bool   { return p.AuthorType == domain.AuthorPrimary }
func isSecondary(p domain.PersonLink) bool { return p.AuthorType == domain.AuthorSecondary }

var personColumns = []personColumn{
	{"Speakers (country)", isSpeaker, countryData},
	{"Speakers (address)", isSpeaker, addressData},
	{"Primary authors (country)", isPrimary, countryData},
	{"Primary authors (address)", isPrimary, addressData},
	{"Co-authors (country)", isSecondary, countryData},
	{"Co-authors (address)", isSecondary, addressData},
}

// PersonColumns returns the affiliation column titles in export order.
func PersonColumns() []string {
	out := make([]string, len(personColumns))
	for i, c := range personColumns {
		out[i] = c.title
	}
	return out
}

func personCells(persons []domain.PersonLink) map[string]string {
	ordered := make([]domain.PersonLink, len(persons))
	copy(ordered, persons)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].DisplayOrder < ordered[j].DisplayOrder })

	cells := make(map[string]string, len(personColumns))
	for _, col := range personColumns {
		var entries []string
		for _, p := range ordered {
			if !col.holds(p) {
				continue
			}
			if d := col.data(p); d != "" {
				entries = append(entries, p.FullName+" ("+d+")")
			} else {
				entries = append(entries, p.FullName)
			}
		}
		cells[col.title] = strings.Join(entries, cellSeparator)
	}
	return cells
}

func countryData(p domain.PersonLink) string {
	seen := make(map[string]bool)
	var codes []string
	for _, a := range p.Affiliations {
		c := strings.ToUpper(strings.TrimSpace(a.CountryCode))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		codes = append(codes, c)
	}
	return strings.Join(codes, countrySeparator)
}

func addressData(p domain.PersonLink) string {
	var addrs []string
	for _, a := range p.Affiliations {
		if s := formatAddress(a); s != "" {
			addrs = append(addrs, s)
		}
	}
	return strings.Join(addrs, addressSeparator)
}

// formatAddress renders "street, postcode city, country" without blank parts.
func formatAddress(a domain.Affiliation) string {
	locality := strings.TrimSpace(strings.TrimSpace(a.Postcode) + " " + strings.TrimSpace(a.City))
	var parts []string
	for _, s := range []string{strings.TrimSpace(a.Street), locality, strings.ToUpper(strings.TrimSpace(a.CountryCode))} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
