// Package linkage attaches ward and village options to townships using the
// registry's option groups.
//
// The registry has no direct parent reference on an option. Instead each
// township owns up to two option groups: one named exactly like the township
// (its villages) and one named "<township> (Wards)". Build resolves those
// names against the township options; everything here is pure.
package linkage

import (
	"strings"

	"github.com/artpar/villagelookup/internal/core/domain"
)

// WardsSuffix marks an option group holding a township's wards.
const WardsSuffix = " (Wards)"

// Localized-name selectors.
const (
	LocaleMyanmar = "my"
	PropertyName  = "NAME"
)

// Translation is one translated property of a registry option.
type Translation struct {
	Locale   string `json:"locale"`
	Property string `json:"property"`
	Value    string `json:"value"`
}

// LocalizedName returns the first NAME translation for the "my" locale.
func LocalizedName(translations []Translation) *string {
	for _, t := range translations {
		if t.Locale == LocaleMyanmar && t.Property == PropertyName {
			v := t.Value
			return &v
		}
	}
	return nil
}

// OptionGroup is a named set of option uids.
type OptionGroup struct {
	Name       string
	OptionUIDs []string
}

// Linkage maps ward and village option uids to township option uids.
type Linkage struct {
	Wards    map[string]string
	Villages map[string]string

	// Unmatched lists group names that resolved to no township, in input order.
	Unmatched []string
}

// Build walks groups and links their options to townships by name. When two
// townships share a name the later one wins.
func Build(townships []domain.AreaOption, groups []OptionGroup) Linkage {
	byName := make(map[string]string, len(townships))
	for _, t := range townships {
		byName[t.Name] = t.UID
	}

	l := Linkage{
		Wards:    make(map[string]string),
		Villages: make(map[string]string),
	}

	for _, g := range groups {
		target := l.Villages
		name := g.Name
		if strings.HasSuffix(name, WardsSuffix) {
			target = l.Wards
			name = strings.TrimSuffix(name, WardsSuffix)
		}

		townshipUID, ok := byName[name]
		if !ok {
			l.Unmatched = append(l.Unmatched, g.Name)
			continue
		}
		for _, uid := range g.OptionUIDs {
			target[uid] = townshipUID
		}
	}

	return l
}

// Resolve pairs options with the row id of their linked township. Options
// without a link, or whose township has no row id, are skipped. Output follows
// option order and keeps only the first occurrence of a uid.
func Resolve(options []domain.AreaOption, links map[string]string, townshipIDs map[string]int) []domain.LinkedOption {
	out := make([]domain.LinkedOption, 0, len(options))
	seen := make(map[string]struct{}, len(options))

	for _, opt := range options {
		if _, dup := seen[opt.UID]; dup {
			continue
		}
		townshipUID, ok := links[opt.UID]
		if !ok {
			continue
		}
		id, ok := townshipIDs[townshipUID]
		if !ok {
			continue
		}
		seen[opt.UID] = struct{}{}
		out = append(out, domain.LinkedOption{AreaOption: opt, TownshipID: id})
	}

	return out
}

// Batches splits rows into consecutive slices of at most size rows.
func Batches[T any](rows []T, size int) [][]T {
	if size <= 0 {
		size = len(rows)
	}
	var out [][]T
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		out = append(out, rows[start:end])
	}
	return out
}
