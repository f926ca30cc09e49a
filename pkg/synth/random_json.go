package synth

import (
	"fmt"
	mathrand "math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// Size bounds for random JSON generation.
const (
	minRandomSize = 1
	maxRandomSize = 9999

	// metadataThreshold adds a metadata block once size reaches it.
	metadataThreshold = 5

	// itemsThreshold adds an items array once size reaches it. The array
	// holds size/4 entries, capped.
	itemsThreshold = 8
	maxItems       = 5
)

// fieldGenerator produces one named pseudo-random field.
type fieldGenerator struct {
	name string
	gen  func() any
}

var firstNames = []string{"Alice", "Bob", "Carol", "David", "Erin", "Frank", "Grace", "Henry", "Iris", "Jack"}
var lastNames = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Wilson", "Moore"}
var companies = []string{"Acme Corp", "Globex", "Initech", "Umbrella", "Stark Industries", "Wayne Enterprises"}
var cities = []string{"Berlin", "Tokyo", "Lisbon", "Toronto", "Sydney", "Oslo", "Austin", "Seoul"}
var statuses = []string{"active", "pending", "suspended", "archived"}
var roles = []string{"admin", "editor", "viewer", "owner"}
var words = []string{"alpha", "beacon", "cedar", "delta", "ember", "fjord", "garnet", "harbor", "indigo", "juniper", "krypton", "lumen"}
var domains = []string{"example.com", "example.org", "test.dev", "mock.local"}

func pick[T any](items []T) T {
	return items[mathrand.IntN(len(items))]
}

func fullName() string {
	return pick(firstNames) + " " + pick(lastNames)
}

func sentence(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			out += " "
		}
		out += pick(words)
	}
	return out
}

// fieldCatalog is the fixed catalog of field generators: identity,
// contact, numeric, boolean/enum, text, and network fields. Generation
// walks the catalog in order so the shape is stable for a given size.
var fieldCatalog = []fieldGenerator{
	// Identity
	{"id", func() any { return mathrand.IntN(100000) + 1 }},
	{"uuid", func() any { return uuid.New().String() }},
	{"username", func() any { return pick(words) + fmt.Sprintf("%d", mathrand.IntN(1000)) }},
	// Contact
	{"name", func() any { return fullName() }},
	{"email", func() any { return pick(words) + "@" + pick(domains) }},
	{"phone", func() any { return fmt.Sprintf("+1-%03d-%03d-%04d", mathrand.IntN(900)+100, mathrand.IntN(900)+100, mathrand.IntN(10000)) }},
	{"city", func() any { return pick(cities) }},
	{"company", func() any { return pick(companies) }},
	// Numeric
	{"age", func() any { return mathrand.IntN(62) + 18 }},
	{"price", func() any { return float64(mathrand.IntN(100000)) / 100 }},
	{"quantity", func() any { return mathrand.IntN(500) }},
	{"score", func() any { return float64(mathrand.IntN(1000)) / 10 }},
	// Boolean / enum
	{"active", func() any { return mathrand.IntN(2) == 0 }},
	{"verified", func() any { return mathrand.IntN(2) == 0 }},
	{"status", func() any { return pick(statuses) }},
	{"role", func() any { return pick(roles) }},
	// Text
	{"title", func() any { return sentence(3) }},
	{"description", func() any { return sentence(8) }},
	{"comment", func() any { return sentence(5) }},
	// Network
	{"ip", func() any { return fmt.Sprintf("%d.%d.%d.%d", mathrand.IntN(223)+1, mathrand.IntN(256), mathrand.IntN(256), mathrand.IntN(254)+1) }},
	{"url", func() any { return "https://" + pick(domains) + "/" + pick(words) }},
	{"domain", func() any { return pick(domains) }},
}

// RandomJSON generates a pseudo-random object with exactly size data
// fields (clamped 1-9999), drawn from the fixed field catalog. Catalog
// names repeat with numeric suffixes once exhausted. A metadata block is
// injected at size >= 5 and an items array at size >= 8.
func RandomJSON(size int) map[string]any {
	if size < minRandomSize {
		size = minRandomSize
	}
	if size > maxRandomSize {
		size = maxRandomSize
	}

	out := make(map[string]any, size+2)
	for i := 0; i < size; i++ {
		g := fieldCatalog[i%len(fieldCatalog)]
		name := g.name
		if round := i / len(fieldCatalog); round > 0 {
			name = fmt.Sprintf("%s%d", g.name, round+1)
		}
		out[name] = g.gen()
	}

	if size >= metadataThreshold {
		out["metadata"] = map[string]any{
			"generated":  true,
			"generator":  "catalog",
			"fieldCount": size,
			"createdAt":  time.Now().UTC().Format(time.RFC3339),
		}
	}

	if size >= itemsThreshold {
		count := size / 4
		if count > maxItems {
			count = maxItems
		}
		items := make([]any, count)
		for i := range items {
			items[i] = map[string]any{
				"id":    i + 1,
				"label": pick(words),
				"value": mathrand.IntN(1000),
			}
		}
		out["items"] = items
	}

	return out
}
