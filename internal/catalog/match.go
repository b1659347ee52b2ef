package catalog

import (
	"strings"

	"golang.org/x/text/cases"
)

// DedupSet holds tracked ids already reported in the current monitoring cycle.
// It is owned by a single goroutine and is not safe for concurrent use.
type DedupSet map[string]struct{}

func NewDedupSet() DedupSet { return DedupSet{} }

func (d DedupSet) Has(id string) bool {
	_, ok := d[id]
	return ok
}

func (d DedupSet) Add(id string) { d[id] = struct{}{} }

func (d DedupSet) Len() int { return len(d) }

// Clear empties the set in place.
func (d DedupSet) Clear() {
	for k := range d {
		delete(d, k)
	}
}

// Match is a tracked product found in the catalog.
type Match struct {
	ID        string
	Name      string
	Available Availability
}

// Report is the outcome of one matcher pass.
type Report struct {
	Matches []Match
	// Missing lists tracked ids absent from the catalog this pass.
	Missing []string
}

// Normalize trims surrounding whitespace and applies full Unicode case folding.
func Normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// MatchTracked looks up every tracked id not yet in dedup, in tracked order.
// The first catalog record (by source order) with an equal normalized alias wins;
// its id is then added to dedup so later passes in the same cycle skip it.
func MatchTracked(products []Product, tracked []string, dedup DedupSet) Report {
	index := make(map[string]int, len(products))
	for i := len(products) - 1; i >= 0; i-- {
		index[Normalize(products[i].Alias)] = i
	}

	var rep Report
	for _, id := range tracked {
		if dedup.Has(id) {
			continue
		}
		i, ok := index[Normalize(id)]
		if !ok {
			rep.Missing = append(rep.Missing, id)
			continue
		}
		dedup.Add(id)
		rep.Matches = append(rep.Matches, Match{
			ID:        id,
			Name:      products[i].Name,
			Available: products[i].Available,
		})
	}
	return rep
}
