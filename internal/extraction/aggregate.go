package extraction

import (
	"sort"
	"strings"

	"github.com/narrata/narrata/internal/toc"
	"github.com/narrata/narrata/internal/types"
)

// FactGroup is an entity's evidence within one book part.
type FactGroup struct {
	BookPartID  string       `json:"book_part_id"`
	PartLabel   string       `json:"part_label,omitempty"`
	Occurrences int          `json:"occurrences"`
	Facts       []types.Fact `json:"facts"`
}

// RankedEntity is an entity joined to the parts that produced its
// evidence, ranked by total occurrences.
type RankedEntity struct {
	Entity           types.Entity `json:"entity"`
	TotalOccurrences int          `json:"total_occurrences"`
	Groups           []FactGroup  `json:"groups"`
}

// Aggregate joins each entity's facts to the parts that produced them
// and ranks entities by descending total occurrence count, ties broken
// by case-insensitive name for determinism. Facts without an explicit
// occurrence count count as 1. Only meaningful once the extraction
// process is complete.
//
// tree may be nil when part labels and ordering are not needed; groups
// then keep first-seen order. An empty entity set yields an empty
// ranking, not an error: no entities is a valid result.
func Aggregate(entities []types.Entity, tree *toc.Tree) []RankedEntity {
	ranked := make([]RankedEntity, 0, len(entities))

	for _, e := range entities {
		groups := make(map[string]*FactGroup)
		var order []string

		for _, f := range e.Facts {
			g, ok := groups[f.BookPartID]
			if !ok {
				g = &FactGroup{BookPartID: f.BookPartID}
				if tree != nil {
					if part, found := tree.Part(f.BookPartID); found {
						g.PartLabel = part.Label
					}
				}
				groups[f.BookPartID] = g
				order = append(order, f.BookPartID)
			}
			g.Facts = append(g.Facts, f)
			g.Occurrences += f.OccurrenceCount()
		}

		re := RankedEntity{
			Entity:           e,
			TotalOccurrences: e.TotalOccurrences(),
			Groups:           make([]FactGroup, 0, len(order)),
		}
		if tree != nil {
			// Reading order: groups follow the part's position in the book.
			sort.SliceStable(order, func(i, j int) bool {
				return partRank(tree, order[i]) < partRank(tree, order[j])
			})
		}
		for _, id := range order {
			re.Groups = append(re.Groups, *groups[id])
		}
		ranked = append(ranked, re)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalOccurrences != ranked[j].TotalOccurrences {
			return ranked[i].TotalOccurrences > ranked[j].TotalOccurrences
		}
		return strings.ToLower(ranked[i].Entity.Name) < strings.ToLower(ranked[j].Entity.Name)
	})
	return ranked
}

// partRank orders facts by the owning part's pre-order position.
// Facts referencing parts outside the tree share the max rank and so
// sort last, keeping their first-seen order.
func partRank(tree *toc.Tree, id string) int {
	if r := tree.PreorderRank(id); r >= 0 {
		return r
	}
	return int(^uint(0) >> 1)
}

// Filter narrows entities by category and a case-insensitive name
// query. Empty category or query means no constraint on that axis.
func Filter(entities []types.Entity, category types.Category, query string) []types.Entity {
	query = strings.ToLower(query)
	out := make([]types.Entity, 0, len(entities))
	for _, e := range entities {
		if category != "" && e.Category != category {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(e.Name), query) {
			continue
		}
		out = append(out, e)
	}
	return out
}
