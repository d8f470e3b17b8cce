package types

// Category classifies an extracted entity.
type Category string

const (
	CategoryPerson       Category = "PERSON"
	CategoryLocation     Category = "LOCATION"
	CategoryOrganization Category = "ORGANIZATION"
	CategoryConcept      Category = "CONCEPT"
)

// ParseCategory converts a string to a Category.
// Returns CategoryConcept if the string is not recognized.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryPerson:
		return CategoryPerson
	case CategoryLocation:
		return CategoryLocation
	case CategoryOrganization:
		return CategoryOrganization
	case CategoryConcept:
		return CategoryConcept
	default:
		return CategoryConcept
	}
}

// Entity is an extracted semantic entity. Entities and their facts are
// immutable once fetched; they belong to a book's extraction result set.
type Entity struct {
	Name             string   `json:"name"`
	AlternativeNames []string `json:"alternative_names"`
	Category         Category `json:"category"`
	Facts            []Fact   `json:"facts"`
}

// Fact is evidence of an entity's presence in a specific book part.
type Fact struct {
	BookPartID   string `json:"book_part_id"`
	Content      string `json:"content"`
	Occurrences  *int   `json:"occurrences,omitempty"`
	SiblingIndex *int   `json:"sibling_index,omitempty"`
	SiblingTotal *int   `json:"sibling_total,omitempty"`
}

// OccurrenceCount returns the fact's occurrence count, treating a
// missing count as a single occurrence.
func (f Fact) OccurrenceCount() int {
	if f.Occurrences == nil {
		return 1
	}
	return *f.Occurrences
}

// TotalOccurrences sums occurrence counts across all of the entity's facts.
func (e Entity) TotalOccurrences() int {
	total := 0
	for _, f := range e.Facts {
		total += f.OccurrenceCount()
	}
	return total
}
