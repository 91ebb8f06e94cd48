package models

// Category classifies a project in the portfolio.
type Category string

const (
	CategoryResidential Category = "Residential"
	CategoryCommercial  Category = "Commercial"
	CategoryIndustrial  Category = "Industrial"
)

// Categories lists every allowed category in display order. Both the
// validation layer and the public API read from this list.
var Categories = []Category{
	CategoryResidential,
	CategoryCommercial,
	CategoryIndustrial,
}

// Valid reports whether c is one of the allowed categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}
