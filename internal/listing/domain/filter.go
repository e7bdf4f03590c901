package domain

// Listing field names understood by the stores. The Spanish aliases are the
// names existing web clients sort by.
const (
	FieldName      = "name"
	FieldPrice     = "price"
	FieldForSale   = "forSale"
	FieldTags      = "tags"
	FieldPhoto     = "photo"
	FieldCreatedAt = "createdAt"
)

var fieldAliases = map[string]string{
	"name":      FieldName,
	"nombre":    FieldName,
	"price":     FieldPrice,
	"precio":    FieldPrice,
	"forSale":   FieldForSale,
	"venta":     FieldForSale,
	"tags":      FieldTags,
	"photo":     FieldPhoto,
	"foto":      FieldPhoto,
	"createdAt": FieldCreatedAt,
}

// CanonicalField resolves a client supplied field name. ok is false for
// names this service does not know; stores decide what to do with those.
func CanonicalField(name string) (field string, ok bool) {
	field, ok = fieldAliases[name]
	return field, ok
}

// PriceRange is a closed interval; a nil bound is unbounded.
// Min == Max expresses an exact price match.
type PriceRange struct {
	Min *float64
	Max *float64
}

func (p PriceRange) IsExact() bool {
	return p.Min != nil && p.Max != nil && *p.Min == *p.Max
}

func (p PriceRange) Contains(price float64) bool {
	if p.Min != nil && price < *p.Min {
		return false
	}
	if p.Max != nil && price > *p.Max {
		return false
	}
	return true
}

type SortKey struct {
	Field string
	Desc  bool
}

// FilterSpec is the validated form of a listing search. A nil field applies no
// constraint.
type FilterSpec struct {
	Tags       []string
	ForSale    *bool
	NamePrefix *string
	Price      *PriceRange
	Sort       *SortKey
	Limit      *int
	Offset     *int
}

// OffsetOrZero returns the number of matches to skip.
func (f FilterSpec) OffsetOrZero() int {
	if f.Offset == nil {
		return 0
	}
	return *f.Offset
}
