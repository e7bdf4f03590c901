package sqlite

import (
	"strings"

	"github.com/Abdurahmanit/nodepop/internal/listing/domain"
)

// sortColumns whitelists sortable fields. Anything else is ignored and the
// result keeps insertion order.
var sortColumns = map[string]string{
	domain.FieldName:      "name",
	domain.FieldPrice:     "price",
	domain.FieldForSale:   "for_sale",
	domain.FieldPhoto:     "photo",
	domain.FieldCreatedAt: "created_at",
	"id":                  "id",
}

const selectListings = `SELECT l.id, l.name, l.price, l.for_sale, l.photo, l.created_at FROM listings l`

// buildSelect compiles spec into a parameterised statement. User input only
// ever reaches the query through args.
func buildSelect(spec domain.FilterSpec) (string, []any) {
	var (
		where []string
		args  []any
	)

	if len(spec.Tags) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(spec.Tags)), ",")
		where = append(where, `EXISTS (SELECT 1 FROM listing_tags lt WHERE lt.listing_id = l.id AND lt.tag IN (`+placeholders+`))`)
		for _, t := range spec.Tags {
			args = append(args, t)
		}
	}
	if spec.ForSale != nil {
		where = append(where, `l.for_sale = ?`)
		args = append(args, boolToInt(*spec.ForSale))
	}
	if spec.NamePrefix != nil {
		where = append(where, `l.name_fold LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(foldName(*spec.NamePrefix))+"%")
	}
	if p := spec.Price; p != nil {
		switch {
		case p.IsExact():
			where = append(where, `l.price = ?`)
			args = append(args, *p.Min)
		default:
			if p.Min != nil {
				where = append(where, `l.price >= ?`)
				args = append(args, *p.Min)
			}
			if p.Max != nil {
				where = append(where, `l.price <= ?`)
				args = append(args, *p.Max)
			}
		}
	}

	var b strings.Builder
	b.WriteString(selectListings)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	order := "l.id ASC"
	if col, dir, ok := sortClause(spec.Sort); ok {
		if col == "id" {
			order = "l.id " + dir
		} else {
			order = "l." + col + " " + dir + ", l.id ASC"
		}
	}
	b.WriteString(" ORDER BY " + order)

	switch {
	case spec.Limit != nil:
		b.WriteString(" LIMIT ?")
		args = append(args, *spec.Limit)
	case spec.Offset != nil:
		b.WriteString(" LIMIT -1")
	}
	if spec.Offset != nil {
		b.WriteString(" OFFSET ?")
		args = append(args, *spec.Offset)
	}
	return b.String(), args
}

func sortClause(key *domain.SortKey) (col, dir string, ok bool) {
	if key == nil {
		return "", "", false
	}
	field := key.Field
	if canonical, known := domain.CanonicalField(field); known {
		field = canonical
	}
	col, ok = sortColumns[field]
	if !ok {
		return "", "", false
	}
	dir = "ASC"
	if key.Desc {
		dir = "DESC"
	}
	return col, dir, true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
