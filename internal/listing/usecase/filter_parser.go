package usecase

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/Abdurahmanit/nodepop/internal/listing/domain"
)

// Query parameter names, as existing web clients send them.
const (
	ParamTags    = "tags"
	ParamForSale = "venta"
	ParamName    = "nombre"
	ParamPrice   = "precio"
	ParamSort    = "sort"
	ParamLimit   = "limit"
	ParamStart   = "start"
)

var (
	truthy = map[string]bool{"true": true, "1": true, "t": true, "yes": true, "y": true, "si": true, "sí": true, "on": true}
	falsy  = map[string]bool{"false": true, "0": true, "f": true, "no": true, "n": true, "off": true}
)

// ParseFilter turns raw query parameters into a FilterSpec. Parameters are
// independent and optional; an empty value counts as absent. Any present value
// that cannot be interpreted fails the whole filter with a *domain.FilterError,
// including every repeat of a single-valued parameter.
func ParseFilter(params url.Values) (domain.FilterSpec, error) {
	var spec domain.FilterSpec

	spec.Tags = parseTags(params[ParamTags])

	forSale, ok, err := parseScalar(params, ParamForSale, true, parseForSale)
	if err != nil {
		return domain.FilterSpec{}, err
	}
	if ok {
		spec.ForSale = &forSale
	}

	// The prefix is kept verbatim; each store escapes it for its own pattern syntax.
	name, ok, err := parseScalar(params, ParamName, false, func(raw string) (string, error) { return raw, nil })
	if err != nil {
		return domain.FilterSpec{}, err
	}
	if ok {
		spec.NamePrefix = &name
	}

	if spec.Price, _, err = parseScalar(params, ParamPrice, true, parsePrice); err != nil {
		return domain.FilterSpec{}, err
	}
	if spec.Sort, _, err = parseScalar(params, ParamSort, true, parseSort); err != nil {
		return domain.FilterSpec{}, err
	}

	limit, ok, err := parseScalar(params, ParamLimit, true, countParser(ParamLimit))
	if err != nil {
		return domain.FilterSpec{}, err
	}
	if ok {
		spec.Limit = &limit
	}

	offset, ok, err := parseScalar(params, ParamStart, true, countParser(ParamStart))
	if err != nil {
		return domain.FilterSpec{}, err
	}
	if ok {
		spec.Offset = &offset
	}

	return spec, nil
}

// parseScalar parses every non-empty value of a single-valued parameter. A
// repeat must parse and must equal the first value; ok is false when the
// parameter is absent.
func parseScalar[T any](params url.Values, param string, trim bool, parse func(string) (T, error)) (value T, ok bool, err error) {
	var first string
	for _, raw := range params[param] {
		if trim {
			raw = strings.TrimSpace(raw)
		}
		if raw == "" {
			continue
		}
		v, err := parse(raw)
		if err != nil {
			var zero T
			return zero, false, err
		}
		if ok {
			if raw != first {
				var zero T
				return zero, false, &domain.FilterError{Param: param, Value: raw, Reason: "conflicts with earlier value " + strconv.Quote(first)}
			}
			continue
		}
		value, first, ok = v, raw, true
	}
	return value, ok, nil
}

func parseTags(values []string) []string {
	var tags []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if tag := strings.TrimSpace(part); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// ParseBoolToken reads a case-insensitive boolean token such as "si" or "off".
// ok is false when raw is not a recognised token.
func ParseBoolToken(raw string) (value, ok bool) {
	token := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case truthy[token]:
		return true, true
	case falsy[token]:
		return false, true
	}
	return false, false
}

func parseForSale(raw string) (bool, error) {
	if v, ok := ParseBoolToken(raw); ok {
		return v, nil
	}
	return false, &domain.FilterError{Param: ParamForSale, Value: raw, Reason: "expected a boolean token"}
}

// parsePrice maps the fixed price vocabulary to a range. Any other token is
// read as an exact price; this fallback matches what existing clients rely on.
func parsePrice(raw string) (*domain.PriceRange, error) {
	switch raw {
	case "10-":
		return &domain.PriceRange{Min: priceBound(10)}, nil
	case "10-50":
		return &domain.PriceRange{Min: priceBound(10), Max: priceBound(50)}, nil
	case "-50":
		return &domain.PriceRange{Max: priceBound(50)}, nil
	case "+50":
		return &domain.PriceRange{Min: priceBound(50)}, nil
	}

	if !isDecimal(raw) {
		return nil, &domain.FilterError{Param: ParamPrice, Value: raw, Reason: "expected one of 10-, 10-50, -50, +50 or a number"}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, &domain.FilterError{Param: ParamPrice, Value: raw, Reason: "expected one of 10-, 10-50, -50, +50 or a number"}
	}
	return &domain.PriceRange{Min: priceBound(v), Max: priceBound(v)}, nil
}

func parseSort(raw string) (*domain.SortKey, error) {
	key := &domain.SortKey{Field: raw}
	if strings.HasPrefix(raw, "-") {
		key.Field = raw[1:]
		key.Desc = true
	}
	if key.Field == "" || strings.ContainsAny(key.Field, " \t") {
		return nil, &domain.FilterError{Param: ParamSort, Value: raw, Reason: "expected a field name with an optional '-' prefix"}
	}
	return key, nil
}

func countParser(param string) func(string) (int, error) {
	return func(raw string) (int, error) {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, &domain.FilterError{Param: param, Value: raw, Reason: "expected a base-10 integer"}
		}
		if n < 0 {
			return 0, &domain.FilterError{Param: param, Value: raw, Reason: "must not be negative"}
		}
		return n, nil
	}
}

// isDecimal rejects the hex, underscore and inf/nan spellings ParseFloat
// would otherwise accept.
func isDecimal(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune("0123456789+-.eE", r) {
			return false
		}
	}
	return true
}

func priceBound(v float64) *float64 {
	return &v
}
