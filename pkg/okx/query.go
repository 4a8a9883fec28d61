package okx

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"okxapi/pkg/core"
)

// CandleBars lists the accepted values of the bar parameter.
var CandleBars = []string{
	"1m", "3m", "5m", "15m", "30m",
	"1H", "2H", "4H", "6H", "12H",
	"1D", "1W", "1M", "3M", "6M", "1Y",
}

const maxPositionIDs = 20

// Param is one named query argument. A nil Value (or nil pointer or slice) means absent.
type Param struct {
	Key   string
	Value any
}

// P is shorthand for Param{Key: key, Value: value}.
func P(key string, value any) Param {
	return Param{Key: key, Value: value}
}

// Query is a validated, ordered set of query parameters.
// Order is significant: it determines the request path and therefore the signature.
type Query struct {
	keys   []string
	values map[string]string
}

type paramValidator func(key string, value any) (string, error)

var paramValidators = map[string]paramValidator{
	"after":    millis,
	"before":   millis,
	"bar":      oneOf(CandleBars...),
	"ccy":      commaList(0),
	"posId":    commaList(maxPositionIDs),
	"instId":   nonEmpty,
	"instType": instrumentType,
	"uly":      nonEmpty,
	"quoteCcy": nonEmpty,
	"limit":    positiveInt,
	"sz":       positiveInt,
	"mgnMode":  oneOf("isolated", "cross"),
	"ctType":   oneOf("linear", "inverse"),
	"type":     positiveInt,
	"subType":  positiveInt,
}

var validate = validator.New()

// reservedTag rejects the characters that would split or end the unescaped query string.
const reservedTag = "excludesall=&=?#"

// plainValue rejects values that String would render as extra parameters or fragments.
func plainValue(key, s string) error {
	if err := validate.Var(s, reservedTag); err != nil || strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return core.NewValidationError("%s contains a reserved character: %q", key, s)
	}
	return nil
}

// BuildQuery validates params in order and returns the encoded set.
// Absent values are dropped. An unknown key or invalid value fails the whole call.
func BuildQuery(params ...Param) (*Query, error) {
	q := &Query{values: make(map[string]string, len(params))}
	for _, p := range params {
		if absent(p.Value) {
			continue
		}
		check, ok := paramValidators[p.Key]
		if !ok {
			return nil, core.NewValidationError("unsupported query parameter %q", p.Key)
		}
		if _, dup := q.values[p.Key]; dup {
			return nil, core.NewValidationError("duplicate query parameter %q", p.Key)
		}
		wire, err := check(p.Key, deref(p.Value))
		if err != nil {
			return nil, err
		}
		q.keys = append(q.keys, p.Key)
		q.values[p.Key] = wire
	}
	return q, nil
}

// Require fails when any of keys is missing.
func (q *Query) Require(keys ...string) error {
	for _, k := range keys {
		if _, ok := q.Get(k); !ok {
			return core.NewValidationError("missing required parameter %q", k)
		}
	}
	return nil
}

// RequireAny fails unless at least one of keys is present.
func (q *Query) RequireAny(keys ...string) error {
	for _, k := range keys {
		if _, ok := q.Get(k); ok {
			return nil
		}
	}
	return core.NewValidationError("one of %s is required", strings.Join(keys, ", "))
}

// Get returns the wire value of key.
func (q *Query) Get(key string) (string, bool) {
	if q == nil {
		return "", false
	}
	v, ok := q.values[key]
	return v, ok
}

// Keys returns parameter names in insertion order.
func (q *Query) Keys() []string {
	if q == nil {
		return nil
	}
	return append([]string(nil), q.keys...)
}

// Len returns the number of parameters; a nil Query has none.
func (q *Query) Len() int {
	if q == nil {
		return 0
	}
	return len(q.keys)
}

// String renders "?k1=v1&k2=v2", or "" for an empty set.
// Values are not escaped: OKX signs the literal string.
func (q *Query) String() string {
	if q.Len() == 0 {
		return ""
	}
	var b strings.Builder
	for i, k := range q.keys {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(q.values[k])
	}
	return b.String()
}

func absent(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case []string:
		return x == nil
	case *string:
		return x == nil
	case *int:
		return x == nil
	case *int64:
		return x == nil
	case *time.Time:
		return x == nil
	}
	return false
}

func deref(v any) any {
	switch x := v.(type) {
	case *string:
		return *x
	case *int:
		return *x
	case *int64:
		return *x
	case *time.Time:
		return *x
	}
	return v
}

// toInt64 accepts Go integer kinds only; strings, floats and bools are rejected.
func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), uint64(x) <= math.MaxInt64
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), x <= math.MaxInt64
	}
	return 0, false
}

func positiveInt(key string, v any) (string, error) {
	n, ok := toInt64(v)
	if !ok {
		return "", core.NewValidationError("%s must be an integer, got %T", key, v)
	}
	if n <= 0 {
		return "", core.NewValidationError("%s must be greater than 0", key)
	}
	return strconv.FormatInt(n, 10), nil
}

func nonEmpty(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", core.NewValidationError("%s must be a string, got %T", key, v)
	}
	if strings.TrimSpace(s) == "" {
		return "", core.NewValidationError("%s must not be empty", key)
	}
	if err := plainValue(key, s); err != nil {
		return "", err
	}
	return s, nil
}

func instrumentType(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", core.NewValidationError("%s must be a string, got %T", key, v)
	}
	it, err := core.ParseInstrumentType(s)
	if err != nil {
		return "", core.NewValidationError("%s: %v", key, err)
	}
	return it.String(), nil
}

func oneOf(values ...string) paramValidator {
	tag := "oneof=" + strings.Join(values, " ")
	return func(key string, v any) (string, error) {
		s, ok := v.(string)
		if !ok {
			return "", core.NewValidationError("%s must be a string, got %T", key, v)
		}
		if err := validate.Var(s, tag); err != nil {
			return "", core.NewValidationError("%s must be one of %s, got %q", key, strings.Join(values, " "), s)
		}
		return s, nil
	}
}

// commaList joins a list of identifiers with commas. maxItems of zero means unbounded.
func commaList(maxItems int) paramValidator {
	return func(key string, v any) (string, error) {
		var items []string
		switch x := v.(type) {
		case string:
			items = []string{x}
		case []string:
			items = x
		default:
			return "", core.NewValidationError("%s must be a string list, got %T", key, v)
		}
		if len(items) == 0 {
			return "", core.NewValidationError("%s must not be empty", key)
		}
		if maxItems > 0 && len(items) > maxItems {
			return "", core.NewValidationError("%s accepts at most %d values, got %d", key, maxItems, len(items))
		}
		for _, item := range items {
			if item == "" || strings.Contains(item, ",") {
				return "", core.NewValidationError("%s contains invalid value %q", key, item)
			}
			if err := plainValue(key, item); err != nil {
				return "", err
			}
		}
		return strings.Join(items, ","), nil
	}
}

// millis accepts a UNIX millisecond timestamp as an integer, a digit string or a time.Time.
func millis(key string, v any) (string, error) {
	var ms int64
	switch x := v.(type) {
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return "", core.NewValidationError("%s must be a unix millisecond timestamp, got %q", key, x)
		}
		ms = n
	case time.Time:
		ms = x.UnixMilli()
	default:
		n, ok := toInt64(v)
		if !ok {
			return "", core.NewValidationError("%s must be a unix millisecond timestamp, got %T", key, v)
		}
		ms = n
	}
	if ms < 0 {
		return "", core.NewValidationError("%s must not be before the unix epoch", key)
	}
	return strconv.FormatInt(ms, 10), nil
}
