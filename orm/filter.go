package orm

import (
	"reflect"
	"sort"
	"strings"
)

// Attrs maps attribute (column) names to values.
//
// As a filter, a key is either a bare column name (equality) or
// "column__op" where op is one of eq, ne, gt, gte, lt, lte, in:
//
//	orm.Attrs{"name": "Alice", "age__gte": 18, "id__in": []int{1, 2}}
type Attrs map[string]any

var operators = map[string]string{
	"eq":  "=",
	"ne":  "!=",
	"gt":  ">",
	"gte": ">=",
	"lt":  "<",
	"lte": "<=",
	"in":  "IN",
}

const opSeparator = "__"

type compiledPredicate struct {
	column string
	op     string
	value  any
	values []any
}

// CompileFilter validates attrs and returns a callback applying one
// predicate per key to a Statement. Columns are qualified with table.
// Keys are applied in sorted order, so equal input always renders equal SQL.
//
// An unknown operator suffix is reported here, before any statement runs.
func CompileFilter(table string, attrs Attrs) (func(*Statement), error) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	preds := make([]compiledPredicate, 0, len(keys))
	for _, key := range keys {
		column, op := splitOperator(key)
		sqlOp, ok := operators[op]
		if !ok {
			return nil, configErrorf(ErrUnknownOperator, "unknown operator %q in filter key %q", op, key)
		}
		p := compiledPredicate{column: qualify(table, column), op: sqlOp}
		if sqlOp == "IN" {
			values, ok := toSlice(attrs[key])
			if !ok {
				return nil, configErrorf(ErrUnknownOperator,
					"filter key %q requires a slice value, got %T", key, attrs[key])
			}
			p.values = values
		} else {
			p.value = attrs[key]
		}
		preds = append(preds, p)
	}

	return func(s *Statement) {
		for _, p := range preds {
			if p.op == "IN" {
				s.WhereIn(p.column, p.values)
			} else {
				s.Where(p.column, p.op, p.value)
			}
		}
	}, nil
}

// splitOperator splits "age__gte" into ("age", "gte"). A key without a
// separator, or with nothing before it, is an equality on the whole key.
func splitOperator(key string) (string, string) {
	i := strings.LastIndex(key, opSeparator)
	if i <= 0 || i+len(opSeparator) == len(key) {
		return key, "eq"
	}
	return key[:i], key[i+len(opSeparator):]
}

func qualify(table, column string) string {
	if table == "" || strings.Contains(column, ".") {
		return column
	}
	return table + "." + column
}

// toSlice expands any slice or array into []any.
func toSlice(v any) ([]any, bool) {
	if vs, ok := v.([]any); ok {
		return vs, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		// []byte is a scalar blob, not a value list
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
