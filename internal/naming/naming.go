package naming

import (
	"sort"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// CamelToSnake converts a CamelCase string to snake_case.
// Consecutive uppercase letters (acronyms) are kept together:
// "ID" → "id", "UserID" → "user_id", "CreatedAt" → "created_at".
func CamelToSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				next := rune(0)
				if i+1 < len(runes) {
					next = runes[i+1]
				}
				if unicode.IsLower(prev) || (unicode.IsUpper(prev) && unicode.IsLower(next)) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TableName infers a table name from a Go type name:
// "User" → "users", "UserProfile" → "user_profiles".
func TableName(typeName string) string {
	return inflection.Plural(CamelToSnake(typeName))
}

// ModelName infers a model name from a table name:
// "users" → "user", "user_profiles" → "user_profile".
func ModelName(table string) string {
	return inflection.Singular(strings.ToLower(table))
}

// ForeignKey returns the conventional foreign key column referencing table:
// "places" → "place_id".
func ForeignKey(table string) string {
	return ModelName(table) + "_id"
}

// PivotTable returns the conventional many-to-many pivot table name for two
// tables: both names sorted lexicographically and joined with "_".
// PivotTable("users", "addresses") → "addresses_users".
func PivotTable(a, b string) string {
	names := []string{a, b}
	sort.Strings(names)
	return names[0] + "_" + names[1]
}
