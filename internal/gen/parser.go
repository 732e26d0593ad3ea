package gen

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path"
	"reflect"
	"strconv"
	"strings"

	"github.com/mickamy/eagerorm/internal/naming"
)

// FieldInfo holds parsed metadata for one struct field.
type FieldInfo struct {
	Name       string // Go field name, e.g. "ID"
	Column     string // DB column name from `db:"id"` tag
	GoType     string // Go type as string, e.g. "int", "string", "time.Time"
	PrimaryKey bool   // true if tag contains "primaryKey"
}

// RelationInfo holds a relation declared with a rel tag:
//
//	Posts []Post `rel:"has_many,foreign_key:user_id"`
//	Tags  []Tag  `rel:"many_to_many,join_table:posts_tags,foreign_key:post_id,references:tag_id"`
type RelationInfo struct {
	Name       string // relation name, the snake_case field name
	Field      string // Go field name
	Kind       string // "belongs_to", "has_many" or "many_to_many"
	Target     string // related struct name without package qualifier
	ForeignKey string
	JoinTable  string // many_to_many only
	References string // many_to_many only
}

// StructInfo holds parsed metadata for the target struct.
type StructInfo struct {
	Name      string         // Go struct name, e.g. "User"
	Package   string         // Package name, e.g. "model"
	Fields    []FieldInfo    // Non-skipped db fields
	Relations []RelationInfo // rel-tagged fields
	Imports   map[string]string
	TableName string // Set by the caller (from CLI flag)
}

// PrimaryKeyField returns the primary key field, or an error if none or
// multiple are defined.
func (s *StructInfo) PrimaryKeyField() (*FieldInfo, error) {
	var pk *FieldInfo
	for i := range s.Fields {
		if s.Fields[i].PrimaryKey {
			if pk != nil {
				return nil, fmt.Errorf("multiple primary keys: %s and %s", pk.Name, s.Fields[i].Name)
			}
			pk = &s.Fields[i]
		}
	}
	if pk == nil {
		return nil, fmt.Errorf("no primary key defined for %s", s.Name)
	}
	return pk, nil
}

// Parse reads the Go file at filePath and returns the StructInfo of the
// struct named typeName.
func Parse(filePath, typeName string) (*StructInfo, error) {
	infos, err := ParseAll(filePath)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.Name == typeName {
			return info, nil
		}
	}
	return nil, fmt.Errorf("struct %s not found in %s", typeName, filePath)
}

// ParseAll reads the Go file at filePath and returns StructInfo for every
// struct that has at least one column field.
func ParseAll(filePath string) ([]*StructInfo, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse file: %w", err)
	}

	pkg := file.Name.Name
	imports := fileImports(file)
	var (
		infos    []*StructInfo
		parseErr error
	)

	ast.Inspect(file, func(n ast.Node) bool {
		if parseErr != nil {
			return false
		}
		ts, ok := n.(*ast.TypeSpec)
		if !ok {
			return true
		}

		st, ok := ts.Type.(*ast.StructType)
		if !ok {
			return true
		}

		fields, relations, err := parseStructFields(st)
		if err != nil {
			parseErr = fmt.Errorf("%s: %w", ts.Name.Name, err)
			return false
		}
		if len(fields) == 0 {
			return true
		}

		infos = append(infos, &StructInfo{
			Name:      ts.Name.Name,
			Package:   pkg,
			Fields:    fields,
			Relations: relations,
			Imports:   imports,
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return infos, nil
}

// fileImports maps the local name of every import to its path.
func fileImports(file *ast.File) map[string]string {
	imports := make(map[string]string, len(file.Imports))
	for _, spec := range file.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		name := path.Base(p)
		if spec.Name != nil {
			name = spec.Name.Name
		}
		imports[name] = p
	}
	return imports
}

// parseStructFields extracts column and relation fields from an AST struct
// type.
func parseStructFields(st *ast.StructType) ([]FieldInfo, []RelationInfo, error) {
	fields := make([]FieldInfo, 0, len(st.Fields.List))
	var relations []RelationInfo
	for _, field := range st.Fields.List {
		if rel, ok, err := parseRelation(field); err != nil {
			return nil, nil, err
		} else if ok {
			relations = append(relations, rel)
			continue
		}
		fi, skip := parseField(field)
		if skip {
			continue
		}
		fields = append(fields, fi)
	}
	return fields, relations, nil
}

func parseField(field *ast.Field) (FieldInfo, bool) {
	if len(field.Names) == 0 {
		return FieldInfo{}, true // embedded field, skip
	}

	name := field.Names[0].Name

	// Skip unexported fields.
	if !field.Names[0].IsExported() {
		return FieldInfo{}, true
	}

	goType := typeToString(field.Type)

	// Defaults: column inferred from field name, ID field is primary key.
	column := naming.CamelToSnake(name)
	primaryKey := name == "ID"

	// Override with db tag if present.
	if dbTag, ok := lookupTag(field, "db"); ok {
		if dbTag == "-" {
			return FieldInfo{}, true // explicitly skipped
		}
		parts := strings.Split(dbTag, ",")
		if parts[0] != "" {
			column = parts[0]
		}
		for _, opt := range parts[1:] {
			if opt == "primaryKey" {
				primaryKey = true
			}
		}
	}

	return FieldInfo{
		Name:       name,
		Column:     column,
		GoType:     goType,
		PrimaryKey: primaryKey,
	}, false
}

// parseRelation reads a rel tag. ok is false when the field has none.
func parseRelation(field *ast.Field) (RelationInfo, bool, error) {
	relTag, ok := lookupTag(field, "rel")
	if !ok || len(field.Names) == 0 {
		return RelationInfo{}, false, nil
	}

	name := field.Names[0].Name
	parts := strings.Split(relTag, ",")
	rel := RelationInfo{
		Name:   naming.CamelToSnake(name),
		Field:  name,
		Kind:   parts[0],
		Target: targetType(typeToString(field.Type)),
	}
	switch rel.Kind {
	case "belongs_to", "has_many", "many_to_many":
	default:
		return RelationInfo{}, false, fmt.Errorf("field %s: unsupported relation %q", name, rel.Kind)
	}

	for _, opt := range parts[1:] {
		key, value, _ := strings.Cut(opt, ":")
		switch key {
		case "foreign_key":
			rel.ForeignKey = value
		case "join_table":
			rel.JoinTable = value
		case "references":
			rel.References = value
		case "name":
			rel.Name = value
		default:
			return RelationInfo{}, false, fmt.Errorf("field %s: unknown rel option %q", name, key)
		}
	}
	return rel, true, nil
}

func lookupTag(field *ast.Field, key string) (string, bool) {
	if field.Tag == nil {
		return "", false
	}
	tag := reflect.StructTag(strings.Trim(field.Tag.Value, "`"))
	return tag.Lookup(key)
}

// targetType strips slice, pointer and package qualifiers:
// "[]*amodel.Post" → "Post".
func targetType(goType string) string {
	t := strings.TrimLeft(goType, "[]*")
	if i := strings.LastIndex(t, "."); i >= 0 {
		t = t[i+1:]
	}
	return t
}

func typeToString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return typeToString(t.X) + "." + t.Sel.Name
	case *ast.StarExpr:
		return "*" + typeToString(t.X)
	case *ast.ArrayType:
		if t.Len == nil {
			return "[]" + typeToString(t.Elt)
		}
		return fmt.Sprintf("[%s]%s", typeToString(t.Len), typeToString(t.Elt))
	case *ast.BasicLit:
		return t.Value
	default:
		return fmt.Sprintf("%T", expr)
	}
}
