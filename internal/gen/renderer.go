package gen

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"sort"
	"strings"
	"text/template"
	"unicode"
)

// Render generates the Go source code for a single StructInfo.
// The returned bytes are formatted by gofmt.
func Render(info *StructInfo) ([]byte, error) {
	pk, err := info.PrimaryKeyField()
	if err != nil {
		return nil, err
	}

	source := paramName(info.Name)
	params := []string{source}
	seen := map[string]bool{info.Name: true}
	relations := make([]relationTemplateData, 0, len(info.Relations))
	for _, rel := range info.Relations {
		target := paramName(rel.Target)
		if !seen[rel.Target] {
			seen[rel.Target] = true
			params = append(params, target)
		}
		relations = append(relations, relationTemplateData{
			Method:  relationMethod(rel.Kind),
			Name:    rel.Name,
			Target:  target,
			Options: relationOptions(rel),
		})
	}

	data := templateData{
		Package:   info.Package,
		Imports:   usedImports(info),
		TypeName:  info.Name,
		TableName: info.TableName,
		PK:        pk,
		PKGuard:   zeroGuard(pk),
		Fields:    info.Fields,
		Source:    source,
		Params:    strings.Join(params, ", "),
		Relations: relations,
	}

	var buf bytes.Buffer
	if err := fileTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("gofmt: %w", err)
	}
	return src, nil
}

// FileName returns the name of the file generated for typeName.
func FileName(typeName string) string {
	return strings.ToLower(typeName) + "_def_gen.go"
}

type templateData struct {
	Package   string
	Imports   []string
	TypeName  string
	TableName string
	PK        *FieldInfo
	PKGuard   string
	Fields    []FieldInfo
	Source    string
	Params    string
	Relations []relationTemplateData
}

type relationTemplateData struct {
	Method  string // "BelongsTo", "HasMany" or "BelongsToMany"
	Name    string
	Target  string // descriptor parameter name
	Options []string
}

func (d templateData) Columns() string {
	quoted := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		quoted[i] = fmt.Sprintf("%q", f.Column)
	}
	return strings.Join(quoted, ", ")
}

func (d templateData) NonPKFields() []FieldInfo {
	var fields []FieldInfo
	for _, f := range d.Fields {
		if !f.PrimaryKey {
			fields = append(fields, f)
		}
	}
	return fields
}

var fileTmpl = template.Must(template.New("gen").Parse(fileTemplate))

const fileTemplate = `// Code generated by eagerorm; DO NOT EDIT.
package {{.Package}}

import (
	{{- range .Imports}}
	"{{.}}"
	{{- end}}
	{{- if .Imports}}
{{end}}
	"github.com/mickamy/eagerorm/orm"
)

// {{.TypeName}}Def declares the {{.TableName}} model. Pass it to orm.DB.Define.
var {{.TypeName}}Def = orm.Def{
	Table:      orm.ResolveTableName[{{.TypeName}}]("{{.TableName}}"),
	PrimaryKey: "{{.PK.Column}}",
	Columns:    []string{ {{- .Columns -}} },
}
{{if .Relations}}
// Relate{{.TypeName}} declares the relations tagged on {{.TypeName}}.
func Relate{{.TypeName}}({{.Params}} *orm.Descriptor) {
	{{- $source := .Source}}
	{{- range .Relations}}
	{{$source}}.{{.Method}}("{{.Name}}", {{.Target}}{{range .Options}}, {{.}}{{end}})
	{{- end}}
}
{{end}}
// Attrs returns the column values of v.
{{- if .PKGuard}} A zero primary key is left out so that saving
// inserts a new row.{{end}}
func (v *{{.TypeName}}) Attrs() orm.Attrs {
	attrs := orm.Attrs{
		{{- range .NonPKFields}}
		"{{.Column}}": v.{{.Name}},
		{{- end}}
	}
	{{- if .PKGuard}}
	if v.{{.PK.Name}} {{.PKGuard}} {
		attrs["{{.PK.Column}}"] = v.{{.PK.Name}}
	}
	{{- else}}
	attrs["{{.PK.Column}}"] = v.{{.PK.Name}}
	{{- end}}
	return attrs
}

// {{.TypeName}}FromModel decodes the attributes of m into a {{.TypeName}}.
func {{.TypeName}}FromModel(m *orm.Model) ({{.TypeName}}, error) {
	var (
		v   {{.TypeName}}
		err error
	)
	{{- range .Fields}}
	if v.{{.Name}}, err = orm.Value[{{.GoType}}](m, "{{.Column}}"); err != nil {
		return v, err
	}
	{{- end}}
	return v, nil
}
`

func relationMethod(kind string) string {
	switch kind {
	case "belongs_to":
		return "BelongsTo"
	case "has_many":
		return "HasMany"
	default:
		return "BelongsToMany"
	}
}

func relationOptions(rel RelationInfo) []string {
	var opts []string
	if rel.Kind != "many_to_many" {
		if rel.ForeignKey != "" {
			opts = append(opts, fmt.Sprintf("orm.ForeignKey(%q)", rel.ForeignKey))
		}
		return opts
	}
	if rel.JoinTable != "" {
		opts = append(opts, fmt.Sprintf("orm.Pivot(%q)", rel.JoinTable))
	}
	if rel.ForeignKey != "" || rel.References != "" {
		opts = append(opts, fmt.Sprintf("orm.PivotKeys(%q, %q)", rel.ForeignKey, rel.References))
	}
	return opts
}

// usedImports returns the import paths the field types refer to, sorted.
func usedImports(info *StructInfo) []string {
	seen := make(map[string]bool)
	for _, f := range info.Fields {
		t := strings.TrimLeft(f.GoType, "[]*")
		pkg, _, ok := strings.Cut(t, ".")
		if !ok {
			continue
		}
		if p, ok := info.Imports[pkg]; ok {
			seen[p] = true
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// zeroGuard returns the comparison that holds for a non-zero primary key,
// or "" when the type has no literal zero value.
func zeroGuard(pk *FieldInfo) string {
	switch {
	case isIntType(pk.GoType):
		return "!= 0"
	case pk.GoType == "string":
		return `!= ""`
	case strings.HasPrefix(pk.GoType, "*"):
		return "!= nil"
	default:
		return ""
	}
}

// paramName returns a parameter name for a descriptor of typeName:
// "User" → "user", "Type" → "typeModel".
func paramName(typeName string) string {
	name := unexportedName(typeName)
	if token.IsKeyword(name) || name == "orm" || name == "v" {
		name += "Model"
	}
	return name
}

func unexportedName(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

func isIntType(goType string) bool {
	switch goType {
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64":
		return true
	default:
		return false
	}
}
