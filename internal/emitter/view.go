package emitter

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-openapi/inflect"

	"umlexport/internal/compiler"
)

// BasePackage is the Java package every generated source lives under.
const BasePackage = "com.example.demo"

const (
	maxFinders   = 3
	stringLength = 255
	keyLength    = 50
)

var finderName = regexp.MustCompile(`^[a-z][a-zA-Z0-9]*$`)

type fieldView struct {
	Name        string
	Cap         string
	JavaType    string
	Static      bool
	Column      string
	Annotations []string
}

func (f fieldView) Getter() string { return "get" + f.Cap }
func (f fieldView) Setter() string { return "set" + f.Cap }

type relationView struct {
	FieldName        string
	Cap              string
	Target           string
	Annotation       string
	Annotations      []string
	ForeignKey       fieldView
	ServiceMethod    string
	ControllerMethod string
	Path             string
}

type keyView struct {
	JavaType   string
	Composite  bool
	Fields     []fieldView
	Path       string
	PathParams string
	Expr       string
	Assign     []string
}

type classView struct {
	Package       string
	Name          string
	Var           string
	Table         string
	Route         string
	Extends       string
	IsRoot        bool
	IDClass       string
	Fields        []fieldView
	ToString      []fieldView
	Relations     []relationView
	HasCascade    bool
	Key           keyView
	Finders       []fieldView
	DTOFields     []fieldView
	EntityImports []string
	KeyImports    []string
	DTOImports    []string
}

// TableName is the plural snake_case table for a class.
func TableName(class string) string {
	return inflect.Pluralize(inflect.Underscore(class))
}

func columnName(field string) string {
	return inflect.Underscore(field)
}

func plainField(a compiler.Attribute) fieldView {
	return fieldView{
		Name:     a.Name,
		Cap:      compiler.Capitalize(a.Name),
		JavaType: a.JavaType(),
		Static:   a.IsStatic,
		Column:   columnName(a.Name),
	}
}

func newClassView(m *compiler.ResolvedModel, c *compiler.ResolvedClass) classView {
	v := classView{
		Package: BasePackage,
		Name:    c.Name,
		Var:     compiler.LowerFirst(c.Name),
		Table:   TableName(c.Name),
		Route:   "/api/" + strings.ToLower(c.Name),
		IsRoot:  c.IsHierarchyRoot(),
	}
	if c.Inheritance.IsChild() {
		v.Extends = m.ClassName(c.Inheritance.ParentID)
	}
	if c.Identity.IsComposite() {
		v.IDClass = c.Identity.Composite.ClassName
	}

	compositionFKs := make(map[string]bool)
	for _, rel := range c.Relationships {
		if rel.IsComposition {
			compositionFKs[rel.ForeignKeyName] = true
		}
	}

	for _, attr := range c.Attributes {
		f := entityField(c, attr, compositionFKs[attr.Name])
		v.Fields = append(v.Fields, f)
		if !attr.IsStatic {
			v.ToString = append(v.ToString, f)
		}
	}

	for _, rel := range c.Relationships {
		rv := newRelationView(rel)
		v.Relations = append(v.Relations, rv)
		if rel.IsComposition {
			v.HasCascade = true
		}
	}

	v.Key = newKeyView(c)
	v.Finders = finders(c)
	v.DTOFields = dtoFields(c)

	var entityTypes []string
	for _, f := range v.Fields {
		entityTypes = append(entityTypes, f.JavaType)
	}
	v.EntityImports = typeImports(entityTypes...)

	keyTypes := []string{v.Key.JavaType}
	for _, f := range v.Key.Fields {
		keyTypes = append(keyTypes, f.JavaType)
	}
	for _, r := range v.Relations {
		keyTypes = append(keyTypes, r.ForeignKey.JavaType)
	}
	v.KeyImports = typeImports(keyTypes...)

	var dtoTypes []string
	for _, f := range v.DTOFields {
		dtoTypes = append(dtoTypes, f.JavaType)
	}
	v.DTOImports = typeImports(dtoTypes...)

	return v
}

func entityField(c *compiler.ResolvedClass, attr compiler.Attribute, composition bool) fieldView {
	f := plainField(attr)
	if attr.IsStatic {
		return f
	}

	isKey := !c.Identity.Inherited && attr.Name == c.Identity.PrimaryKey.Name
	isKeyMember := c.Identity.IsComposite() && c.Identity.HasField(attr.Name)

	switch {
	case isKey || isKeyMember:
		f.Annotations = append(f.Annotations, "@Id")
		if !c.Identity.IsComposite() {
			switch attr.Type {
			case compiler.TypeLong, compiler.TypeInteger:
				f.Annotations = append(f.Annotations, "@GeneratedValue(strategy = GenerationType.IDENTITY)")
			case compiler.TypeUUID:
				f.Annotations = append(f.Annotations, "@GeneratedValue(strategy = GenerationType.UUID)")
			}
		}
		if attr.Type == compiler.TypeString {
			f.Annotations = append(f.Annotations,
				fmt.Sprintf(`@Column(name = "%s", length = %d)`, f.Column, keyLength),
				fmt.Sprintf("@Size(max = %d)", keyLength))
		} else {
			f.Annotations = append(f.Annotations, fmt.Sprintf(`@Column(name = "%s")`, f.Column))
		}
	case attr.IsForeignKey:
		if composition {
			f.Annotations = append(f.Annotations, fmt.Sprintf(`@Column(name = "%s", nullable = false)`, f.Column), "@NotNull")
		} else {
			f.Annotations = append(f.Annotations, fmt.Sprintf(`@Column(name = "%s")`, f.Column))
		}
	case attr.Type == compiler.TypeString:
		f.Annotations = append(f.Annotations,
			fmt.Sprintf(`@Column(name = "%s", length = %d)`, f.Column, stringLength),
			fmt.Sprintf("@Size(max = %d)", stringLength))
	case attr.Type == compiler.TypeDecimal:
		f.Annotations = append(f.Annotations, fmt.Sprintf(`@Column(name = "%s", precision = 19, scale = 2)`, f.Column))
	default:
		f.Annotations = append(f.Annotations, fmt.Sprintf(`@Column(name = "%s")`, f.Column))
	}
	return f
}

func newRelationView(rel compiler.ResolvedRelationship) relationView {
	fk := plainField(compiler.Attribute{Name: rel.ForeignKeyName, Type: rel.ForeignKeyType})

	annotation := string(rel.Annotation)
	args := "fetch = FetchType.LAZY"
	if rel.IsComposition {
		args += ", optional = false"
	}
	annotations := []string{
		fmt.Sprintf("@%s(%s)", annotation, args),
		fmt.Sprintf(`@JoinColumn(name = "%s", referencedColumnName = "%s", insertable = false, updatable = false)`,
			fk.Column, columnName(rel.ReferencedKeyName)),
	}
	if rel.IsComposition {
		annotations = append(annotations, "@OnDelete(action = OnDeleteAction.CASCADE)")
	}
	annotations = append(annotations, "@JsonIgnore")

	fieldCap := compiler.Capitalize(rel.FieldName)
	return relationView{
		FieldName:        rel.FieldName,
		Cap:              fieldCap,
		Target:           rel.ReferencedClassName,
		Annotation:       annotation,
		Annotations:      annotations,
		ForeignKey:       fk,
		ServiceMethod:    "findBy" + fk.Cap,
		ControllerMethod: "getBy" + fieldCap,
		Path:             fmt.Sprintf("/by-%s/{%s}", strings.ReplaceAll(columnName(rel.FieldName), "_", "-"), fk.Name),
	}
}

func newKeyView(c *compiler.ResolvedClass) keyView {
	k := keyView{JavaType: c.Identity.JavaType(), Composite: c.Identity.IsComposite()}

	var path, params, args []string
	for _, attr := range c.Identity.Fields() {
		f := plainField(attr)
		k.Fields = append(k.Fields, f)
		path = append(path, "{"+f.Name+"}")
		params = append(params, fmt.Sprintf(`@PathVariable("%s") %s %s`, f.Name, f.JavaType, f.Name))
		args = append(args, f.Name)
	}
	k.Path = "/" + strings.Join(path, "/")
	k.PathParams = strings.Join(params, ", ")

	if k.Composite {
		k.Expr = fmt.Sprintf("new %s(%s)", k.JavaType, strings.Join(args, ", "))
		for _, f := range k.Fields {
			k.Assign = append(k.Assign, fmt.Sprintf("%s(id.%s())", f.Setter(), f.Getter()))
		}
	} else {
		k.Expr = k.Fields[0].Name
		k.Assign = []string{fmt.Sprintf("%s(id)", k.Fields[0].Setter())}
	}
	return k
}

// finders picks at most three String attributes that can back a derived
// findBy query: not part of the key, not a foreign key, not static, and named
// like a Java bean property.
func finders(c *compiler.ResolvedClass) []fieldView {
	var out []fieldView
	for _, attr := range c.Attributes {
		if len(out) == maxFinders {
			break
		}
		if attr.Type != compiler.TypeString || attr.IsPrimaryKey || attr.IsForeignKey || attr.IsStatic {
			continue
		}
		if c.Identity.HasField(attr.Name) || len(attr.Name) < 2 || !finderName.MatchString(attr.Name) {
			continue
		}
		out = append(out, plainField(attr))
	}
	return out
}

// dtoFields lists every transferable field. Foreign keys and static fields
// never appear; a child class carries its inherited key first.
func dtoFields(c *compiler.ResolvedClass) []fieldView {
	var out []fieldView
	if c.Identity.Inherited {
		out = append(out, plainField(c.Identity.PrimaryKey))
	}
	for _, attr := range c.Attributes {
		if attr.IsForeignKey || attr.IsStatic {
			continue
		}
		f := plainField(attr)
		if attr.Type == compiler.TypeString && !attr.IsPrimaryKey {
			f.Annotations = []string{fmt.Sprintf("@Size(max = %d)", stringLength)}
		}
		out = append(out, f)
	}
	return out
}

var javaTypeImports = map[string]string{
	"LocalDateTime": "java.time.LocalDateTime",
	"BigDecimal":    "java.math.BigDecimal",
	"UUID":          "java.util.UUID",
}

func typeImports(types ...string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range types {
		if imp, ok := javaTypeImports[t]; ok && !seen[imp] {
			seen[imp] = true
			out = append(out, imp)
		}
	}
	sort.Strings(out)
	return out
}
