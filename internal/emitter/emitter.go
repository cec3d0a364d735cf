package emitter

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"path"
	"runtime"
	"text/template"
	"time"

	"golang.org/x/sync/errgroup"

	"umlexport/internal/compiler"
	"umlexport/internal/diagram"
)

const (
	SpringBootVersion = "3.2.10"
	JavaVersion       = "17"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	javaRoot      = "src/main/java/" + packagePath(BasePackage)
	resourcesRoot = "src/main/resources"
)

// scaffoldDirs are emitted even though nothing is written into them.
var scaffoldDirs = []string{
	resourcesRoot + "/static",
	resourcesRoot + "/templates",
	"src/test/java/" + packagePath(BasePackage),
}

// Artifact is one generated file, relative to the project root.
type Artifact struct {
	Path    string
	Content []byte
}

// Tree is the complete generated project.
type Tree struct {
	Dirs  []string
	Files []Artifact
}

// Paths lists the file paths in emission order.
func (t *Tree) Paths() []string {
	out := make([]string, 0, len(t.Files))
	for _, f := range t.Files {
		out = append(out, f.Path)
	}
	return out
}

// File returns the content of the file at p.
func (t *Tree) File(p string) ([]byte, bool) {
	for _, f := range t.Files {
		if f.Path == p {
			return f.Content, true
		}
	}
	return nil, false
}

// EmissionFailure reports a template that could not be rendered.
type EmissionFailure struct {
	Path string
	Err  error
}

func (e *EmissionFailure) Error() string {
	return fmt.Sprintf("emit %s: %v", e.Path, e.Err)
}

func (e *EmissionFailure) Unwrap() error {
	return e.Err
}

// Emitter renders a resolved model into a Spring Boot project tree.
type Emitter struct {
	tmpl    *template.Template
	workers int
	now     func() time.Time
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithWorkers bounds how many files render concurrently.
func WithWorkers(n int) Option {
	return func(e *Emitter) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithClock replaces the clock stamped into RELATIONSHIPS.md.
func WithClock(now func() time.Time) Option {
	return func(e *Emitter) {
		if now != nil {
			e.now = now
		}
	}
}

// New parses the embedded templates.
func New(opts ...Option) (*Emitter, error) {
	tmpl, err := template.New("").Funcs(Funcs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	e := &Emitter{
		tmpl:    tmpl,
		workers: runtime.GOMAXPROCS(0),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

type fileTask struct {
	path     string
	template string
	data     any
}

// Emit renders every file of the project. Files come back in a fixed order:
// scaffold first, then each class in model order.
func (e *Emitter) Emit(ctx context.Context, m *compiler.ResolvedModel) (*Tree, error) {
	if m == nil || len(m.Classes) == 0 {
		return nil, &EmissionFailure{Path: ".", Err: fmt.Errorf("model has no classes")}
	}

	project := e.newProjectView(m)
	tasks := scaffoldTasks(project)
	for _, c := range project.Classes {
		tasks = append(tasks, classTasks(c)...)
	}

	files := make([]Artifact, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, task := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := e.tmpl.ExecuteTemplate(&buf, task.template, task.data); err != nil {
				return &EmissionFailure{Path: task.path, Err: err}
			}
			files[i] = Artifact{Path: task.path, Content: buf.Bytes()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dirs := make([]string, len(scaffoldDirs))
	copy(dirs, scaffoldDirs)
	return &Tree{Dirs: dirs, Files: files}, nil
}

func scaffoldTasks(p projectView) []fileTask {
	return []fileTask{
		{path: "pom.xml", template: "pom", data: p},
		{path: ".gitignore", template: "gitignore", data: p},
		{path: ".mvn/wrapper/maven-wrapper.properties", template: "maven_wrapper", data: p},
		{path: "README.md", template: "readme", data: p},
		{path: "RELATIONSHIPS.md", template: "relationships", data: p},
		{path: path.Join(resourcesRoot, "application.properties"), template: "properties", data: p},
		{path: path.Join(resourcesRoot, "application-postgresql.properties"), template: "properties_postgresql", data: p},
		{path: path.Join(javaRoot, "DemoApplication.java"), template: "application", data: p},
	}
}

func classTasks(c classView) []fileTask {
	tasks := []fileTask{
		{path: path.Join(javaRoot, "entity", c.Name+".java"), template: "entity", data: c},
	}
	if c.IDClass != "" {
		tasks = append(tasks, fileTask{path: path.Join(javaRoot, "entity", c.IDClass+".java"), template: "id_class", data: c})
	}
	return append(tasks,
		fileTask{path: path.Join(javaRoot, "repository", c.Name+"Repository.java"), template: "repository", data: c},
		fileTask{path: path.Join(javaRoot, "service", c.Name+"Service.java"), template: "service", data: c},
		fileTask{path: path.Join(javaRoot, "controller", c.Name+"Controller.java"), template: "controller", data: c},
		fileTask{path: path.Join(javaRoot, "dto", c.Name+"DTO.java"), template: "dto", data: c},
	)
}

type foreignKeyView struct {
	Owner         string
	ForeignKey    fieldView
	Target        string
	ReferencedKey string
	Annotation    string
	Composition   bool
}

type hierarchyView struct {
	Parent   string
	Children []string
}

type edgeView struct {
	ID                 string
	Kind               string
	Source             string
	Target             string
	SourceMultiplicity string
	TargetMultiplicity string
	Outcome            string
}

type projectView struct {
	Package           string
	ProjectName       string
	Title             string
	DatabaseName      string
	SpringBootVersion string
	JavaVersion       string
	GeneratedAt       string
	Classes           []classView
	RelationshipCount int
	ForeignKeys       []foreignKeyView
	Hierarchy         []hierarchyView
	Edges             []edgeView
	Warnings          []compiler.Warning
}

func (e *Emitter) newProjectView(m *compiler.ResolvedModel) projectView {
	name := m.ProjectName
	if name == "" {
		name = compiler.DefaultProjectName
	}
	p := projectView{
		Package:           BasePackage,
		ProjectName:       name,
		Title:             projectTitle(name),
		DatabaseName:      databaseName(name),
		SpringBootVersion: SpringBootVersion,
		JavaVersion:       JavaVersion,
		GeneratedAt:       e.now().UTC().Format(time.RFC3339),
		RelationshipCount: m.RelationshipCount(),
		Warnings:          m.Warnings,
	}

	byEdge := make(map[string]compiler.ResolvedRelationship)
	for _, c := range m.Classes {
		p.Classes = append(p.Classes, newClassView(m, c))
		for _, rel := range c.Relationships {
			byEdge[rel.EdgeID] = rel
			p.ForeignKeys = append(p.ForeignKeys, foreignKeyView{
				Owner:         rel.OwningClassName,
				ForeignKey:    plainField(compiler.Attribute{Name: rel.ForeignKeyName, Type: rel.ForeignKeyType}),
				Target:        rel.ReferencedClassName,
				ReferencedKey: rel.ReferencedKeyName,
				Annotation:    "@" + string(rel.Annotation),
				Composition:   rel.IsComposition,
			})
		}
		if c.Inheritance.IsParent() {
			p.Hierarchy = append(p.Hierarchy, hierarchyView{Parent: c.Name, Children: c.Inheritance.Children})
		}
	}

	warned := make(map[string]compiler.Warning)
	for _, w := range m.Warnings {
		if w.EdgeID != "" {
			if _, ok := warned[w.EdgeID]; !ok {
				warned[w.EdgeID] = w
			}
		}
	}

	for _, edge := range m.Edges {
		p.Edges = append(p.Edges, edgeView{
			ID:                 edge.ID,
			Kind:               edge.Kind,
			Source:             m.ClassName(edge.SourceID),
			Target:             m.ClassName(edge.TargetID),
			SourceMultiplicity: edge.SourceMultiplicity,
			TargetMultiplicity: edge.TargetMultiplicity,
			Outcome:            edgeOutcome(m, edge, byEdge, warned),
		})
	}
	return p
}

func edgeOutcome(m *compiler.ResolvedModel, edge diagram.Edge, byEdge map[string]compiler.ResolvedRelationship, warned map[string]compiler.Warning) string {
	if rel, ok := byEdge[edge.ID]; ok {
		return fmt.Sprintf("%s.%s -> %s (@%s)", rel.OwningClassName, rel.ForeignKeyName, rel.ReferencedClassName, rel.Annotation)
	}
	if w, ok := warned[edge.ID]; ok {
		return "skipped: " + string(w.Code)
	}
	kind, _ := compiler.ParseRelationshipKind(edge.Kind)
	switch kind {
	case compiler.KindInheritance:
		src, tgt := m.ClassName(edge.SourceID), m.ClassName(edge.TargetID)
		res := compiler.ClassifyEdge(kind, compiler.ParseMultiplicity(edge.SourceMultiplicity), compiler.ParseMultiplicity(edge.TargetMultiplicity))
		if res == compiler.ResolutionInheritTargetChild {
			src, tgt = tgt, src
		}
		return fmt.Sprintf("%s extends %s", src, tgt)
	case compiler.KindDependency, compiler.KindImplementation:
		return "documented only"
	default:
		return "skipped"
	}
}
