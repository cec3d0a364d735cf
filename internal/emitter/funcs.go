package emitter

import (
	"strings"
	"text/template"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Funcs are the helpers available to every template.
var Funcs = template.FuncMap{
	"join":        strings.Join,
	"lower":       strings.ToLower,
	"md":          markdownCell,
	"packagePath": packagePath,
	"plural":      plural,
	"title":       title,
}

// title builds a fresh Caser per call; a Caser must not be shared between
// goroutines.
func title(s string) string {
	return cases.Title(language.English).String(s)
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return inflect.Pluralize(word)
}

func packagePath(pkg string) string {
	return strings.ReplaceAll(pkg, ".", "/")
}

// markdownCell keeps user-provided text from breaking a table row.
func markdownCell(s string) string {
	if s == "" {
		return "-"
	}
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

// projectTitle turns "spring-boot-library-system" into "Library System".
func projectTitle(projectName string) string {
	slug := strings.TrimPrefix(projectName, "spring-boot-")
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' || r == '.' })
	if len(words) == 0 {
		return "Spring Boot Project"
	}
	return title(strings.Join(words, " "))
}

// databaseName is the PostgreSQL database the postgresql profile points at.
func databaseName(projectName string) string {
	slug := strings.TrimPrefix(projectName, "spring-boot-")
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, slug)
	slug = strings.Trim(slug, "_")
	if slug == "" || slug == "project" {
		return "springboot_db"
	}
	return slug + "_db"
}
