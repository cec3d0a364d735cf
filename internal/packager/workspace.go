package packager

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"umlexport/internal/emitter"
)

// workspace is the private directory of one export. Nothing outside the
// export that created it reads or writes it.
type workspace struct {
	root    string
	project string
}

func newWorkspace(workDir string, id uuid.UUID, project string) (*workspace, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	root := filepath.Join(workDir, id.String()+"-"+project)
	// Mkdir fails on an existing path, so two exports never share a root.
	if err := os.Mkdir(root, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &workspace{root: root, project: project}, nil
}

func (w *workspace) projectDir() string {
	return filepath.Join(w.root, w.project)
}

func (w *workspace) archivePath() string {
	return filepath.Join(w.root, w.project+".zip")
}

func (w *workspace) write(tree *emitter.Tree) error {
	base := w.projectDir()
	if err := os.Mkdir(base, 0o755); err != nil {
		return fmt.Errorf("create project dir: %w", err)
	}
	for _, dir := range tree.Dirs {
		target, err := w.resolve(dir)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	for _, f := range tree.Files {
		target, err := w.resolve(f.Path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create dir for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(target, f.Content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.Path, err)
		}
	}
	return nil
}

// resolve maps a tree path into the project dir, rejecting anything that
// would escape it.
func (w *workspace) resolve(p string) (string, error) {
	local := filepath.FromSlash(p)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("path %q escapes the project directory", p)
	}
	return filepath.Join(w.projectDir(), local), nil
}

func (w *workspace) remove() error {
	return os.RemoveAll(w.root)
}

// safeProjectName keeps the project name usable as a single path element.
func safeProjectName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return -1
		}
	}, name)
	name = strings.Trim(name, ".")
	if name == "" {
		return "project"
	}
	return name
}
