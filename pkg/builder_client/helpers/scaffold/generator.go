package scaffold

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fhir-builder/fhir-builder/pkg/builder_client/models"
)

const maxConcurrentWrites = 4

// TemplateRenderError means a template could not be expanded, either because
// a required context parameter is missing or because execution failed.
type TemplateRenderError struct {
	Param    string
	Template string
	Err      error
}

func (e *TemplateRenderError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("missing template parameter %q", e.Param)
	}
	return fmt.Sprintf("render template %s: %v", e.Template, e.Err)
}

func (e *TemplateRenderError) Unwrap() error { return e.Err }

// UnsupportedStackError means no template set is registered for the stack.
type UnsupportedStackError struct {
	Stack models.Stack
}

func (e *UnsupportedStackError) Error() string {
	return fmt.Sprintf("no template set registered for stack %q", e.Stack)
}

// File is one generated file, relative to the output root.
type File struct {
	Path    string
	Content []byte
	Mode    fs.FileMode
}

// StackFunc renders the stack-specific files for a context.
type StackFunc func(c Context) ([]File, error)

// StackDef is one registry entry.
type StackDef struct {
	Name   string
	Render StackFunc
}

// Generator expands the registered template sets into a directory tree.
// It performs no network access.
type Generator struct {
	stacks map[models.Stack]StackDef
	order  []models.Stack
	log    zerolog.Logger
}

// NewGenerator returns a generator with the built-in stacks registered.
func NewGenerator(logger zerolog.Logger) *Generator {
	g := &Generator{stacks: map[models.Stack]StackDef{}, log: logger}
	g.Register(models.StackNextFHIRClient, StackDef{Name: "Next.js + fhirclient", Render: renderNextFHIRClient})
	g.Register(models.StackExpressNode, StackDef{Name: "Node.js Express proxy", Render: renderExpressNode})
	g.Register(models.StackPythonFastAPI, StackDef{Name: "Python FastAPI + fhir.resources", Render: renderPythonFastAPI})
	g.Register(models.StackGoGin, StackDef{Name: "Go Gin service", Render: renderGoGin})
	return g
}

// Register adds or replaces a stack.
func (g *Generator) Register(stack models.Stack, def StackDef) {
	if _, ok := g.stacks[stack]; !ok {
		g.order = append(g.order, stack)
	}
	g.stacks[stack] = def
}

// Stacks lists the registered stacks in registration order.
func (g *Generator) Stacks() []models.StackInfo {
	out := make([]models.StackInfo, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, models.StackInfo{
			ID:      id,
			Name:    g.stacks[id].Name,
			Default: id == models.DefaultStack(),
		})
	}
	return out
}

// Generate writes the scaffold for req into outputRoot.
func (g *Generator) Generate(ctx context.Context, outputRoot string, req models.BuildRequest, analysis *models.CapabilityAnalysis) error {
	def, ok := g.stacks[req.Stack]
	if !ok {
		return &UnsupportedStackError{Stack: req.Stack}
	}

	c := NewContext(req, analysis)
	if err := c.validate(); err != nil {
		return err
	}

	files, err := def.Render(c)
	if err != nil {
		return err
	}
	shared, err := sharedFiles(c)
	if err != nil {
		return err
	}
	files, err = uniquePaths(append(files, shared...))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return fmt.Errorf("create output root: %w", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentWrites)
	for _, f := range files {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			return writeFile(outputRoot, f)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	g.log.Debug().
		Str("stack", string(req.Stack)).
		Int("files", len(files)).
		Str("root", outputRoot).
		Msg("scaffold generated")
	return nil
}

// uniquePaths sorts files by path. Two files for one path (e.g. resources
// whose slugs collide) would silently lose one of them, so that fails.
func uniquePaths(files []File) ([]File, error) {
	sort.SliceStable(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	for i := 1; i < len(files); i++ {
		if files[i].Path == files[i-1].Path {
			return nil, &TemplateRenderError{
				Template: files[i].Path,
				Err:      fmt.Errorf("path %q is generated more than once", files[i].Path),
			}
		}
	}
	return files, nil
}

func writeFile(root string, f File) error {
	rel := filepath.Clean(filepath.FromSlash(f.Path))
	if filepath.IsAbs(rel) || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return fmt.Errorf("generated path %q escapes output root", f.Path)
	}
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", f.Path, err)
	}
	mode := f.Mode
	if mode == 0 {
		mode = 0o644
	}
	if err := os.WriteFile(full, f.Content, mode); err != nil {
		return fmt.Errorf("write %s: %w", f.Path, err)
	}
	return nil
}

var funcs = template.FuncMap{
	"join":    strings.Join,
	"lower":   strings.ToLower,
	"quote":   quote,
	"oneline": oneline,
}

// quote renders s as a double-quoted string literal. JSON escaping is valid
// in every target language: JSON, JS/TS, Python and Go.
func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// oneline keeps upstream text inside a single-line source comment.
func oneline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// render executes one template. Parse and execution failures are both
// reported as TemplateRenderError.
func render(name, text string, data any) ([]byte, error) {
	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, &TemplateRenderError{Template: name, Err: err}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, &TemplateRenderError{Template: name, Err: err}
	}
	return buf.Bytes(), nil
}

// fileSet collects rendered files for a stack.
type fileSet struct {
	files []File
	err   error
}

func (s *fileSet) add(path, text string, data any) {
	if s.err != nil {
		return
	}
	out, err := render(path, text, data)
	if err != nil {
		s.err = err
		return
	}
	s.files = append(s.files, File{Path: path, Content: out})
}

func (s *fileSet) result() ([]File, error) {
	return s.files, s.err
}
