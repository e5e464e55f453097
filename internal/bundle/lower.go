package bundle

import (
	"errors"
	"fmt"
	"path/filepath"

	"fortio.org/safecast"

	"tplcheck/internal/ast"
	"tplcheck/internal/source"
)

var (
	// ErrMalformed marks bundles that decode but do not describe a valid tree.
	ErrMalformed          = errors.New("malformed bundle")
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported schema version", ErrMalformed)
)

// Loaded is the result of lowering one bundle.
type Loaded struct {
	Path       string
	Components []ast.ComponentID
	Files      []source.FileID
}

// Load reads the bundle at path and lowers it into builder, registering
// template files in fs. Template files not inlined in the bundle are read
// relative to the bundle directory.
func Load(path string, fs *source.FileSet, builder *ast.Builder) (*Loaded, error) {
	b, _, err := Read(path)
	if err != nil {
		return nil, err
	}
	loaded, err := b.Lower(fs, builder, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	loaded.Path = path
	return loaded, nil
}

// Lower validates b and appends its components to builder.
func (b *Bundle) Lower(fs *source.FileSet, builder *ast.Builder, baseDir string) (*Loaded, error) {
	l := &lowerer{
		fs:      fs,
		builder: builder,
		baseDir: baseDir,
		inline:  make(map[string]string, len(b.Files)),
		files:   make(map[string]source.FileID),
	}
	for i, f := range b.Files {
		if f.Path == "" {
			return nil, fmt.Errorf("%w: files[%d]: empty path", ErrMalformed, i)
		}
		l.inline[f.Path] = f.Content
	}

	out := &Loaded{}
	for i := range b.Components {
		decl, err := l.component(&b.Components[i], fmt.Sprintf("components[%d]", i))
		if err != nil {
			return nil, err
		}
		out.Components = append(out.Components, decl)
	}
	out.Files = l.order
	return out, nil
}

type lowerer struct {
	fs      *source.FileSet
	builder *ast.Builder
	baseDir string
	inline  map[string]string
	files   map[string]source.FileID
	order   []source.FileID

	// current file and its length, for span validation
	file    source.FileID
	fileLen uint32
}

func (l *lowerer) intern(s string) source.StringID {
	if s == "" {
		return source.NoStringID
	}
	return l.builder.StringsInterner.Intern(s)
}

// openFile registers path once per bundle, inline content first.
func (l *lowerer) openFile(path string) (source.FileID, error) {
	if id, ok := l.files[path]; ok {
		return id, nil
	}
	var id source.FileID
	if content, ok := l.inline[path]; ok {
		id = l.fs.AddVirtual(path, []byte(content))
	} else {
		full := path
		if !filepath.IsAbs(full) {
			full = filepath.Join(l.baseDir, filepath.FromSlash(path))
		}
		loaded, err := l.fs.Load(full)
		if err != nil {
			return 0, fmt.Errorf("template file: %w", err)
		}
		id = loaded
	}
	l.files[path] = id
	l.order = append(l.order, id)
	return id, nil
}

func (l *lowerer) useFile(id source.FileID) error {
	f := l.fs.Get(id)
	if f == nil {
		return fmt.Errorf("%w: unknown file %d", ErrMalformed, id)
	}
	n, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		return fmt.Errorf("%w: %s too large: %w", ErrMalformed, f.Path, err)
	}
	l.file, l.fileLen = id, n
	return nil
}

func (l *lowerer) component(c *Component, at string) (ast.ComponentID, error) {
	if c.Name == "" {
		return ast.NoComponentID, fmt.Errorf("%w: %s: missing name", ErrMalformed, at)
	}
	if c.File == "" {
		return ast.NoComponentID, fmt.Errorf("%w: %s (%s): missing file", ErrMalformed, at, c.Name)
	}
	templateFile, err := l.openFile(c.File)
	if err != nil {
		return ast.NoComponentID, fmt.Errorf("%s (%s): %w", at, c.Name, err)
	}

	classFile := templateFile
	if c.ClassFile != "" {
		if classFile, err = l.openFile(c.ClassFile); err != nil {
			return ast.NoComponentID, fmt.Errorf("%s (%s): %w", at, c.Name, err)
		}
	}

	if err := l.useFile(templateFile); err != nil {
		return ast.NoComponentID, err
	}
	span, err := l.span(c.Span, at+".span")
	if err != nil {
		return ast.NoComponentID, err
	}
	decl := l.builder.NewComponent(c.Name, templateFile, span)

	if err := l.useFile(classFile); err != nil {
		return ast.NoComponentID, err
	}
	for i := range c.Members {
		m := &c.Members[i]
		mat := fmt.Sprintf("%s.members[%d]", at, i)
		if m.Name == "" {
			return ast.NoComponentID, fmt.Errorf("%w: %s: missing name", ErrMalformed, mat)
		}
		mspan, err := l.span(m.Span, mat+".span")
		if err != nil {
			return ast.NoComponentID, err
		}
		l.builder.Components.AddMember(decl, ast.Member{
			Name:           l.intern(m.Name),
			Span:           mspan,
			Signal:         m.Signal,
			Deprecated:     m.Deprecated,
			DeprecationMsg: l.intern(m.Deprecation),
		})
	}

	if c.Template == nil {
		return decl, nil
	}
	if err := l.useFile(templateFile); err != nil {
		return ast.NoComponentID, err
	}
	roots, err := l.nodes(*c.Template, at+".template")
	if err != nil {
		return ast.NoComponentID, err
	}
	if err := only(roots, l.builder.Nodes, at+".template", contentKinds...); err != nil {
		return ast.NoComponentID, err
	}
	if roots == nil {
		roots = []ast.NodeID{}
	}
	l.builder.Components.SetTemplate(decl, roots)
	return decl, nil
}

// span converts a DTO span into the current file. Absent spans become empty
// spans at offset 0 of that file.
func (l *lowerer) span(s Span, at string) (source.Span, error) {
	switch len(s) {
	case 0:
		return source.Span{File: l.file}, nil
	case 2:
	default:
		return source.Span{}, fmt.Errorf("%w: %s: span needs 2 offsets, got %d", ErrMalformed, at, len(s))
	}
	start, err := safecast.Conv[uint32](s[0])
	if err != nil {
		return source.Span{}, fmt.Errorf("%w: %s: start %d: %w", ErrMalformed, at, s[0], err)
	}
	end, err := safecast.Conv[uint32](s[1])
	if err != nil {
		return source.Span{}, fmt.Errorf("%w: %s: end %d: %w", ErrMalformed, at, s[1], err)
	}
	if start > end {
		return source.Span{}, fmt.Errorf("%w: %s: start %d after end %d", ErrMalformed, at, start, end)
	}
	if end > l.fileLen {
		return source.Span{}, fmt.Errorf("%w: %s: end %d past end of file (%d bytes)", ErrMalformed, at, end, l.fileLen)
	}
	return source.Span{File: l.file, Start: start, End: end}, nil
}

// optSpan is span for fields whose absence is meaningful; absent stays the zero Span.
func (l *lowerer) optSpan(s Span, at string) (source.Span, error) {
	if len(s) == 0 {
		return source.Span{}, nil
	}
	return l.span(s, at)
}
