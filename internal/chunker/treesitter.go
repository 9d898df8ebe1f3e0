package chunker

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bobbin-dev/bobbin/internal/model"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// grammar describes how to turn one language's parse tree into typed
// chunks and import edges. Grounded on project-cortex's per-language
// parsers (internal/indexer/parsers/*.go), generalized into a single
// table-driven walker instead of seven near-duplicate files: each
// language only supplies its node-kind mapping, not a reimplementation
// of the walk.
type grammar struct {
	language *sitter.Language
	name     string

	// chunkKinds maps a tree-sitter node kind to the chunk type it
	// produces. methodKinds is the subset of chunkKinds that, when
	// nested under one of containerKinds, should be reported as
	// model.ChunkMethod instead of model.ChunkFunction.
	chunkKinds     map[string]model.ChunkType
	methodKinds    map[string]bool
	containerKinds map[string]bool

	// importKinds are node kinds representing an import/use/include
	// statement; extractImportPath pulls the quoted/bare path out of
	// that node's raw text. importPathPattern is not set by any language
	// and is not read.
	importKinds       []string
	importPathPattern *regexp.Regexp
	resolveImport     func(fromFile, rawPath string) string // language convention; "" = unresolved
}

var bareImportPathPattern = regexp.MustCompile(`"([^"]+)"|'([^']+)'|<([^>]+)>`)

func extractImportPath(text string) string {
	m := bareImportPathPattern.FindStringSubmatch(text)
	if m == nil {
		// Bare module paths with no delimiters at all, e.g. Rust's
		// `use crate::foo::bar;` or Java's `import foo.Bar;`.
		trimmed := strings.TrimSuffix(strings.TrimSpace(text), ";")
		fields := strings.Fields(trimmed)
		if len(fields) >= 2 {
			return strings.TrimSuffix(fields[len(fields)-1], ";")
		}
		return ""
	}
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// treeSitterChunker is a Chunker for one language grammar, with the
// line-window chunker as its per-file fallback on parse failure (spec.md
// §4.1 Failure clause).
type treeSitterChunker struct {
	g        grammar
	fallback Chunker
}

func newTreeSitterChunker(g grammar) Chunker {
	return &treeSitterChunker{g: g, fallback: NewLineWindow(DefaultWindowSize, DefaultWindowOverlap)}
}

func (c *treeSitterChunker) ChunkFile(ctx context.Context, filePath, language, content string) (Result, error) {
	source := []byte(content)

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(c.g.language); err != nil {
		return c.fallback.ChunkFile(ctx, filePath, language, content)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return c.fallback.ChunkFile(ctx, filePath, language, content)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		// A syntax error doesn't necessarily mean the whole file is
		// useless, but tolerating it risks emitting chunks with bogus
		// spans; falling back keeps the contract simple and honest.
		return c.fallback.ChunkFile(ctx, filePath, language, content)
	}

	var chunks []model.Chunk
	var imports []model.ImportEdge

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if err := ctx.Err(); err == nil {
			kind := n.Kind()
			if chunkType, ok := c.g.chunkKinds[kind]; ok {
				ct := chunkType
				if c.g.methodKinds[kind] && hasContainerAncestor(n, c.g.containerKinds) {
					ct = model.ChunkMethod
				}
				name := nodeName(n, source)
				startLine := int(n.StartPosition().Row) + 1
				endLine := int(n.EndPosition().Row) + 1
				text := string(source[n.StartByte():n.EndByte()])
				chunks = append(chunks, model.NewChunk(filePath, ct, name, startLine, endLine, text, language))
			}
			for _, k := range c.g.importKinds {
				if kind == k {
					text := string(source[n.StartByte():n.EndByte()])
					if path := extractImportPath(text); path != "" {
						edge := model.ImportEdge{FileA: filePath, ImportStatement: strings.TrimSpace(text)}
						if c.g.resolveImport != nil {
							if resolved := c.g.resolveImport(filePath, path); resolved != "" {
								edge.FileB = resolved
								edge.Resolved = true
							}
						}
						imports = append(imports, edge)
					}
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(uint(i)))
		}
	}
	walk(root)

	if len(chunks) == 0 {
		// No recognized top-level constructs (e.g. a script with only
		// statements): still useful to have something queryable, so
		// fall back to line windows rather than returning nothing.
		return c.fallback.ChunkFile(ctx, filePath, language, content)
	}

	return Result{Chunks: chunks, Imports: imports}, nil
}

func hasContainerAncestor(n *sitter.Node, containerKinds map[string]bool) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if containerKinds[p.Kind()] {
			return true
		}
	}
	return false
}

func nodeName(n *sitter.Node, source []byte) string {
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		return string(source[nameNode.StartByte():nameNode.EndByte()])
	}
	return ""
}

// NewForLanguage returns the syntax-aware chunker for a detected
// language tag, or nil if no grammar is registered (caller should use
// the line-window chunker instead, per spec.md §4.1).
func NewForLanguage(language string) Chunker {
	g, ok := registry[language]
	if !ok {
		return nil
	}
	return newTreeSitterChunker(g)
}

// SupportedLanguages lists the languages with a registered grammar.
func SupportedLanguages() []string {
	langs := make([]string, 0, len(registry))
	for l := range registry {
		langs = append(langs, l)
	}
	return langs
}

var registry = map[string]grammar{}

func register(g grammar) {
	if _, dup := registry[g.name]; dup {
		panic(fmt.Sprintf("chunker: duplicate grammar registered for %q", g.name))
	}
	registry[g.name] = g
}
