package chunker

import (
	"github.com/bobbin-dev/bobbin/internal/model"
	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

func init() {
	register(grammar{
		language: sitter.NewLanguage(python.Language()),
		name:     "python",
		chunkKinds: map[string]model.ChunkType{
			"class_definition":    model.ChunkClass,
			"function_definition": model.ChunkFunction,
		},
		methodKinds:    map[string]bool{"function_definition": true},
		containerKinds: map[string]bool{"class_definition": true},
		importKinds:    []string{"import_statement", "import_from_statement"},
		resolveImport:  resolvePythonImport,
	})
}
