package chunker

import (
	"github.com/bobbin-dev/bobbin/internal/model"
	c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

func init() {
	register(grammar{
		language: sitter.NewLanguage(c.Language()),
		name:     "c",
		chunkKinds: map[string]model.ChunkType{
			"struct_specifier":   model.ChunkStruct,
			"enum_specifier":     model.ChunkEnum,
			"function_definition": model.ChunkFunction,
		},
		importKinds:   []string{"preproc_include"},
		resolveImport: resolveCImport,
	})
}
