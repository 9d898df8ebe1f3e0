package chunker

import (
	"github.com/bobbin-dev/bobbin/internal/model"
	sitter "github.com/tree-sitter/go-tree-sitter"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

func init() {
	register(grammar{
		language: sitter.NewLanguage(java.Language()),
		name:     "java",
		chunkKinds: map[string]model.ChunkType{
			"class_declaration":     model.ChunkClass,
			"interface_declaration": model.ChunkInterface,
			"enum_declaration":      model.ChunkEnum,
			"method_declaration":    model.ChunkMethod,
		},
		methodKinds:    map[string]bool{"method_declaration": true},
		containerKinds: map[string]bool{"class_declaration": true, "interface_declaration": true, "enum_declaration": true},
		importKinds:    []string{"import_declaration"},
		resolveImport:  resolveJavaImport,
	})
}
