package chunker

import (
	"github.com/bobbin-dev/bobbin/internal/model"
	sitter "github.com/tree-sitter/go-tree-sitter"
	php "github.com/tree-sitter/tree-sitter-php/bindings/go"
)

func init() {
	register(grammar{
		language: sitter.NewLanguage(php.LanguagePHP()),
		name:     "php",
		chunkKinds: map[string]model.ChunkType{
			"class_declaration":     model.ChunkClass,
			"interface_declaration": model.ChunkInterface,
			"method_declaration":    model.ChunkMethod,
			"function_definition":   model.ChunkFunction,
		},
		methodKinds:    map[string]bool{"method_declaration": true},
		containerKinds: map[string]bool{"class_declaration": true, "interface_declaration": true},
		importKinds:    []string{"namespace_use_declaration"},
		resolveImport:  resolvePHPImport,
	})
}
