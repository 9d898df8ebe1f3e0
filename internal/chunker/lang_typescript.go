package chunker

import (
	"github.com/bobbin-dev/bobbin/internal/model"
	sitter "github.com/tree-sitter/go-tree-sitter"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

func init() {
	register(grammar{
		language: sitter.NewLanguage(typescript.LanguageTypescript()),
		name:     "typescript",
		chunkKinds: map[string]model.ChunkType{
			"class_declaration":     model.ChunkClass,
			"interface_declaration": model.ChunkInterface,
			"enum_declaration":      model.ChunkEnum,
			"method_definition":     model.ChunkMethod,
			"function_declaration":  model.ChunkFunction,
		},
		methodKinds:    map[string]bool{"method_definition": true},
		containerKinds: map[string]bool{"class_declaration": true, "interface_declaration": true},
		importKinds:    []string{"import_statement"},
		resolveImport:  resolveTypeScriptImport,
	})
}
