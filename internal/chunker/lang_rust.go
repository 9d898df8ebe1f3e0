package chunker

import (
	"github.com/bobbin-dev/bobbin/internal/model"
	sitter "github.com/tree-sitter/go-tree-sitter"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
)

func init() {
	register(grammar{
		language: sitter.NewLanguage(rust.Language()),
		name:     "rust",
		chunkKinds: map[string]model.ChunkType{
			"struct_item":   model.ChunkStruct,
			"enum_item":     model.ChunkEnum,
			"trait_item":    model.ChunkTrait,
			"impl_item":     model.ChunkImpl,
			"mod_item":      model.ChunkModule,
			"function_item": model.ChunkFunction,
		},
		methodKinds:    map[string]bool{"function_item": true},
		containerKinds: map[string]bool{"impl_item": true, "trait_item": true},
		importKinds:    []string{"use_declaration"},
		resolveImport:  resolveRustImport,
	})
}
