package chunker

import (
	"context"
	"regexp"
	"strings"

	"github.com/bobbin-dev/bobbin/internal/model"
	"gopkg.in/yaml.v3"
)

// markdownChunker emits Section, Table, and CodeBlock chunks from block
// structure (spec.md §4.1), grounded on project-cortex's
// header/paragraph/code-block splitting generalized to typed chunks.
type markdownChunker struct{}

// NewMarkdown creates a documentation chunker for Markdown-like files.
func NewMarkdown() Chunker { return &markdownChunker{} }

var (
	headerPattern    = regexp.MustCompile(`^#{1,6}\s+`)
	codeFencePattern = regexp.MustCompile("^```")
	tableRowPattern  = regexp.MustCompile(`^\s*\|.*\|\s*$`)
)

func (c *markdownChunker) ChunkFile(ctx context.Context, filePath, language, content string) (Result, error) {
	if strings.TrimSpace(content) == "" {
		return Result{}, nil
	}

	if fm, body, ok := splitFrontMatter(content); ok {
		return Result{Chunks: []model.Chunk{transcriptChunk(filePath, language, fm, body)}}, nil
	}

	lines := strings.Split(content, "\n")
	var chunks []model.Chunk

	i := 0
	for i < len(lines) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		switch {
		case codeFencePattern.MatchString(lines[i]):
			start := i
			i++
			for i < len(lines) && !codeFencePattern.MatchString(lines[i]) {
				i++
			}
			if i < len(lines) {
				i++ // consume closing fence
			}
			text := strings.Join(lines[start:min(i, len(lines))], "\n")
			chunks = append(chunks, model.NewChunk(filePath, model.ChunkCodeBlock, "", start+1, min(i, len(lines)), text, language))

		case tableRowPattern.MatchString(lines[i]):
			start := i
			for i < len(lines) && tableRowPattern.MatchString(lines[i]) {
				i++
			}
			text := strings.Join(lines[start:i], "\n")
			chunks = append(chunks, model.NewChunk(filePath, model.ChunkTable, "", start+1, i, text, language))

		case headerPattern.MatchString(lines[i]):
			start := i
			name := strings.TrimSpace(headerPattern.ReplaceAllString(lines[i], ""))
			i++
			for i < len(lines) && !headerPattern.MatchString(lines[i]) && !codeFencePattern.MatchString(lines[i]) {
				i++
			}
			text := strings.Join(lines[start:i], "\n")
			chunks = append(chunks, model.NewChunk(filePath, model.ChunkSection, name, start+1, i, text, language))

		default:
			i++
		}
	}

	if len(chunks) == 0 {
		// No block structure recognized at all: treat the whole file as
		// one section so short docs still get a chunk.
		chunks = append(chunks, model.NewChunk(filePath, model.ChunkSection, "", 1, len(lines), content, language))
	}

	return Result{Chunks: chunks}, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// splitFrontMatter recognizes a leading "---\n...\n---" YAML block
// matching the human-intent transcript front-matter schema (spec.md
// §4.1) and returns its parsed keys plus the remaining body.
func splitFrontMatter(content string) (fm map[string]any, body string, ok bool) {
	if !strings.HasPrefix(content, "---\n") && content != "---" {
		return nil, "", false
	}
	rest := strings.TrimPrefix(content, "---\n")
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return nil, "", false
	}
	raw := rest[:idx]
	after := rest[idx+len("\n---"):]
	after = strings.TrimPrefix(after, "\n")

	var parsed map[string]any
	if err := yaml.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, "", false
	}
	// The transcript schema requires at minimum an "id" or "role" key to
	// distinguish it from ordinary doc front-matter (e.g. blog post
	// metadata); anything else is treated as a normal Markdown file.
	if _, hasID := parsed["id"]; !hasID {
		if _, hasRole := parsed["role"]; !hasRole {
			return nil, "", false
		}
	}
	return parsed, after, true
}

// transcriptChunk builds the single Section chunk a human-intent
// transcript record becomes regardless of length, truncating the body
// at TranscriptBodyTruncateLines without splitting overflow (spec.md
// §4.1).
func transcriptChunk(filePath, language string, fm map[string]any, body string) model.Chunk {
	lines := strings.Split(body, "\n")
	truncated := lines
	if len(lines) > TranscriptBodyTruncateLines {
		truncated = lines[:TranscriptBodyTruncateLines]
	}
	text := strings.Join(truncated, "\n")

	name, _ := fm["id"].(string)
	if name == "" {
		name, _ = fm["role"].(string)
	}

	return model.NewChunk(filePath, model.ChunkSection, name, 1, len(lines), text, language)
}
