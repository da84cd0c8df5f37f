// Package corpus loads the two index artifacts produced by the offline
// indexing job and exposes the immutable document store. Both artifacts must
// describe the same document ordinals or loading fails — serving traffic over
// inconsistent indexes is worse than not starting.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/neurostack/copilot/internal/domain"
)

// Corpus is the loaded, read-only knowledge base: documents plus the raw
// inputs for the vector and lexical indexes. Held for the process lifetime
// and shared by unlimited concurrent readers.
type Corpus struct {
	docs      []domain.Document
	vectors   [][]float32
	dim       int
	tokenized [][]string
	model     string
}

// Load reads and cross-validates the vector index and lexical snapshot files.
func Load(vectorPath, lexicalPath string) (*Corpus, error) {
	var vec vectorArtifact
	if err := readArtifact(vectorPath, &vec); err != nil {
		return nil, fmt.Errorf("vector index: %w", err)
	}

	var lex lexicalArtifact
	if err := readArtifact(lexicalPath, &lex); err != nil {
		return nil, fmt.Errorf("lexical snapshot: %w", err)
	}

	if err := validate(&vec, &lex); err != nil {
		return nil, err
	}

	docs := make([]domain.Document, len(lex.Questions))
	for i := range lex.Questions {
		docs[i] = domain.Document{
			Ordinal:  i,
			Question: lex.Questions[i],
			Answer:   lex.Answers[i],
			Source:   lex.Sources[i],
		}
	}

	return &Corpus{
		docs:      docs,
		vectors:   vec.Vectors,
		dim:       vec.Dimensions,
		tokenized: lex.Tokenized,
		model:     vec.Model,
	}, nil
}

// Documents returns the corpus documents in ordinal order.
func (c *Corpus) Documents() []domain.Document { return c.docs }

// Document returns the document at the given ordinal.
func (c *Corpus) Document(ordinal int) (domain.Document, bool) {
	if ordinal < 0 || ordinal >= len(c.docs) {
		return domain.Document{}, false
	}
	return c.docs[ordinal], true
}

// Vectors returns the embedding vectors, one per ordinal.
func (c *Corpus) Vectors() [][]float32 { return c.vectors }

// Dimensions returns the embedding dimension.
func (c *Corpus) Dimensions() int { return c.dim }

// Tokenized returns the pre-tokenized questions, one list per ordinal.
func (c *Corpus) Tokenized() [][]string { return c.tokenized }

// Model returns the embedding model the vector artifact was built with.
func (c *Corpus) Model() string { return c.model }

// Len returns the number of documents.
func (c *Corpus) Len() int { return len(c.docs) }

func readArtifact(path string, out any) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", path, domain.ErrArtifactMissing)
		}
		return fmt.Errorf("read %s: %w: %w", path, domain.ErrArtifactCorrupt, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w: %w", path, domain.ErrArtifactCorrupt, err)
	}
	return nil
}

func validate(vec *vectorArtifact, lex *lexicalArtifact) error {
	if vec.Dimensions <= 0 {
		return fmt.Errorf("%w: vector index declares dimensions %d", domain.ErrArtifactCorrupt, vec.Dimensions)
	}
	for i, v := range vec.Vectors {
		if len(v) != vec.Dimensions {
			return fmt.Errorf("%w: vector %d has dimension %d, declared %d",
				domain.ErrArtifactCorrupt, i, len(v), vec.Dimensions)
		}
	}

	n := len(lex.Questions)
	if len(lex.Answers) != n || len(lex.Sources) != n || len(lex.Tokenized) != n {
		return fmt.Errorf(
			"%w: lexical snapshot slices disagree: %d questions, %d answers, %d sources, %d token lists",
			domain.ErrArtifactMismatch, n, len(lex.Answers), len(lex.Sources), len(lex.Tokenized))
	}
	if len(vec.Vectors) != n {
		return fmt.Errorf("%w: %d vectors for %d documents",
			domain.ErrArtifactMismatch, len(vec.Vectors), n)
	}
	if vec.Model != "" && lex.Model != "" && vec.Model != lex.Model {
		return fmt.Errorf("%w: vector model %q, lexical model %q",
			domain.ErrArtifactMismatch, vec.Model, lex.Model)
	}
	return nil
}
