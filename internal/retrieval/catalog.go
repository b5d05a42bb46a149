package retrieval

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/randalmurphal/querybot/internal/session"
)

// SampleProducts is the built-in shoe catalog.
var SampleProducts = []string{
	"Nike Air Max 270 sneakers, size 42, black/white colorway, $120, breathable mesh upper",
	"Adidas Ultraboost 22 running shoes, size 41, grey/blue, $180, responsive cushioning",
	"Converse Chuck Taylor All Star, size 39, red canvas, $65, classic high-top design",
	"Vans Old Skool sneakers, size 43, black/white, $60, durable suede and canvas upper",
	"New Balance 990v5, size 40, grey, $175, premium made in USA construction",
	"Puma RS-X sneakers, size 42, white/black/red, $110, retro-inspired chunky sole",
	"Jordan 1 Retro High, size 44, bred colorway, $170, premium leather construction",
	"Reebok Classic Leather, size 38, white, $75, soft garment leather upper",
	"ASICS Gel-Kayano 29, size 41, blue/silver, $160, stability running shoe",
	"Skechers Go Walk 6, size 39, black, $80, ultra-lightweight walking shoe",
}

// SampleDocuments returns SampleProducts as documents tagged with their
// source, product_0 through product_9.
func SampleDocuments() []session.Document {
	docs := make([]session.Document, len(SampleProducts))
	for i, text := range SampleProducts {
		docs[i] = session.Document{
			Content:  text,
			Metadata: map[string]any{"source": fmt.Sprintf("product_%d", i)},
		}
	}
	return docs
}

// CatalogRetriever ranks an in-memory document set by term overlap.
// It needs no external services and backs the default configuration.
type CatalogRetriever struct {
	mu   sync.RWMutex
	docs []indexedDoc
}

type indexedDoc struct {
	doc   session.Document
	terms map[string]struct{}
}

// NewCatalogRetriever indexes docs.
func NewCatalogRetriever(docs ...session.Document) *CatalogRetriever {
	r := &CatalogRetriever{}
	r.Add(docs...)
	return r
}

// Add indexes more documents.
func (r *CatalogRetriever) Add(docs ...session.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range docs {
		r.docs = append(r.docs, indexedDoc{doc: d, terms: termSet(d.Content)})
	}
}

// Len returns the number of indexed documents.
func (r *CatalogRetriever) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

// Search implements Retriever. A document's score is the share of distinct
// query terms it contains; documents sharing no term are not returned.
// Ties keep catalog order. k <= 0 returns every match.
func (r *CatalogRetriever) Search(ctx context.Context, query string, k int) ([]session.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qterms := termSet(query)
	if len(qterms) == 0 {
		return []session.Document{}, nil
	}

	r.mu.RLock()
	scored := make([]session.Document, 0, len(r.docs))
	for _, d := range r.docs {
		hits := 0
		for t := range qterms {
			if _, ok := d.terms[t]; ok {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		doc := d.doc
		doc.Score = float64(hits) / float64(len(qterms))
		scored = append(scored, doc)
	}
	r.mu.RUnlock()

	slices.SortStableFunc(scored, func(a, b session.Document) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// stopwords carry no product meaning and would match every document.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "any": {}, "are": {}, "do": {}, "for": {},
	"have": {}, "i": {}, "in": {}, "is": {}, "me": {}, "of": {}, "or": {},
	"show": {}, "the": {}, "to": {}, "what": {}, "with": {}, "you": {},
}

func termSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '$' && r != '-'
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if f == "" {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		set[f] = struct{}{}
		// "shoes" should find "shoe".
		if s, ok := strings.CutSuffix(f, "s"); ok && len(s) > 2 {
			set[s] = struct{}{}
		}
	}
	return set
}
