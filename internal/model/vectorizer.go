package model

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/actuallystonmai/product-recommender/internal/domain"
)

const DefaultMaxFeatures = 1000

// Vectorizer turns item text into L2-normalized TF-IDF vectors over a
// bounded vocabulary.
type Vectorizer struct {
	maxFeatures int
	stopWords   map[string]struct{}
}

func NewVectorizer(maxFeatures int) *Vectorizer {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &Vectorizer{
		maxFeatures: maxFeatures,
		stopWords:   englishStopWords,
	}
}

// term is one non-zero component of a sparse vector.
type term struct {
	index  int
	weight float64
}

// SparseVector holds non-zero components ordered by vocabulary index.
type SparseVector []term

func (v SparseVector) Norm() float64 {
	var sum float64
	for _, t := range v {
		sum += t.weight * t.weight
	}
	return math.Sqrt(sum)
}

// Matrix is the fitted corpus: one vector per item id.
type Matrix struct {
	vocabulary []string
	ids        []int64
	vectors    map[int64]SparseVector
}

func (m *Matrix) Len() int { return len(m.ids) }

// IDs returns the item ids in ascending order.
func (m *Matrix) IDs() []int64 {
	out := make([]int64, len(m.ids))
	copy(out, m.ids)
	return out
}

func (m *Matrix) Vocabulary() []string {
	out := make([]string, len(m.vocabulary))
	copy(out, m.vocabulary)
	return out
}

func (m *Matrix) Vector(id int64) (SparseVector, bool) {
	v, ok := m.vectors[id]
	return v, ok
}

// Fit builds the vocabulary and TF-IDF vectors for the whole corpus. Items
// are processed in id order so the result does not depend on input order.
func (v *Vectorizer) Fit(items []domain.Item) (*Matrix, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	sorted := make([]domain.Item, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	counts := make([]map[string]int, len(sorted))
	corpusFreq := make(map[string]int)
	for i, item := range sorted {
		counts[i] = make(map[string]int)
		for _, tok := range v.tokenize(item.Text()) {
			counts[i][tok]++
			corpusFreq[tok]++
		}
	}

	vocabulary := v.selectVocabulary(corpusFreq)
	index := make(map[string]int, len(vocabulary))
	for i, t := range vocabulary {
		index[t] = i
	}

	docFreq := make([]int, len(vocabulary))
	for _, c := range counts {
		for tok := range c {
			if idx, ok := index[tok]; ok {
				docFreq[idx]++
			}
		}
	}

	n := float64(len(sorted))
	idf := make([]float64, len(vocabulary))
	for i, df := range docFreq {
		idf[i] = math.Log((1+n)/(1+float64(df))) + 1
	}

	m := &Matrix{
		vocabulary: vocabulary,
		ids:        make([]int64, len(sorted)),
		vectors:    make(map[int64]SparseVector, len(sorted)),
	}
	for i, item := range sorted {
		m.ids[i] = item.ID
		m.vectors[item.ID] = weigh(counts[i], index, idf)
	}
	return m, nil
}

func weigh(counts map[string]int, index map[string]int, idf []float64) SparseVector {
	vec := make(SparseVector, 0, len(counts))
	for tok, c := range counts {
		idx, ok := index[tok]
		if !ok {
			continue
		}
		vec = append(vec, term{index: idx, weight: float64(c) * idf[idx]})
	}
	sort.Slice(vec, func(i, j int) bool { return vec[i].index < vec[j].index })

	norm := vec.Norm()
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i].weight /= norm
	}
	return vec
}

// selectVocabulary keeps the maxFeatures most frequent terms (ties broken
// alphabetically) and returns them sorted alphabetically.
func (v *Vectorizer) selectVocabulary(freq map[string]int) []string {
	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > v.maxFeatures {
		terms = terms[:v.maxFeatures]
	}
	sort.Strings(terms)
	return terms
}

// tokenize lowercases text and splits it into runs of letters and digits of
// at least two runes, dropping stop words.
func (v *Vectorizer) tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, stop := v.stopWords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}
