// Package lexical provides an Okapi BM25 ranking model scored over a fixed
// candidate pool.
//
// The model is scoped to whatever pool it was built from; scores from models
// built over different pools are not comparable. The retriever builds a fresh
// model per query over its filtered candidates, and the indexer persists a
// whole-workspace model as part of the index snapshot.
package lexical

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"strings"
)

// Okapi BM25 parameters, matching the defaults of the original scoring setup.
const (
	defaultK1      = 1.5
	defaultB       = 0.75
	defaultEpsilon = 0.25
)

// Tokenize lower-cases text and splits it on whitespace. This exact
// tokenization is part of the retrieval contract and must stay in sync
// between corpus and query.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// Model is a BM25 ranking model over a fixed ordered corpus. All fields are
// exported for gob snapshot serialization.
type Model struct {
	K1      float64
	B       float64
	Epsilon float64

	CorpusSize int
	AvgDocLen  float64
	DocLens    []int
	TermFreqs  []map[string]int
	IDF        map[string]float64
}

// NewModel builds a BM25 model from tokenized documents. Document order is
// preserved: Scores returns one score per input document in the same order.
func NewModel(docs [][]string) *Model {
	m := &Model{
		K1:         defaultK1,
		B:          defaultB,
		Epsilon:    defaultEpsilon,
		CorpusSize: len(docs),
		DocLens:    make([]int, len(docs)),
		TermFreqs:  make([]map[string]int, len(docs)),
		IDF:        make(map[string]float64),
	}
	if len(docs) == 0 {
		return m
	}

	docFreq := make(map[string]int)
	totalWords := 0
	for i, doc := range docs {
		m.DocLens[i] = len(doc)
		totalWords += len(doc)
		freqs := make(map[string]int, len(doc))
		for _, term := range doc {
			freqs[term]++
		}
		m.TermFreqs[i] = freqs
		for term := range freqs {
			docFreq[term]++
		}
	}
	m.AvgDocLen = float64(totalWords) / float64(len(docs))

	// Standard Okapi IDF can go negative for terms present in more than half
	// the corpus; those are floored to epsilon * average IDF instead.
	var idfSum float64
	var negative []string
	n := float64(m.CorpusSize)
	for term, df := range docFreq {
		idf := math.Log(n-float64(df)+0.5) - math.Log(float64(df)+0.5)
		m.IDF[term] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, term)
		}
	}
	averageIDF := idfSum / float64(len(m.IDF))
	floor := m.Epsilon * averageIDF
	for _, term := range negative {
		m.IDF[term] = floor
	}
	return m
}

// Scores returns the BM25 score of every corpus document against the
// tokenized query, in corpus order.
func (m *Model) Scores(query []string) []float64 {
	scores := make([]float64, m.CorpusSize)
	if m.CorpusSize == 0 || m.AvgDocLen == 0 {
		return scores
	}
	for i := 0; i < m.CorpusSize; i++ {
		dl := float64(m.DocLens[i])
		norm := m.K1 * (1 - m.B + m.B*dl/m.AvgDocLen)
		var score float64
		for _, term := range query {
			f := float64(m.TermFreqs[i][term])
			if f == 0 {
				continue
			}
			score += m.IDF[term] * (f * (m.K1 + 1)) / (f + norm)
		}
		scores[i] = score
	}
	return scores
}

// Encode serializes the model for snapshot persistence.
func (m *Model) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("encode lexical model: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes a model previously produced by Encode.
func Decode(data []byte) (*Model, error) {
	var m Model
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode lexical model: %w", err)
	}
	return &m, nil
}
