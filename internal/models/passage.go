package models

// Scoring method identifiers attached to retrieved passages.
const (
	MethodLexical   = "lexical"
	MethodEmbedding = "embedding"
	MethodHybrid    = "hybrid"
)

// Passage is a ranked retrieval hit with per-signal diagnostic scores.
// LexicalScore and EmbeddingScore are min-max normalized within the query's
// candidate pool and are not comparable across queries or scopes.
type Passage struct {
	ChunkID        string    `json:"chunk_id"`
	Text           string    `json:"text"`
	Score          float64   `json:"score"`
	LexicalScore   float64   `json:"lexical_score"`
	EmbeddingScore float64   `json:"embedding_score"`
	Method         string    `json:"method"`
	Meta           ChunkMeta `json:"metadata"`

	// Set by the reranker when enabled.
	OracleScore float64 `json:"oracle_score,omitempty"`
	FinalScore  float64 `json:"final_score,omitempty"`
}

// Source is a deduplicated document/page reference cited in an answer.
type Source struct {
	DocumentName string `json:"document_name"`
	PageNumber   int    `json:"page_number"`
	Snippet      string `json:"snippet"`
}

// Answer is the result of a question answered over retrieved passages.
type Answer struct {
	Answer   string    `json:"answer"`
	Sources  []Source  `json:"sources"`
	Mode     string    `json:"mode"`
	Passages []Passage `json:"passages,omitempty"`
}
