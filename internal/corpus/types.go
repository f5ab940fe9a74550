package corpus

// VectorDimension is the embedding dimension stored in the passages table.
// Must match the vector(768) column in db/migrations and the embedder's
// OutputDimensionality.
const VectorDimension int32 = 768

// Passage is one addressable unit of the corpus: a single reference-text
// pair plus its structural locator. Immutable after ingestion.
type Passage struct {
	Reference   string // canonical reference, e.g. "Philippians 4:6"
	Book        string
	Chapter     int
	Verse       int
	Text        string
	Translation string
}

// SimilarPassage is a passage annotated with its cosine similarity to a
// query embedding, as returned by nearest-neighbor search.
type SimilarPassage struct {
	Passage
	Similarity float64
}
