package vectorstore

import "context"

// QueryResult holds a k-NN answer as parallel slices, nearest first
type QueryResult struct {
	IDs       []string
	Documents []string
	Distances []float64
	Metadatas []map[string]string
}

// Collection is a named, path-addressed persistent vector index
type Collection interface {
	// Add appends records in one bulk operation and returns their ids
	Add(ctx context.Context, documents []string, embeddings [][]float32, metadatas []map[string]string) ([]string, error)

	// Query returns the n nearest records to embedding by cosine distance
	Query(ctx context.Context, embedding []float32, n int) (*QueryResult, error)

	Count(ctx context.Context) (int, error)
	Name() string
	Close() error
}
