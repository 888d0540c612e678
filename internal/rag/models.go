package rag

// Constants for RAG system
const (
	// DefaultTopK is the number of matches returned when the caller gives none
	DefaultTopK = 5

	// DefaultMaxContextLength is the default maximum context length in characters
	DefaultMaxContextLength = 2000

	// DefaultFilename labels text ingested without a source name
	DefaultFilename = "inline"

	// SampleIDs is how many assigned ids an ingest result reports
	SampleIDs = 5

	// ProbeDimension is the vector size used by VectorProbe
	ProbeDimension = 768
)

// Result details
const (
	DetailNoText      = "No text provided"
	DetailNoChunks    = "No chunks produced"
	DetailMockVectors = "[DEV MOCK] embeddings unavailable, chunks stored without vectors"
	DetailNoQuery     = "No query provided"
)

const probeText = "hello world"
