package llm

// DefaultModel is used when the request names no model or a non-Gemini one
const DefaultModel = "gemini-1.5-flash"

// DefaultSystemPrompt is used when the request carries no prompt
const DefaultSystemPrompt = "You are a helpful assistant. Answer clearly."

// MaxContextItems is how many context chunks are placed into the prompt
const MaxContextItems = 8

// MaxRetries is the number of extra attempts for transient upstream failures
const MaxRetries = 2

// UserPromptTemplate combines the query with the retrieved context
const UserPromptTemplate = `User query: %s

Context (optional):
%s`

// MockHeader starts every placeholder response produced in dev mock mode
const MockHeader = "[DEV MOCK RESPONSE]"

// mockPreviewLength bounds how much of the user prompt a mock response echoes
const mockPreviewLength = 600

// Notes appended to mock responses that replace a failed upstream call
const (
	MockNoteHTTP       = "upstream HTTP error was mocked"
	MockNoteNetwork    = "network error was mocked"
	MockNoteUnexpected = "error was mocked"
)
