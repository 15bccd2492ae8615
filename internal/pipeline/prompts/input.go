package prompts

// Input is a superset of all fields any prompt might need.
// Missing fields render empty strings (templates use missingkey=zero).
type Input struct {
	// Batch normalization
	ChunkBatchJSON string // [{chunk_id, page_number, text}, ...]
	ChunkID        string
	ChunkText      string

	// Classification
	DocTypesCSV    string
	SectionTypesCSV string
	PagesExcerpt   string
	KeywordsCSV    string
	ScoresJSON     string
	TopChunksText  string

	// Section extraction
	SectionType  string
	SectionText  string
	SectionHints string

	// Entity relationships
	EntityTypesCSV   string
	RelationTypesCSV string
	EntitiesJSON     string
	DocumentExcerpt  string

	// Cross-section validation
	SectionDataJSON string
	IssuesJSON      string
}
