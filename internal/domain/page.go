package domain

// PageData is one OCR'd page as delivered by the upstream OCR provider.
// The pipeline never performs OCR itself.
type PageData struct {
	PageNumber int            `json:"page_number"`
	Text       string         `json:"text"`
	Markdown   string         `json:"markdown,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
