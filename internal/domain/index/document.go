package index

// Document is caller-owned source content. The pipeline only reads it.
type Document struct {
	Path  string   `json:"path"`
	Title string   `json:"title,omitempty"`
	Body  string   `json:"content"`
	Tags  []string `json:"tags,omitempty"`
}
