package domain

// ExtractedTag is a tag read from a file's metadata
type ExtractedTag struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// NewExtractedTag creates a tag of the given category
func NewExtractedTag(tagType, name string) ExtractedTag {
	return ExtractedTag{Type: tagType, Name: name}
}

// TagExtractor reads tags out of URL message metadata
type TagExtractor interface {
	ExtractTags(entry URLExtractor) ([]ExtractedTag, error)
}
