package domain

// URLExtractor pairs one URL message with the file it was written to
type URLExtractor struct {
	Extractor string                 `json:"extractor"`
	Path      string                 `json:"path"`
	URL       string                 `json:"url"`
	Meta      map[string]interface{} `json:"meta"`
}

// ExtractionSummary is the result of a completed download job
type ExtractionSummary struct {
	Extractor     string         `json:"extractor"`
	BaseURL       string         `json:"base_url"`
	URLExtractors []URLExtractor `json:"url_extractors"`
	DirExtractors []Message      `json:"dir_extractors"`
}

// NewExtractionSummary validates a finished job's message stream against
// its recorded output paths and pairs them positionally. The Nth recorded
// path belongs to the Nth URL message.
func NewExtractionSummary(category, baseURL string, messages []Message, paths []string) (*ExtractionSummary, error) {
	urls, dirs := PartitionMessages(messages)

	if len(urls) == 0 {
		return nil, &NoResultsError{URL: baseURL}
	}
	if len(paths) != len(urls) {
		return nil, &CountMismatchError{Paths: len(paths), URLs: len(urls)}
	}

	entries := make([]URLExtractor, len(urls))
	for i, msg := range urls {
		entries[i] = URLExtractor{
			Extractor: category,
			Path:      paths[i],
			URL:       msg.URL,
			Meta:      SanitizeMetadata(msg.Metadata),
		}
	}

	if dirs == nil {
		dirs = []Message{}
	}

	return &ExtractionSummary{
		Extractor:     category,
		BaseURL:       baseURL,
		URLExtractors: entries,
		DirExtractors: dirs,
	}, nil
}

// Paths returns the output paths of the summary in emission order
func (s *ExtractionSummary) Paths() []string {
	paths := make([]string, len(s.URLExtractors))
	for i, entry := range s.URLExtractors {
		paths[i] = entry.Path
	}
	return paths
}
