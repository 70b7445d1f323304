package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/yourusername/gdl-bridge/internal/domain"
)

// Tag extraction errors
var (
	ErrWrongExtractorPath    = errors.New("extractor provided an invalid metadata path")
	ErrNotListOrString       = errors.New("extractor found a value that is not a string or an array")
	ErrArrayNotStrings       = errors.New("extractor found an array that does not contain strings")
	ErrNoExtractorName       = errors.New("metadata does not name its extractor")
	ErrInvalidExtractorRules = errors.New("invalid extractor rules")
)

// TagRule reads one metadata path into tags of a single category.
// Keys are string map keys or integer array indexes, walked from the
// {extractor, path, url, meta} document of a downloaded file.
type TagRule struct {
	Keys     []interface{} `toml:"keys"`
	Category string        `toml:"category"`
	IsSplit  *bool         `toml:"is_split"`
}

// split reports whether string values are split on spaces
func (r TagRule) split() bool {
	return r.IsSplit == nil || *r.IsSplit
}

// ExtractorRules is the content of one TOML rule file
type ExtractorRules struct {
	ExtractorName string    `toml:"extractor_name"`
	TagExtractor  []TagRule `toml:"tag_extractor"`
}

// ParseExtractorRules decodes and checks a TOML rule file
func ParseExtractorRules(data []byte) (*ExtractorRules, error) {
	var rules ExtractorRules
	if err := toml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExtractorRules, err)
	}
	if rules.ExtractorName == "" {
		return nil, fmt.Errorf("%w: extractor_name is required", ErrInvalidExtractorRules)
	}
	for i, rule := range rules.TagExtractor {
		if rule.Category == "" {
			return nil, fmt.Errorf("%w: tag_extractor %d has no category", ErrInvalidExtractorRules, i)
		}
		for _, key := range rule.Keys {
			switch key.(type) {
			case string, int64:
			default:
				return nil, fmt.Errorf("%w: tag_extractor %d key %v is not a string or integer", ErrInvalidExtractorRules, i, key)
			}
		}
	}
	return &rules, nil
}

// LoadExtractorRules reads every rule file in dir keyed by extractor name.
// Files that fail to parse are skipped. A missing dir yields no rules.
func LoadExtractorRules(dir string) (map[string]*ExtractorRules, error) {
	rules := make(map[string]*ExtractorRules)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return rules, nil
		}
		return nil, fmt.Errorf("failed to read extractors directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		parsed, err := ParseExtractorRules(data)
		if err != nil {
			continue
		}
		rules[parsed.ExtractorName] = parsed
	}
	return rules, nil
}

// ConfigurableTagExtractor implements domain.TagExtractor from TOML rules,
// falling back to built-in typed rules for known extractors.
type ConfigurableTagExtractor struct {
	rules map[string]*ExtractorRules
}

// NewConfigurableTagExtractor creates a tag extractor from loaded rules
func NewConfigurableTagExtractor(rules map[string]*ExtractorRules) *ConfigurableTagExtractor {
	if rules == nil {
		rules = make(map[string]*ExtractorRules)
	}
	return &ConfigurableTagExtractor{rules: rules}
}

// ExtractTags returns the tags of one downloaded file. Extractors without
// rules yield no tags.
func (e *ConfigurableTagExtractor) ExtractTags(entry domain.URLExtractor) ([]domain.ExtractedTag, error) {
	if entry.Extractor == "" {
		return nil, ErrNoExtractorName
	}

	if rules, ok := e.rules[entry.Extractor]; ok {
		return applyRules(entryDocument(entry), rules)
	}
	if entry.Extractor == "danbooru" {
		return danbooruTags(entry.Meta)
	}
	return []domain.ExtractedTag{}, nil
}

// entryDocument is the document rule keys are walked from
func entryDocument(entry domain.URLExtractor) map[string]interface{} {
	return map[string]interface{}{
		"extractor": entry.Extractor,
		"path":      entry.Path,
		"url":       entry.URL,
		"meta":      entry.Meta,
	}
}

func applyRules(doc interface{}, rules *ExtractorRules) ([]domain.ExtractedTag, error) {
	tags := []domain.ExtractedTag{}
	for _, rule := range rules.TagExtractor {
		value, err := walk(doc, rule.Keys)
		if err != nil {
			return nil, err
		}
		extracted, err := valueTags(value, rule.Category, rule.split())
		if err != nil {
			return nil, err
		}
		tags = append(tags, extracted...)
	}
	return tags, nil
}

func walk(value interface{}, keys []interface{}) (interface{}, error) {
	for _, key := range keys {
		switch k := key.(type) {
		case string:
			m, ok := value.(map[string]interface{})
			if !ok {
				return nil, ErrWrongExtractorPath
			}
			next, ok := m[k]
			if !ok {
				return nil, ErrWrongExtractorPath
			}
			value = next
		case int64:
			items, ok := asSlice(value)
			if !ok || k < 0 || int(k) >= len(items) {
				return nil, ErrWrongExtractorPath
			}
			value = items[k]
		default:
			return nil, ErrWrongExtractorPath
		}
	}
	return value, nil
}

func asSlice(value interface{}) ([]interface{}, bool) {
	switch v := value.(type) {
	case []interface{}:
		return v, true
	case []string:
		items := make([]interface{}, len(v))
		for i, s := range v {
			items[i] = s
		}
		return items, true
	}
	return nil, false
}

// valueTags turns an array of strings into one tag per item, and a string
// into one tag per space-separated word unless split is false.
func valueTags(value interface{}, category string, split bool) ([]domain.ExtractedTag, error) {
	if s, ok := value.(string); ok {
		if !split {
			return []domain.ExtractedTag{domain.NewExtractedTag(category, s)}, nil
		}
		words := strings.Split(s, " ")
		tags := make([]domain.ExtractedTag, 0, len(words))
		for _, word := range words {
			tags = append(tags, domain.NewExtractedTag(category, word))
		}
		return tags, nil
	}

	items, ok := asSlice(value)
	if !ok {
		return nil, ErrNotListOrString
	}
	tags := make([]domain.ExtractedTag, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, ErrArrayNotStrings
		}
		tags = append(tags, domain.NewExtractedTag(category, s))
	}
	return tags, nil
}

// danbooruCategories maps danbooru's typed tag lists to tag categories, in output order
var danbooruCategories = []struct {
	key      string
	category string
}{
	{"tags_artist", "Artist"},
	{"tags_character", "Characters"},
	{"tags_copyright", "Copyright"},
	{"tags_general", "General"},
	{"tags_meta", "Meta"},
}

// danbooruTags reads danbooru's typed tag lists. Missing lists are empty.
func danbooruTags(meta map[string]interface{}) ([]domain.ExtractedTag, error) {
	tags := []domain.ExtractedTag{}
	for _, c := range danbooruCategories {
		value, ok := meta[c.key]
		if !ok || value == nil {
			continue
		}
		extracted, err := valueTags(value, c.category, true)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.key, err)
		}
		tags = append(tags, extracted...)
	}
	return tags, nil
}
