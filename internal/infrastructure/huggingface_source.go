package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/gdl-bridge/internal/domain"
)

// maxRowsPage is the largest page the datasets-server /rows endpoint serves
const maxRowsPage = 100

// HuggingFaceSource implements domain.DatasetSource against the Hugging Face
// datasets-server API. Rows are paged, image cells are fetched from their
// asset URLs.
type HuggingFaceSource struct {
	client      *http.Client
	endpoint    string
	dataset     string
	imageColumn string
	labelColumn string
	pageSize    int
	logger      *zap.Logger

	mu      sync.Mutex
	configs map[string]string // split -> dataset config name
}

// NewHuggingFaceSource creates a source for the dataset named in config
func NewHuggingFaceSource(config *domain.DatasetConfig, client *http.Client, log *zap.Logger) *HuggingFaceSource {
	if client == nil {
		client = NewHTTPClient(config.Timeout)
	}
	if log == nil {
		log = zap.NewNop()
	}
	pageSize := config.PageSize
	if pageSize < 1 || pageSize > maxRowsPage {
		pageSize = maxRowsPage
	}
	return &HuggingFaceSource{
		client:      client,
		endpoint:    strings.TrimRight(config.Endpoint, "/"),
		dataset:     config.Name,
		imageColumn: config.ImageColumn,
		labelColumn: config.LabelColumn,
		pageSize:    pageSize,
		logger:      log,
		configs:     make(map[string]string),
	}
}

type splitsResponse struct {
	Splits []struct {
		Dataset string `json:"dataset"`
		Config  string `json:"config"`
		Split   string `json:"split"`
	} `json:"splits"`
}

type rowsResponse struct {
	Rows []struct {
		RowIdx int                        `json:"row_idx"`
		Row    map[string]json.RawMessage `json:"row"`
	} `json:"rows"`
	NumRowsTotal int `json:"num_rows_total"`
}

type imageCell struct {
	Src string `json:"src"`
}

// Splits returns the dataset's split names in the order the server lists them
func (s *HuggingFaceSource) Splits(ctx context.Context) ([]string, error) {
	query := url.Values{"dataset": {s.dataset}}

	var resp splitsResponse
	if err := s.getJSON(ctx, "/splits", query, &resp); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var splits []string
	for _, sp := range resp.Splits {
		if _, seen := s.configs[sp.Split]; seen {
			continue
		}
		s.configs[sp.Split] = sp.Config
		splits = append(splits, sp.Split)
	}
	return splits, nil
}

// Each pages through a split and calls fn with every decoded record
func (s *HuggingFaceSource) Each(ctx context.Context, split string, fn func(index int, record domain.DatasetRecord) error) error {
	config := s.configFor(split)

	for offset := 0; ; {
		query := url.Values{
			"dataset": {s.dataset},
			"config":  {config},
			"split":   {split},
			"offset":  {strconv.Itoa(offset)},
			"length":  {strconv.Itoa(s.pageSize)},
		}

		var page rowsResponse
		if err := s.getJSON(ctx, "/rows", query, &page); err != nil {
			return err
		}
		if len(page.Rows) == 0 {
			return nil
		}

		for _, row := range page.Rows {
			record, err := s.record(ctx, row.Row)
			if err != nil {
				return fmt.Errorf("row %d: %w", row.RowIdx, err)
			}
			if err := fn(row.RowIdx, record); err != nil {
				return err
			}
		}

		offset += len(page.Rows)
		s.logger.Debug("Fetched dataset page",
			zap.String("split", split),
			zap.Int("offset", offset),
			zap.Int("total", page.NumRowsTotal))
		if page.NumRowsTotal > 0 && offset >= page.NumRowsTotal {
			return nil
		}
	}
}

func (s *HuggingFaceSource) configFor(split string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if config, ok := s.configs[split]; ok {
		return config
	}
	return "default"
}

func (s *HuggingFaceSource) record(ctx context.Context, row map[string]json.RawMessage) (domain.DatasetRecord, error) {
	var record domain.DatasetRecord

	rawLabel, ok := row[s.labelColumn]
	if !ok {
		return record, fmt.Errorf("missing label column %q", s.labelColumn)
	}
	if err := json.Unmarshal(rawLabel, &record.Label); err != nil {
		return record, fmt.Errorf("invalid label: %w", err)
	}

	rawImage, ok := row[s.imageColumn]
	if !ok {
		return record, fmt.Errorf("missing image column %q", s.imageColumn)
	}
	var cell imageCell
	if err := json.Unmarshal(rawImage, &cell); err != nil || cell.Src == "" {
		return record, fmt.Errorf("image cell has no src")
	}

	image, err := s.fetch(ctx, cell.Src)
	if err != nil {
		return record, fmt.Errorf("failed to fetch image: %w", err)
	}
	record.Image = image
	return record, nil
}

func (s *HuggingFaceSource) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	body, err := s.fetch(ctx, s.endpoint+path+"?"+query.Encode())
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (s *HuggingFaceSource) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("GET %s: status %d: %s", rawURL, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return io.ReadAll(resp.Body)
}
