// Package metrics loads design metrics records produced by the external
// image analyzer, from local files or over HTTP.
package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nikogura/dfx-scorer/pkg/rules"
)

// DefaultFetchTimeout bounds a remote fetch.
const DefaultFetchTimeout = 30 * time.Second

// Format is a serialization of a metrics record.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Load reads a record from a file path or http(s) URL.
func Load(input string) (record Record, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultFetchTimeout)
	defer cancel()

	record, err = LoadWithContext(ctx, input)
	return record, err
}

// LoadWithContext reads a record from a file path or http(s) URL.
func LoadWithContext(ctx context.Context, input string) (record Record, err error) {
	parsedURL, urlErr := url.Parse(input)
	if urlErr == nil && (parsedURL.Scheme == "http" || parsedURL.Scheme == "https") {
		record, err = fetchFromURL(ctx, input)
		if err != nil {
			err = errors.Wrapf(err, "failed to fetch metrics from URL: %s", input)
			return record, err
		}
		return record, err
	}

	record, err = loadFromFile(input)
	if err != nil {
		err = errors.Wrapf(err, "failed to load metrics from file: %s", input)
		return record, err
	}

	return record, err
}

// Parse decodes a record. Both the envelope form and a bare metrics map are
// accepted. A record without metrics is valid; every rule then scores as missing.
func Parse(data []byte, format Format) (record Record, err error) {
	if len(bytes.TrimSpace(data)) == 0 {
		err = errors.New("metrics document is empty")
		return record, err
	}

	raw := make(map[string]interface{})
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(&raw)
	}
	if err != nil {
		err = errors.Wrapf(err, "failed to parse metrics %s", format)
		return record, err
	}

	record = fromRaw(raw)

	return record, err
}

// FormatFor picks a format from a file name or content type. JSON is the default.
func FormatFor(nameOrType string) (format Format) {
	lower := strings.ToLower(nameOrType)
	switch {
	case strings.Contains(lower, "yaml"), filepath.Ext(lower) == ".yml":
		format = FormatYAML
	default:
		format = FormatJSON
	}
	return format
}

func fromRaw(raw map[string]interface{}) (record Record) {
	value, hasMetrics := raw["metrics"]
	inner, isEnvelope := value.(map[string]interface{})
	if !isEnvelope && !(hasMetrics && value == nil) {
		record.Metrics = rules.Metrics(raw)
		return record
	}

	record.Metrics = rules.Metrics{}
	for key, v := range inner {
		record.Metrics[key] = v
	}
	record.Source = stringField(raw, "source")
	record.Design = stringField(raw, "design")
	record.Category = stringField(raw, "category")
	record.Prompt = stringField(raw, "prompt")

	return record
}

func stringField(raw map[string]interface{}, key string) (value string) {
	if s, ok := raw[key].(string); ok {
		value = s
	}
	return value
}

func loadFromFile(path string) (record Record, err error) {
	var data []byte
	data, err = os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to read file: %s", path)
		return record, err
	}

	record, err = Parse(data, FormatFor(path))
	if err != nil {
		return record, err
	}

	if record.Source == "" {
		record.Source = path
	}

	return record, err
}

func fetchFromURL(ctx context.Context, urlStr string) (record Record, err error) {
	var req *http.Request
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		err = errors.Wrap(err, "failed to create HTTP request")
		return record, err
	}

	req.Header.Set("User-Agent", "dfx-scorer/1.0")
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9")

	client := &http.Client{
		Timeout: DefaultFetchTimeout,
	}

	var resp *http.Response
	resp, err = client.Do(req)
	if err != nil {
		err = errors.Wrap(err, "HTTP request failed")
		return record, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = errors.Errorf("HTTP request failed with status: %d", resp.StatusCode)
		return record, err
	}

	var body []byte
	body, err = io.ReadAll(resp.Body)
	if err != nil {
		err = errors.Wrap(err, "failed to read response body")
		return record, err
	}

	format := FormatFor(resp.Header.Get("Content-Type"))
	if format == FormatJSON {
		format = FormatFor(req.URL.Path)
	}

	record, err = Parse(body, format)
	if err != nil {
		return record, err
	}

	if record.Source == "" {
		record.Source = urlStr
	}

	return record, err
}
