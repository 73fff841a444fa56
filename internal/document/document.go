// Package document resolves stored CV document references to downloadable
// URLs and extracts sanitized plain text from them. Extracted text is always
// stripped of markup before it reaches any prompt.
package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

const documentURIScheme = "wix:document://"

// maxDocumentBytes bounds how much of a candidate upload we are willing to
// read into memory.
const maxDocumentBytes = 20 << 20

var (
	ErrInvalidURI  = errors.New("document: invalid document URI")
	ErrUnreachable = errors.New("document: no endpoint produced a download URL")
)

// Extract is the sanitized text of one document plus its token cost.
type Extract struct {
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
}

// Fetcher resolves CMS document URIs and pulls text out of the files behind
// them.
type Fetcher struct {
	baseURL string
	apiKey  string
	siteID  string
	http    *http.Client
	counter TokenCounter
	logger  *slog.Logger
}

// TokenCounter reports how many model tokens a piece of text costs.
type TokenCounter interface {
	Count(text string) (int, error)
}

func NewFetcher(baseURL, apiKey, siteID string, counter TokenCounter, logger *slog.Logger) *Fetcher {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://www.wixapis.com"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		siteID:  siteID,
		http:    &http.Client{Timeout: 30 * time.Second},
		counter: counter,
		logger:  logger,
	}
}

// ResolveDocumentURI turns a stored document URI into a URL the file can be
// downloaded from. The media API has grown three generations of download
// endpoints and documents uploaded through older site versions only answer on
// the older ones, so each is tried in turn.
func (f *Fetcher) ResolveDocumentURI(ctx context.Context, uri string) (string, error) {
	if !strings.HasPrefix(uri, documentURIScheme) {
		return "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	parts := strings.Split(strings.TrimPrefix(uri, documentURIScheme), "/")
	if len(parts) < 2 || parts[1] == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	documentID := parts[1]

	if url, err := f.fileInfoURL(ctx, documentID); err == nil {
		return url, nil
	} else {
		f.logger.Warn("file info endpoint failed", "document_id", documentID, "error", err)
	}
	if url, err := f.documentDownloadURL(ctx, documentID); err == nil {
		return url, nil
	} else {
		f.logger.Warn("document download endpoint failed", "document_id", documentID, "error", err)
	}
	if url, err := f.fileDownloadURL(ctx, documentID); err == nil {
		return url, nil
	} else {
		f.logger.Warn("file download-url endpoint failed", "document_id", documentID, "error", err)
	}
	return "", fmt.Errorf("%w: document %s", ErrUnreachable, documentID)
}

func (f *Fetcher) fileInfoURL(ctx context.Context, documentID string) (string, error) {
	var out struct {
		File struct {
			URL string `json:"url"`
		} `json:"file"`
	}
	if err := f.get(ctx, "/site-media/v1/files/"+documentID, &out); err != nil {
		return "", err
	}
	if out.File.URL == "" {
		return "", errors.New("response carried no file url")
	}
	return out.File.URL, nil
}

func (f *Fetcher) documentDownloadURL(ctx context.Context, documentID string) (string, error) {
	payload := fmt.Sprintf(`{"documentId":%q}`, documentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/documents/v1/documents/download", strings.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	return f.downloadURLFrom(req)
}

func (f *Fetcher) fileDownloadURL(ctx context.Context, documentID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/site-media/v1/files/"+documentID+"/download-url", nil)
	if err != nil {
		return "", err
	}
	return f.downloadURLFrom(req)
}

func (f *Fetcher) downloadURLFrom(req *http.Request) (string, error) {
	var out struct {
		DownloadURL string `json:"downloadUrl"`
	}
	if err := f.send(req, &out); err != nil {
		return "", err
	}
	if out.DownloadURL == "" {
		return "", errors.New("response carried no download url")
	}
	return out.DownloadURL, nil
}

func (f *Fetcher) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return err
	}
	return f.send(req, out)
}

func (f *Fetcher) send(req *http.Request, out any) error {
	req.Header.Set("Authorization", f.apiKey)
	req.Header.Set("wix-site-id", f.siteID)

	resp, err := f.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ExtractText downloads the file at url, pulls its plain text and returns it
// sanitized together with a token count. PDF content is parsed page by page;
// anything else is treated as raw text.
func (f *Fetcher) ExtractText(ctx context.Context, url string) (*Extract, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download document: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download document: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("read document body: %w", err)
	}

	text, err := extractPlainText(raw)
	if err != nil {
		return nil, err
	}
	text = Sanitize(text)

	count := 0
	if f.counter != nil {
		if count, err = f.counter.Count(text); err != nil {
			f.logger.Warn("token count failed", "error", err)
			count = 0
		}
	}
	return &Extract{Text: text, TokenCount: count}, nil
}

func extractPlainText(raw []byte) (string, error) {
	if !bytes.HasPrefix(raw, []byte("%PDF")) {
		return string(raw), nil
	}
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
	}
	return sb.String(), nil
}
