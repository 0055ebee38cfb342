package converter

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"focusnote/scan-api/internal/config"
	"focusnote/scan-api/internal/domain/scan"
	"focusnote/scan-api/internal/infrastructure/metrics"
	"focusnote/scan-api/internal/infrastructure/observability"
)

// Client talks to the external OCR/AI conversion service. It never retries;
// every failure is returned as an EXTERNAL error wrapping *UpstreamError.
type Client struct {
	httpClient       *resty.Client
	baseURL          string
	submitPath       string
	releasePath      string
	submitTimeout    time.Duration
	fetchTimeout     time.Duration
	releaseTimeout   time.Duration
	tempDir          string
	maxArtifactBytes int64
	now              func() time.Time
	log              zerolog.Logger
}

// NewClient creates a Resty-backed conversion client.
func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	return &Client{
		httpClient: resty.New().
			SetBaseURL(cfg.ConverterURL).
			SetHeader("Accept", "application/json"),
		baseURL:          strings.TrimSuffix(cfg.ConverterURL, "/"),
		submitPath:       cfg.ConverterSubmitPath,
		releasePath:      strings.TrimSuffix(cfg.ConverterReleasePath, "/"),
		submitTimeout:    cfg.SubmitTimeout,
		fetchTimeout:     cfg.FetchTimeout,
		releaseTimeout:   cfg.ReleaseTimeout,
		tempDir:          cfg.TempDir,
		maxArtifactBytes: cfg.MaxArtifactBytes,
		now:              time.Now,
		log:              log.With().Str("component", "converter-client").Logger(),
	}
}

// Submit uploads the pages and metadata in one multipart request.
func (c *Client) Submit(ctx context.Context, images []scan.Image, metadata scan.Metadata) (*scan.ConversionResult, error) {
	ctx, span := observability.StartClientSpan(ctx, "converter.submit", attribute.Int("scan.images", len(images)))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()
	start := time.Now()

	var result scan.ConversionResult
	req := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result)
	for i, img := range images {
		name := img.Filename
		if name == "" {
			name = "page-" + strconv.Itoa(i+1)
		}
		req.SetMultipartField("images", name, img.ContentType, bytes.NewReader(img.Data))
	}
	form := map[string]string{"timestamp": c.now().UTC().Format(time.RFC3339)}
	if v := strings.TrimSpace(metadata.Title); v != "" {
		form["title"] = v
	}
	if v := strings.TrimSpace(metadata.Category); v != "" {
		form["category"] = v
	}
	if v := strings.TrimSpace(metadata.Remarks); v != "" {
		form["remarks"] = v
	}
	req.SetFormData(form)

	resp, err := req.Post(c.submitPath)
	if upstream := checkResponse("submit", resp, err); upstream != nil {
		c.record("submit", upstream, start)
		observability.RecordError(span, upstream)
		return nil, external(ctx, "conversion request failed", upstream)
	}
	c.record("submit", nil, start)

	c.log.Debug().
		Str("filename", result.Filename).
		Str("download_url", result.DownloadURL).
		Int("processed_text_length", len(result.ProcessedText)).
		Msg("conversion finished")
	return &result, nil
}

// FetchArtifact downloads the produced file into a temp file, hashing it on
// the way. The caller owns the returned file.
func (c *Client) FetchArtifact(ctx context.Context, locator string) (*scan.FetchedArtifact, error) {
	ctx, span := observability.StartClientSpan(ctx, "converter.fetch")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()
	start := time.Now()

	target, err := c.resolve(locator)
	if err != nil {
		upstream := &UpstreamError{Op: "fetch", Err: err}
		c.record("fetch", upstream, start)
		observability.RecordError(span, upstream)
		return nil, external(ctx, "invalid artifact locator", upstream)
	}
	span.SetAttributes(attribute.String("http.url", target))

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(target)
	if err != nil {
		upstream := &UpstreamError{Op: "fetch", Err: err}
		c.record("fetch", upstream, start)
		observability.RecordError(span, upstream)
		return nil, external(ctx, "artifact download failed", upstream)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
		upstream := &UpstreamError{Op: "fetch", StatusCode: resp.StatusCode(), Body: truncate(string(snippet))}
		c.record("fetch", upstream, start)
		observability.RecordError(span, upstream)
		return nil, external(ctx, "artifact download failed", upstream)
	}

	fetched, err := c.spool(body)
	if err != nil {
		upstream := &UpstreamError{Op: "fetch", StatusCode: resp.StatusCode(), Err: err}
		c.record("fetch", upstream, start)
		observability.RecordError(span, upstream)
		return nil, external(ctx, "artifact download failed", upstream)
	}
	c.record("fetch", nil, start)
	span.SetAttributes(attribute.Int64("artifact.bytes", fetched.Size))
	return fetched, nil
}

// ReleaseRemote asks the service to delete its copy of name. A missing
// remote file counts as released.
func (c *Client) ReleaseRemote(ctx context.Context, name string) error {
	ctx, span := observability.StartClientSpan(ctx, "converter.release", attribute.String("artifact.name", name))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, c.releaseTimeout)
	defer cancel()
	start := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		Delete(c.releasePath + "/" + url.PathEscape(name))
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		c.record("release", nil, start)
		return nil
	}
	if upstream := checkResponse("release", resp, err); upstream != nil {
		c.record("release", upstream, start)
		observability.RecordError(span, upstream)
		return upstream
	}
	c.record("release", nil, start)
	return nil
}

// resolve turns a possibly relative locator into an absolute URL under the
// service base URL.
func (c *Client) resolve(locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", errors.New("empty locator")
	}
	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("parse locator: %w", err)
	}
	if u.IsAbs() {
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", fmt.Errorf("unsupported locator scheme %q", u.Scheme)
		}
		return u.String(), nil
	}
	if strings.HasPrefix(locator, "/") {
		return c.baseURL + locator, nil
	}
	return c.baseURL + "/" + locator, nil
}

func (c *Client) spool(body io.Reader) (*scan.FetchedArtifact, error) {
	tmp, err := os.CreateTemp(c.tempDir, "scan-artifact-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	fetched := &scan.FetchedArtifact{Path: tmp.Name()}

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), io.LimitReader(body, c.maxArtifactBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > c.maxArtifactBytes {
		err = fmt.Errorf("artifact exceeds %d bytes", c.maxArtifactBytes)
	}
	if err == nil && written == 0 {
		err = errors.New("artifact is empty")
	}
	if err != nil {
		if rmErr := fetched.Cleanup(); rmErr != nil {
			c.log.Warn().Err(rmErr).Str("path", fetched.Path).Msg("failed to remove partial download")
		}
		return nil, err
	}

	fetched.Size = written
	fetched.Sha256 = hex.EncodeToString(hasher.Sum(nil))
	return fetched, nil
}

func (c *Client) record(op string, upstream *UpstreamError, start time.Time) {
	status := "success"
	if upstream != nil {
		status = "error"
		c.log.Warn().Err(upstream).Str("operation", op).Msg("converter call failed")
	}
	metrics.RecordUpstream("converter_"+op, status, time.Since(start).Seconds())
}

// checkResponse converts a transport error or non-2xx status into an
// UpstreamError.
func checkResponse(op string, resp *resty.Response, err error) *UpstreamError {
	if err != nil {
		upstream := &UpstreamError{Op: op, Err: err}
		if resp != nil && resp.StatusCode() > 0 {
			upstream.StatusCode = resp.StatusCode()
		}
		return upstream
	}
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return &UpstreamError{Op: op, StatusCode: resp.StatusCode(), Body: truncate(resp.String())}
	}
	return nil
}

var _ scan.Converter = (*Client)(nil)
