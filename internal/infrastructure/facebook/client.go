package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ReelsAutoposter/internal/config"
	"ReelsAutoposter/internal/domain"
	"ReelsAutoposter/internal/ports"
)

// APIError carries the Graph API status and (truncated) response body.
type APIError struct {
	Status string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api %s: %s", e.Status, e.Body)
}

// Client publishes media to a Facebook Page through the Graph API.
type Client struct {
	graphURL string
	version  string
	pageID   string
	token    string
	http     *http.Client
	logger   *slog.Logger
}

var _ ports.Publisher = (*Client)(nil)

// NewClient creates a reusable Graph API client.
func NewClient(cfg config.FacebookConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		graphURL: strings.TrimRight(cfg.GraphURL, "/"),
		version:  cfg.APIVersion,
		pageID:   cfg.PageID,
		token:    cfg.AccessToken,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type idResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type startResponse struct {
	VideoID   string `json:"video_id"`
	UploadURL string `json:"upload_url"`
}

// UploadPhoto posts a photo with caption to the page feed.
func (c *Client) UploadPhoto(ctx context.Context, path, caption string) (string, error) {
	var resp idResponse
	fields := map[string]string{"caption": caption, "access_token": c.token}
	if err := c.upload(ctx, c.pageURL("photos"), fields, path, "image/jpeg", &resp); err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("upload photo: response without id")
	}
	return resp.ID, nil
}

// UploadVideo posts a regular page video with caption as description.
func (c *Client) UploadVideo(ctx context.Context, path, caption string) (string, error) {
	var resp idResponse
	fields := map[string]string{"description": caption, "access_token": c.token}
	if err := c.upload(ctx, c.pageURL("videos"), fields, path, "video/mp4", &resp); err != nil {
		return "", fmt.Errorf("upload video: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("upload video: response without id")
	}
	return resp.ID, nil
}

// StartReel opens a reels upload session for a file of the given size.
func (c *Client) StartReel(ctx context.Context, fileSize int64) (domain.ReelSession, error) {
	form := url.Values{}
	form.Set("upload_phase", "start")
	form.Set("file_size", strconv.FormatInt(fileSize, 10))
	form.Set("access_token", c.token)

	var resp startResponse
	if err := c.postForm(ctx, c.pageURL("video_reels"), form, &resp); err != nil {
		return domain.ReelSession{}, fmt.Errorf("start reel: %w", err)
	}
	if resp.VideoID == "" || resp.UploadURL == "" {
		return domain.ReelSession{}, fmt.Errorf("start reel: missing video_id or upload_url")
	}
	return domain.ReelSession{VideoID: resp.VideoID, UploadURL: resp.UploadURL, FileSize: fileSize}, nil
}

// TransferReel streams the file to the session upload URL.
func (c *Client) TransferReel(ctx context.Context, session domain.ReelSession, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open reel file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat reel file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, session.UploadURL, f)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Authorization", "OAuth "+c.token)
	req.Header.Set("offset", "0")
	req.Header.Set("file_size", strconv.FormatInt(info.Size(), 10))
	req.Header.Set("Content-Type", "application/octet-stream")

	var resp successResponse
	if err := c.do(req, &resp); err != nil {
		return fmt.Errorf("transfer reel: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("transfer reel: upload not acknowledged")
	}
	return nil
}

// FinishReel publishes the uploaded reel; the returned id is the session video id.
func (c *Client) FinishReel(ctx context.Context, session domain.ReelSession, caption string) (string, error) {
	form := url.Values{}
	form.Set("upload_phase", "finish")
	form.Set("video_id", session.VideoID)
	form.Set("video_state", "PUBLISHED")
	form.Set("description", caption)
	form.Set("access_token", c.token)

	var resp successResponse
	if err := c.postForm(ctx, c.pageURL("video_reels"), form, &resp); err != nil {
		return "", fmt.Errorf("finish reel: %w", err)
	}
	if !resp.Success {
		return "", fmt.Errorf("finish reel: publish not acknowledged")
	}
	return session.VideoID, nil
}

func (c *Client) pageURL(edge string) string {
	return fmt.Sprintf("%s/%s/%s/%s", c.graphURL, c.version, c.pageID, edge)
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, v)
}

// upload streams a multipart body so large videos are not buffered in memory.
func (c *Client) upload(ctx context.Context, endpoint string, fields map[string]string, path, contentType string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open media: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeMultipart(mw, fields, filepath.Base(path), contentType, f)
		if closeErr := mw.Close(); err == nil {
			err = closeErr
		}
		_ = pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	err = c.do(req, v)
	_ = pr.Close()
	return err
}

func writeMultipart(mw *multipart.Writer, fields map[string]string, filename, contentType string, r io.Reader) error {
	for k, val := range fields {
		if err := mw.WriteField(k, val); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="source"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("copy media: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request, v any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		apiErr := &APIError{Status: resp.Status, Body: strings.TrimSpace(string(payload))}
		c.logger.Error("graph api rejected request", "url", redactToken(req.URL), "status", resp.Status, "body", apiErr.Body)
		return apiErr
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func redactToken(u *url.URL) string {
	clone := *u
	q := clone.Query()
	if q.Has("access_token") {
		q.Set("access_token", "REDACTED")
		clone.RawQuery = q.Encode()
	}
	return clone.String()
}
