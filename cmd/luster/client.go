package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"luster/internal/jobs"
)

// apiClient talks to the daemon's HTTP API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) (*apiClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("daemon API address is not configured (set --server or api_bind)")
	}
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *apiClient) do(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contact daemon at %s: %w", c.baseURL, err)
	}
	return resp, nil
}

func (c *apiClient) decodeError(resp *http.Response) error {
	defer resp.Body.Close()
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, payload.Error)
	}
	return fmt.Errorf("daemon returned %d", resp.StatusCode)
}

type submitEntry struct {
	Filename string `json:"filename"`
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Error    string `json:"error"`
}

// Submit uploads the named files under the multipart field "images".
func (c *apiClient) Submit(ctx context.Context, paths []string) ([]submitEntry, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		part, err := writer.CreateFormFile("images", filepath.Base(path))
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("build upload: %w", err)
		}
		if _, err := io.Copy(part, file); err != nil {
			file.Close()
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		file.Close()
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finish upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp)
	}
	defer resp.Body.Close()

	var entries []submitEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode submit response: %w", err)
	}
	return entries, nil
}

// Status reports the artifact-derived processing/done state.
func (c *apiClient) Status(ctx context.Context, jobID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status/"+jobID, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", c.decodeError(resp)
	}
	defer resp.Body.Close()

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode status: %w", err)
	}
	return payload.Status, nil
}

// Jobs lists registry entries, optionally filtered by status.
func (c *apiClient) Jobs(ctx context.Context, statuses []string) ([]*jobs.Job, error) {
	url := c.baseURL + "/api/jobs"
	if len(statuses) > 0 {
		url += "?status=" + strings.Join(statuses, "&status=")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp)
	}
	defer resp.Body.Close()

	var payload struct {
		Jobs []*jobs.Job `json:"jobs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode job listing: %w", err)
	}
	return payload.Jobs, nil
}

// Job fetches a single registry entry.
func (c *apiClient) Job(ctx context.Context, jobID string) (*jobs.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/jobs/"+jobID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp)
	}
	defer resp.Body.Close()

	var job jobs.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

// ErrResultNotReady is returned while no artifact exists for the job.
var ErrResultNotReady = errors.New("result not ready")

// Result downloads the enhanced artifact bytes and their content type.
func (c *apiClient) Result(ctx context.Context, jobID string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/result/"+jobID, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, "", ErrResultNotReady
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", c.decodeError(resp)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read result: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

type streamEvent struct {
	Name string
	Data string
}

// Watch follows the SSE stream for jobID, invoking fn per event until the
// stream closes or ctx ends.
func (c *apiClient) Watch(ctx context.Context, jobID string, fn func(streamEvent)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events/"+jobID, nil)
	if err != nil {
		return err
	}
	client := &http.Client{}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.decodeError(resp)
	}

	var current streamEvent
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.Name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.Data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if current.Name != "" {
				fn(current)
			}
			current = streamEvent{}
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return nil
}
