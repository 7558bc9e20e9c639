// Package cvat is a thin REST client for the CVAT annotation service,
// covering the one operation this tool needs: creating a task bound to a
// remote image. Clients are cheap but hold a session cookie jar, so each
// concurrent worker builds its own and never shares it.
package cvat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/yourorg/cvat-tasks/internal/types"
)

// imageQuality is the compression level CVAT applies to uploaded frames.
const imageQuality = 70

type Client struct {
	base *url.URL
	hc   *http.Client
	cfg  Config
}

// New builds a client for one worker. The jar keeps CVAT's session cookies
// across the task-create and data-attach calls.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.Host, "/"))
	if err != nil {
		return nil, fmt.Errorf("cvat: parse host %q: %w", cfg.Host, err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &Client{
		base: base,
		hc:   &http.Client{Jar: jar, Timeout: 60 * time.Second},
		cfg:  cfg,
	}, nil
}

type taskCreated struct {
	ID int `json:"id"`
}

// CreateTask creates a task from spec and attaches the remote image, and
// returns the new task's id. Any failure, transport or HTTP, comes back as
// a *Error.
func (c *Client) CreateTask(ctx context.Context, spec types.TaskSpec, remoteURL string) (int, error) {
	var created taskCreated
	if err := c.post(ctx, "/api/tasks", spec, &created); err != nil {
		return 0, err
	}
	data := map[string]any{
		"remote_files":  []string{remoteURL},
		"image_quality": imageQuality,
	}
	if err := c.post(ctx, fmt.Sprintf("/api/tasks/%d/data", created.ID), data, nil); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// TaskURL derives the web UI address for a created task.
func (c *Client) TaskURL(id int) string {
	return TaskURL(c.base.String(), id)
}

// TaskURL derives the web UI address for a task on the given host. Usable
// without a client, e.g. when writing reports.
func TaskURL(host string, id int) string {
	return fmt.Sprintf("%s/tasks/%d", strings.TrimSuffix(host, "/"), id)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Kind: KindValidation, Message: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.String()+path, bytes.NewReader(payload))
	if err != nil {
		return &Error{Kind: KindNetwork, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Organization", c.cfg.Org)
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)

	resp, err := c.hc.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &Error{
			Kind:    kindForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(snippet)),
		}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Kind: KindServer, Status: resp.StatusCode, Message: "decode response: " + err.Error()}
		}
	}
	return nil
}
