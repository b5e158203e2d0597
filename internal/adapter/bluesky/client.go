// Package bluesky posts threads to Bluesky over the XRPC HTTP API. Only the
// three calls the bot needs are implemented: session creation, blob upload,
// and record creation.
package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/couchcryptid/chicago-dig-bot/internal/domain"
)

const postCollection = "app.bsky.feed.post"

// Client is an authenticated Bluesky posting client. Call PostThread; it
// logs in lazily on first use and reuses the session afterwards.
type Client struct {
	host       string
	handle     string
	password   string
	httpClient *http.Client
	logger     *slog.Logger

	// pause between thread posts, to stay under the PDS rate limit. Tests
	// set it to zero.
	pause time.Duration

	accessJwt string
	did       string
}

// NewClient creates a Bluesky client for the given PDS host and account.
func NewClient(host, handle, password string, logger *slog.Logger) *Client {
	return &Client{
		host:     host,
		handle:   handle,
		password: password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
		pause:  time.Second,
	}
}

// PostThread publishes the posts as a reply chain: the first post is the
// root, each subsequent post replies to the previous one. An empty thread is
// a no-op.
func (c *Client) PostThread(ctx context.Context, posts []domain.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if err := c.ensureSession(ctx); err != nil {
		return err
	}

	var root, parent *postRef
	for i, post := range posts {
		if i > 0 {
			select {
			case <-time.After(c.pause):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		ref, err := c.createPost(ctx, post, root, parent)
		if err != nil {
			return fmt.Errorf("post %d of %d: %w", i+1, len(posts), err)
		}
		if root == nil {
			root = ref
		}
		parent = ref
	}

	c.logger.Info("thread posted", "posts", len(posts), "root", root.URI)
	return nil
}

// postRef identifies a created record, used to chain replies.
type postRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

type sessionResponse struct {
	AccessJwt string `json:"accessJwt"`
	DID       string `json:"did"`
	Handle    string `json:"handle"`
}

func (c *Client) ensureSession(ctx context.Context) error {
	if c.accessJwt != "" {
		return nil
	}

	body := map[string]string{
		"identifier": c.handle,
		"password":   c.password,
	}
	var session sessionResponse
	if err := c.xrpc(ctx, "com.atproto.server.createSession", "", body, &session); err != nil {
		return fmt.Errorf("bluesky login: %w", err)
	}

	c.accessJwt = session.AccessJwt
	c.did = session.DID
	c.logger.Info("authenticated with bluesky", "handle", session.Handle)
	return nil
}

func (c *Client) createPost(ctx context.Context, post domain.Post, root, parent *postRef) (*postRef, error) {
	record := map[string]any{
		"$type":     postCollection,
		"text":      post.Text,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	}

	if post.ImagePath != "" {
		blob, err := c.uploadImage(ctx, post.ImagePath)
		if err != nil {
			return nil, err
		}
		record["embed"] = map[string]any{
			"$type": "app.bsky.embed.images",
			"images": []map[string]any{
				{"alt": post.ImageAlt, "image": blob},
			},
		}
	}

	if parent != nil {
		record["reply"] = map[string]any{
			"root":   root,
			"parent": parent,
		}
	}

	body := map[string]any{
		"repo":       c.did,
		"collection": postCollection,
		"record":     record,
	}
	var ref postRef
	if err := c.xrpc(ctx, "com.atproto.repo.createRecord", c.accessJwt, body, &ref); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	return &ref, nil
}

// uploadImage uploads a local image and returns the blob reference verbatim.
// The blob payload is opaque to us; it only gets echoed back in the embed.
func (c *Client) uploadImage(ctx context.Context, path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	u := c.host + "/xrpc/com.atproto.repo.uploadBlob"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", http.DetectContentType(data))
	req.Header.Set("Authorization", "Bearer "+c.accessJwt)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload blob: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("upload blob: status %d: %s", resp.StatusCode, msg)
	}

	var result struct {
		Blob json.RawMessage `json:"blob"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return result.Blob, nil
}

func (c *Client) xrpc(ctx context.Context, method, token string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	u := c.host + "/xrpc/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s: status %d: %s", method, resp.StatusCode, msg)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
