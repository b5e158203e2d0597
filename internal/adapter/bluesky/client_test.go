package bluesky

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/chicago-dig-bot/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePDS implements just enough of the XRPC surface to exercise the client.
type fakePDS struct {
	t       *testing.T
	records []map[string]any
	uploads int
}

func (f *fakePDS) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/xrpc/com.atproto.server.createSession", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		if body["identifier"] != "digbot.test" || body["password"] != "hunter2" {
			http.Error(w, `{"error":"AuthenticationRequired"}`, http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"accessJwt": "jwt-token",
			"did":       "did:plc:digbot",
			"handle":    "digbot.test",
		})
	})
	mux.HandleFunc("/xrpc/com.atproto.repo.uploadBlob", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "Bearer jwt-token", r.Header.Get("Authorization"))
		f.uploads++
		_, _ = w.Write([]byte(`{"blob":{"$type":"blob","ref":{"$link":"bafyblob"},"size":3}}`))
	})
	mux.HandleFunc("/xrpc/com.atproto.repo.createRecord", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "Bearer jwt-token", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(f.t, "did:plc:digbot", body["repo"])
		record, _ := body["record"].(map[string]any)
		f.records = append(f.records, record)
		n := len(f.records)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"uri": uri(n),
			"cid": cid(n),
		})
	})
	return mux
}

func uri(n int) string { return "at://did:plc:digbot/app.bsky.feed.post/" + strings.Repeat("k", n) }
func cid(n int) string { return "bafypost" + strings.Repeat("x", n) }

func newTestClient(t *testing.T, pds *fakePDS) *Client {
	server := httptest.NewServer(pds.handler())
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "digbot.test", "hunter2", discardLogger())
	client.pause = 0
	return client
}

func TestPostThread_ChainsReplies(t *testing.T) {
	pds := &fakePDS{t: t}
	client := newTestClient(t, pds)

	err := client.PostThread(context.Background(), []domain.Post{
		{Text: "root post"},
		{Text: "first reply"},
		{Text: "second reply"},
	})
	require.NoError(t, err)
	require.Len(t, pds.records, 3)

	assert.Equal(t, "root post", pds.records[0]["text"])
	assert.Nil(t, pds.records[0]["reply"])

	reply1, _ := pds.records[1]["reply"].(map[string]any)
	require.NotNil(t, reply1)
	root1, _ := reply1["root"].(map[string]any)
	parent1, _ := reply1["parent"].(map[string]any)
	assert.Equal(t, uri(1), root1["uri"])
	assert.Equal(t, uri(1), parent1["uri"])

	// The third post still points at the first as root but the second as
	// parent.
	reply2, _ := pds.records[2]["reply"].(map[string]any)
	require.NotNil(t, reply2)
	root2, _ := reply2["root"].(map[string]any)
	parent2, _ := reply2["parent"].(map[string]any)
	assert.Equal(t, uri(1), root2["uri"])
	assert.Equal(t, uri(2), parent2["uri"])
	assert.Equal(t, cid(2), parent2["cid"])
}

func TestPostThread_UploadsImages(t *testing.T) {
	pds := &fakePDS{t: t}
	client := newTestClient(t, pds)

	imagePath := filepath.Join(t.TempDir(), "chart.png")
	require.NoError(t, os.WriteFile(imagePath, []byte{0x89, 'P', 'N'}, 0o600))

	err := client.PostThread(context.Background(), []domain.Post{
		{Text: "with image", ImagePath: imagePath, ImageAlt: "daily chart"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, pds.uploads)

	embed, _ := pds.records[0]["embed"].(map[string]any)
	require.NotNil(t, embed)
	assert.Equal(t, "app.bsky.embed.images", embed["$type"])
	images, _ := embed["images"].([]any)
	require.Len(t, images, 1)
	img, _ := images[0].(map[string]any)
	assert.Equal(t, "daily chart", img["alt"])
	assert.NotNil(t, img["image"])
}

func TestPostThread_MissingImageFails(t *testing.T) {
	pds := &fakePDS{t: t}
	client := newTestClient(t, pds)

	err := client.PostThread(context.Background(), []domain.Post{
		{Text: "broken", ImagePath: filepath.Join(t.TempDir(), "missing.png")},
	})
	require.Error(t, err)
	assert.Empty(t, pds.records)
}

func TestPostThread_EmptyThreadIsNoop(t *testing.T) {
	pds := &fakePDS{t: t}
	client := newTestClient(t, pds)

	require.NoError(t, client.PostThread(context.Background(), nil))
	assert.Empty(t, pds.records)
}

func TestPostThread_BadCredentials(t *testing.T) {
	pds := &fakePDS{t: t}
	server := httptest.NewServer(pds.handler())
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "digbot.test", "wrong", discardLogger())
	client.pause = 0

	err := client.PostThread(context.Background(), []domain.Post{{Text: "nope"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bluesky login")
}

func TestDryRun_NeverFails(t *testing.T) {
	d := DryRun{Logger: discardLogger()}
	require.NoError(t, d.PostThread(context.Background(), []domain.Post{
		{Text: "anything"},
		{Text: "with image", ImagePath: "/nonexistent.png"},
	}))
}
