package bluesky

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/chicago-dig-bot/internal/domain"
)

// DryRun logs threads instead of posting them. Wired in when test mode is on
// or no credentials are configured.
type DryRun struct {
	Logger *slog.Logger
}

// PostThread logs each post at info level and succeeds.
func (d DryRun) PostThread(_ context.Context, posts []domain.Post) error {
	for i, post := range posts {
		attrs := []any{"post", i + 1, "of", len(posts), "text", post.Text}
		if post.ImagePath != "" {
			attrs = append(attrs, "image", post.ImagePath, "alt", post.ImageAlt)
		}
		d.Logger.Info("dry run: would post", attrs...)
	}
	return nil
}
