package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/starford/linkdex/internal/apperr"
	"github.com/starford/linkdex/internal/parser"
	"github.com/starford/linkdex/internal/urlnorm"
)

// LinkNoteInput describes a note to create for a URL.
type LinkNoteInput struct {
	URL   string   `json:"url"`
	Title string   `json:"title,omitempty"`
	Tags  []string `json:"tags,omitempty"`
	// Folder is an optional vault directory for the new note.
	Folder string `json:"folder,omitempty"`
	Body   string `json:"body,omitempty"`
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

const maxSlugLen = 80

// CreateLinkNote writes a new note whose first configured URL field holds
// in.URL. The file name is a slug of the title (or of the URL when no
// title is given); "-2", "-3", ... are appended on collision.
func (s *Service) CreateLinkNote(ctx context.Context, in LinkNoteInput) (*NoteDetail, error) {
	if !urlnorm.IsValidURL(in.URL) {
		return nil, fmt.Errorf("noteservice: create link note: invalid url %q: %w", in.URL, apperr.ErrInvalidArgument)
	}
	if strings.Contains(in.Folder, "..") {
		return nil, fmt.Errorf("noteservice: create link note: invalid folder %q: %w", in.Folder, apperr.ErrInvalidArgument)
	}
	cfg := s.settings.Current()

	title := strings.TrimSpace(in.Title)
	urlField := "source"
	if len(cfg.URLFields) > 0 {
		urlField = cfg.URLFields[0]
	}
	fm := map[string]any{urlField: in.URL}
	if title != "" {
		fm["title"] = title
	}
	if tags := cleanTags(in.Tags); len(tags) > 0 {
		field := "tags"
		if len(cfg.TagFields) > 0 {
			field = cfg.TagFields[0]
		}
		fm[field] = tags
	}
	body := in.Body
	if body == "" && title != "" {
		body = "# " + title
	}
	content, err := parser.Render(fm, body)
	if err != nil {
		return nil, fmt.Errorf("noteservice: render link note: %w", err)
	}

	base := slugify(title)
	if base == "" {
		base = slugFromURL(in.URL)
	}
	dir := strings.Trim(path.Clean("/"+in.Folder), "/")
	for i := 1; i < 100; i++ {
		name := base
		if i > 1 {
			name = fmt.Sprintf("%s-%d", base, i)
		}
		p := name + ".md"
		if dir != "" {
			p = dir + "/" + p
		}
		detail, err := s.CreateNote(ctx, p, content)
		if errors.Is(err, apperr.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, err
		}
		s.logger.Info("noteservice: link note created", slog.String("path", p), slog.String("url", in.URL))
		return detail, nil
	}
	return nil, fmt.Errorf("noteservice: no free file name for %q: %w", base, apperr.ErrConflict)
}

func slugify(s string) string {
	s = slugRe.ReplaceAllString(strings.ToLower(s), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	return s
}

func slugFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "link"
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if s := slugify(host + " " + u.Path); s != "" {
		return s
	}
	return "link"
}

func cleanTags(tags []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range tags {
		t = strings.TrimLeft(strings.TrimSpace(t), "#")
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
