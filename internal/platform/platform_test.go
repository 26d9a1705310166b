package platform

import "testing"

func TestExtractSubreddit(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.reddit.com/r/golang/comments/abc123/title/", "r/golang"},
		{"https://old.reddit.com/r/rust/", "r/rust"},
		{"https://new.reddit.com/r/test", "r/test"},
		{"https://reddit.com/r/Go_Lang?sort=new", "r/go_lang"},
		{"https://reddit.com/user/someone", ""},
		{"https://notreddit.com/r/fake", ""},
		{"https://example.com/reddit.com/r/x", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExtractSubreddit(tt.in); got != tt.want {
			t.Errorf("ExtractSubreddit(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractPostID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.reddit.com/r/test/comments/abc123/title_slug/", "abc123"},
		{"https://reddit.com/r/test/comments/ABC123", "abc123"},
		{"https://reddit.com/r/test/", ""},
	}
	for _, tt := range tests {
		if got := ExtractPostID(tt.in); got != tt.want {
			t.Errorf("ExtractPostID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsSamePost(t *testing.T) {
	a := "https://www.reddit.com/r/test/comments/abc123/title_slug/"
	b := "https://reddit.com/r/test/comments/abc123/different_slug/"
	if !IsSamePost(a, b) {
		t.Error("permalinks with the same id and different slugs should match")
	}
	if IsSamePost(a, "https://reddit.com/r/test/comments/zzz999/title_slug/") {
		t.Error("different ids matched")
	}
	if IsSamePost("https://example.com/comments/abc123/", b) {
		t.Error("non-reddit URL matched")
	}
	if IsSamePost("https://reddit.com/r/test", "https://reddit.com/r/test") {
		t.Error("URLs without post ids must not match")
	}
}

func TestIsYouTubeDomain(t *testing.T) {
	yes := []string{
		"https://youtube.com/watch?v=1",
		"https://www.youtube.com/watch?v=1",
		"https://m.youtube.com/watch?v=2",
		"https://mobile.youtube.com/",
		"https://youtu.be/abc",
		"https://www.youtube-nocookie.com/embed/abc",
		"https://youtube.de/watch?v=1",
		"https://www.youtube.co.uk/",
		"https://youtube.com.br/",
	}
	for _, u := range yes {
		if !IsYouTubeDomain(u) {
			t.Errorf("IsYouTubeDomain(%q) = false", u)
		}
	}
	no := []string{
		"https://notyoutube.com/",
		"https://youtube.example.com/",
		"https://vimeo.com/1",
		"",
	}
	for _, u := range no {
		if IsYouTubeDomain(u) {
			t.Errorf("IsYouTubeDomain(%q) = true", u)
		}
	}
}

func TestExtractChannel(t *testing.T) {
	fields := []string{"channel", "author"}
	tests := []struct {
		name string
		fm   map[string]any
		want string
	}{
		{"string", map[string]any{"channel": "Foo"}, "Foo"},
		{"wikilink", map[string]any{"channel": "[[Foo Bar]]"}, "Foo Bar"},
		{"array first element", map[string]any{"channel": []any{"[[Baz]]", "Other"}}, "Baz"},
		{"falls through empty", map[string]any{"channel": "  ", "author": "Qux"}, "Qux"},
		{"order wins", map[string]any{"channel": "A", "author": "B"}, "A"},
		{"non-string ignored", map[string]any{"channel": 42}, ""},
		{"nil map", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractChannel(tt.fm, fields); got != tt.want {
				t.Errorf("ExtractChannel = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractUser(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://twitter.com/golang", "@golang"},
		{"https://x.com/rob_pike/status/123", "@rob_pike"},
		{"https://www.twitter.com/jack?lang=en", "@jack"},
		{"https://x.com/home", ""},
		{"https://twitter.com/explore/tabs", ""},
		{"https://x.com/i/web/status/1", ""},
		{"https://x.com/hashtag/golang", ""},
		{"https://box.com/user", ""},
		{"https://x.com/", ""},
	}
	for _, tt := range tests {
		if got := ExtractUser(tt.in); got != tt.want {
			t.Errorf("ExtractUser(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractRepo(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://github.com/golang/go", "golang/go"},
		{"https://github.com/go-chi/chi/tree/master/middleware", "go-chi/chi"},
		{"https://www.github.com/fsnotify/fsnotify.git", "fsnotify/fsnotify"},
		{"https://github.com/golang", ""},
		{"https://github.com/settings/profile", ""},
		{"https://github.com/customer-stories/acme", ""},
		{"https://github.com/Marketplace/actions", ""},
		{"https://gitlab.com/group/project", ""},
	}
	for _, tt := range tests {
		if got := ExtractRepo(tt.in); got != tt.want {
			t.Errorf("ExtractRepo(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDetect(t *testing.T) {
	tests := map[string]Kind{
		"https://old.reddit.com/r/go":  Reddit,
		"https://youtu.be/x":           YouTube,
		"https://x.com/golang":         Twitter,
		"https://github.com/golang/go": GitHub,
		"https://example.com":          "",
	}
	for in, want := range tests {
		if got := Detect(in); got != want {
			t.Errorf("Detect(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStringValues(t *testing.T) {
	got := StringValues([]any{"https://a.com", 3, " ", "https://b.com"})
	if len(got) != 2 || got[0] != "https://a.com" || got[1] != "https://b.com" {
		t.Errorf("StringValues = %v", got)
	}
	if got := StringValues(12); got != nil {
		t.Errorf("StringValues(int) = %v, want nil", got)
	}
}

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"todo", "#todo"},
		{"#todo", "#todo"},
		{" ##misc ", "#misc"},
		{2024, "#2024"},
		{"", ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := NormalizeTag(tt.in); got != tt.want {
			t.Errorf("NormalizeTag(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
