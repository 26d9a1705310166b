package noteservice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/linkdex/internal/apperr"
	"github.com/starford/linkdex/internal/checksum"
	"github.com/starford/linkdex/internal/settings"
	"github.com/starford/linkdex/internal/testutil"
)

func testService(t *testing.T, files map[string]string) (*Service, *settings.Holder) {
	t.Helper()
	_, store := testutil.TestVault(t, files)
	ix, holder := testutil.TestIndex(t, store, settings.Default())
	return NewService(store, ix, holder, nil), holder
}

func fm(url string, extra ...string) string {
	return "---\nsource: " + url + "\n" + strings.Join(extra, "\n") + "\n---\nbody\n"
}

func TestCreateLinkNote_IndexedImmediately(t *testing.T) {
	svc, _ := testService(t, nil)
	ctx := context.Background()

	d, err := svc.CreateLinkNote(ctx, LinkNoteInput{
		URL:   "https://www.example.com/post/1",
		Title: "A Post: About Things!",
		Tags:  []string{"#read", "later", "read"},
	})
	require.NoError(t, err)
	assert.Equal(t, "a-post-about-things.md", d.Path)
	assert.Equal(t, []string{"https://www.example.com/post/1"}, d.URLs)
	assert.Equal(t, "A Post: About Things!", d.Title)
	assert.ElementsMatch(t, []string{"#read", "#later"}, d.Tags)
	assert.Equal(t, checksum.Sum([]byte(d.Content)), d.Checksum)

	res, err := svc.Matches(ctx, "https://example.com/post/1/")
	require.NoError(t, err)
	require.Len(t, res.Exact, 1)
	assert.Equal(t, "a-post-about-things.md", res.Exact[0].Path)
	assert.Equal(t, "source", res.Exact[0].Field)
}

func TestCreateLinkNote_NameCollisionAndURLSlug(t *testing.T) {
	svc, _ := testService(t, map[string]string{"example-com-a.md": "taken"})
	ctx := context.Background()

	d, err := svc.CreateLinkNote(ctx, LinkNoteInput{URL: "https://example.com/a"})
	require.NoError(t, err)
	assert.Equal(t, "example-com-a-2.md", d.Path)

	d, err = svc.CreateLinkNote(ctx, LinkNoteInput{URL: "https://example.com/b", Folder: "inbox"})
	require.NoError(t, err)
	assert.Equal(t, "inbox/example-com-b.md", d.Path)
}

func TestCreateLinkNote_RejectsBadInput(t *testing.T) {
	svc, _ := testService(t, nil)
	ctx := context.Background()

	_, err := svc.CreateLinkNote(ctx, LinkNoteInput{URL: "not a url"})
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument), "err = %v", err)

	_, err = svc.CreateLinkNote(ctx, LinkNoteInput{URL: "https://example.com", Folder: "../out"})
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument), "err = %v", err)
}

func TestUpdateNote_IfMatch(t *testing.T) {
	svc, _ := testService(t, map[string]string{"n.md": fm("https://a.com/1")})
	ctx := context.Background()

	_, err := svc.UpdateNote(ctx, "n.md", []byte(fm("https://b.com/2")), "stale")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	cur, err := svc.GetNote(ctx, "n.md")
	require.NoError(t, err)
	d, err := svc.UpdateNote(ctx, "n.md", []byte(fm("https://b.com/2")), cur.Checksum)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://b.com/2"}, d.URLs)

	docs, err := svc.ForDomain(ctx, "a.com")
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = svc.UpdateNote(ctx, "missing.md", []byte("x"), "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMoveAndDelete(t *testing.T) {
	svc, _ := testService(t, map[string]string{"a.md": fm("https://a.com/1")})
	ctx := context.Background()

	d, err := svc.MoveNote(ctx, "a.md", "archive/a.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.com/1"}, d.URLs)

	lookup, err := svc.Lookup(ctx, "https://a.com/1")
	require.NoError(t, err)
	require.Len(t, lookup.Exact, 1)
	assert.Equal(t, "archive/a.md", lookup.Exact[0].Path)

	require.NoError(t, svc.DeleteNote(ctx, "archive/a.md"))
	assert.Empty(t, svc.Recent(ctx, 10))
	_, err = svc.GetNote(ctx, "archive/a.md")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLookupAndDomain(t *testing.T) {
	svc, _ := testService(t, map[string]string{
		"a.md": fm("https://www.example.com/x/"),
		"b.md": fm("https://example.com/x"),
		"c.md": fm("https://other.net/"),
	})
	ctx := context.Background()

	l, err := svc.Lookup(ctx, "https://example.com/x")
	require.NoError(t, err)
	assert.Len(t, l.Exact, 1)
	assert.Len(t, l.Equivalent, 2)
	assert.Equal(t, "example.com/x", l.Normalized)

	docs, err := svc.ForDomain(ctx, "www.EXAMPLE.com")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	_, err = svc.ForDomain(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	assert.Equal(t, []string{"example.com", "other.net"}, svc.Domains(ctx))
	st := svc.Stats(ctx)
	assert.Equal(t, 3, st.Notes)
	assert.Equal(t, 3, st.Index.Documents)
}

func TestMatches_InvalidURL(t *testing.T) {
	svc, _ := testService(t, nil)
	_, err := svc.Matches(context.Background(), "example.com")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestMatches_BucketsSortedNewestFirst(t *testing.T) {
	svc, _ := testService(t, nil)
	ctx := context.Background()
	for _, u := range []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"} {
		_, err := svc.CreateLinkNote(ctx, LinkNoteInput{URL: u})
		require.NoError(t, err)
	}

	res, err := svc.Matches(ctx, "https://example.com/9")
	require.NoError(t, err)
	require.Len(t, res.SameDomain, 3)
	for i := 1; i < len(res.SameDomain); i++ {
		assert.False(t, res.SameDomain[i].ModTime.After(res.SameDomain[i-1].ModTime))
	}
}

func TestExplore(t *testing.T) {
	svc, holder := testService(t, map[string]string{
		"c.md": fm("https://example.com/c", "tags: [todo, misc]"),
		"d.md": fm("https://example.com/d", "tags: [misc]"),
	})
	ctx := context.Background()

	groups, err := svc.Explore(ctx, "tags", "")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "#misc", groups[0].Key)
	assert.Equal(t, 2, groups[0].Count)

	groups, err = svc.Explore(ctx, "tags", "#todo")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "#todo", groups[0].Key)
	assert.Equal(t, "c.md", groups[0].Notes[0].Path)

	cfg := settings.Default()
	cfg.Explorer.Tags = false
	holder.Set(cfg)
	groups, err = svc.Explore(ctx, "tags", "")
	require.NoError(t, err)
	assert.Empty(t, groups)

	_, err = svc.Explore(ctx, "colours", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestRecent_DefaultsToCap(t *testing.T) {
	svc, holder := testService(t, map[string]string{
		"a.md": fm("https://a.com"),
		"b.md": fm("https://b.com"),
		"c.md": fm("https://c.com"),
	})
	assert.Len(t, svc.Recent(context.Background(), 0), 3)
	assert.Len(t, svc.Recent(context.Background(), 2), 2)

	cfg := settings.Default()
	cfg.RecentCap = 1
	holder.Set(cfg)
	assert.Len(t, svc.Recent(context.Background(), 0), 1)
}
