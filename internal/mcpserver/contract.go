package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/linkdex/internal/settings"
)

// LinkNoteContract describes the Markdown link-note format that LLM
// consumers should follow when creating notes for URLs.
const LinkNoteContract = `# linkdex Link Note Format

A link note is a Markdown file whose YAML front-matter records one or more
URLs. linkdex indexes only front-matter values; URLs in the body are ignored.

## Structure

` + "```" + `markdown
---
source: https://www.youtube.com/watch?v=dQw4w9WgXcQ   # REQUIRED - first URL field
title: Never Gonna Give You Up                      # OPTIONAL
channel: Rick Astley                                 # OPTIONAL - YouTube channel
tags:                                                # OPTIONAL - YAML list
  - music
---

# Never Gonna Give You Up

Free-form notes.
` + "```" + `

## Rules

1. **Front-matter is mandatory.** The ` + "`---`" + ` fences must be the first thing in the file.
2. **URLs** are absolute http(s) URLs. A field may hold a single URL or a YAML list of URLs.
3. **Matching** ignores the scheme, a leading ` + "`www.`" + `, host case and a trailing slash.
   Query strings and fragments are significant.
4. **Tags** are listed without the leading ` + "`#`" + `; inline ` + "`#tags`" + ` in the body count too.
5. **File paths** end with ` + "`.md`" + ` and use forward slashes.
6. Prefer the ` + "`create_link_note`" + ` tool over writing files by hand; it picks a free
   file name and writes the URL under the first configured field.
`

// contractFor appends the fields the running instance reads to the
// static contract.
func contractFor(cfg settings.Settings) string {
	var b strings.Builder
	b.WriteString(LinkNoteContract)
	b.WriteString("\n## Configured fields\n\n")
	fmt.Fprintf(&b, "- URL fields: %s\n", quoteAll(cfg.URLFields))
	fmt.Fprintf(&b, "- Channel fields: %s\n", quoteAll(cfg.ChannelFields))
	fmt.Fprintf(&b, "- Tag fields: %s\n", quoteAll(cfg.TagFields))
	return b.String()
}

func quoteAll(fields []string) string {
	if len(fields) == 0 {
		return "(none)"
	}
	q := make([]string, len(fields))
	for i, f := range fields {
		q[i] = "`" + f + "`"
	}
	return strings.Join(q, ", ")
}
