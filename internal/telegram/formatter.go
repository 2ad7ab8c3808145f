package telegram

import (
	"fmt"
	"unicode/utf8"

	"github.com/pfrederiksen/ponisha-watch/internal/project"
)

const (
	// MaxMessageLength is the Bot API limit for message text, in characters
	MaxMessageLength = 4096

	// LinkLabel is the text of the project hyperlink ("link to the project")
	LinkLabel = "لینک به پروژه"

	ellipsis = "…"
)

// FormatProject formats a single project as a markdown Telegram message:
// bold title, description, then a labelled link to the project page.
//
// Title and description are expected to be sanitized already. The description
// is shortened when the message would exceed MaxMessageLength.
func FormatProject(p *project.Project) string {
	msg := render(p.Title, p.Description, p.URL)

	if over := utf8.RuneCountInString(msg) - MaxMessageLength; over > 0 {
		desc := []rune(p.Description)
		keep := len(desc) - over - utf8.RuneCountInString(ellipsis)
		if keep < 0 {
			keep = 0
		}
		msg = render(p.Title, string(desc[:keep])+ellipsis, p.URL)
	}

	return msg
}

func render(title, description, link string) string {
	return fmt.Sprintf("*%s*\n\n %s\n\n[%s](%s)", title, description, LinkLabel, link)
}
