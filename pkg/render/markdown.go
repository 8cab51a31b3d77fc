package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/russross/blackfriday"

	"github.com/lennythecreator/sphinx/pkg/domain"
)

// MarkdownHTML renders assistant markdown to HTML.
func MarkdownHTML(content string) string {
	return string(blackfriday.MarkdownCommon([]byte(content)))
}

// TranscriptHTML builds a standalone HTML export of a conversation, with
// assistant markdown rendered and tool results inlined after their message.
func TranscriptHTML(a domain.Advisor, messages []domain.Message) string {
	var b strings.Builder

	b.WriteString("<!doctype html>\n<html><head><meta charset=\"utf-8\">")
	fmt.Fprintf(&b, "<title>%s — %s</title>", html.EscapeString(a.Role), html.EscapeString(a.Domain))
	b.WriteString("</head><body>\n")
	fmt.Fprintf(&b, "<h1>%s advisor</h1>\n", html.EscapeString(a.Role))

	for _, msg := range messages {
		fmt.Fprintf(&b, "<section class=%q>\n", msg.Role)
		if msg.Role == domain.RoleAssistant {
			b.WriteString(MarkdownHTML(msg.Content))
		} else {
			fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(msg.Content))
		}
		if msg.AttachmentMeta != nil {
			fmt.Fprintf(&b, "<p><em>Attached: %s (%d pages)</em></p>\n",
				html.EscapeString(msg.AttachmentMeta.Name), msg.AttachmentMeta.PageCount)
		}
		for _, rec := range RenderAll(msg) {
			writeRecordHTML(&b, rec)
		}
		b.WriteString("</section>\n")
	}

	b.WriteString("</body></html>\n")
	return b.String()
}

func writeRecordHTML(b *strings.Builder, rec DisplayRecord) {
	switch rec.Kind {
	case KindJobCarousel:
		b.WriteString("<ul>\n")
		for _, job := range rec.Jobs {
			fmt.Fprintf(b, "<li><strong>%s</strong> — %s, %s</li>\n",
				html.EscapeString(job.Title), html.EscapeString(job.Company), html.EscapeString(job.Location))
		}
		b.WriteString("</ul>\n")
	case KindSalary:
		fmt.Fprintf(b, "<p>%s <small>Source: %s</small></p>\n",
			html.EscapeString(rec.Salary.Message), html.EscapeString(rec.Salary.Source))
	case KindVideo:
		fmt.Fprintf(b, "<p><a href=\"https://www.youtube.com/watch?v=%s\">%s</a></p>\n",
			html.EscapeString(rec.Video.VideoID), html.EscapeString(rec.Video.Title))
	case KindBook:
		fmt.Fprintf(b, "<p><a href=%q>%s</a> by %s</p>\n",
			rec.Book.BookLink, html.EscapeString(rec.Book.BookTitle),
			html.EscapeString(strings.Join(rec.Book.Authors, ", ")))
	case KindNotice:
		fmt.Fprintf(b, "<p><em>%s</em></p>\n", html.EscapeString(rec.Notice))
	}
}
