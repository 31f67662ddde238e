package render

import (
	"fmt"
	"strings"

	"ResearchBriefing/internal/domain"
)

// Markdown renders the archive document.
func Markdown(b *Briefing) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", b.Title)
	if b.Overview != "" {
		fmt.Fprintf(&sb, "%s\n\n", b.Overview)
	}
	if b.Empty() {
		sb.WriteString("_No new items since the last briefing._\n\n")
	}

	for _, s := range b.Sections {
		fmt.Fprintf(&sb, "## %s %s (%d)\n\n", s.Emoji, s.Heading, s.Total)
		for _, it := range s.Items {
			writeMarkdownItem(&sb, s.Category, it)
		}
		if s.Overflow > 0 {
			fmt.Fprintf(&sb, "_+%d more %s_\n\n", s.Overflow, s.Noun)
		}
	}

	sb.WriteString("---\n\n")
	sb.WriteString(b.Footer.Text())
	sb.WriteString("\n")
	return sb.String()
}

func writeMarkdownItem(sb *strings.Builder, cat domain.Category, it Item) {
	switch cat {
	case domain.CategoryPosts, domain.CategorySafetyPosts:
		fmt.Fprintf(sb, "- **[%s](%s)**\n", it.Title, it.URL)
		fmt.Fprintf(sb, "  %s · %s\n", it.Source, it.Published)
		if len(it.ArxivIDs) > 0 {
			links := make([]string, 0, len(it.ArxivIDs))
			for _, id := range it.ArxivIDs {
				links = append(links, fmt.Sprintf("[%s](https://arxiv.org/abs/%s)", id, id))
			}
			fmt.Fprintf(sb, "  arXiv: %s\n", strings.Join(links, ", "))
		}
	case domain.CategoryLinked:
		fmt.Fprintf(sb, "- **[%s](%s)** ([PDF](%s))\n", it.Title, it.URL, it.PDFURL)
		fmt.Fprintf(sb, "  `%s` · %s (%s)\n", it.ArxivID, markdownBlogRef(it), it.Source)
	default:
		fmt.Fprintf(sb, "- **[%s](%s)** ([PDF](%s))\n", it.Title, it.URL, it.PDFURL)
		fmt.Fprintf(sb, "  `%s` · %s\n", it.ArxivID, strings.Join(it.Keywords, ", "))
	}
	if it.Summary != "" {
		fmt.Fprintf(sb, "  %s\n", it.Summary)
	}
	sb.WriteString("\n")
}

func markdownBlogRef(it Item) string {
	if it.BlogURL != "" && it.BlogTitle != "" {
		return fmt.Sprintf("[%s](%s)", it.BlogTitle, it.BlogURL)
	}
	return it.Source
}
