package render

import (
	"fmt"
	"strings"

	"ResearchBriefing/internal/domain"
)

// PlainText renders the briefing for chat channels without rich formatting.
func PlainText(b *Briefing) string {
	var sb strings.Builder

	sb.WriteString(b.Title)
	sb.WriteString("\n\n")
	if b.Overview != "" {
		sb.WriteString(b.Overview)
		sb.WriteString("\n\n")
	}
	if b.Empty() {
		sb.WriteString("No new items since the last briefing.\n\n")
	}

	for _, s := range b.Sections {
		fmt.Fprintf(&sb, "%s %s (%d)\n\n", s.Emoji, s.Heading, s.Total)
		for _, it := range s.Items {
			fmt.Fprintf(&sb, "• %s\n", it.Title)
			switch s.Category {
			case domain.CategoryPosts, domain.CategorySafetyPosts:
				fmt.Fprintf(&sb, "  %s · %s\n", it.Source, it.Published)
			case domain.CategoryLinked:
				fmt.Fprintf(&sb, "  %s · via %s\n", it.ArxivID, it.Source)
			default:
				fmt.Fprintf(&sb, "  %s · %s\n", it.ArxivID, strings.Join(it.Keywords, ", "))
			}
			if it.Summary != "" {
				fmt.Fprintf(&sb, "  %s\n", it.Summary)
			}
			fmt.Fprintf(&sb, "  %s\n\n", it.URL)
		}
		if s.Overflow > 0 {
			fmt.Fprintf(&sb, "+%d more %s\n\n", s.Overflow, s.Noun)
		}
	}

	sb.WriteString(b.Footer.Text())
	return sb.String()
}
