package slack

import (
	"fmt"
	"strings"

	"ResearchBriefing/internal/domain"
	"ResearchBriefing/internal/render"
)

type textObject struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji *bool  `json:"emoji,omitempty"`
}

type block struct {
	Type     string       `json:"type"`
	Text     *textObject  `json:"text,omitempty"`
	Elements []textObject `json:"elements,omitempty"`
}

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escape(s string) string { return mrkdwnEscaper.Replace(s) }

func mrkdwn(text string) *textObject { return &textObject{Type: "mrkdwn", Text: text} }

func section(text string) block { return block{Type: "section", Text: mrkdwn(text)} }

func contextBlock(text string) block {
	return block{Type: "context", Elements: []textObject{{Type: "mrkdwn", Text: text}}}
}

func divider() block { return block{Type: "divider"} }

// buildBlocks lays the briefing out as Block Kit blocks.
func buildBlocks(b *render.Briefing) []block {
	noEmoji := false
	blocks := []block{{
		Type: "header",
		Text: &textObject{Type: "plain_text", Text: b.Title, Emoji: &noEmoji},
	}}

	if b.Overview != "" {
		blocks = append(blocks, section(escape(b.Overview)))
	}
	if b.Empty() {
		blocks = append(blocks, contextBlock("_No new items since the last briefing._"))
	}

	for _, s := range b.Sections {
		blocks = append(blocks, divider())
		blocks = append(blocks, section(fmt.Sprintf("%s  *%s*  (%d)", s.Icon, escape(s.Heading), s.Total)))
		for _, it := range s.Items {
			blocks = append(blocks, section(itemText(s.Category, it)))
		}
		if s.Overflow > 0 {
			blocks = append(blocks, contextBlock(fmt.Sprintf("_+%d more %s_", s.Overflow, s.Noun)))
		}
	}

	blocks = append(blocks, divider())
	blocks = append(blocks, contextBlock(":bar_chart:  "+escape(b.Footer.Text())))
	return blocks
}

func itemText(cat domain.Category, it render.Item) string {
	var line string
	switch cat {
	case domain.CategoryPosts, domain.CategorySafetyPosts:
		line = fmt.Sprintf("*<%s|%s>*\n_%s_ · %s", it.URL, escape(it.Title), escape(it.Source), it.Published)
		if len(it.ArxivIDs) > 0 {
			refs := make([]string, 0, len(it.ArxivIDs))
			for _, id := range it.ArxivIDs {
				refs = append(refs, fmt.Sprintf("<%s|%s>", domain.ArxivAbsURL(id), id))
			}
			line += " · arXiv: " + strings.Join(refs, ", ")
		}
	case domain.CategoryLinked:
		ref := escape(it.Source)
		if it.BlogURL != "" && it.BlogTitle != "" {
			ref = fmt.Sprintf("<%s|%s>", it.BlogURL, escape(it.BlogTitle))
		}
		line = fmt.Sprintf("*<%s|%s>*\n`%s` · %s (%s)", it.URL, escape(it.Title), it.ArxivID, ref, escape(it.Source))
	default:
		line = fmt.Sprintf("*<%s|%s>*\n`%s` · %s", it.URL, escape(it.Title), it.ArxivID, escape(strings.Join(it.Keywords, ", ")))
	}
	if it.Summary != "" {
		line += "\n" + escape(it.Summary)
	}
	return line
}
