package app

import (
	"context"
	"fmt"
	"io"

	"ResearchBriefing/internal/domain"
	"ResearchBriefing/internal/infrastructure/storage"

	"gopkg.in/yaml.v3"
)

// Inspection is the state summary printed by `state inspect`.
type Inspection struct {
	Backend        string         `yaml:"backend"`
	Path           string         `yaml:"path,omitempty"`
	Documents      []string       `yaml:"documents,omitempty"`
	Upgrades       []string       `yaml:"upgrades,omitempty"`
	NotifiedPapers int            `yaml:"notified_papers"`
	NotifiedPosts  int            `yaml:"notified_posts"`
	Links          int            `yaml:"blog_arxiv_links"`
	Buffer         map[string]Day `yaml:"daily_buffer"`
	Pending        int            `yaml:"pending_items"`
	PendingBy      map[string]int `yaml:"pending_by_category"`
}

// Day counts one buffer bucket per category.
type Day struct {
	BlogPosts   int `yaml:"blog_posts"`
	ArxivPapers int `yaml:"arxiv_papers"`
	Linked      int `yaml:"linked_papers"`
	SafetyPosts int `yaml:"safety_posts"`
}

// Inspect loads the state read-only and summarises it. Nothing is written back.
func (a *Application) Inspect(ctx context.Context) (Inspection, error) {
	st := a.store.Load(ctx, a.clock())

	out := Inspection{
		Backend:        a.cfg.State.Backend,
		Upgrades:       st.Upgrades(),
		NotifiedPapers: st.NotifiedPapers().Len(),
		NotifiedPosts:  st.NotifiedPosts().Len(),
		Links:          st.Links().Len(),
		Buffer:         map[string]Day{},
	}
	switch backend := a.backend.(type) {
	case *storage.FileBackend:
		out.Path = backend.Path()
	case *storage.SQLBackend:
		names, err := backend.Names(ctx)
		if err != nil {
			return out, fmt.Errorf("list documents: %w", err)
		}
		out.Documents = names
	}

	for _, date := range st.Buffer().Dates() {
		day, ok := st.Buffer().Day(date)
		if !ok {
			continue
		}
		out.Buffer[date] = Day{
			BlogPosts:   len(day.Posts),
			ArxivPapers: len(day.Papers),
			Linked:      len(day.Linked),
			SafetyPosts: len(day.SafetyPosts),
		}
	}

	snap := st.Peek()
	digest := snap.Digest()
	out.Pending = digest.Total()
	out.PendingBy = make(map[string]int, len(domain.Categories))
	for _, c := range domain.Categories {
		out.PendingBy[string(c)] = digest.Count(c)
	}
	if err := snap.Discard(); err != nil {
		return out, err
	}
	return out, nil
}

// WriteInspection renders the summary as YAML.
func WriteInspection(w io.Writer, in Inspection) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(in); err != nil {
		return fmt.Errorf("encode inspection: %w", err)
	}
	return enc.Close()
}
