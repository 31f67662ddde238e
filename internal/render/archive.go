package render

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileBase is the archive file stem for a briefing date.
func FileBase(date string) string {
	return "briefing-" + date
}

// Attach renders the Markdown and HTML documents and stores them as attachments.
func Attach(b *Briefing) error {
	page, err := HTML(b)
	if err != nil {
		return err
	}
	base := FileBase(b.Date)
	b.Attachments = []Attachment{
		{Name: base + ".md", Title: base + ".md", Content: []byte(Markdown(b))},
		{Name: base + ".html", Title: base + ".html", Content: page},
	}
	return nil
}

// WriteArchive writes every attachment into dir, overwriting earlier copies for the same date.
func WriteArchive(dir string, b *Briefing) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	paths := make([]string, 0, len(b.Attachments))
	for _, a := range b.Attachments {
		path := filepath.Join(dir, a.Name)
		if err := os.WriteFile(path, a.Content, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", a.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
