package domain

import "fmt"

const arxivAbsURL = "https://arxiv.org/abs/"

// Paper is a research paper announcement pulled from a paper listing.
type Paper struct {
	ID              string   `json:"arxiv_id"`
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	Authors         []string `json:"authors"`
	Link            string   `json:"link"`
	Published       string   `json:"published"`
	Categories      []string `json:"categories"`
	MatchedKeywords []string `json:"matched_keywords"`
}

// AbsURL returns the paper link, falling back to the canonical abstract page.
func (p Paper) AbsURL() string {
	if p.Link != "" {
		return p.Link
	}
	return arxivAbsURL + p.ID
}

// PDFURL points at the rendered PDF of the paper.
func (p Paper) PDFURL() string {
	return fmt.Sprintf("https://arxiv.org/pdf/%s", p.ID)
}

// LinkInfo records which post mentioned a paper before the paper was observed directly.
type LinkInfo struct {
	BlogURL    string `json:"blog_url"`
	BlogTitle  string `json:"blog_title"`
	BlogSource string `json:"blog_source"`
	AddedAt    string `json:"added_at"`
}

// LinkedPaper merges a directly observed paper with the post that announced it.
type LinkedPaper struct {
	Paper Paper    `json:"paper"`
	Link  LinkInfo `json:"blog_info"`
}

// ArxivAbsURL builds the abstract page URL for a bare paper id.
func ArxivAbsURL(id string) string {
	return arxivAbsURL + id
}
