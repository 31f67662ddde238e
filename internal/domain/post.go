package domain

// Post is a company or safety blog entry pulled from a feed.
type Post struct {
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	Source    string   `json:"source"`
	Published string   `json:"published"`
	Summary   string   `json:"summary"`
	ArxivIDs  []string `json:"arxiv_ids"`
}

// PublishedDay trims the published timestamp to its YYYY-MM-DD prefix.
func (p Post) PublishedDay() string {
	if len(p.Published) < 10 {
		return p.Published
	}
	return p.Published[:10]
}
