package domain

// Category enumerates the four buffered item kinds.
type Category string

const (
	CategoryPosts       Category = "blog_posts"
	CategoryPapers      Category = "arxiv_papers"
	CategoryLinked      Category = "linked_papers"
	CategorySafetyPosts Category = "safety_posts"
)

// Categories lists every buffered category in rendering order.
var Categories = []Category{CategoryPosts, CategoryPapers, CategoryLinked, CategorySafetyPosts}

// Digest is the aggregated buffer content handed to renderers and notifiers.
type Digest struct {
	Posts       []Post
	Papers      []Paper
	Linked      []LinkedPaper
	SafetyPosts []Post
}

// Total counts items across all categories.
func (d Digest) Total() int {
	return len(d.Posts) + len(d.Papers) + len(d.Linked) + len(d.SafetyPosts)
}

// Count returns the number of items buffered for a category.
func (d Digest) Count(c Category) int {
	switch c {
	case CategoryPosts:
		return len(d.Posts)
	case CategoryPapers:
		return len(d.Papers)
	case CategoryLinked:
		return len(d.Linked)
	case CategorySafetyPosts:
		return len(d.SafetyPosts)
	default:
		return 0
	}
}

// Empty reports whether the digest carries nothing to announce.
func (d Digest) Empty() bool {
	return d.Total() == 0
}
