package domain

import "regexp"

var (
	// trailingIDExpr matches the id at the end of an entry URL such as http://arxiv.org/abs/2511.00001v2.
	trailingIDExpr = regexp.MustCompile(`(\d{4}\.\d{4,5})(v\d+)?$`)
	// mentionExpr finds paper ids in free text, bare or as abs/pdf links.
	mentionExpr = regexp.MustCompile(`(?:arxiv\.org/(?:abs|pdf)/)?((\d{4}\.\d{4,5})(?:v\d+)?)`)
)

// ShortArxivID strips the URL prefix and version suffix from an entry id.
// Ids that do not look like modern arXiv ids are returned unchanged.
func ShortArxivID(raw string) string {
	if m := trailingIDExpr.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return raw
}

// ExtractArxivIDs returns the unversioned ids mentioned in texts, in first-seen order.
func ExtractArxivIDs(texts ...string) []string {
	seen := map[string]struct{}{}
	var ids []string
	for _, text := range texts {
		for _, m := range mentionExpr.FindAllStringSubmatch(text, -1) {
			id := m[2]
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
