package domain

// Domain contains core models and interfaces.

// Article is the normalized record produced for every headline scraped from a
// site. URL and Image are nil when the page offered no value at that position.
type Article struct {
	Title  string  `json:"title"`
	URL    *string `json:"url"`
	Source string  `json:"source"`
	Image  *string `json:"image"`
}

// URLValue returns the article URL or an empty string.
func (a Article) URLValue() string {
	if a.URL == nil {
		return ""
	}
	return *a.URL
}

// ImageValue returns the article image or an empty string.
func (a Article) ImageValue() string {
	if a.Image == nil {
		return ""
	}
	return *a.Image
}
