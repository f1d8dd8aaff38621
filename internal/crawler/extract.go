package crawler

import (
	"net/url"
	"strings"

	"github.com/backcourt/backcourt/internal/domain"
	"github.com/backcourt/backcourt/pkg/adapters"

	"github.com/PuerkitoBio/goquery"
)

// extractArticles runs the adapter's selectors against a parsed document.
func extractArticles(root *goquery.Selection, site adapters.SiteAdapter) []domain.Article {
	if site.Mode() == adapters.ModeContainer {
		return extractContainers(root, site)
	}
	return extractFlat(root, site)
}

// extractFlat pairs titles, links and images by index. The three sequences
// come from unrelated queries and may differ in length; missing positions
// leave the field nil.
func extractFlat(root *goquery.Selection, site adapters.SiteAdapter) []domain.Article {
	titles := root.Find(site.TitleSelector)
	links := root.Find(site.LinkSelector)

	var images *goquery.Selection
	if site.ImageSelector != "" {
		images = root.Find(site.ImageSelector)
	}

	out := make([]domain.Article, 0, titles.Length())
	titles.Each(func(i int, node *goquery.Selection) {
		title := cleanText(node.Text())
		if title == "" {
			return
		}

		art := domain.Article{Title: title, Source: site.Name}
		if i < links.Length() {
			art.URL = linkURL(links.Eq(i), site)
		}
		if images != nil && i < images.Length() {
			art.Image = imageURL(images.Eq(i))
		}
		out = append(out, art)
	})
	return out
}

// extractContainers reads each field from inside its own article container,
// so a stray match in one card cannot shift the fields of the next.
func extractContainers(root *goquery.Selection, site adapters.SiteAdapter) []domain.Article {
	containers := root.Find(site.ContainerSelector)

	out := make([]domain.Article, 0, containers.Length())
	containers.Each(func(_ int, card *goquery.Selection) {
		title := cleanText(card.Find(site.TitleSelector).First().Text())
		if title == "" {
			return
		}

		art := domain.Article{Title: title, Source: site.Name}

		link := card.Find(site.LinkSelector).First()
		if link.Length() == 0 && goquery.NodeName(card) == "a" {
			link = card
		}
		if link.Length() > 0 {
			art.URL = linkURL(link, site)
		}

		if site.ImageSelector != "" {
			if img := card.Find(site.ImageSelector).First(); img.Length() > 0 {
				art.Image = imageURL(img)
			}
		}
		out = append(out, art)
	})
	return out
}

// cleanText trims the text and collapses internal runs of whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// linkURL reads the link attribute and makes it absolute with the adapter's
// base URL when it is relative.
func linkURL(node *goquery.Selection, site adapters.SiteAdapter) *string {
	href, ok := node.Attr(site.LinkAttribute())
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return nil
	}

	resolved := absolutize(href, site.BaseURL)
	return &resolved
}

// absolutize prefixes base onto a relative link. Links with a scheme are
// returned untouched; protocol-relative links get https.
func absolutize(href, base string) string {
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if u, err := url.Parse(href); err == nil && u.IsAbs() {
		return href
	}
	if base == "" {
		return href
	}

	switch {
	case strings.HasSuffix(base, "/") && strings.HasPrefix(href, "/"):
		return base + href[1:]
	case !strings.HasSuffix(base, "/") && !strings.HasPrefix(href, "/"):
		return base + "/" + href
	default:
		return base + href
	}
}

// imageURL resolves a thumbnail from the matched node, falling back to the
// first <img> inside it when the node itself carries no source.
func imageURL(node *goquery.Selection) *string {
	if src := imageSource(node); src != "" {
		return &src
	}
	if img := node.Find("img").First(); img.Length() > 0 {
		if src := imageSource(img); src != "" {
			return &src
		}
	}
	return nil
}

// imageSource prefers src and otherwise takes the first srcset candidate.
func imageSource(node *goquery.Selection) string {
	if src, ok := node.Attr("src"); ok {
		if src = strings.TrimSpace(src); src != "" {
			return src
		}
	}
	if srcset, ok := node.Attr("srcset"); ok {
		return firstSrcsetURL(srcset)
	}
	return ""
}

// firstSrcsetURL returns the URL of the first "url descriptor" candidate.
func firstSrcsetURL(srcset string) string {
	first, _, _ := strings.Cut(srcset, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
