package api

import (
	"slices"
	"strings"

	"github.com/backcourt/backcourt/internal/domain"
)

const (
	defaultPageSize = 10
	// preferredSource is listed first when no source filter is given.
	preferredSource = "nba"
)

// ArticleQuery holds the parsed query parameters of GET /api/v1/articles.
// Zero values mean "not set".
type ArticleQuery struct {
	Source     string
	PlayerName string
	TeamName   string
	Limit      int
	Page       int
	PageSize   int
}

// filterArticles applies the query to a scraped batch. The filters run in a
// fixed order: source, limit, player, team, page. A player match ends the
// pipeline; a team match returns only the first hit.
func filterArticles(articles []domain.Article, q ArticleQuery) []domain.Article {
	out := slices.Clone(articles)

	if q.Source == "" {
		slices.SortStableFunc(out, func(a, b domain.Article) int {
			return preferenceRank(a) - preferenceRank(b)
		})
	} else {
		out = slices.DeleteFunc(out, func(a domain.Article) bool {
			return !strings.EqualFold(a.Source, q.Source)
		})
	}

	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}

	if q.PlayerName != "" {
		// A name with no words matches nothing.
		parts := strings.Fields(strings.ToLower(q.PlayerName))
		return slices.DeleteFunc(out, func(a domain.Article) bool {
			return !mentionsAny(a, parts)
		})
	}

	if team := strings.ToLower(strings.TrimSpace(q.TeamName)); team != "" {
		for _, a := range out {
			if mentionsAny(a, []string{team}) {
				return []domain.Article{a}
			}
		}
	}

	if q.Page > 0 {
		size := q.PageSize
		if size <= 0 {
			size = defaultPageSize
		}
		start := min((q.Page-1)*size, len(out))
		end := min(start+size, len(out))
		out = out[start:end]
	}

	return out
}

func preferenceRank(a domain.Article) int {
	if strings.EqualFold(a.Source, preferredSource) {
		return 0
	}
	return 1
}

// mentionsAny reports whether any needle occurs in the lowercased title or url.
func mentionsAny(a domain.Article, needles []string) bool {
	title := strings.ToLower(a.Title)
	link := strings.ToLower(a.URLValue())
	for _, n := range needles {
		if strings.Contains(title, n) || strings.Contains(link, n) {
			return true
		}
	}
	return false
}
