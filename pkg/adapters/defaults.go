package adapters

import "fmt"

// Selector sets follow each site's live markup and drift when the site is
// redesigned; revalidate against the page before changing them.
var defaultAdapters = []SiteAdapter{
	{
		Name:          "espn",
		Address:       "https://www.espn.com/nba/",
		BaseURL:       "https://www.espn.com",
		TitleSelector: ".headlineStack__header + section > ul > li > a",
		LinkSelector:  ".headlineStack__header + section > ul > li > a",
		ImageSelector: "img",
	},
	{
		Name:          "bleacher_report",
		Address:       "https://bleacherreport.com/nba",
		TitleSelector: ".articleTitle",
		LinkSelector:  ".articleTitle",
		ImageSelector: "img",
	},
	{
		Name:          "slam",
		Address:       "https://www.slamonline.com/",
		TitleSelector: ".h-bloglist-block-content-top > h3 > a",
		LinkSelector:  ".h-bloglist-block-content-top > h3 > a",
		ImageSelector: "img",
	},
	{
		Name:          "nba",
		Address:       "https://www.nba.com/news/category/top-stories",
		BaseURL:       "https://www.nba.com",
		TitleSelector: ".ArticleTile_tileMainContent__c_bU1 > a > header > h3 > span",
		LinkSelector:  ".ArticleTile_tileMainContent__c_bU1 > a",
		ImageSelector: ".ArticleTile_tileImage__no39y",
	},
	{
		Name:          "nba_canada",
		Address:       "https://www.sportingnews.com/ca/nba/news",
		BaseURL:       "https://www.sportingnews.com",
		TitleSelector: ".list-item__title > a",
		LinkSelector:  ".list-item__title > a",
		ImageSelector: ".ArticleTile_tileImage__no39y",
	},
}

// DefaultAdapters returns a copy of the built-in site list.
func DefaultAdapters() []SiteAdapter {
	out := make([]SiteAdapter, len(defaultAdapters))
	copy(out, defaultAdapters)
	return out
}

// DefaultRegistry wires up the known basketball news sites.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(DefaultAdapters()...)
	if err != nil {
		panic(fmt.Sprintf("built-in adapters are invalid: %v", err))
	}
	return reg
}
