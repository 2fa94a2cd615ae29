// Package search finds bookmarks by keyword or fuzzy title match,
// folding in stored summaries and tags when available.
package search

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/jfelder/marksman/internal/model"
)

// Meta is the slice of stored metadata search cares about.
type Meta struct {
	Summary string
	Tags    []string
}

// Result is one search match.
type Result struct {
	Bookmark       model.Bookmark
	Score          int
	MatchedIndexes []int
	Summary        string
	Tags           []string
}

// Keyword scores bookmarks against the query tokens. Title and tag hits
// weigh more than folder, URL, and summary hits. When tags are given,
// only bookmarks carrying every requested tag are considered.
func Keyword(bookmarks []model.Bookmark, meta map[string]Meta, query string, tags []string, limit int) []Result {
	tokens := tokenize(query)
	if len(tokens) == 0 && len(tags) == 0 {
		return nil
	}

	var results []Result
	for _, b := range bookmarks {
		m := meta[b.URL]
		if !hasAllTags(m.Tags, tags) {
			continue
		}

		score := 0
		for _, tok := range tokens {
			switch {
			case strings.Contains(strings.ToLower(b.Title), tok):
				score += 3
			case tagMatch(m.Tags, tok):
				score += 3
			case strings.Contains(strings.ToLower(b.Folder), tok):
				score += 2
			case strings.Contains(strings.ToLower(b.URL), tok):
				score++
			case strings.Contains(strings.ToLower(m.Summary), tok):
				score++
			}
		}
		if len(tokens) > 0 && score == 0 {
			continue
		}

		results = append(results, Result{
			Bookmark: b,
			Score:    score,
			Summary:  m.Summary,
			Tags:     m.Tags,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// bookmarkTitles implements fuzzy.Source over a bookmark slice.
type bookmarkTitles []model.Bookmark

func (bt bookmarkTitles) String(i int) string {
	return bt[i].Title
}

func (bt bookmarkTitles) Len() int {
	return len(bt)
}

// Fuzzy matches bookmark titles with fuzzy matching, best match first.
// This is the matcher behind the interactive picker.
func Fuzzy(bookmarks []model.Bookmark, query string) []Result {
	if query == "" {
		return nil
	}

	matches := fuzzy.FindFrom(query, bookmarkTitles(bookmarks))

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Bookmark:       bookmarks[m.Index],
			Score:          m.Score,
			MatchedIndexes: m.MatchedIndexes,
		}
	}
	return results
}

func tokenize(query string) []string {
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func tagMatch(tags []string, token string) bool {
	for _, tag := range tags {
		if strings.ToLower(tag) == token {
			return true
		}
	}
	return false
}

func hasAllTags(have, want []string) bool {
	for _, w := range want {
		if !tagMatch(have, strings.ToLower(w)) {
			return false
		}
	}
	return true
}
