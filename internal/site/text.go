package site

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var imContraction = regexp.MustCompile(`(?i)i'm`)

// FixText normalizes typographic punctuation and expands contractions so
// entity names line up across articles.
func FixText(text string) string {
	for _, r := range [][2]string{
		{"’", "'"},
		{"`", "'"},
		{"“", `"`},
		{"？", "?"},
		{"…", " "},
		{"'s", " "},
		{"'ve", " have "},
		{"can't", "can not"},
		{"n't", " not "},
	} {
		text = strings.ReplaceAll(text, r[0], r[1])
	}
	text = imContraction.ReplaceAllString(text, "i am")
	for _, r := range [][2]string{
		{"'re", " are "},
		{"'d", " would "},
		{"'ll", " will "},
		{`."`, `. "`},
		{"?", "? "},
		{`".`, `". `},
		{"!", "! "},
	} {
		text = strings.ReplaceAll(text, r[0], r[1])
	}
	return text
}

// selectionText joins the trimmed text nodes under s with single spaces.
func selectionText(s *goquery.Selection) string {
	var parts []string
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				if t := strings.TrimSpace(c.Text()); t != "" {
					parts = append(parts, t)
				}
				return
			}
			walk(c)
		})
	}
	walk(s)
	return strings.Join(parts, " ")
}
