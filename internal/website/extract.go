package website

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Candidate is a result link scraped from the search page.
type Candidate struct {
	URL   string
	Title string
	Score int
}

// ExtractCandidates parses a search results page and returns the destination of every
// redirect link (the uddg parameter), in page order, de-duplicated by URL.
func ExtractCandidates(body io.Reader) ([]Candidate, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results page: %w", err)
	}

	var candidates []Candidate
	index := make(map[string]int)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if target := redirectTarget(attr(n, "href")); target != "" {
				title := strings.Join(strings.Fields(textContent(n)), " ")
				if i, seen := index[target]; seen {
					if candidates[i].Title == "" {
						candidates[i].Title = title
					}
				} else {
					index[target] = len(candidates)
					candidates = append(candidates, Candidate{URL: target, Title: title})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return candidates, nil
}

// redirectTarget returns the absolute http(s) URL carried in the uddg parameter of href.
func redirectTarget(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	target := u.Query().Get("uddg")
	if target == "" {
		return ""
	}
	t, err := url.Parse(target)
	if err != nil || (t.Scheme != "http" && t.Scheme != "https") || t.Host == "" {
		return ""
	}
	return target
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}
