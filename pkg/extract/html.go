package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sitewatch/sitewatch/internal/models"
)

// HTMLResult carries the extracted document plus the hyperlink targets found
// on the page. Links are a side output for frontier expansion only; they are
// not part of the persisted document.
type HTMLResult struct {
	Doc   models.Document
	Links []string
}

// HTML extracts visible text, title, meta keywords and outbound links from
// an HTML payload. Script and style elements are stripped before the text
// walk; links are resolved absolute against pageURL.
func HTML(pageURL string, body []byte) (*HTMLResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html %s: %w", pageURL, err)
	}

	doc.Find("script, style").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = fallbackTitle
	}

	content := collapseWhitespace(doc.Find("body").Text())

	var keywords []string
	if meta, ok := doc.Find(`meta[name="keywords"]`).Attr("content"); ok && meta != "" {
		for _, kw := range strings.Split(meta, ",") {
			keywords = append(keywords, strings.TrimSpace(kw))
		}
	}

	return &HTMLResult{
		Doc: models.Document{
			URL:         pageURL,
			Title:       title,
			Content:     Truncate(content),
			ContentType: models.ContentHTML,
			Keywords:    keywords,
			Timestamp:   time.Now(),
		},
		Links: extractLinks(pageURL, doc),
	}, nil
}

func extractLinks(pageURL string, doc *goquery.Document) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		links = append(links, resolved.String())
	})
	return links
}
