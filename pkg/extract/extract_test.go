package extract

import (
	"strings"
	"testing"

	"github.com/sitewatch/sitewatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		header   string
		expected models.ContentType
		ok       bool
	}{
		{"text/html; charset=utf-8", models.ContentHTML, true},
		{"application/xhtml+xml", models.ContentHTML, true},
		{"application/rss+xml", models.ContentXML, true},
		{"text/xml", models.ContentXML, true},
		{"application/pdf", models.ContentPDF, true},
		{"text/plain", models.ContentText, true},
		{"image/png", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			ct, ok := Classify(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, ct)
		})
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", MaxContentLength+500)
	got := Truncate(long)
	assert.Len(t, got, MaxContentLength)
	assert.Equal(t, long[:MaxContentLength], got)

	short := "short enough"
	assert.Equal(t, short, Truncate(short))
}

func TestHTML(t *testing.T) {
	page := `
		<html>
			<head>
				<title>  Release Notes  </title>
				<meta name="keywords" content="a, b, c">
				<style>body { color: red; }</style>
			</head>
			<body>
				<script>console.log("noise");</script>
				<h1>Release   Notes</h1>
				<p>Version 2 is out.</p>
				<a href="/changelog">changelog</a>
				<a href="https://other.example.org/page">external</a>
				<a href="mailto:team@example.com">mail</a>
			</body>
		</html>`

	result, err := HTML("https://example.com/news", []byte(page))
	require.NoError(t, err)

	doc := result.Doc
	assert.Equal(t, "Release Notes", doc.Title)
	assert.Equal(t, models.ContentHTML, doc.ContentType)
	assert.Equal(t, []string{"a", "b", "c"}, doc.Keywords)
	assert.Contains(t, doc.Content, "Release Notes Version 2 is out.")
	assert.NotContains(t, doc.Content, "console.log")
	assert.NotContains(t, doc.Content, "color: red")

	assert.Equal(t, []string{
		"https://example.com/changelog",
		"https://other.example.org/page",
	}, result.Links)
}

func TestHTMLFallbackTitle(t *testing.T) {
	result, err := HTML("https://example.com/", []byte("<html><body><p>no title here</p></body></html>"))
	require.NoError(t, err)
	assert.Equal(t, "Untitled", result.Doc.Title)
	assert.Empty(t, result.Doc.Keywords)
}

func TestHTMLTruncatesContent(t *testing.T) {
	body := "<html><body><p>" + strings.Repeat("w ", MaxContentLength) + "</p></body></html>"
	result, err := HTML("https://example.com/long", []byte(body))
	require.NoError(t, err)
	assert.Len(t, result.Doc.Content, MaxContentLength)
}

func TestFeed(t *testing.T) {
	rss := `<?xml version="1.0" encoding="UTF-8"?>
		<rss version="2.0">
			<channel>
				<title>Example Feed</title>
				<item>
					<title>First entry</title>
					<description>Entry   body text.</description>
					<link>https://example.com/1</link>
				</item>
				<item>
					<title>Second entry</title>
					<description>Ignored.</description>
				</item>
			</channel>
		</rss>`

	doc, err := Feed("https://example.com/feed.xml", []byte(rss))
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "First entry", doc.Title)
	assert.Equal(t, "Entry body text.", doc.Content)
	assert.Equal(t, models.ContentXML, doc.ContentType)
}

func TestFeedEmpty(t *testing.T) {
	rss := `<?xml version="1.0"?><rss version="2.0"><channel><title>empty</title></channel></rss>`
	doc, err := Feed("https://example.com/feed.xml", []byte(rss))
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestFeedMalformed(t *testing.T) {
	_, err := Feed("https://example.com/feed.xml", []byte("{not xml at all"))
	assert.Error(t, err)
}

func TestText(t *testing.T) {
	doc, err := Text("https://example.com/notes/readme.txt", []byte("plain body"))
	require.NoError(t, err)
	assert.Equal(t, "readme.txt", doc.Title)
	assert.Equal(t, "plain body", doc.Content)
	assert.Equal(t, models.ContentText, doc.ContentType)
}

func TestTextTruncates(t *testing.T) {
	payload := strings.Repeat("z", MaxContentLength+1)
	doc, err := Text("https://example.com/big.txt", []byte(payload))
	require.NoError(t, err)
	assert.Len(t, doc.Content, MaxContentLength)
	assert.Equal(t, payload[:MaxContentLength], doc.Content)
}

func TestPDFMalformed(t *testing.T) {
	doc, err := PDF("https://example.com/report.pdf", []byte("definitely not a pdf"))
	assert.Error(t, err)
	assert.Nil(t, doc)
}

func TestTitleFromURL(t *testing.T) {
	assert.Equal(t, "report.pdf", titleFromURL("https://example.com/files/report.pdf"))
	assert.Equal(t, "files", titleFromURL("https://example.com/files/"))
	assert.Equal(t, "Untitled", titleFromURL("https://example.com/"))
}
