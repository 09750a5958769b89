package mailer

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText renders an HTML body as readable plain text for the
// text/plain alternative.
func PlainText(body string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", err
	}

	doc.Find("style, script").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if text := strings.TrimSpace(s.Text()); href != "" && text != href {
			s.AppendHtml(" (" + html.EscapeString(href) + ")")
		}
	})
	doc.Find("p, div, h1, h2, h3, h4, li, hr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
