package source

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// StripHTML returns the text content of an HTML fragment and the src of
// every <img> in document order. Script and style bodies are dropped and
// <br> becomes a newline; all other text is kept as written.
func StripHTML(fragment string) (string, []string, error) {
	z := html.NewTokenizer(strings.NewReader(fragment))

	var (
		text   bytes.Buffer
		images []string
		skip   int
	)

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", nil, err
			}
			return strings.TrimSpace(text.String()), images, nil

		case html.TextToken:
			if skip == 0 {
				text.Write(z.Text())
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "script", "style":
				if tt == html.StartTagToken {
					skip++
				}
			case "br":
				text.WriteByte('\n')
			case "img":
				if src := attr(z, hasAttr, "src"); src != "" {
					images = append(images, src)
				}
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			}
		}
	}
}

func attr(z *html.Tokenizer, more bool, key string) string {
	for more {
		var k, v []byte
		k, v, more = z.TagAttr()
		if string(k) == key {
			return string(v)
		}
	}
	return ""
}
