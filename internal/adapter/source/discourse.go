package source

import (
	"encoding/json"
	"strings"

	"ragqa/internal/domain"
)

const (
	defaultTopicTitle = "Untitled Topic"
	defaultUsername   = "unknown"
)

// Discourse normalises a Discourse topic export (the JSON served at
// /t/<slug>/<id>.json) into one record per post.
type Discourse struct {
	baseURL string
}

func NewDiscourse(baseURL string) *Discourse {
	return &Discourse{baseURL: strings.TrimRight(baseURL, "/")}
}

func (d *Discourse) Name() string { return "discourse" }

type topicExport struct {
	Title      *string `json:"title"`
	PostStream struct {
		Posts []postExport `json:"posts"`
	} `json:"post_stream"`
}

type postExport struct {
	Username  *string `json:"username"`
	CreatedAt string  `json:"created_at"`
	Cooked    string  `json:"cooked"`
	PostURL   string  `json:"post_url"`
}

// Parse returns one record per post. A topic without posts yields no
// records and no error.
func (d *Discourse) Parse(name string, data []byte) ([]domain.Record, error) {
	var topic topicExport
	if err := json.Unmarshal(data, &topic); err != nil {
		return nil, &domain.AdapterParseError{Source: name, Err: err}
	}

	title := valueOr(topic.Title, defaultTopicTitle)

	records := make([]domain.Record, 0, len(topic.PostStream.Posts))
	for _, post := range topic.PostStream.Posts {
		text, images, err := StripHTML(post.Cooked)
		if err != nil {
			return nil, &domain.AdapterParseError{Source: name, Err: err}
		}

		records = append(records, domain.Record{
			Title:      title,
			URL:        d.permalink(post.PostURL),
			Content:    text,
			Author:     valueOr(post.Username, defaultUsername),
			CreatedAt:  post.CreatedAt,
			Images:     images,
			SourceFile: name,
		})
	}
	return records, nil
}

// valueOr returns def only when the field was absent (or null) in the export.
func valueOr(field *string, def string) string {
	if field == nil {
		return def
	}
	return *field
}

// permalink prefixes the forum origin onto a post path.
func (d *Discourse) permalink(postURL string) string {
	if postURL == "" {
		return ""
	}
	if strings.HasPrefix(postURL, "http://") || strings.HasPrefix(postURL, "https://") {
		return postURL
	}
	if !strings.HasPrefix(postURL, "/") {
		postURL = "/" + postURL
	}
	return d.baseURL + postURL
}
