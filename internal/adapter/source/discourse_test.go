package source

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragqa/internal/domain"
)

const forumBase = "https://discourse.onlinedegree.iitm.ac.in"

func TestDiscourse_Parse(t *testing.T) {
	export := `{
		"title": "GA4 - Data Sourcing - Discussion Thread",
		"post_stream": {
			"posts": [
				{
					"username": "alice",
					"created_at": "2025-02-01T10:00:00.000Z",
					"cooked": "<p>Hello</p><img src=\"x.png\">",
					"post_url": "/t/ga4-data-sourcing/165959/1"
				},
				{
					"created_at": "2025-02-01T11:00:00.000Z",
					"cooked": "<p>Use <code>pandas.read_html</code> for tables.</p>"
				}
			]
		}
	}`

	records, err := NewDiscourse(forumBase+"/").Parse("ga4.json", []byte(export))
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "GA4 - Data Sourcing - Discussion Thread", first.Title)
	assert.Equal(t, "Hello", first.Content)
	assert.Equal(t, []string{"x.png"}, first.Images)
	assert.Equal(t, forumBase+"/t/ga4-data-sourcing/165959/1", first.URL)
	assert.Equal(t, "alice", first.Author)
	assert.Equal(t, "2025-02-01T10:00:00.000Z", first.CreatedAt)
	assert.Equal(t, "ga4.json", first.SourceFile)

	second := records[1]
	assert.Equal(t, "Use pandas.read_html for tables.", second.Content)
	assert.Empty(t, second.URL, "posts without a permalink get no URL")
	assert.Equal(t, "unknown", second.Author)
	assert.Empty(t, second.Images)
}

func TestDiscourse_DefaultTitle(t *testing.T) {
	records, err := NewDiscourse(forumBase).Parse("t.json", []byte(`{"post_stream":{"posts":[{"cooked":"<p>x</p>"}]}}`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Untitled Topic", records[0].Title)
}

func TestDiscourse_EmptyFieldsKept(t *testing.T) {
	records, err := NewDiscourse(forumBase).Parse("t.json", []byte(`{"title":"","post_stream":{"posts":[{"username":"","cooked":"<p>x</p>"},{"cooked":"<p>y</p>"}]}}`))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "", records[0].Title)
	assert.Equal(t, "", records[0].Author)
	assert.Equal(t, "unknown", records[1].Author)
}

func TestDiscourse_NoPosts(t *testing.T) {
	records, err := NewDiscourse(forumBase).Parse("empty.json", []byte(`{"title":"Empty"}`))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDiscourse_Malformed(t *testing.T) {
	_, err := NewDiscourse(forumBase).Parse("broken.json", []byte(`{"title": "oops"`))
	require.Error(t, err)

	var parseErr *domain.AdapterParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "broken.json", parseErr.Source)
}

func TestDiscourse_Permalink(t *testing.T) {
	d := NewDiscourse(forumBase)

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/t/topic/1/2", forumBase + "/t/topic/1/2"},
		{"t/topic/1/2", forumBase + "/t/topic/1/2"},
		{"https://other.example/t/1", "https://other.example/t/1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, d.permalink(tt.in), "permalink(%q)", tt.in)
	}
}
