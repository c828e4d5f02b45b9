package markdown

import (
	"html/template"
	"strings"
)

var sourceItemTmpl = template.Must(template.New("source").Parse(
	`<li><a href="{{.}}" target="_blank" rel="noopener noreferrer">{{.}}</a></li>`,
))

// SourcesHTML renders one list item with an anchor per URL, in order.
// Duplicates are kept. URLs with unsafe schemes are neutralised by
// html/template.
func SourcesHTML(urls []string) string {
	var b strings.Builder
	for _, u := range urls {
		_ = sourceItemTmpl.Execute(&b, u)
	}
	return b.String()
}
