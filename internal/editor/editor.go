// Package editor describes the rich-text editor the admin dashboard embeds
// and the HTML policy applied to what it produces.
package editor

import (
	"encoding/json"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// Tool is one toolbar button of the browser editing engine.
type Tool struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Level   int    `json:"level,omitempty"`  // headings
	Align   string `json:"align,omitempty"`  // text alignment
	Prompt  string `json:"prompt,omitempty"` // asked with window.prompt before inserting
	Command string `json:"command"`
}

// Config is serialized into the admin page; the engine emits the document
// HTML into the target form field on every change.
type Config struct {
	Tools       []Tool `json:"tools"`
	TargetField string `json:"targetField"`
}

// Toolbar returns the editing features offered to admins.
func Toolbar() Config {
	return Config{
		TargetField: "content",
		Tools: []Tool{
			{Name: "bold", Label: "Bold", Command: "toggleBold"},
			{Name: "italic", Label: "Italic", Command: "toggleItalic"},
			{Name: "h1", Label: "H1", Level: 1, Command: "toggleHeading"},
			{Name: "h2", Label: "H2", Level: 2, Command: "toggleHeading"},
			{Name: "h3", Label: "H3", Level: 3, Command: "toggleHeading"},
			{Name: "bulletList", Label: "Bullet list", Command: "toggleBulletList"},
			{Name: "orderedList", Label: "Numbered list", Command: "toggleOrderedList"},
			{Name: "alignLeft", Label: "Left", Align: "left", Command: "setTextAlign"},
			{Name: "alignCenter", Label: "Center", Align: "center", Command: "setTextAlign"},
			{Name: "alignRight", Label: "Right", Align: "right", Command: "setTextAlign"},
			{Name: "link", Label: "Link", Prompt: "Enter URL", Command: "setLink"},
			{Name: "image", Label: "Image", Prompt: "Enter image URL", Command: "setImage"},
			{Name: "undo", Label: "Undo", Command: "undo"},
			{Name: "redo", Label: "Redo", Command: "redo"},
		},
	}
}

// JSON renders the config for embedding in a page.
func (c Config) JSON() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var textAlign = regexp.MustCompile(`^(left|center|right|justify)$`)

// policy allows exactly the markup the toolbar can produce.
var policy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "b", "em", "i", "h1", "h2", "h3", "ul", "ol", "li")
	p.AllowStyles("text-align").Matching(textAlign).OnElements("p", "h1", "h2", "h3")
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	p.RequireNoFollowOnLinks(true)
	p.AllowAttrs("src", "alt").OnElements("img")
	return p
}()

// Sanitize strips markup the editor cannot produce (scripts, handlers,
// unknown tags) from admin-authored HTML.
func Sanitize(html string) string {
	return policy.Sanitize(html)
}
