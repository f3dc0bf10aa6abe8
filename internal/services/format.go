package services

import (
	"fmt"
	"math"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ExcerptLength is the number of characters of plain text kept in an excerpt.
const ExcerptLength = 150

const ellipsis = "..."

// FormatPrice renders a stored price the way the catalog displays it.
func FormatPrice(p float64) string {
	return "$" + strconv.FormatFloat(p, 'f', 2, 64)
}

// ParsePrice reads an admin-entered price such as "$1,024.50" or "24.99".
func ParsePrice(s string) (float64, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "$")
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return 0, ErrInvalidPrice
	}
	p, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0, ErrInvalidPrice
	}
	return math.Round(p*100) / 100, nil
}

// ReadTime renders stored minutes as shown on post cards.
func ReadTime(minutes int) string {
	return fmt.Sprintf("%d min read", minutes)
}

// FormatDate renders a publish time as M/D/YYYY.
func FormatDate(t time.Time) string {
	return t.UTC().Format("1/2/2006")
}

// Excerpt returns the first ExcerptLength characters of the text in content,
// always followed by "...".
func Excerpt(content string) string {
	r := []rune(PlainText(content))
	if len(r) > ExcerptLength {
		r = r[:ExcerptLength]
	}
	return strings.TrimRightFunc(string(r), unicode.IsSpace) + ellipsis
}

// block elements separate words once markup is removed.
var blockTags = map[string]bool{
	"p": true, "br": true, "div": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "tr": true, "td": true, "img": true,
}

// PlainText tokenizes HTML without executing or fetching anything and
// returns its text with whitespace collapsed.
func PlainText(content string) string {
	z := html.NewTokenizer(strings.NewReader(content))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skip++
			}
			if blockTags[tag] {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
			if blockTags[tag] {
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

var (
	nonSlug    = regexp.MustCompile(`[^a-z0-9-]+`)
	dashes     = regexp.MustCompile(`-{2,}`)
	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Slug derives a URL-safe permalink from a post title.
func Slug(title string) string {
	s, _, err := transform.String(stripMarks, title)
	if err != nil {
		s = title
	}
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), "-")
	s = nonSlug.ReplaceAllString(s, "")
	s = dashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NormalizeEmail validates an address and returns it lower-cased.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", Invalid("email", "Please enter a valid email address.")
	}
	return strings.ToLower(addr.Address), nil
}

// cleanTags trims tags and drops blanks and repeats, keeping order.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// SplitTags reads a comma separated form field.
func SplitTags(s string) []string {
	return cleanTags(strings.Split(s, ","))
}
