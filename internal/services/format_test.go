package services

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$24.99", FormatPrice(24.99))
	assert.Equal(t, "$5.00", FormatPrice(5))
	assert.Equal(t, "$0.00", FormatPrice(0))
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"$24.99", 24.99},
		{"24.99", 24.99},
		{" $ 1,024.50 ", 1024.50},
		{"7", 7},
		{"0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePriceRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "$", "abc", "-3", "NaN", "Inf", "12.3.4"} {
		_, err := ParsePrice(in)
		assert.ErrorIs(t, err, ErrInvalidPrice, in)
	}
}

func TestPriceRoundTrip(t *testing.T) {
	for _, in := range []string{"$24.99", "$0.10", "$1000.00", "$19.95"} {
		p, err := ParsePrice(in)
		require.NoError(t, err)
		assert.Equal(t, in, FormatPrice(p))
	}
}

func TestReadTimeAndDate(t *testing.T) {
	assert.Equal(t, "5 min read", ReadTime(5))
	assert.Equal(t, "1/5/2024", FormatDate(time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "12/25/2023", FormatDate(time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC)))
}

func TestExcerptShortContent(t *testing.T) {
	assert.Equal(t, "Hello world...", Excerpt("<p>Hello <strong>world</strong></p>"))
	assert.Equal(t, "...", Excerpt(""))
}

func TestExcerptSeparatesBlocks(t *testing.T) {
	got := Excerpt("<h2>Step 1</h2><p>Double cleanse</p>")
	assert.Equal(t, "Step 1 Double cleanse...", got)
}

func TestExcerptSkipsScriptsAndDecodesEntities(t *testing.T) {
	got := Excerpt(`<p>Tom &amp; Jerry</p><script>alert("x")</script><style>p{}</style>`)
	assert.Equal(t, "Tom & Jerry...", got)
}

func TestExcerptBounded(t *testing.T) {
	long := "<p>" + strings.Repeat("glow ", 100) + "</p><ul><li>ß✨</li></ul>"
	got := Excerpt(long)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), ExcerptLength+3)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.NotContains(t, got, "<")
	assert.NotContains(t, got, ">")
}

func TestExcerptMultibyte(t *testing.T) {
	got := Excerpt("<p>" + strings.Repeat("✨", 200) + "</p>")
	assert.Equal(t, strings.Repeat("✨", ExcerptLength)+"...", got)
	assert.True(t, utf8.ValidString(got))
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"The Ultimate Guide to Double Cleansing": "the-ultimate-guide-to-double-cleansing",
		"Crème  Brûlée -- Skin?":                 "creme-brulee-skin",
		"  Vitamin C: 101  ":                      "vitamin-c-101",
		"K-Beauty":                                "k-beauty",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slug(in), in)
	}
}

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  Ada@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got)

	for _, bad := range []string{"", "nope", "Ada <ada@example.com>", "a@"} {
		_, err := NormalizeEmail(bad)
		_, ok := AsValidation(err)
		assert.True(t, ok, bad)
	}
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"acne", "bha"}, SplitTags(" acne, ,bha,acne"))
	assert.Equal(t, []string{}, SplitTags(""))
}
