package newsletter

import (
	"strings"
	"testing"

	"github.com/wanjiru-dev/storypress-backend/internal/model"
)

func TestNormalizeSubject(t *testing.T) {
	if got := NormalizeSubject("  Hello  "); got != "Hello" {
		t.Errorf("NormalizeSubject trimmed = %q", got)
	}

	long := strings.Repeat("a", 300)
	if got := NormalizeSubject(long); len([]rune(got)) != 255 {
		t.Errorf("NormalizeSubject cap = %d runes", len([]rune(got)))
	}
}

func TestStripHTML(t *testing.T) {
	got := StripHTML("<p>Hello   <strong>world</strong></p>\n<p>again</p>")
	if got != "Hello world again" {
		t.Errorf("StripHTML = %q", got)
	}
}

func TestBuildCampaignHTMLIncludesUnsubscribeLink(t *testing.T) {
	link := "http://localhost:8080/api/newsletter/unsubscribe/tok123"
	html := BuildCampaignHTML("<p>Hi</p>", link)

	if !strings.Contains(html, "<p>Hi</p>") {
		t.Error("campaign content missing from email body")
	}
	if !strings.Contains(html, link) {
		t.Error("unsubscribe link missing from email body")
	}
}

func TestBuildAutoArticleHTML(t *testing.T) {
	article := model.Article{
		ID:      12,
		Title:   "Tips & Tricks",
		Content: "<p>" + strings.Repeat("x", 400) + "</p>",
	}

	html := BuildAutoArticleHTML(article, "http://localhost:5173/")

	if !strings.Contains(html, "Tips &amp; Tricks") {
		t.Error("title not escaped")
	}
	if !strings.Contains(html, "http://localhost:5173/story/12") {
		t.Error("read-more link missing or malformed")
	}
	if !strings.Contains(html, strings.Repeat("x", 280)+"...") {
		t.Error("excerpt not truncated with ellipsis")
	}
	if strings.Contains(html, strings.Repeat("x", 281)) {
		t.Error("excerpt exceeds the truncation length")
	}
}

func TestBuildAutoArticleHTMLEmptyTitle(t *testing.T) {
	html := BuildAutoArticleHTML(model.Article{ID: 1, Content: "<p>short</p>"}, "http://localhost:5173")
	if !strings.Contains(html, "New post") {
		t.Error("empty title fallback missing")
	}
	if strings.Contains(html, "...") {
		t.Error("short excerpt should not carry an ellipsis")
	}
}

func TestDefaultArticleSubject(t *testing.T) {
	if got := DefaultArticleSubject(model.Article{Title: "Go Tips"}); got != "New post: Go Tips" {
		t.Errorf("DefaultArticleSubject = %q", got)
	}
	if got := DefaultArticleSubject(model.Article{}); got != "New post: Latest story" {
		t.Errorf("DefaultArticleSubject fallback = %q", got)
	}
}

func TestUnsubscribeLink(t *testing.T) {
	got := UnsubscribeLink("http://localhost:8080/", "tok")
	if got != "http://localhost:8080/api/newsletter/unsubscribe/tok" {
		t.Errorf("UnsubscribeLink = %q", got)
	}
}
