package newsletter

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/wanjiru-dev/storypress-backend/internal/model"
)

const (
	maxSubjectLength = 255
	excerptLength    = 280
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// NormalizeSubject trims and caps a campaign subject.
func NormalizeSubject(subject string) string {
	trimmed := strings.TrimSpace(subject)
	runes := []rune(trimmed)
	if len(runes) > maxSubjectLength {
		return string(runes[:maxSubjectLength])
	}
	return trimmed
}

// StripHTML removes tags and collapses whitespace, for plain-text excerpts.
func StripHTML(value string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(tagPattern.ReplaceAllString(value, ""), " "))
}

func unsubscribeFooter(unsubscribeLink string) string {
	return fmt.Sprintf(`
  <hr style="margin-top:24px;margin-bottom:12px;border:none;border-top:1px solid #e5e7eb;" />
  <p style="margin:0;font-size:13px;color:#6b7280;">
    You are receiving this email because you subscribed to updates.
    <a href="%s" style="color:#2563eb;">Unsubscribe</a>.
  </p>
`, unsubscribeLink)
}

// BuildCampaignHTML wraps the stored campaign body in the email container
// with the recipient's unsubscribe footer.
func BuildCampaignHTML(content, unsubscribeLink string) string {
	return fmt.Sprintf(`
  <div style="font-family:Arial,Helvetica,sans-serif;line-height:1.6;color:#111827;">
    %s
    %s
  </div>
`, content, unsubscribeFooter(unsubscribeLink))
}

// BuildAutoArticleHTML builds the body of an article-publish campaign:
// escaped title, truncated plain-text excerpt, read-more button.
func BuildAutoArticleHTML(article model.Article, siteURL string) string {
	title := article.Title
	if title == "" {
		title = "New post"
	}

	excerpt := StripHTML(article.Content)
	ellipsis := ""
	if runes := []rune(excerpt); len(runes) >= excerptLength {
		excerpt = string(runes[:excerptLength])
		ellipsis = "..."
	}

	readMoreURL := fmt.Sprintf("%s/story/%d", strings.TrimRight(siteURL, "/"), article.ID)

	return fmt.Sprintf(`
    <h2 style="margin:0 0 12px 0;">%s</h2>
    <p style="margin:0 0 18px 0;color:#374151;">
      %s%s
    </p>
    <p style="margin:0;">
      <a
        href="%s"
        style="display:inline-block;background:#111827;color:#ffffff;text-decoration:none;padding:10px 14px;border-radius:8px;"
      >
        Read full post
      </a>
    </p>
  `, html.EscapeString(title), html.EscapeString(excerpt), ellipsis, readMoreURL)
}

// DefaultArticleSubject is used when no subject override is given.
func DefaultArticleSubject(article model.Article) string {
	title := article.Title
	if title == "" {
		title = "Latest story"
	}
	return NormalizeSubject("New post: " + title)
}

// UnsubscribeLink builds the per-recipient opt-out URL embedded in every
// campaign email.
func UnsubscribeLink(baseURL, token string) string {
	return fmt.Sprintf("%s/api/newsletter/unsubscribe/%s", strings.TrimRight(baseURL, "/"), token)
}
