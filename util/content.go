package util

import (
	"fmt"
	"regexp"
	"strings"
)

// Mention is a parsed @username@domain reference found in post content.
type Mention struct {
	Username string
	Domain   string
}

var hashtagRegex = regexp.MustCompile(`#([A-Za-z][A-Za-z0-9_]*)`)
var mentionRegex = regexp.MustCompile(`@([A-Za-z0-9_]+)@([A-Za-z0-9.-]+\.[A-Za-z]{2,})`)

// ParseHashtags returns the distinct hashtags in text, lowercased, in order
// of first appearance.
func ParseHashtags(text string) []string {
	matches := hashtagRegex.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool, len(matches))
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tag := strings.ToLower(m[1])
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// ParseMentions returns the distinct @username@domain references in text,
// lowercased, in order of first appearance.
func ParseMentions(text string) []Mention {
	matches := mentionRegex.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool, len(matches))
	mentions := make([]Mention, 0, len(matches))
	for _, m := range matches {
		username := strings.ToLower(m[1])
		domain := strings.ToLower(m[2])
		key := username + "@" + domain
		if seen[key] {
			continue
		}
		seen[key] = true
		mentions = append(mentions, Mention{Username: username, Domain: domain})
	}
	return mentions
}

// HighlightHashtagsTerminal wraps hashtags in an ANSI color for terminal
// display, leaving the rest of the text untouched.
func HighlightHashtagsTerminal(text string) string {
	return hashtagRegex.ReplaceAllString(text, "\033[38;5;75m#$1\033[39m")
}

// HighlightHashtagsHTML converts hashtags into links under /tags/<tag>.
func HighlightHashtagsHTML(text string) string {
	return hashtagRegex.ReplaceAllStringFunc(text, func(match string) string {
		m := hashtagRegex.FindStringSubmatch(match)
		tag := m[1]
		return fmt.Sprintf(`<a href="/tags/%s" class="hashtag">#%s</a>`, strings.ToLower(tag), tag)
	})
}

// HashtagsToActivityPubHTML renders hashtags as Protocol-A microformat links
// (rel="tag", text wrapped in a <span>), resolved against baseURL.
func HashtagsToActivityPubHTML(text, baseURL string) string {
	return hashtagRegex.ReplaceAllStringFunc(text, func(match string) string {
		m := hashtagRegex.FindStringSubmatch(match)
		tag := strings.ToLower(m[1])
		return fmt.Sprintf(`<a href="%s/tags/%s" class="hashtag" rel="tag">#<span>%s</span></a>`, baseURL, tag, tag)
	})
}

// HighlightMentionsTerminal wraps mentions in an OSC 8 hyperlink plus ANSI
// color. Local mentions (domain == localDomain, case-insensitive) link to
// the local profile path and drop the domain from the displayed text.
func HighlightMentionsTerminal(text, localDomain string) string {
	return mentionRegex.ReplaceAllStringFunc(text, func(match string) string {
		m := mentionRegex.FindStringSubmatch(match)
		username, domain := m[1], m[2]
		var url, display string
		if localDomain != "" && strings.EqualFold(domain, localDomain) {
			url = fmt.Sprintf("https://%s/u/%s", localDomain, username)
			display = "@" + username
		} else {
			url = fmt.Sprintf("https://%s/@%s", domain, username)
			display = fmt.Sprintf("@%s@%s", username, domain)
		}
		return fmt.Sprintf("\033[38;5;77;4m\033]8;;%s\033\\%s\033]8;;\033\\\033[39;24m", url, display)
	})
}

// HighlightMentionsHTML converts mentions into anchors. Local mentions link
// to a relative profile path; remote mentions link to the remote profile
// and open in a new tab.
func HighlightMentionsHTML(text, localDomain string) string {
	return mentionRegex.ReplaceAllStringFunc(text, func(match string) string {
		m := mentionRegex.FindStringSubmatch(match)
		username, domain := m[1], m[2]
		if localDomain != "" && strings.EqualFold(domain, localDomain) {
			return fmt.Sprintf(`<a href="/u/%s" class="mention">@%s</a>`, username, username)
		}
		return fmt.Sprintf(`<a href="https://%s/@%s" class="mention" target="_blank" rel="noopener noreferrer">@%s@%s</a>`, domain, username, username, domain)
	})
}

// MentionsToActivityPubHTML renders mentions as Protocol-A h-card
// microformat links. mentionURIs maps "@username@domain" (case-insensitive)
// to the mentioned actor's URI; mentions absent from the map fall back to
// the actor's public profile URL.
func MentionsToActivityPubHTML(text string, mentionURIs map[string]string) string {
	lowerURIs := make(map[string]string, len(mentionURIs))
	for k, v := range mentionURIs {
		lowerURIs[strings.ToLower(k)] = v
	}
	return mentionRegex.ReplaceAllStringFunc(text, func(match string) string {
		m := mentionRegex.FindStringSubmatch(match)
		username, domain := strings.ToLower(m[1]), strings.ToLower(m[2])
		href, ok := lowerURIs["@"+username+"@"+domain]
		if !ok {
			href = fmt.Sprintf("https://%s/@%s", domain, username)
		}
		return fmt.Sprintf(`<span class="h-card"><a href="%s" class="u-url mention">@<span>%s</span></a></span>`, href, username)
	})
}
