package twitter

import (
	"regexp"
)

// postURLPattern matches post permalinks such as
//
//	https://x.com/user/status/1234567890
//	twitter.com/user/status/1234567890?s=20
var postURLPattern = regexp.MustCompile(
	`^(?:https?://)?(?:www\.)?(?:twitter\.com|x\.com)/[A-Za-z0-9_]+/status/[0-9]+(?:\?.*)?$`,
)

var postIDPattern = regexp.MustCompile(`(?:twitter\.com|x\.com)/\w+/status/(\d+)`)

// IsPostURL reports whether s is a post permalink.
func IsPostURL(s string) bool {
	return postURLPattern.MatchString(s)
}

// ValidatePostURLs returns the post permalinks in urls, preserving order.
// The result may be empty.
func ValidatePostURLs(urls []string) []string {
	valid := make([]string, 0, len(urls))
	for _, u := range urls {
		if IsPostURL(u) {
			valid = append(valid, u)
		}
	}
	return valid
}

// ExtractPostID extracts the numeric status ID from a post URL.
func ExtractPostID(url string) string {
	matches := postIDPattern.FindStringSubmatch(url)
	if len(matches) > 1 {
		return matches[1]
	}
	return ""
}
