package taskref

import "regexp"

// Canonical identifiers take the form "<repo>/merge_requests/<n>" for GitLab
// merge requests (any host) and "<repo>/pull/<n>" for GitHub pull requests.
var (
	gitlabMR = regexp.MustCompile(`^(?i:https?)://[^/]+/(?:.+?/)*([^/]+)/-/merge_requests/(\d+)`)
	githubPR = regexp.MustCompile(`^(?i:https?)://github\.com/[^/]+/([^/]+)/pull/(\d+)`)
)

// FromURL derives the canonical task identifier for a review link. The second
// return value is false when the URL matches neither supported shape; that is
// a normal outcome, not an error.
func FromURL(url string) (string, bool) {
	if m := gitlabMR.FindStringSubmatch(url); m != nil {
		return m[1] + "/merge_requests/" + m[2], true
	}
	if m := githubPR.FindStringSubmatch(url); m != nil {
		return m[1] + "/pull/" + m[2], true
	}
	return "", false
}
