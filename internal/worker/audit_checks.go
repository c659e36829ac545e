package worker

import (
	"regexp"
	"strings"

	"rankpilot/internal/models"
)

var (
	titleRe    = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaDescRe = regexp.MustCompile(`(?i)<meta[^>]+name=["']description["']`)
	noindexRe  = regexp.MustCompile(`(?i)<meta[^>]+content=["'][^"']*noindex`)
	h1Re       = regexp.MustCompile(`(?is)<h1[\s>]`)
	canonRe    = regexp.MustCompile(`(?i)<link[^>]+rel=["']canonical["']`)
	imgRe      = regexp.MustCompile(`(?i)<img[^>]*>`)
	altRe      = regexp.MustCompile(`(?i)\salt\s*=`)
	langRe     = regexp.MustCompile(`(?i)<html[^>]+lang\s*=`)
	viewportRe = regexp.MustCompile(`(?i)<meta[^>]+name=["']viewport["']`)
)

const maxTitleLen = 60

// inspectPage runs the on-page checks appropriate for the requested depth.
// quick covers the blockers; standard adds on-page hygiene; deep adds the
// long-tail checks.
func inspectPage(body, depth string) []models.AuditIssue {
	issues := []models.AuditIssue{}
	add := func(severity, code, message string) {
		issues = append(issues, models.AuditIssue{Severity: severity, Code: code, Message: message})
	}

	title := ""
	if m := titleRe.FindStringSubmatch(body); m != nil {
		title = strings.TrimSpace(m[1])
	}
	if title == "" {
		add(models.SeverityCritical, "missing_title", "page has no <title> element")
	}
	if noindexRe.MatchString(body) {
		add(models.SeverityCritical, "noindex", "page is marked noindex and will not be indexed")
	}
	if !metaDescRe.MatchString(body) {
		add(models.SeverityWarning, "missing_meta_description", "page has no meta description")
	}
	h1Count := len(h1Re.FindAllString(body, -1))
	if h1Count == 0 {
		add(models.SeverityWarning, "missing_h1", "page has no <h1> heading")
	}

	if depth == models.DepthQuick {
		return issues
	}

	if len(title) > maxTitleLen {
		add(models.SeverityWarning, "title_too_long", "title exceeds 60 characters and may be truncated in results")
	}
	if h1Count > 1 {
		add(models.SeverityWarning, "multiple_h1", "page has more than one <h1> heading")
	}
	if !canonRe.MatchString(body) {
		add(models.SeverityWarning, "missing_canonical", "page has no canonical link")
	}
	if n := countImagesWithoutAlt(body); n > 0 {
		add(models.SeverityInfo, "images_missing_alt", "images without alt text found")
	}

	if depth != models.DepthDeep {
		return issues
	}

	if !langRe.MatchString(body) {
		add(models.SeverityInfo, "missing_lang", "<html> element has no lang attribute")
	}
	if !viewportRe.MatchString(body) {
		add(models.SeverityInfo, "missing_viewport", "page has no viewport meta tag")
	}
	if len(body) > 1<<20 {
		add(models.SeverityInfo, "heavy_page", "page HTML exceeds 1 MB")
	}
	return issues
}

func countImagesWithoutAlt(body string) int {
	n := 0
	for _, img := range imgRe.FindAllString(body, -1) {
		if !altRe.MatchString(img) {
			n++
		}
	}
	return n
}
