package scraper

import (
	"regexp"
	"strings"
)

// BlockDetector recognizes bot walls and CAPTCHA interstitials so they are
// surfaced as transport failures instead of being parsed as product pages.
type BlockDetector struct {
	botPatterns     []*regexp.Regexp
	captchaPatterns []*regexp.Regexp
}

// NewBlockDetector creates a new block detector
func NewBlockDetector() *BlockDetector {
	return &BlockDetector{
		botPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)access denied`),
			regexp.MustCompile(`(?i)bot detected`),
			regexp.MustCompile(`(?i)automated access`),
			regexp.MustCompile(`(?i)security check`),
			regexp.MustCompile(`(?i)checking your browser`),
			regexp.MustCompile(`(?i)too many requests`),
			regexp.MustCompile(`(?i)ddos protection`),
			regexp.MustCompile(`(?i)unusual traffic`),
		},
		captchaPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)captcha`),
			regexp.MustCompile(`(?i)recaptcha`),
			regexp.MustCompile(`(?i)hcaptcha`),
			regexp.MustCompile(`(?i)verify you are (a )?human`),
			regexp.MustCompile(`(?i)enter the characters you see`),
		},
	}
}

// Detect reports whether the content looks like a block page and why.
func (bd *BlockDetector) Detect(pageContent string) (bool, string) {
	// Genuine product pages are large; bot walls rarely exceed a few KB.
	// Only short pages are checked so that product descriptions mentioning
	// these words do not trip the detector.
	if len(pageContent) > 20000 {
		return false, ""
	}

	content := strings.ToLower(pageContent)

	for _, pattern := range bd.captchaPatterns {
		if pattern.MatchString(content) {
			return true, "captcha challenge"
		}
	}

	for _, pattern := range bd.botPatterns {
		if pattern.MatchString(content) {
			return true, "bot wall"
		}
	}

	return false, ""
}
