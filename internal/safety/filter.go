// Package safety rejects disallowed prompts before any paid model call is
// made. The filter is a fixed ordered rule list evaluated first-match-wins;
// it is pure, deterministic, and does no I/O.
package safety

import "regexp"

// Verdict is the result of a safety check.
type Verdict struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason,omitempty"`
}

type rule struct {
	pattern *regexp.Regexp
	reason  string
}

// Rules are ordered: the first matching rule supplies the rejection reason.
var rules = []rule{
	{
		pattern: regexp.MustCompile(`(?i)\b(malware|ransomware|keylogger|botnet|rootkit)\b|\b(ddos|denial.of.service)\s+(tool|attack|script)|\bexploit\b.*\b(vulnerability|cve|zero.day)|\b(vulnerability|cve|zero.day)\b.*\bexploit\b`),
		reason:  "requests for malware or exploit tooling are not allowed",
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(csam|child\s+(sexual|porn|abuse)|minors?\b.*\b(sexual|explicit)|sexual\b.*\bminors?)\b`),
		reason:  "content sexualizing minors is not allowed",
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(card(ing|er)|steal\w*\s+(credit\s+)?card|skimm(er|ing)|dump\s+cvv|cvv\s+(shop|dump)|clone\w*\s+(credit|debit)\s+card)\b`),
		reason:  "payment card theft tooling is not allowed",
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(dox+(ing|er)?|expose\s+(home\s+)?address(es)?\s+of|track\s+(someone|a\s+person)('s)?\s+(location|address|phone)|stalk(ing)?\s+(tool|app))\b`),
		reason:  "apps for doxxing or covert tracking of people are not allowed",
	},
}

// Check evaluates the prompt against the rule list. The first matching rule
// wins and provides the user-facing rejection reason.
func Check(text string) Verdict {
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			return Verdict{Safe: false, Reason: r.reason}
		}
	}
	return Verdict{Safe: true}
}
