package extraction

import (
	"regexp"
	"strings"
)

var referencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:GCC|General Conditions of Contract)\b`),
	regexp.MustCompile(`(?i)\b(?:SCC|Special Conditions of Contract)\b`),
	regexp.MustCompile(`(?i)\b(?:PCC|Particular Conditions of Contract)\b`),
	regexp.MustCompile(`(?i)\bSafety Manuals?\b`),
	regexp.MustCompile(`(?i)\bTechnical Specifications?\b`),
}

// ReferencedDocuments 识别正文中引用的合同附属文件，每类取首次出现的写法，去重后按规则顺序返回。
func ReferencedDocuments(text string) []string {
	found := make([]string, 0, len(referencePatterns))
	seen := make(map[string]struct{})
	for _, p := range referencePatterns {
		m := p.FindString(text)
		if m == "" {
			continue
		}
		key := strings.ToLower(m)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		found = append(found, m)
	}
	return found
}
