package website

import (
	"net/url"
	"sort"
	"strings"
)

// aggregatorDomains are encyclopedia mirrors, code hosts, download portals and
// alternative-app directories. Subdomains match too.
var aggregatorDomains = []string{
	"wikipedia.org",
	"github.com",
	"softonic.com",
	"filehippo.com",
	"softpedia.com",
	"uptodown.com",
	"cnet.com",
	"alternativeto.net",
	"sourceforge.net",
	"majorgeeks.com",
	"filehorse.com",
	"techspot.com",
}

var trustedSuffixes = []string{".com", ".org", ".net", ".io"}

// Score rates how likely candidate is the official site of appName.
func Score(appName string, c Candidate) int {
	name := strings.ToLower(strings.TrimSpace(appName))
	compact := strings.Join(strings.Fields(name), "")
	title := strings.ToLower(c.Title)
	link := strings.ToLower(c.URL)
	host := displayDomain(c.URL)

	score := 0
	if name != "" && strings.Contains(title, name) {
		score += 3
	}
	if compact != "" && (strings.Contains(link, compact) || strings.Contains(host, compact)) {
		score += 2
	}
	if strings.Contains(title, "official") || strings.Contains(link, "official") {
		score += 2
	}
	if strings.Contains(title, "download") || strings.Contains(link, "download") {
		score++
	}
	for _, suffix := range trustedSuffixes {
		if strings.HasSuffix(host, suffix) {
			score++
			break
		}
	}
	if isAggregator(host) {
		score -= 5
	}
	return score
}

// rankCandidates scores every candidate and sorts them best first, keeping page order on ties.
func rankCandidates(appName string, candidates []Candidate) []Candidate {
	ranked := make([]Candidate, len(candidates))
	for i, c := range candidates {
		c.Score = Score(appName, c)
		ranked[i] = c
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func pickBest(ranked []Candidate) (Candidate, bool) {
	if len(ranked) == 0 || ranked[0].Score <= acceptThreshold {
		return Candidate{}, false
	}
	return ranked[0], true
}

// displayDomain is the lowercase host of rawURL without a leading "www.".
func displayDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func isAggregator(host string) bool {
	for _, d := range aggregatorDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
