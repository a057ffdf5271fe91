package jobpost

import (
	"net/url"
	"strings"
)

// Platform is a job board whose page layout is known
type Platform string

const (
	PlatformGreenhouse Platform = "greenhouse"
	PlatformLever      Platform = "lever"
	PlatformWorkday    Platform = "workday"
	PlatformAshby      Platform = "ashby"
	PlatformGeneric    Platform = "generic"
)

type platformLayout struct {
	hosts   []string
	content []string
	noise   []string
}

var layouts = map[Platform]platformLayout{
	PlatformGreenhouse: {
		hosts:   []string{"greenhouse.io"},
		content: []string{".job__description.body", ".job__description", "#content", ".job-post-container"},
		noise:   []string{".application--wrapper", ".voluntary-self-id-wrapper", "#usa_self_id_section"},
	},
	PlatformLever: {
		hosts:   []string{"lever.co"},
		content: []string{".posting-page", ".posting-description", ".content"},
		noise:   []string{".posting-apply", ".apply-section"},
	},
	PlatformWorkday: {
		hosts:   []string{"myworkdayjobs.com", "workday.com"},
		content: []string{"[data-automation-id='jobPostingDescription']", "[data-automation-id='jobDescription']"},
		noise:   []string{"[data-automation-id='applyButton']"},
	},
	PlatformAshby: {
		hosts:   []string{"ashbyhq.com"},
		content: []string{"[class*='_descriptionText']", "main"},
	},
}

var genericContent = []string{
	".job-description", "#job-description", ".job-details", ".posting-content",
	"[data-testid='job-description']", "main", "article", "#content", ".content",
}

var commonNoise = []string{
	"form", ".application-form", "#application-form",
	".eeo-statement", ".voluntary-disclosure", ".self-identification",
	".social-share", ".share-buttons",
}

// DetectPlatform identifies the job board from the URL host
func DetectPlatform(u *url.URL) Platform {
	host := strings.ToLower(u.Hostname())
	for platform, layout := range layouts {
		for _, h := range layout.hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return platform
			}
		}
	}
	return PlatformGeneric
}

// contentSelectors lists description containers in priority order, ending
// with the generic ones.
func contentSelectors(platform Platform) []string {
	return append(append([]string{}, layouts[platform].content...), genericContent...)
}

func noiseSelectors(platform Platform) []string {
	return append(append([]string{}, commonNoise...), layouts[platform].noise...)
}
