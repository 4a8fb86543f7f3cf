package llm

import _ "embed"

var (
	//go:embed prompts/router_v1.txt
	routerV1 string
	//go:embed prompts/synthesizer_v1.txt
	synthesizerV1 string
)

// RouterPrompt returns the router system prompt for the given version and
// whether the version was recognized. Unknown versions fall back to v1.
func RouterPrompt(version string) (string, bool) {
	switch version {
	case "v1":
		return routerV1, true
	default:
		return routerV1, false
	}
}

// SynthesizerPrompt returns the synthesizer system prompt for the given
// version and whether the version was recognized. Unknown versions fall
// back to v1.
func SynthesizerPrompt(version string) (string, bool) {
	switch version {
	case "v1":
		return synthesizerV1, true
	default:
		return synthesizerV1, false
	}
}
