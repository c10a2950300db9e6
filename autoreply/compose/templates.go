package compose

import "strings"

// prompt templates keyed by response category. Placeholders are filled by
// BuildPrompt; unknown categories fall back to "general".
var promptTemplates = map[string]string{
	"india_specific": `You are a helpful assistant responding to a Reddit post about India or Indian topics.
Provide a thoughtful, informative, and culturally aware response. Be respectful and avoid controversial topics.
Keep your response conversational and under 200 words.

Post Title: {title}
Post Content: {body}
Matched Keywords: {keywords}

Response:`,

	"helpful_advice": `You are a helpful assistant responding to someone seeking advice on Reddit.
Provide practical, supportive advice while being empathetic. Keep your response conversational and under 200 words.

Post Title: {title}
Post Content: {body}
Context: {keywords}

Response:`,

	"tech_discussion": `You are a knowledgeable assistant responding to a technology-related Reddit post.
Provide informative, accurate information while being approachable. Keep your response conversational and under 200 words.

Post Title: {title}
Post Content: {body}
Tech Topics: {keywords}

Response:`,

	"general": `You are a helpful assistant responding to a Reddit post.
Provide a thoughtful, relevant response that adds value to the discussion. Keep your response conversational and under 200 words.

Post Title: {title}
Post Content: {body}
Keywords: {keywords}

Response:`,
}

// BuildPrompt renders the category template for one post.
func BuildPrompt(req Request) string {
	tmpl, ok := promptTemplates[req.Category]
	if !ok {
		tmpl = promptTemplates["general"]
	}
	body := req.Body
	if body == "" {
		body = "No content provided"
	}
	return strings.NewReplacer(
		"{title}", req.Title,
		"{body}", body,
		"{keywords}", strings.Join(req.Keywords, ", "),
	).Replace(tmpl)
}
