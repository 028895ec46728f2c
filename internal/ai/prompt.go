package ai

import (
	"fmt"
	"strings"
)

// systemPrompt is the fixed instruction sent with every request. The example object
// lists every section type the schema accepts.
const systemPrompt = `You turn documents into website page sections.

Read the document and produce between 3 and 12 sections that present its content as a landing page.
Use only these section types and fields:

- hero: heading, subheading, background_image (URL or ""), buttons (up to 3: text, url, style primary|secondary|outline)
- content: heading, body (simple HTML: p, strong, em, ul, ol, li, a), image (URL or ""), image_position (none|left|right)
- features: heading, subheading, columns (2|3|4), cards (up to 12: icon, title, description, link)
- faq: heading, items (up to 20: question, answer as simple HTML)
- stats: heading, stats (up to 8: value, label, suffix)
- testimonials: heading, testimonials (up to 10: quote, author, role, avatar)
- cta: heading, body, buttons (up to 2: text, url, style)

Rules:
- Start with one hero section. End with a cta section when the document invites any action.
- Use only facts found in the document. Do not invent statistics, quotes, names or URLs.
- Use testimonials only for real quotes and stats only for real figures.
- Leave image and URL fields as "" unless the document contains them; "#contact" is allowed for buttons.
- Write in the language of the document.
- Reply with a single JSON object and nothing else: no Markdown, no code fences, no commentary.

Reply format (one example of every type):
{"sections": [
{"type": "hero", "data": {"heading": "Short, compelling headline", "subheading": "One or two sentences expanding on the headline.", "background_image": "", "buttons": [{"text": "Get started", "url": "#contact", "style": "primary"}]}},
{"type": "content", "data": {"heading": "Section heading", "body": "<p>Paragraph text with <strong>emphasis</strong> where helpful.</p>", "image": "", "image_position": "none"}},
{"type": "features", "data": {"heading": "Why choose us", "subheading": "", "columns": "3", "cards": [{"icon": "star", "title": "Feature name", "description": "One or two sentences.", "link": ""}]}},
{"type": "faq", "data": {"heading": "Frequently asked questions", "items": [{"question": "A question a reader would ask?", "answer": "<p>A concise answer.</p>"}]}},
{"type": "stats", "data": {"heading": "By the numbers", "stats": [{"value": "250", "label": "Clients served", "suffix": "+"}]}},
{"type": "testimonials", "data": {"heading": "What people say", "testimonials": [{"quote": "Exact quote from the document.", "author": "Full name", "role": "Title, Company", "avatar": ""}]}},
{"type": "cta", "data": {"heading": "Ready to talk?", "body": "One sentence inviting the reader to act.", "buttons": [{"text": "Contact us", "url": "#contact", "style": "primary"}]}}
]}`

const userPromptTemplate = `Create page sections for the following document.

<document>
%s
</document>`

// BuildPrompt returns the system instruction and the user message for text.
func BuildPrompt(text string) (system, user string) {
	return systemPrompt, fmt.Sprintf(userPromptTemplate, strings.TrimSpace(text))
}
