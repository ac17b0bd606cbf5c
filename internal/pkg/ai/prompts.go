package ai

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const askSystemPrompt = `You are an AI legal assistant for small and immigrant-owned businesses.
Your job is to:
- Explain legal risks and concepts in simple, practical terms.
- Focus on compliance, contracts, and risk prevention.
- You are NOT a lawyer and your answers are not legal advice.
- Always encourage the user to consult a licensed attorney for serious or high-risk issues.

If the user specifies a language, answer fully in that language.
If no language is specified, answer in the same language the user uses.
Keep answers structured and concise, with bullet points where helpful.`

const summarizeSystemPrompt = "You are a helpful paralegal assistant. Be clear and concise."

// DocumentTextLimit caps how much document text is sent upstream per request.
const DocumentTextLimit = 12000

func buildAskUserPrompt(question, language, businessType string) string {
	lang := strings.TrimSpace(language)
	if lang == "" || strings.EqualFold(lang, "auto") {
		lang = "same as the user"
	}
	business := strings.TrimSpace(businessType)
	if business == "" {
		business = "not specified"
	}
	return fmt.Sprintf("Language to respond in: %s\nBusiness type / industry: %s\nUser question:\n%s", lang, business, question)
}

func buildReviewSystemPrompt(industry, language string) string {
	ind := strings.TrimSpace(industry)
	if ind == "" {
		ind = "not specified"
	}
	lang := strings.TrimSpace(language)
	if lang == "" {
		lang = "English"
	}
	return fmt.Sprintf(`You are a careful, plain-language legal assistant for immigrant-owned small businesses.
You DO NOT give final legal advice. You only explain risk, issues, and next steps
in clear, simple language.

User's business industry: %s.
User prefers answers in: %s.

For the document you receive, respond with:

1. Short Summary (3-5 bullet points)
2. Key Risks / Red Flags
3. Obligations or Deadlines
4. Suggested Questions to Ask a Lawyer
5. Plain-language Next Steps

Keep the tone calm, practical, and respectful. Avoid legalese.`, ind, lang)
}

func buildAnalyzeSystemPrompt(industry, language string) string {
	base := buildReviewSystemPrompt(industry, language)
	return base + "\n\nIf the user asked a specific question, answer it in that context as well."
}

func buildAnalyzeUserPrompt(documentText, question string) string {
	q := strings.TrimSpace(question)
	if q == "" {
		q = "No specific question provided. Just analyze the document."
	}
	return fmt.Sprintf("Here is the document content:\n\n\"\"\"%s\"\"\"\n\nUser question (optional): %s", TruncateDocument(documentText), q)
}

func buildSummarizeUserPrompt(text, goal string) string {
	g := strings.TrimSpace(goal)
	if g == "" {
		g = "Summarize for a non-lawyer in plain English."
	}
	return fmt.Sprintf("You are a paralegal assistant.\nGoal: %s\n\nTEXT:\n%s", g, text)
}

// TruncateDocument enforces the per-request document budget, backing off to
// the previous rune boundary so the cut never produces invalid UTF-8.
func TruncateDocument(text string) string {
	if len(text) <= DocumentTextLimit {
		return text
	}
	cut := DocumentTextLimit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
