package ai

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bizguard/bizguard/internal/pkg/env"
)

// ErrMissingAPIKey signals that no upstream API key is configured.
var ErrMissingAPIKey = errors.New("missing OPENAI_API_KEY on the server")

const (
	askModel      = "gpt-4.1-mini"
	documentModel = openai.GPT4oMini
	speechModel   = openai.SpeechModel("gpt-4o-mini-tts")
)

// Client wraps the upstream AI API for legal Q&A, document analysis, speech
// synthesis and transcription. Stateless, safe for concurrent use.
type Client struct {
	api *openai.Client
}

// NewClient builds a client from OPENAI_API_KEY. A missing key does not fail
// construction; every call reports ErrMissingAPIKey instead so the server
// still boots without credentials.
func NewClient() *Client {
	key := strings.TrimSpace(env.GetEnv("OPENAI_API_KEY", ""))
	if key == "" {
		return &Client{}
	}
	return &Client{api: openai.NewClient(key)}
}

func (c *Client) ready() error {
	if c.api == nil {
		return ErrMissingAPIKey
	}
	return nil
}

func (c *Client) chat(ctx context.Context, model string, messages []openai.ChatCompletionMessage) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response generated")
	}
	return resp.Choices[0].Message.Content, nil
}

// Ask answers a free-form legal question in plain language.
func (c *Client) Ask(ctx context.Context, question, language, businessType string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	return c.chat(ctx, askModel, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: askSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: buildAskUserPrompt(question, language, businessType)},
	})
}

// ReviewText analyzes a pasted document body.
func (c *Client) ReviewText(ctx context.Context, documentText, industry, language string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	userPrompt := "Here is the document content. Analyze it:\n\n\"\"\"" + TruncateDocument(documentText) + "\"\"\""
	return c.chat(ctx, documentModel, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: buildReviewSystemPrompt(industry, language)},
		{Role: openai.ChatMessageRoleUser, Content: userPrompt},
	})
}

// ReviewImage analyzes a photographed or scanned document passed as a data
// URL. OCR and legal analysis happen upstream in one call.
func (c *Client) ReviewImage(ctx context.Context, imageDataURL, industry, language string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	return c.chat(ctx, documentModel, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: buildReviewSystemPrompt(industry, language)},
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{
					Type: openai.ChatMessagePartTypeText,
					Text: "This image contains a legal or business document. Read all visible text and analyze the document as requested.",
				},
				{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: imageDataURL},
				},
			},
		},
	})
}

// AnalyzeDocument analyzes extracted document text along with an optional
// user question.
func (c *Client) AnalyzeDocument(ctx context.Context, documentText, industry, language, question string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	return c.chat(ctx, documentModel, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: buildAnalyzeSystemPrompt(industry, language)},
		{Role: openai.ChatMessageRoleUser, Content: buildAnalyzeUserPrompt(documentText, question)},
	})
}

// Summarize condenses text toward a stated goal.
func (c *Client) Summarize(ctx context.Context, text, goal string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	return c.chat(ctx, documentModel, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: summarizeSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: buildSummarizeUserPrompt(text, goal)},
	})
}

// Speak synthesizes cleaned text into MP3 audio. The TTS model handles
// multilingual input directly, so no language hint is forwarded.
func (c *Client) Speak(ctx context.Context, text string) ([]byte, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: speechModel,
		Voice: openai.VoiceAlloy,
		Input: text,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	return io.ReadAll(resp)
}

// Transcribe runs speech-to-text over an uploaded audio file.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: filename,
		Reader:   audio,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

var (
	ttsMarkdownRe  = regexp.MustCompile(`[*•#>\-]+`)
	ttsInlineRe    = regexp.MustCompile("[`_]")
	ttsParagraphRe = regexp.MustCompile(`\n{2,}`)
	ttsSpaceRe     = regexp.MustCompile(`\s+`)
)

// CleanTextForTTS strips markdown decoration before synthesis so bullet
// markers and emphasis characters are not read aloud.
func CleanTextForTTS(text string) string {
	cleaned := ttsMarkdownRe.ReplaceAllString(text, " ")
	cleaned = ttsInlineRe.ReplaceAllString(cleaned, "")
	cleaned = ttsParagraphRe.ReplaceAllString(cleaned, ". ")
	cleaned = strings.ReplaceAll(cleaned, "\n", " ")
	cleaned = ttsSpaceRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
