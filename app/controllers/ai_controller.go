package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bizguard/bizguard/internal/pkg/ai"
	"github.com/bizguard/bizguard/internal/pkg/env"
	"github.com/bizguard/bizguard/internal/pkg/metrics/counter"
	"github.com/bizguard/bizguard/internal/pkg/usercontext"
)

const aiRequestTimeout = 60 * time.Second

func aiClient() *ai.Client {
	return ai.NewClient()
}

// countAIRequest records usage for logged-in users. Best effort: a Redis
// hiccup must not fail the request that already succeeded.
func countAIRequest(c *fiber.Ctx) {
	if userCtx := usercontext.GetUserContext(c); userCtx.IsLoggedIn {
		_ = counter.AddAIRequest(userCtx.UserID)
	}
}

// aiError maps upstream failures onto the JSON error contract. The upstream
// message is passed through so the client can show something actionable.
func aiError(c *fiber.Ctx, err error) error {
	if errors.Is(err, ai.ErrMissingAPIKey) {
		return jsonError(c, fiber.StatusInternalServerError, "Missing OPENAI_API_KEY on the server.")
	}
	return jsonError(c, fiber.StatusInternalServerError, err.Error())
}

type askRequest struct {
	Question     string `json:"question"`
	Language     string `json:"language"`
	BusinessType string `json:"businessType"`
}

// HandleLegalAsk answers a free-form legal question.
func HandleLegalAsk(c *fiber.Ctx) error {
	var req askRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Missing question.")
	}
	if strings.TrimSpace(req.Question) == "" {
		return jsonError(c, fiber.StatusBadRequest, "Missing question.")
	}

	ctx, cancel := context.WithTimeout(c.Context(), aiRequestTimeout)
	defer cancel()

	answer, err := aiClient().Ask(ctx, strings.TrimSpace(req.Question), req.Language, req.BusinessType)
	if err != nil {
		return aiError(c, err)
	}
	countAIRequest(c)
	return c.JSON(fiber.Map{"answer": answer})
}

type reviewRequest struct {
	DocumentText string `json:"documentText"`
	ImageBase64  string `json:"imageBase64"`
	Industry     string `json:"industry"`
	Language     string `json:"language"`
}

// HandleLegalReview analyzes a pasted document or a photographed one.
func HandleLegalReview(c *fiber.Ctx) error {
	var req reviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "No document text or image provided."})
	}
	if req.DocumentText == "" && req.ImageBase64 == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "No document text or image provided."})
	}

	ctx, cancel := context.WithTimeout(c.Context(), aiRequestTimeout)
	defer cancel()

	client := aiClient()
	var analysis string
	var err error
	if req.ImageBase64 != "" {
		analysis, err = client.ReviewImage(ctx, req.ImageBase64, req.Industry, req.Language)
	} else {
		analysis, err = client.ReviewText(ctx, req.DocumentText, req.Industry, req.Language)
	}
	if err != nil {
		if errors.Is(err, ai.ErrMissingAPIKey) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "Missing OPENAI_API_KEY on the server."})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}
	countAIRequest(c)
	return c.JSON(fiber.Map{"ok": true, "analysis": analysis})
}

// HandleAnalyzeDocument accepts an uploaded file, extracts its text and runs
// the document analysis over it.
func HandleAnalyzeDocument(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "No file uploaded."})
	}
	industry := c.FormValue("industry")
	language := c.FormValue("language")
	question := c.FormValue("question")

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "Failed to read uploaded file."})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "Failed to read uploaded file."})
	}

	extracted, err := ai.ExtractDocumentText(fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data)
	if err != nil || strings.TrimSpace(extracted) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok":    false,
			"error": "I couldn't read any text from this file. Please try a different format (PDF or text).",
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), aiRequestTimeout)
	defer cancel()

	analysis, err := aiClient().AnalyzeDocument(ctx, extracted, industry, language, question)
	if err != nil {
		if errors.Is(err, ai.ErrMissingAPIKey) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "Missing OPENAI_API_KEY on the server."})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}
	countAIRequest(c)
	return c.JSON(fiber.Map{"ok": true, "analysis": analysis})
}

type summarizeRequest struct {
	Text string `json:"text"`
	Goal string `json:"goal"`
}

var demoSummary = strings.Join([]string{
	"Plain-English summary:",
	"• This appears to be a notice to vacate (move-out notice) from a landlord.",
	"• It usually means: pay what's owed or leave by the listed date.",
	"• If you stay beyond that date, the landlord can file an eviction case.",
	"• Next steps: check the deadline, the reason given, and your state's rules; consider replying in writing or seeking local legal aid.",
}, "\n")

// HandleAISummarize condenses text toward a stated goal. In demo mode a
// canned summary comes back without calling upstream.
func HandleAISummarize(c *fiber.Ctx) error {
	var req summarizeRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "text required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return jsonError(c, fiber.StatusBadRequest, "text required")
	}

	if env.IsDemoMode() {
		countAIRequest(c)
		return c.JSON(fiber.Map{"result": demoSummary})
	}

	ctx, cancel := context.WithTimeout(c.Context(), aiRequestTimeout)
	defer cancel()

	result, err := aiClient().Summarize(ctx, req.Text, req.Goal)
	if err != nil {
		return aiError(c, err)
	}
	countAIRequest(c)
	return c.JSON(fiber.Map{"result": result})
}

type ttsRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// HandleTTS synthesizes speech from text and streams back MP3 bytes. The
// language field is accepted but unused; the TTS model is multilingual.
func HandleTTS(c *fiber.Ctx) error {
	var req ttsRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Missing 'text' in request body.")
	}
	if req.Text == "" {
		return jsonError(c, fiber.StatusBadRequest, "Missing 'text' in request body.")
	}

	cleaned := ai.CleanTextForTTS(req.Text)
	if cleaned == "" {
		return jsonError(c, fiber.StatusBadRequest, "Text is empty after cleaning.")
	}

	ctx, cancel := context.WithTimeout(c.Context(), aiRequestTimeout)
	defer cancel()

	audio, err := aiClient().Speak(ctx, cleaned)
	if err != nil {
		return aiError(c, err)
	}

	c.Set(fiber.HeaderContentType, "audio/mpeg")
	c.Set(fiber.HeaderContentLength, fmt.Sprintf("%d", len(audio)))
	c.Set(fiber.HeaderCacheControl, "no-store")
	countAIRequest(c)
	return c.Send(audio)
}

// HandleVoiceTranscribe runs speech-to-text over an uploaded audio file.
func HandleVoiceTranscribe(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "No audio file provided")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "Failed to read uploaded file.")
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(c.Context(), aiRequestTimeout)
	defer cancel()

	text, err := aiClient().Transcribe(ctx, fileHeader.Filename, file)
	if err != nil {
		return aiError(c, err)
	}
	countAIRequest(c)
	return c.JSON(fiber.Map{"text": text})
}
