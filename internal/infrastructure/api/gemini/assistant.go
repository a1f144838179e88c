// internal/infrastructure/api/gemini/assistant.go
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"london-hotel-monitor-bot/internal/core/domain/conversation"
	"london-hotel-monitor-bot/internal/core/domain/hotels"
	"london-hotel-monitor-bot/internal/infrastructure/config"
	"london-hotel-monitor-bot/pkg/logger"
	"london-hotel-monitor-bot/pkg/utils"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	DefaultModel = "gemini-1.5-flash"

	chatMaxTokens    = 1024
	analyzeMaxTokens = 256
	suggestMaxTokens = 512
)

// Тексты, которые пользователь видит при сбое модели
const (
	ChatApology    = "I'm having trouble answering right now. Please try again later."
	AnalyzeApology = "Unable to analyze this offer at the moment."
	SuggestApology = "Unable to suggest areas at the moment."
)

const systemPrompt = `You are the assistant of a Telegram bot that watches London hotel prices.
You can help people to:
- compare London areas such as Westminster, Camden or Kensington;
- understand how hotel prices move and when to book;
- set up price alerts with /alert and search with /search;
- pick an area that suits their plans.
Keep answers short and friendly. Prices are in GBP (£). Never ask for personal or payment data.`

var errEmptyResponse = errors.New("empty response from model")

// textModel одна генерация с историей
type textModel interface {
	generate(ctx context.Context, history []conversation.Turn, prompt string) (string, error)
}

// Assistant AI ассистент поверх Gemini
type Assistant struct {
	client  *genai.Client
	chat    textModel
	analyze textModel
	suggest textModel
}

// NewAssistant создает клиента Gemini
func NewAssistant(ctx context.Context, cfg config.AIConfig) (*Assistant, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	name := cfg.Model
	if name == "" {
		name = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	chat := client.GenerativeModel(name)
	chat.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	chat.SetMaxOutputTokens(chatMaxTokens)

	analyze := client.GenerativeModel(name)
	analyze.SetMaxOutputTokens(analyzeMaxTokens)

	suggest := client.GenerativeModel(name)
	suggest.SetMaxOutputTokens(suggestMaxTokens)

	logger.Info("🤖 [Gemini] Assistant ready, model %s", name)
	return &Assistant{
		client:  client,
		chat:    &genaiModel{model: chat},
		analyze: &genaiModel{model: analyze},
		suggest: &genaiModel{model: suggest},
	}, nil
}

func newWithModels(chat, analyze, suggest textModel) *Assistant {
	return &Assistant{chat: chat, analyze: analyze, suggest: suggest}
}

// Close закрывает клиента
func (a *Assistant) Close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}

// Chat отвечает на сообщение с учетом истории диалога
func (a *Assistant) Chat(ctx context.Context, message string, history []conversation.Turn) string {
	text, err := a.chat.generate(ctx, history, message)
	if err != nil {
		logger.Error("❌ [Gemini] Chat: %v", err)
		return ChatApology
	}
	return text
}

// AnalyzeOffer короткая оценка предложения
func (a *Assistant) AnalyzeOffer(ctx context.Context, offer hotels.Offer) string {
	text, err := a.analyze.generate(ctx, nil, analyzePrompt(offer))
	if err != nil {
		logger.Error("❌ [Gemini] AnalyzeOffer %q: %v", offer.Name, err)
		return AnalyzeApology
	}
	return text
}

// SuggestAreas предлагает три района под интересы пользователя
func (a *Assistant) SuggestAreas(ctx context.Context, interests string) string {
	text, err := a.suggest.generate(ctx, nil, suggestPrompt(interests))
	if err != nil {
		logger.Error("❌ [Gemini] SuggestAreas: %v", err)
		return SuggestApology
	}
	return text
}

// IsApology показывает, что ответ является заглушкой после сбоя
func (a *Assistant) IsApology(text string) bool {
	switch text {
	case ChatApology, AnalyzeApology, SuggestApology:
		return true
	}
	return false
}

func analyzePrompt(o hotels.Offer) string {
	location := o.Location
	if location == "" {
		location = "London"
	}
	return fmt.Sprintf(`Give a short verdict (two or three sentences) on this London hotel offer.

Hotel: %s
Location: %s
Total price: %s
Guest rating: %.1f/10
Stars: %d

Is it good value, and should the traveller book now or wait?`,
		o.Name, location, utils.FormatMoney(o.TotalPrice, o.Currency), o.Rating, o.Stars)
}

func suggestPrompt(interests string) string {
	interests = strings.TrimSpace(interests)
	if interests == "" {
		interests = "general sightseeing"
	}
	return fmt.Sprintf(`Someone is choosing where to stay in London. Their interests: %s

Name 3 London areas worth considering, one sentence each on why it fits.`, interests)
}

// GENAI MODEL
// ============================================

type genaiModel struct {
	model *genai.GenerativeModel
}

func (g *genaiModel) generate(ctx context.Context, history []conversation.Turn, prompt string) (string, error) {
	session := g.model.StartChat()
	session.History = toContents(history)

	resp, err := session.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

// toContents переводит историю в формат Gemini: assistant -> model
func toContents(history []conversation.Turn) []*genai.Content {
	if len(history) == 0 {
		return nil
	}
	out := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		role := "user"
		if turn.Role == conversation.RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(turn.Content)}})
	}
	return out
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errEmptyResponse
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}
