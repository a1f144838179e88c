package gemini

import (
	"context"
	"errors"
	"testing"

	"london-hotel-monitor-bot/internal/core/domain/conversation"
	"london-hotel-monitor-bot/internal/core/domain/hotels"
	"london-hotel-monitor-bot/internal/infrastructure/config"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	reply   string
	err     error
	history []conversation.Turn
	prompt  string
}

func (f *fakeModel) generate(_ context.Context, history []conversation.Turn, prompt string) (string, error) {
	f.history = history
	f.prompt = prompt
	return f.reply, f.err
}

func TestAssistant_Chat(t *testing.T) {
	chat := &fakeModel{reply: "Try Soho for nightlife."}
	a := newWithModels(chat, &fakeModel{}, &fakeModel{})

	history := []conversation.Turn{
		{Role: conversation.RoleUser, Content: "hi"},
		{Role: conversation.RoleAssistant, Content: "hello"},
	}
	got := a.Chat(context.Background(), "where to go out?", history)

	assert.Equal(t, "Try Soho for nightlife.", got)
	assert.Equal(t, "where to go out?", chat.prompt)
	assert.Equal(t, history, chat.history)
}

func TestAssistant_FailuresReturnApologies(t *testing.T) {
	broken := &fakeModel{err: errors.New("quota exceeded")}
	a := newWithModels(broken, broken, broken)
	ctx := context.Background()

	assert.Equal(t, ChatApology, a.Chat(ctx, "hi", nil))
	assert.Equal(t, AnalyzeApology, a.AnalyzeOffer(ctx, hotels.Offer{Name: "X"}))
	assert.Equal(t, SuggestApology, a.SuggestAreas(ctx, "museums"))

	assert.True(t, a.IsApology(ChatApology))
	assert.True(t, a.IsApology(AnalyzeApology))
	assert.False(t, a.IsApology("Soho is great"))
}

func TestAssistant_Prompts(t *testing.T) {
	analyze := &fakeModel{reply: "Good value."}
	suggest := &fakeModel{reply: "Camden, Soho, Greenwich"}
	a := newWithModels(&fakeModel{}, analyze, suggest)
	ctx := context.Background()

	verdict := a.AnalyzeOffer(ctx, hotels.Offer{Name: "Park Plaza", TotalPrice: 300, Currency: "GBP", Rating: 8, Stars: 4})
	assert.Equal(t, "Good value.", verdict)
	assert.Nil(t, analyze.history)
	assert.Contains(t, analyze.prompt, "Hotel: Park Plaza")
	assert.Contains(t, analyze.prompt, "Location: London")
	assert.Contains(t, analyze.prompt, "£300.00")
	assert.Contains(t, analyze.prompt, "8.0/10")

	a.SuggestAreas(ctx, "  ")
	assert.Contains(t, suggest.prompt, "general sightseeing")
	a.SuggestAreas(ctx, "street food")
	assert.Contains(t, suggest.prompt, "street food")
	assert.Contains(t, suggest.prompt, "3 London areas")
}

func TestToContents(t *testing.T) {
	assert.Nil(t, toContents(nil))

	got := toContents([]conversation.Turn{
		{Role: conversation.RoleUser, Content: "a"},
		{Role: conversation.RoleAssistant, Content: "b"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "user", got[0].Role)
	assert.Equal(t, "model", got[1].Role)
	assert.Equal(t, []genai.Part{genai.Text("b")}, got[1].Parts)
}

func TestResponseText(t *testing.T) {
	_, err := responseText(nil)
	assert.ErrorIs(t, err, errEmptyResponse)

	_, err = responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}})
	assert.ErrorIs(t, err, errEmptyResponse)

	text, err := responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("Stay in "), genai.Text("Soho. ")}},
	}}})
	require.NoError(t, err)
	assert.Equal(t, "Stay in Soho.", text)
}

func TestNewAssistant_RequiresKey(t *testing.T) {
	_, err := NewAssistant(context.Background(), config.AIConfig{})
	assert.Error(t, err)
}
