package data

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
)

func TestGenerationFromResponse_Grounding(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "Київ є столицею"},
				{Text: " України."},
			}},
			GroundingMetadata: &genai.GroundingMetadata{
				GroundingChunks: []*genai.GroundingChunk{
					{Web: &genai.GroundingChunkWeb{Title: "Kyiv - Wikipedia", URI: "https://en.wikipedia.org/wiki/Kyiv"}},
					{Web: &genai.GroundingChunkWeb{Title: "no uri"}},
					{},
					{Web: &genai.GroundingChunkWeb{URI: "https://kyivcity.gov.ua"}},
				},
				WebSearchQueries: []string{"столиця України"},
			},
		}},
	}

	want := &domain.Generation{
		Text: "Київ є столицею України.",
		Sources: []domain.Source{
			{Title: "Kyiv - Wikipedia", URI: "https://en.wikipedia.org/wiki/Kyiv"},
			{URI: "https://kyivcity.gov.ua"},
		},
		SearchQueries: []string{"столиця України"},
	}
	if diff := cmp.Diff(want, generationFromResponse(resp)); diff != "" {
		t.Errorf("generation mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerationFromResponse_Empty(t *testing.T) {
	assert.Equal(t, &domain.Generation{}, generationFromResponse(nil))
	assert.Equal(t, &domain.Generation{}, generationFromResponse(&genai.GenerateContentResponse{}))
	assert.Equal(t, &domain.Generation{}, generationFromResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{}},
	}))
}

func TestImagesFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "Ось ваш кіт"},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte{1, 2, 3}}},
				{InlineData: &genai.Blob{MIMEType: "text/plain", Data: []byte("x")}},
				{InlineData: &genai.Blob{MIMEType: "image/png"}},
			}},
		}},
	}

	gen := imagesFromResponse(resp)
	assert.Equal(t, "Ось ваш кіт", gen.Text)
	require.Len(t, gen.Images, 1)
	assert.Equal(t, []byte{1, 2, 3}, gen.Images[0])
}

func TestToContents(t *testing.T) {
	contents := toContents([]domain.Part{
		domain.TextPart("prompt"),
		{Data: []byte{9}, MIMEType: "image/jpeg"},
		{FileURI: "https://files/abc", MIMEType: "audio/ogg"},
	})
	require.Len(t, contents, 1)
	parts := contents[0].Parts
	require.Len(t, parts, 3)
	assert.Equal(t, "prompt", parts[0].Text)
	assert.Equal(t, "image/jpeg", parts[1].InlineData.MIMEType)
	assert.Equal(t, "https://files/abc", parts[2].FileData.FileURI)
	assert.Equal(t, "user", string(contents[0].Role))
}
