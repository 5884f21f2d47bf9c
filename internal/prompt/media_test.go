package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataURI(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantMIME string
		wantData string
		wantOK   bool
	}{
		{
			name:     "base64 image",
			url:      "data:image/png;base64,iVBORw0KGgo=",
			wantMIME: "image/png",
			wantData: "iVBORw0KGgo=",
			wantOK:   true,
		},
		{
			name:     "base64 audio",
			url:      "data:audio/mp3;base64,QUJD",
			wantMIME: "audio/mp3",
			wantData: "QUJD",
			wantOK:   true,
		},
		{
			name:   "plain https url",
			url:    "https://example.com/cat.png",
			wantOK: false,
		},
		{
			name:   "data uri without base64 marker",
			url:    "data:text/plain,hello",
			wantOK: false,
		},
		{
			name:   "data uri without comma",
			url:    "data:image/png;base64",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, data, ok := ParseDataURI(tt.url)

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantMIME, mime)
			assert.Equal(t, tt.wantData, data)
		})
	}
}

func TestEmbedInlineMedia(t *testing.T) {
	dataImage := "data:image/jpeg;base64,AAAA"
	dataAudio := "data:audio/wav;base64,BBBB"
	dataVideo := "data:video/mp4;base64,CCCC"

	messages := []Message{
		{Role: RoleUser, Content: PartsContent(
			TextPart("look"),
			ImagePart(dataImage),
			ImagePart("https://example.com/remote.png"),
			AudioPart(dataAudio),
			VideoPart(dataVideo),
		)},
	}

	t.Run("images only by default", func(t *testing.T) {
		result := EmbedInlineMedia(messages, MediaOptions{})

		parts := result[0].Content.Parts
		require.Len(t, parts, 5)

		assert.Equal(t, PartText, parts[0].Type)

		assert.Equal(t, PartInlineData, parts[1].Type)
		assert.Equal(t, "image/jpeg", parts[1].MIMEType)
		assert.Equal(t, "AAAA", parts[1].Data)

		// Remote URLs are left for the compiler to reference directly.
		assert.Equal(t, PartImage, parts[2].Type)

		assert.Equal(t, PartAudio, parts[3].Type)
		assert.Equal(t, PartVideo, parts[4].Type)
	})

	t.Run("audio and video opt in", func(t *testing.T) {
		result := EmbedInlineMedia(messages, MediaOptions{Audio: true, Video: true})

		parts := result[0].Content.Parts

		assert.Equal(t, PartInlineData, parts[3].Type)
		assert.Equal(t, "audio/wav", parts[3].MIMEType)
		assert.Equal(t, PartInlineData, parts[4].Type)
		assert.Equal(t, "video/mp4", parts[4].MIMEType)
	})

	t.Run("input untouched", func(t *testing.T) {
		EmbedInlineMedia(messages, MediaOptions{Audio: true, Video: true})

		assert.Equal(t, PartImage, messages[0].Content.Parts[1].Type)
		assert.Equal(t, dataImage, messages[0].Content.Parts[1].URL)
	})

	t.Run("flat text passes through", func(t *testing.T) {
		flat := []Message{{Role: RoleUser, Content: Text("no media")}}
		result := EmbedInlineMedia(flat, MediaOptions{})

		require.Len(t, result, 1)
		assert.Equal(t, "no media", result[0].Content.Text)
	})
}
