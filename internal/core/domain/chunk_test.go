package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContentType(t *testing.T) {
	tests := []struct {
		in      string
		want    ContentType
		wantErr bool
	}{
		{"", "", false},
		{"text", ContentText, false},
		{"image", ContentImage, false},
		{"video", "", true},
		{"TEXT", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseContentType(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContentType_IsValid(t *testing.T) {
	assert.True(t, ContentText.IsValid())
	assert.True(t, ContentImage.IsValid())
	assert.False(t, ContentType("").IsValid())
}

func TestBlockKind_IsText(t *testing.T) {
	assert.True(t, BlockParagraph.IsText())
	assert.True(t, BlockList.IsText())
	assert.True(t, BlockAPIOperation.IsText())
	assert.False(t, BlockHeading.IsText())
	assert.False(t, BlockImageRef.IsText())
	assert.False(t, BlockKind("table").IsValid())
}

func TestChunk_IsImage(t *testing.T) {
	img := Chunk{ContentType: ContentImage}
	txt := Chunk{ContentType: ContentText}

	assert.True(t, img.IsImage())
	assert.False(t, txt.IsImage())
}

func TestNormalisedDocument_Degraded(t *testing.T) {
	doc := &NormalisedDocument{}
	assert.False(t, doc.Degraded())

	doc.SkippedFragments = 2
	assert.True(t, doc.Degraded())
}
