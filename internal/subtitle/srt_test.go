package subtitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{65.25, "00:01:05,250"},
		{1.9999, "00:00:01,999"},
		{1.005, "00:00:01,005"},
		{3661.5, "01:01:01,500"},
		{-2, "00:00:00,000"},
		{30, "00:00:30,000"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimestamp(tt.seconds))
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	seconds, err := ParseTimestamp("00:01:05,250")
	require.NoError(t, err)
	assert.InDelta(t, 65.25, seconds, 1e-9)

	_, err = ParseTimestamp("00:61:05,250")
	assert.Error(t, err)

	_, err = ParseTimestamp("nonsense")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	captions := models.Captions{
		{Start: 0, End: 2.5, Text: "A voice rises"},
		{Start: 2.5, End: 65.25, Text: "  and the hall holds its breath "},
	}

	want := "1\n00:00:00,000 --> 00:00:02,500\nA voice rises\n\n" +
		"2\n00:00:02,500 --> 00:01:05,250\nand the hall holds its breath\n\n"

	assert.Equal(t, want, Render(captions))
}

func TestRenderIsIdempotent(t *testing.T) {
	captions := models.Captions{
		{Start: 0, End: 1.2345, Text: "one"},
		{Start: 1.2345, End: 7.8, Text: "two"},
	}
	assert.Equal(t, Render(captions), Render(captions))
}

func TestRenderEmpty(t *testing.T) {
	assert.Equal(t, "", Render(nil))
}

func TestRoundTrip(t *testing.T) {
	captions := models.Captions{
		{Start: 0, End: 4.5, Text: "Vissi d'arte"},
		{Start: 4.5, End: 65.25, Text: "vissi d'amore"},
	}

	parsed, err := Parse(Render(captions))
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	assert.InDelta(t, 65.25, parsed[1].End, 1e-9)
	assert.Equal(t, "Vissi d'arte", parsed[0].Text)
	assert.Equal(t, Render(captions), Render(parsed))
}

func TestParseMultiLineAndCRLF(t *testing.T) {
	content := "1\r\n00:00:01,000 --> 00:00:02,000\r\nfirst\r\nsecond\r\n\r\n2\r\n00:00:02,000 --> 00:00:03,000\r\nthird\r\n"

	parsed, err := Parse(content)
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	assert.Equal(t, "first\nsecond", parsed[0].Text)
	assert.Equal(t, "third", parsed[1].Text)
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := Parse("x\n00:00:01,000 --> 00:00:02,000\ntext\n")
	assert.Error(t, err)

	_, err = Parse("1\nnot a timing line\n")
	assert.Error(t, err)

	_, err = Parse("1\n")
	assert.Error(t, err)
}
