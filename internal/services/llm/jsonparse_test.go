package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/riskpulse/internal/models"
)

func TestParsePhrases(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []models.PhraseWeight
	}{
		{
			name:  "strict json",
			input: `{"bigrams":[{"bigram":"tariff hike","weight":150},{"bigram":"trade war","weight":120}]}`,
			expected: []models.PhraseWeight{
				{Phrase: "tariff hike", Weight: 150},
				{Phrase: "trade war", Weight: 120},
			},
		},
		{
			name:     "code fence and prose",
			input:    "Here you go:\n```json\n{\"bigrams\": [{\"bigram\": \"export ban\", \"weight\": 90}]}\n```\nGood luck!",
			expected: []models.PhraseWeight{{Phrase: "export ban", Weight: 90}},
		},
		{
			name:     "quoted weight",
			input:    `{"bigrams":[{"bigram":"asset seizure","weight":"175"}]}`,
			expected: []models.PhraseWeight{{Phrase: "asset seizure", Weight: 175}},
		},
		{
			name:     "missing bigrams key",
			input:    `{"phrases":[]}`,
			expected: []models.PhraseWeight{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phrases, err := ParsePhrases(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, phrases)
		})
	}
}

func TestParsePhrases_Unparseable(t *testing.T) {
	inputs := []string{
		"",
		"I cannot help with that.",
		"} backwards {",
		`{"bigrams":[{"bigram":"x","weight":"heavy"}]}`,
		`{"bigrams":[{"bigram":"tariff hike","weight":150},{"phrase":"trade war","weight":120}]}`,
		`{"bigrams":[{"bigram":"tariff hike"}]}`,
		`{"bigrams":[{"bigram":null,"weight":100}]}`,
	}

	for _, input := range inputs {
		_, err := ParsePhrases(input)
		require.Error(t, err, input)
		assert.True(t, errors.Is(err, ErrUnparseableResponse), input)
	}
}
