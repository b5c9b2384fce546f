package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ternarybob/riskpulse/internal/models"
)

// ErrUnparseableResponse is returned when no phrase JSON can be recovered from a completion
var ErrUnparseableResponse = errors.New("unparseable phrase response")

type phraseResponse struct {
	Bigrams []phraseItem `json:"bigrams"`
}

type phraseItem struct {
	Bigram *string     `json:"bigram"`
	Weight *flexWeight `json:"weight"`
}

// flexWeight accepts 150, 150.5 and "150"
type flexWeight float64

func (w *flexWeight) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("weight %q is not a number", s)
		}
		*w = flexWeight(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*w = flexWeight(f)
	return nil
}

// ParsePhrases decodes {"bigrams":[{"bigram":...,"weight":...}]} from a model completion.
// A strict parse is tried first, then the span from the first '{' to the last '}'
// which strips code fences and surrounding prose.
// An item without a "bigram" or "weight" key makes the whole response unparseable.
func ParsePhrases(text string) ([]models.PhraseWeight, error) {
	var resp phraseResponse
	strictErr := json.Unmarshal([]byte(strings.TrimSpace(text)), &resp)
	if strictErr != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("%w: no JSON object found", ErrUnparseableResponse)
		}
		resp = phraseResponse{}
		if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparseableResponse, err)
		}
	}

	phrases := make([]models.PhraseWeight, 0, len(resp.Bigrams))
	for i, item := range resp.Bigrams {
		if item.Bigram == nil || item.Weight == nil {
			return nil, fmt.Errorf("%w: item %d lacks bigram or weight", ErrUnparseableResponse, i)
		}
		phrases = append(phrases, models.PhraseWeight{
			Phrase: *item.Bigram,
			Weight: float64(*item.Weight),
		})
	}
	return phrases, nil
}
