package document

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// TiktokenCounter counts tokens with the encoding of the model the text will
// be sent to.
type TiktokenCounter struct {
	codec tokenizer.Codec
}

// NewTiktokenCounter builds a counter for model. Unknown models fall back to
// the cl100k_base encoding rather than failing.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.Model(model))
	if err != nil {
		codec, err = tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			return nil, fmt.Errorf("load tokenizer encoding: %w", err)
		}
	}
	return &TiktokenCounter{codec: codec}, nil
}

func (c *TiktokenCounter) Count(text string) (int, error) {
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("encode text: %w", err)
	}
	return len(ids), nil
}
