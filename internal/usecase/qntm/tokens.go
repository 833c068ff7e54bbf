package qntm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	tokenizerOnce sync.Once
	tokenizer     *tiktoken.Tiktoken
)

// estimateTokens counts prompt tokens with the cl100k_base encoding.
// The encoding file may need a one-time download; when it is not
// available the byte-length heuristic (~4 bytes per token) is used so
// the estimate never blocks generation.
func estimateTokens(text string) int {
	tokenizerOnce.Do(func() {
		if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
			tokenizer = enc
		}
	})
	if tokenizer == nil {
		return len(text) / 4
	}
	return len(tokenizer.Encode(text, nil, nil))
}
