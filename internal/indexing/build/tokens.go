package build

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/yungbote/docindex/internal/platform/logger"
)

const tokenEncoding = "cl100k_base"

type TokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c *tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// EstimateCounter approximates tokens as characters / 4, rounded up.
type EstimateCounter struct{}

func (EstimateCounter) Count(text string) int {
	return (len(text) + 3) / 4
}

// NewTokenCounter loads the cl100k_base encoding, falling back to
// EstimateCounter when it cannot be loaded.
func NewTokenCounter(log *logger.Logger) TokenCounter {
	enc, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		if log != nil {
			log.Warn("tiktoken encoding unavailable; estimating tokens from length", "encoding", tokenEncoding, "error", err)
		}
		return EstimateCounter{}
	}
	return &tiktokenCounter{enc: enc}
}
