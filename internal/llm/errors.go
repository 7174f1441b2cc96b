package llm

import (
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/deskwise/intake/internal/retry"
)

// Transient classifies provider errors for the retry wrapper: rate limits
// and server-side failures retry, everything else (auth, bad request,
// missing credentials) propagates.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retriableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retriableStatus(reqErr.HTTPStatusCode)
	}
	return retry.DefaultClassify(err)
}

func retriableStatus(status int) bool {
	return status == 429 || status >= 500
}
