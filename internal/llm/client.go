package llm

import (
	"context"

	"github.com/agenthands/shelfcheck/internal/core/model"
)

// Judge sends one composed comparison payload to a vision model and returns
// its raw text. Implementations make a single blocking call: no retries and
// no client-side timeout beyond what ctx carries.
type Judge interface {
	Invoke(ctx context.Context, payload model.InvocationPayload) (model.JudgeResponse, error)
}
