// Package mock provides a test double for the [llm.Provider] interface.
//
// Use Provider in unit tests to verify the requests the correction pipeline
// sends and to feed controlled responses without a live LLM backend. All
// fields are safe to set before calling any method; mutating them during a
// concurrent call is the caller's responsibility.
package mock

import (
	"context"
	"sync"

	"github.com/nomadkaraoke/lyralign/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Provider is a configurable [llm.Provider] test double.
type Provider struct {
	mu sync.Mutex

	// CompleteResponse is returned by Complete when CompleteErr is nil.
	CompleteResponse *llm.CompletionResponse

	// CompleteErr, when non-nil, is returned by Complete.
	CompleteErr error

	// CompleteCalls records every invocation of Complete, in order.
	CompleteCalls []CompleteCall
}

var _ llm.Provider = (*Provider)(nil)

// Complete implements [llm.Provider].
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})
	p.mu.Unlock()

	if p.CompleteErr != nil {
		return nil, p.CompleteErr
	}
	return p.CompleteResponse, nil
}
