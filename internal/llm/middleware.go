package llm

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
	"github.com/Zhao-zixi/Canalysis/internal/parser"
)

// Middleware decorates a Client.
type Middleware func(Client) Client

// Chain applies middlewares so that Chain(inner, A, B) == A(B(inner)).
func Chain(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			out = mws[i](out)
		}
	}
	return out
}

// Retry makes up to 1+retries attempts with exponential backoff starting at
// base. Permanent errors and a done context stop immediately.
func Retry(retries int, base time.Duration) Middleware {
	if retries < 0 {
		retries = 0
	}
	if base <= 0 {
		base = 300 * time.Millisecond
	}
	return func(next Client) Client {
		return &retrying{next: next, attempts: retries + 1, base: base}
	}
}

type retrying struct {
	next     Client
	attempts int
	base     time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) Generate(ctx context.Context, prompt Prompt) ([]byte, error) {
	var last error
	for i := 0; i < r.attempts; i++ {
		out, err := r.next.Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		if IsPermanent(err) || ctx.Err() != nil {
			return nil, err
		}
		last = err
		if i == r.attempts-1 {
			break
		}
		timer := time.NewTimer(r.base * time.Duration(1<<i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, err
		case <-timer.C:
		}
	}
	return nil, last
}

// RateLimit shares one token bucket across every caller of the returned
// client. rps <= 0 disables limiting.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Client) Client {
		return &rateLimited{next: next, rl: newRPSLimiter(rps, burst)}
	}
}

type rateLimited struct {
	next Client
	rl   *rpsLimiter
}

func (c *rateLimited) Name() string { return c.next.Name() }

func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}

func (c *rateLimited) Generate(ctx context.Context, prompt Prompt) ([]byte, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return nil, err
	}
	return c.next.Generate(ctx, prompt)
}

// Memoize keeps up to size successful replies in memory, keyed by function
// name, origin hint and source fingerprint, so identical functions seen
// twice in one process cost one request. Replies that do not validate are
// never kept. size <= 0 disables it.
func Memoize(size int) Middleware {
	return func(next Client) Client {
		if size <= 0 {
			return next
		}
		memo, err := lru.New[string, []byte](size)
		if err != nil {
			return next
		}
		return &memoized{next: next, memo: memo}
	}
}

type memoized struct {
	next Client
	memo *lru.Cache[string, []byte]
}

func (m *memoized) Name() string { return m.next.Name() }
func (m *memoized) Close() error { return m.next.Close() }

func memoKey(prompt Prompt) string {
	req := prompt.Request
	return req.Name + ":" + string(req.OriginHint) + ":" + parser.Fingerprint(req.Source)
}

func (m *memoized) Generate(ctx context.Context, prompt Prompt) ([]byte, error) {
	key := memoKey(prompt)
	if out, ok := m.memo.Get(key); ok {
		return append([]byte(nil), out...), nil
	}
	out, err := m.next.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if _, err := analysis.ParseResponse(StripCodeFence(out)); err == nil {
		m.memo.Add(key, append([]byte(nil), out...))
	}
	return out, nil
}
