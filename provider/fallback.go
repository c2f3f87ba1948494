package provider

import (
	"context"
	"fmt"
)

// Fallback tries names in order and returns the first successful result.
// onFailure, if set, is called for every failed attempt. When every name
// fails, the last error is returned unchanged. Cancellation of ctx stops
// the walk after the current attempt.
func Fallback[O any](
	ctx context.Context,
	names []string,
	try func(ctx context.Context, name string) (O, error),
	onFailure func(name string, err error),
) (O, error) {
	var zero O
	if len(names) == 0 {
		return zero, fmt.Errorf("provider: no candidates to try")
	}

	var lastErr error
	for _, name := range names {
		out, err := try(ctx, name)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if onFailure != nil {
			onFailure(name, err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return zero, lastErr
}
