package exchange

import "context"

// Loopback returns a client that echoes every value in-process.
func Loopback() Client {
	return Func(func(ctx context.Context, v int64) (int64, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return v, nil
	})
}
