package exchange

import (
	"context"
	"fmt"
	"net/url"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/GriffinCanCode/etherpipe/internal/shared/id"
)

// DefaultHTTPPath is used when an http endpoint has no path.
const DefaultHTTPPath = "/exchange"

type httpClient struct {
	resty *resty.Client
	path  string
}

func dialHTTP(u *url.URL, o options) (*httpClient, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("missing host in %q", u.String())
	}

	path := u.Path
	if path == "" || path == "/" {
		path = DefaultHTTPPath
	}

	base := *u
	base.Path, base.RawQuery = "", ""

	client := resty.New().
		SetBaseURL(base.String()).
		SetTimeout(o.timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "etherpipe-trunk/1.0").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	return &httpClient{resty: client, path: path}, nil
}

func (c *httpClient) Exchange(ctx context.Context, v int64) (int64, error) {
	reqID := id.NewRequestID().String()

	var out Message
	resp, err := c.resty.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", reqID).
		SetBody(Message{Value: v, RequestID: reqID}).
		SetResult(&out).
		Post(c.path)
	if err != nil {
		return 0, fmt.Errorf("http exchange: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("http exchange: status %d", resp.StatusCode())
	}
	if out.RequestID != "" && out.RequestID != reqID {
		return 0, fmt.Errorf("%w: request id %q, want %q", ErrBadResponse, out.RequestID, reqID)
	}
	return out.Value, nil
}

func (c *httpClient) Close() error {
	c.resty.GetClient().CloseIdleConnections()
	return nil
}
