package control

import (
	"context"
	"io"
	"net"
	"time"

	"codeberg.org/mutker/powerhald/internal/codec"
	"codeberg.org/mutker/powerhald/internal/errors"
	"github.com/cenkalti/backoff/v4"
)

const (
	dialTimeout         = 2 * time.Second
	responseReadTimeout = 20 * time.Second
	maxResponseSize     = 1024 * 1024
)

// Client sends one request per connection. Connection failures are
// retried with exponential backoff so a client started alongside the
// daemon waits for the socket to appear.
type Client struct {
	socketPath string
	maxElapsed time.Duration
}

// NewClient returns a client for socketPath that keeps retrying failed
// connections for up to maxElapsed. Zero disables retries.
func NewClient(socketPath string, maxElapsed time.Duration) *Client {
	return &Client{
		socketPath: socketPath,
		maxElapsed: maxElapsed,
	}
}

// Call sends action with fields and decodes the response data into
// result when both are present. A failure reported by the daemon comes
// back as an errors.Error carrying the daemon's error code.
func (c *Client) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	errFactory := errors.New()

	request := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		request[key] = value
	}
	request["action"] = action

	var response *Response
	operation := func() error {
		var err error
		response, err = c.send(ctx, request)
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = c.maxElapsed

	var policy backoff.BackOff = b
	if c.maxElapsed <= 0 {
		policy = &backoff.StopBackOff{}
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return errFactory.WithData(errors.ErrControlRequest, struct {
			Action string
			Socket string
			Error  string
		}{
			Action: action,
			Socket: c.socketPath,
			Error:  err.Error(),
		})
	}

	if !response.OK {
		code := errors.ErrorCode(response.Code)
		if code == "" {
			code = errors.ErrControlResponse
		}
		return errFactory.WithMessage(code, response.Error)
	}

	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return errFactory.Wrap(errors.ErrControlResponse, err)
		}
	}

	return nil
}

// send dials, writes request and reads the response. Only dial errors
// are retryable; once the request is written a failure is permanent so
// a hint is never delivered twice.
func (c *Client) send(ctx context.Context, request any) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, backoff.Permanent(err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		return nil, backoff.Permanent(err)
	}

	return &response, nil
}
