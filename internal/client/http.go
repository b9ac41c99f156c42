package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lushly-dev/afd-sub004/internal/batch"
	"github.com/lushly-dev/afd-sub004/internal/ipc"
	"github.com/lushly-dev/afd-sub004/internal/pipeline"
	"github.com/lushly-dev/afd-sub004/internal/result"
)

// HTTP is a remote client over the daemon's HTTP surface. Each call is
// one POST to /rpc carrying the same Request/Response envelope as the
// socket transport.
type HTTP struct {
	base   string
	hc     *http.Client
	nextID atomic.Uint64
}

// NewHTTP creates a client for a daemon at base, e.g.
// "http://127.0.0.1:7465". A nil hc uses a client with a sane timeout.
func NewHTTP(base string, hc *http.Client) *HTTP {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTP{base: strings.TrimRight(base, "/"), hc: hc}
}

func (c *HTTP) Call(ctx context.Context, name string, input map[string]any) result.CommandResult {
	req := ipc.Request{ID: c.nextID.Add(1), Method: name, Params: input}
	body, err := json.Marshal(req)
	if err != nil {
		return result.TransportError(result.CodeTransportProtocol,
			"encode request: "+err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/rpc", bytes.NewReader(body))
	if err != nil {
		return result.TransportError(result.CodeTransportProtocol, err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpRes, err := c.hc.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return cancelResult(ctx, "call to "+name)
		}
		return result.TransportError(result.CodeTransportConnection, err.Error())
	}
	defer httpRes.Body.Close()

	if httpRes.StatusCode != http.StatusOK {
		return result.TransportError(result.CodeTransportProtocol,
			fmt.Sprintf("daemon returned HTTP %d", httpRes.StatusCode))
	}
	var resp ipc.Response
	if err := json.NewDecoder(httpRes.Body).Decode(&resp); err != nil {
		return result.TransportError(result.CodeTransportMalformed,
			"decode response: "+err.Error())
	}
	return decodeResponse(resp)
}

func (c *HTTP) Pipe(ctx context.Context, req pipeline.Request) pipeline.Result {
	return pipeline.Execute(ctx, req, c)
}

func (c *HTTP) Batch(ctx context.Context, req batch.Request) batch.Result {
	return batch.Execute(ctx, req, c)
}

func (c *HTTP) Commands(ctx context.Context) ([]string, error) {
	return commandNames(c.Call(ctx, "afd-help", nil))
}

func (c *HTTP) Close() error { return nil }
