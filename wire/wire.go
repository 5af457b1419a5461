// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: wire.go — coordinator/worker RPC messages and codec
//
// Purpose:
//   - Defines the two-method protocol: get_work hands out a shard wrapped
//     in the full search configuration, finish_work returns candidates.
//   - Encoding is JSON over HTTP POST. get_work responds with a WorkSpec
//     body or the literal null once the a-axis is exhausted.
//
// Notes:
//   - The protocol assumes at-least-once delivery; finish_work is
//     idempotent on the coordinator side, so client retries are safe.
//   - Candidates travel as bare [a, x, b, y] quadruples. Witness pairs are
//     a worker-local diagnostic and stay off the wire.
// ─────────────────────────────────────────────────────────────────────────────

package wire

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sugawarayuuta/sonnet"

	"bealsearch/constants"
)

// Shard identifies one unit of distribution: a single a-value.
type Shard struct {
	A uint32 `json:"a"`
}

// WorkSpec is one shard plus the search configuration carried by value, so
// a worker can confirm compatibility before running it.
type WorkSpec struct {
	MaxBase     uint32   `json:"max_base"`
	MaxPow      uint32   `json:"max_pow"`
	Primes      []uint32 `json:"primes"`
	Fingerprint string   `json:"fingerprint"` // hex BLAKE2b-256 of (MaxBase, MaxPow, Primes)
	Shard       Shard    `json:"shard"`
}

// FinishRequest reports a completed shard and its surviving candidates.
type FinishRequest struct {
	Shard      Shard       `json:"shard"`
	Candidates [][4]uint32 `json:"candidates"`
}

// ─────────────────────────────── Client ────────────────────────────────────

// Client is the worker-side handle to the coordinator.
type Client struct {
	endpoint string
	hc       *http.Client
}

// NewClient returns a client for a coordinator at endpoint, e.g.
// "http://127.0.0.1:8000".
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		hc: &http.Client{
			Timeout:   constants.RPCTimeout,
			Transport: buildTransport(),
		},
	}
}

// buildTransport tunes the HTTP transport for a long-lived, low-volume
// control channel: a few warm connections, long keep-alive.
func buildTransport() *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   3 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		MaxIdleConns:          4,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       120 * time.Second,
		ResponseHeaderTimeout: constants.RPCTimeout,
		DisableCompression:    true,
		ForceAttemptHTTP2:     true,
		Proxy:                 http.ProxyFromEnvironment,
	}
}

// GetWork asks the coordinator for the next shard. A nil spec with nil
// error means the search is exhausted.
func (c *Client) GetWork() (*WorkSpec, error) {
	body, err := c.post(constants.GetWorkPath, []byte("{}"))
	if err != nil {
		return nil, err
	}
	var spec *WorkSpec
	if err := sonnet.Unmarshal(body, &spec); err != nil {
		return nil, fmt.Errorf("decode get_work response: %w", err)
	}
	return spec, nil
}

// FinishWork reports shard completion with the candidate list.
func (c *Client) FinishWork(shard Shard, candidates [][4]uint32) error {
	req := FinishRequest{Shard: shard, Candidates: candidates}
	if req.Candidates == nil {
		req.Candidates = [][4]uint32{}
	}
	payload, err := sonnet.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode finish_work request: %w", err)
	}
	_, err = c.post(constants.FinishWorkPath, payload)
	return err
}

func (c *Client) post(path string, payload []byte) ([]byte, error) {
	resp, err := c.hc.Post(c.endpoint+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: coordinator returned %s: %s", path, resp.Status, string(body))
	}
	return body, nil
}
