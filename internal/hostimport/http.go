package hostimport

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/klyx-dev/extensionrt/internal/collaborator"
	"github.com/klyx-dev/extensionrt/internal/resource"
)

type httpRequestArg struct {
	Method   string            `json:"method"`
	URL      string            `json:"url"`
	Headers  map[string]string `json:"headers"`
	Body     []byte            `json:"body,omitempty"`
	Redirect httpRedirectArg   `json:"redirect"`
}

type httpRedirectArg struct {
	Mode  string `json:"mode"` // "no-follow" | "follow-limit" | "follow-all"
	Limit int    `json:"limit,omitempty"`
}

func toCollaboratorRequest(arg httpRequestArg) collaborator.HTTPRequest {
	policy := collaborator.RedirectPolicy{Mode: collaborator.RedirectNoFollow}
	switch arg.Redirect.Mode {
	case "follow-limit":
		policy = collaborator.RedirectPolicy{Mode: collaborator.RedirectFollowLimit, Limit: arg.Redirect.Limit}
	case "follow-all":
		policy = collaborator.RedirectPolicy{Mode: collaborator.RedirectFollowAll}
	}
	// Duplicate guest header keys collapse to the last write by virtue of
	// decoding straight into a Go map (spec §6).
	return collaborator.HTTPRequest{
		Method:   collaborator.HTTPMethod(arg.Method),
		URL:      arg.URL,
		Headers:  arg.Headers,
		Body:     arg.Body,
		Redirect: policy,
	}
}

type httpResponseResult struct {
	Status  uint16            `json:"status"`
	Headers map[string]string `json:"headers"`
	Body    []byte            `json:"body,omitempty"`
}

// retryPolicy bounds the one extra attempt the wire layer offers a
// collaborator that marks its own error retryable; the collaborator
// interface, not this policy, decides whether a given failure qualifies
// (spec §4.F leaves fetch a "pure delegation" otherwise).
func retryPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Second
	return backoff.WithMaxRetries(b, 1)
}

// retryableError is implemented by collaborator errors that opt into one
// bounded retry.
type retryableError interface {
	Retryable() bool
}

func (d *Dispatcher) httpFetch(ctx context.Context, arg httpRequestArg) (httpResponseResult, error) {
	if d.collab.HTTP == nil {
		panic(fmt.Errorf("hostimport: no http collaborator configured"))
	}
	req := toCollaboratorRequest(arg)

	var resp collaborator.HTTPResponse
	err := backoff.Retry(func() error {
		var err error
		resp, err = d.collab.HTTP.Fetch(ctx, req)
		if err != nil {
			if re, ok := err.(retryableError); ok && re.Retryable() {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}, retryPolicy())
	if err != nil {
		return httpResponseResult{}, err
	}
	return httpResponseResult{Status: resp.Status, Headers: resp.Headers, Body: resp.Body}, nil
}

func (d *Dispatcher) httpFetchStream(ctx context.Context, arg httpRequestArg) (resourceHandleResult, error) {
	if d.collab.HTTP == nil {
		panic(fmt.Errorf("hostimport: no http collaborator configured"))
	}
	stream, err := d.collab.HTTP.FetchStream(ctx, toCollaboratorRequest(arg))
	if err != nil {
		return resourceHandleResult{}, err
	}
	h := d.sandbox.Table.Push(stream)
	return resourceHandleResult{Handle: uint32(h)}, nil
}

type resourceHandleResult struct {
	Handle uint32 `json:"handle"`
}

type streamHandleArg struct {
	Handle uint32 `json:"handle"`
}

type nextChunkResult struct {
	Chunk []byte `json:"chunk,omitempty"`
	Done  bool   `json:"done"`
}

func (d *Dispatcher) httpStreamNextChunk(ctx context.Context, arg streamHandleArg) (nextChunkResult, error) {
	v, err := d.sandbox.Table.Get(resource.Handle(arg.Handle))
	if err != nil {
		panic(err)
	}
	stream, ok := v.(collaborator.ResponseStream)
	if !ok {
		panic(fmt.Errorf("hostimport: handle %d is not a response stream", arg.Handle))
	}
	chunk, ok, err := stream.NextChunk(ctx)
	if err != nil {
		return nextChunkResult{}, err
	}
	if !ok {
		return nextChunkResult{Done: true}, nil
	}
	return nextChunkResult{Chunk: chunk}, nil
}
