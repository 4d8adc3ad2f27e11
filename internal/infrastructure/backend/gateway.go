package backend

import (
	"context"
	"time"
)

// CachePolicy holds the response cache lifetimes
type CachePolicy struct {
	EntityTTL time.Duration
	ListTTL   time.Duration
}

type gateway struct {
	client *Client
	cache  ResponseCache
	policy CachePolicy
}

// fetch reads through the response cache when one is configured
func (g gateway) fetch(ctx context.Context, key string, ttl time.Duration, op, path string) ([]byte, error) {
	load := func(ctx context.Context) ([]byte, error) {
		return g.client.get(ctx, op, path)
	}
	if g.cache == nil || ttl <= 0 {
		return load(ctx)
	}
	return g.cache.Fetch(ctx, key, ttl, load)
}

// listKey scopes list responses to the viewer, since the upstream filters them by bearer token
func (g gateway) listKey(viewerID, path string) string {
	return viewerID + "|" + g.client.URL(path)
}

func decodeOne[W any](body []byte) (W, error) {
	res := DecodeEnvelope[W](body)
	v, ok := res.One()
	if !ok {
		var zero W
		return zero, ErrMalformedEnvelope
	}
	return v, nil
}

func decodeList[W any](body []byte) ([]W, error) {
	res := DecodeEnvelope[W](body)
	switch res.Kind() {
	case ResultEmpty:
		return []W{}, nil
	case ResultList:
		list, _ := res.List()
		return list, nil
	default:
		return nil, ErrMalformedEnvelope
	}
}
