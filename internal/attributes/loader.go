package attributes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/graph-gophers/dataloader"

	"entityquery/pkg/metrics"
	"entityquery/pkg/query"
)

const (
	keySeparator = "\x1f"

	defaultBatchTimeout = 5 * time.Second
)

type LoaderOptions struct {
	Wait          time.Duration
	BatchCapacity int
	// BatchTimeout bounds one store round trip for a whole batch.
	BatchTimeout time.Duration
}

// Loader coalesces concurrent single-attribute lookups into one store call
// per owner. It does not cache; memoisation is the caller's concern.
//
// A batch mixes callers from different requests, so it runs detached from
// the cancellation of the caller that opened it. Each caller stops waiting
// when its own context is done.
type Loader struct {
	loader *dataloader.Loader
}

type loaded struct {
	value any
	found bool
}

func NewLoader(store Store, opts LoaderOptions) *Loader {
	timeout := opts.BatchTimeout
	if timeout <= 0 {
		timeout = defaultBatchTimeout
	}
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		metrics.ObserveLoaderBatchSize(len(keys))
		batchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return loadBatch(batchCtx, store, keys)
	}

	loaderOpts := []dataloader.Option{
		dataloader.WithCache(&dataloader.NoCache{}),
	}
	if opts.Wait > 0 {
		loaderOpts = append(loaderOpts, dataloader.WithWait(opts.Wait))
	}
	if opts.BatchCapacity > 0 {
		loaderOpts = append(loaderOpts, dataloader.WithBatchCapacity(opts.BatchCapacity))
	}

	return &Loader{loader: dataloader.NewBatchedLoader(batchFn, loaderOpts...)}
}

func (l *Loader) GetAttribute(ctx context.Context, owner query.EntityID, key string) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	thunk := l.loader.Load(ctx, dataloader.StringKey(loaderKey(owner, key)))

	type thunkResult struct {
		data any
		err  error
	}
	done := make(chan thunkResult, 1)
	go func() {
		data, err := thunk()
		done <- thunkResult{data: data, err: err}
	}()

	var data any
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, false, r.err
		}
		data = r.data
	}
	result, ok := data.(loaded)
	if !ok {
		return nil, false, fmt.Errorf("unexpected loader result %T", data)
	}
	return result.value, result.found, nil
}

func loaderKey(owner query.EntityID, key string) string {
	return owner.EntityType + keySeparator + owner.ID + keySeparator + key
}

func parseLoaderKey(raw string) (query.EntityID, string, bool) {
	parts := strings.SplitN(raw, keySeparator, 3)
	if len(parts) != 3 {
		return query.EntityID{}, "", false
	}
	return query.EntityID{EntityType: parts[0], ID: parts[1]}, parts[2], true
}

// loadBatch groups keys by owner and issues one GetAttributes per owner.
// Results are returned in key order as the loader requires.
func loadBatch(ctx context.Context, store Store, keys dataloader.Keys) []*dataloader.Result {
	type request struct {
		owner query.EntityID
		key   string
	}

	requests := make([]request, len(keys))
	byOwner := make(map[query.EntityID][]string)
	var owners []query.EntityID
	results := make([]*dataloader.Result, len(keys))

	for i, k := range keys {
		owner, attr, ok := parseLoaderKey(k.String())
		if !ok {
			results[i] = &dataloader.Result{Error: fmt.Errorf("malformed attribute key %q", k.String())}
			continue
		}
		requests[i] = request{owner: owner, key: attr}
		if _, seen := byOwner[owner]; !seen {
			owners = append(owners, owner)
		}
		byOwner[owner] = append(byOwner[owner], attr)
	}

	values := make(map[query.EntityID]map[string]any, len(owners))
	failures := make(map[query.EntityID]error)
	for _, owner := range owners {
		attrs, err := store.GetAttributes(ctx, owner, byOwner[owner])
		if err != nil {
			failures[owner] = err
			continue
		}
		values[owner] = attrs
	}

	for i, req := range requests {
		if results[i] != nil {
			continue
		}
		if err, failed := failures[req.owner]; failed {
			results[i] = &dataloader.Result{Error: err}
			continue
		}
		value, found := values[req.owner][req.key]
		results[i] = &dataloader.Result{Data: loaded{value: value, found: found}}
	}
	return results
}
