package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"hairstudio/internal/domain"
	"hairstudio/internal/infra"
)

// Uploader stores one asset and returns its retrievable URL. progress may be
// called any number of times with cumulative byte counts.
type Uploader interface {
	Upload(ctx context.Context, asset domain.Asset, progress func(sent, total int64)) (string, error)
}

// Task is the asynchronous upload of one asset generation.
type Task struct {
	Key        domain.AssetKey
	Generation uint64

	done   chan struct{}
	url    string
	err    error
	cancel context.CancelFunc
}

// Done is closed once the task has finished, failed or been superseded.
func (t *Task) Done() <-chan struct{} { return t.done }

// Result is valid after Done is closed.
func (t *Task) Result() (string, error) {
	<-t.done
	return t.url, t.err
}

// Coordinator runs uploads in the background and gates diagnosis on their
// completion. At most one task per key is live; reselecting a key
// supersedes the previous task.
type Coordinator struct {
	uploader Uploader
	logger   *infra.Logger

	mu       sync.Mutex
	gens     map[domain.AssetKey]uint64
	tasks    map[domain.AssetKey]*Task
	urls     map[domain.AssetKey]string
	failures map[domain.AssetKey]error
	subs     map[int]*subscriber
	nextSub  int
}

func NewCoordinator(uploader Uploader, logger *infra.Logger) *Coordinator {
	return &Coordinator{
		uploader: uploader,
		logger:   infra.OrDiscard(logger),
		gens:     make(map[domain.AssetKey]uint64),
		tasks:    make(map[domain.AssetKey]*Task),
		urls:     make(map[domain.AssetKey]string),
		failures: make(map[domain.AssetKey]error),
		subs:     make(map[int]*subscriber),
	}
}

// StartUpload begins uploading asset and returns immediately. The upload is
// detached from ctx cancellation so it survives the originating request;
// only a newer StartUpload or Clear for the same key cancels it.
func (c *Coordinator) StartUpload(ctx context.Context, asset domain.Asset) *Task {
	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	c.mu.Lock()
	c.gens[asset.Key]++
	task := &Task{
		Key:        asset.Key,
		Generation: c.gens[asset.Key],
		done:       make(chan struct{}),
		cancel:     cancel,
	}
	if prev := c.tasks[asset.Key]; prev != nil {
		prev.cancel()
	}
	c.tasks[asset.Key] = task
	delete(c.urls, asset.Key)
	delete(c.failures, asset.Key)
	c.publishLocked(Event{Key: asset.Key, Kind: EventProgress, Generation: task.Generation, Total: asset.Size()})
	c.mu.Unlock()

	c.logger.Debug().Str("key", string(asset.Key)).Uint64("generation", task.Generation).Int64("bytes", asset.Size()).Msg("upload: started")

	go c.run(taskCtx, task, asset)
	return task
}

func (c *Coordinator) run(ctx context.Context, task *Task, asset domain.Asset) {
	defer task.cancel()

	progress := func(sent, total int64) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gens[task.Key] != task.Generation {
			return
		}
		c.publishLocked(Event{Key: task.Key, Kind: EventProgress, Generation: task.Generation, Sent: sent, Total: total})
	}

	url, err := c.uploader.Upload(ctx, asset, progress)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer close(task.done)

	if c.gens[task.Key] != task.Generation || c.tasks[task.Key] != task {
		task.err = domain.ErrUploadSuperseded
		if c.tasks[task.Key] == task {
			delete(c.tasks, task.Key)
		}
		c.logger.Debug().Str("key", string(task.Key)).Uint64("generation", task.Generation).Msg("upload: stale completion discarded")
		return
	}
	if err == nil && url == "" {
		err = errors.New("uploader returned an empty url")
	}
	if err != nil {
		task.err = err
		delete(c.tasks, task.Key)
		c.failures[task.Key] = err
		c.publishLocked(Event{Key: task.Key, Kind: EventFailure, Generation: task.Generation, Err: err})
		c.logger.Warn().Err(err).Str("key", string(task.Key)).Msg("upload: failed")
		return
	}
	task.url = url
	c.urls[task.Key] = url
	c.publishLocked(Event{Key: task.Key, Kind: EventSuccess, Generation: task.Generation, Sent: asset.Size(), Total: asset.Size(), URL: url})
	c.logger.Debug().Str("key", string(task.Key)).Uint64("generation", task.Generation).Msg("upload: completed")
}

// URL returns the resolved URL for key, if any.
func (c *Coordinator) URL(key domain.AssetKey) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.urls[key]
	return u, ok
}

// URLs returns a copy of every resolved URL.
func (c *Coordinator) URLs() map[domain.AssetKey]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[domain.AssetKey]string, len(c.urls))
	for k, v := range c.urls {
		out[k] = v
	}
	return out
}

// IsReady reports whether every key has a resolved URL.
func (c *Coordinator) IsReady(keys []domain.AssetKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		if _, ok := c.urls[k]; !ok {
			return false
		}
	}
	return true
}

// Registered reports whether every key has either a live task or a
// resolved URL, i.e. whether AwaitAll could still succeed.
func (c *Coordinator) Registered(keys []domain.AssetKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		if _, ok := c.urls[k]; ok {
			continue
		}
		if _, ok := c.tasks[k]; !ok {
			return false
		}
	}
	return true
}

// AwaitAll waits for every key in order and returns their URLs. The first
// key that failed or was never started is reported as *domain.UploadError.
func (c *Coordinator) AwaitAll(ctx context.Context, keys []domain.AssetKey) (map[domain.AssetKey]string, error) {
	out := make(map[domain.AssetKey]string, len(keys))
	for _, key := range keys {
		url, err := c.await(ctx, key)
		if err != nil {
			return nil, err
		}
		out[key] = url
	}
	return out, nil
}

func (c *Coordinator) await(ctx context.Context, key domain.AssetKey) (string, error) {
	for {
		c.mu.Lock()
		if url, ok := c.urls[key]; ok {
			c.mu.Unlock()
			return url, nil
		}
		task := c.tasks[key]
		if task == nil {
			cause := c.failures[key]
			if cause == nil {
				cause = domain.ErrUploadNotStarted
			}
			c.mu.Unlock()
			return "", &domain.UploadError{Key: key, Err: cause}
		}
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-task.Done():
			// Re-read state: the task may have been superseded by a newer one.
		}
	}
}

// Settle waits for an optional asset. A missing or failed upload yields ""
// and is logged rather than returned.
func (c *Coordinator) Settle(ctx context.Context, key domain.AssetKey) string {
	c.mu.Lock()
	_, hasURL := c.urls[key]
	_, hasTask := c.tasks[key]
	c.mu.Unlock()
	if !hasURL && !hasTask {
		return ""
	}
	url, err := c.await(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", string(key)).Msg("upload: optional asset unavailable, continuing without it")
		return ""
	}
	return url
}

// Clear cancels any upload for key and forgets its URL.
func (c *Coordinator) Clear(key domain.AssetKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	if task := c.tasks[key]; task != nil {
		task.cancel()
	}
	delete(c.tasks, key)
	delete(c.urls, key)
	delete(c.failures, key)
}

// Seed records an already-uploaded URL, used when a session is restored.
func (c *Coordinator) Seed(key domain.AssetKey, url string) {
	if url == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	if task := c.tasks[key]; task != nil {
		task.cancel()
		delete(c.tasks, key)
	}
	delete(c.failures, key)
	c.urls[key] = url
}

// Shutdown cancels every in-flight upload.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, task := range c.tasks {
		task.cancel()
		c.gens[key]++
		delete(c.tasks, key)
	}
}

func (t *Task) String() string {
	return fmt.Sprintf("%s#%d", t.Key, t.Generation)
}
