package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"deltashare-mock/internal/domain"
)

// State is a step of backing-object resolution.
type State int

const (
	StateUnresolved State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transition records one state change and what triggered it.
type Transition struct {
	From   State
	To     State
	Reason string
}

// Resolution is the outcome of resolving one backing object.
type Resolution struct {
	Bucket      string
	Key         string
	State       State
	Seeded      bool // this resolution uploaded the seed bytes
	Err         error
	Transitions []Transition
}

// recheckAttempts is how many times the object is re-checked after
// initialization before it is declared absent: the first check plus one
// retry, which covers a concurrent request finishing its upload.
const recheckAttempts = 2

// resolver drives a single resolution. It holds no locks: concurrent
// resolvers for the same key may both create the bucket or upload the seed,
// and both operations are idempotent.
type resolver struct {
	store    domain.ObjectStore
	seed     fs.FS
	seedPath string
	logger   *slog.Logger
	res      *Resolution
}

func (r *resolver) move(to State, reason string) {
	r.res.Transitions = append(r.res.Transitions, Transition{From: r.res.State, To: to, Reason: reason})
	r.logger.Debug("backing object state", "key", r.res.Key, "from", r.res.State.String(), "to", to.String(), "reason", reason)
	r.res.State = to
}

func (r *resolver) fail(err error, reason string) *Resolution {
	r.res.Err = err
	r.move(StateFailed, reason)
	return r.res
}

// initFailure marks err, raised while creating the bucket or uploading seed
// data, as an unavailable store unless it is already classified as such.
func initFailure(err error, step string) error {
	var ue *domain.UnavailableError
	if errors.As(err, &ue) {
		return err
	}
	return domain.ErrUnavailable(err, "initialize backing store: %s", step)
}

func isNotFound(err error) bool {
	var nf *domain.NotFoundError
	return errors.As(err, &nf)
}

func (r *resolver) run(ctx context.Context) *Resolution {
	bucket, key := r.res.Bucket, r.res.Key

	exists, err := r.store.BucketExists(ctx, bucket)
	if err != nil {
		return r.fail(err, "bucket check failed")
	}
	if !exists {
		if err := r.store.MakeBucket(ctx, bucket); err != nil {
			return r.fail(initFailure(err, "create bucket"), "bucket creation failed")
		}
	}

	_, err = r.store.StatObject(ctx, bucket, key)
	switch {
	case err == nil:
		r.move(StateReady, "object present")
		return r.res
	case !isNotFound(err):
		return r.fail(err, "object check failed")
	}

	r.move(StateInitializing, "object absent")
	if err := r.upload(ctx); err != nil {
		return r.fail(err, "seed upload failed")
	}

	for attempt := 1; attempt <= recheckAttempts; attempt++ {
		_, err = r.store.StatObject(ctx, bucket, key)
		if err == nil {
			r.move(StateReady, fmt.Sprintf("object present after initialization (check %d)", attempt))
			return r.res
		}
		if !isNotFound(err) {
			return r.fail(err, "object re-check failed")
		}
	}
	return r.fail(domain.ErrNotFound("File not found"), "object absent after initialization")
}

// upload puts the local seed file for the key, if there is one.
func (r *resolver) upload(ctx context.Context) error {
	if r.seed == nil {
		return nil
	}
	data, err := fs.ReadFile(r.seed, r.seedPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("seed file unreadable", "path", r.seedPath, "error", err)
		}
		return nil
	}
	if err := r.store.PutObject(ctx, r.res.Bucket, r.res.Key, bytes.NewReader(data), int64(len(data)), contentTypeCSV); err != nil {
		return initFailure(err, "upload seed data")
	}
	r.res.Seeded = true
	r.logger.Info("seeded backing object", "bucket", r.res.Bucket, "key", r.res.Key, "bytes", len(data))
	return nil
}
