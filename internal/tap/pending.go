package tap

import (
	"sync"
)

type opKind int

const (
	kindActivationCheck opKind = iota
	kindActivationCode
	kindConnect
	kindTransaction
	kindDeinitialize
)

func (k opKind) String() string {
	switch k {
	case kindActivationCheck:
		return "activation-check"
	case kindActivationCode:
		return "activation-code"
	case kindConnect:
		return "connect"
	case kindTransaction:
		return "transaction"
	case kindDeinitialize:
		return "deinitialize"
	default:
		return "unknown"
	}
}

// pending is a single-assignment completion handle. The first resolve or
// reject wins; every later call is a no-op that reports false.
type pending[T any] struct {
	kind      opKind
	reference string
	// gen is the SDK initialization allowed to answer; zero until one starts.
	// Guarded by the session mutex.
	gen uint64

	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

func newPending[T any](kind opKind, reference string) *pending[T] {
	return &pending[T]{
		kind:      kind,
		reference: reference,
		done:      make(chan struct{}),
	}
}

func (p *pending[T]) resolve(value T) bool {
	if p == nil {
		return false
	}
	completed := false
	p.once.Do(func() {
		p.value = value
		completed = true
		close(p.done)
	})
	return completed
}

func (p *pending[T]) reject(err error) bool {
	if p == nil {
		return false
	}
	completed := false
	p.once.Do(func() {
		p.err = err
		completed = true
		close(p.done)
	})
	return completed
}

// result blocks until the handle is completed
func (p *pending[T]) result() (T, error) {
	<-p.done
	return p.value, p.err
}
