package tap

import (
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPendingFirstCompletionWins(t *testing.T) {
	p := newPending[string](kindActivationCode, "")

	assert.True(t, p.resolve("ABC123"))
	assert.False(t, p.resolve("other"))
	assert.False(t, p.reject(stderrors.New("late")))

	value, err := p.result()
	assert.NoError(t, err)
	assert.Equal(t, "ABC123", value)
}

func TestPendingRejectThenResolve(t *testing.T) {
	p := newPending[int](kindTransaction, "ref")
	cause := stderrors.New("declined")

	assert.True(t, p.reject(cause))
	assert.False(t, p.resolve(1))

	value, err := p.result()
	assert.Zero(t, value)
	assert.Equal(t, cause, err)
}

func TestPendingNilIsNoop(t *testing.T) {
	var p *pending[bool]
	assert.False(t, p.resolve(true))
	assert.False(t, p.reject(stderrors.New("x")))
}

func TestPendingConcurrentCompletion(t *testing.T) {
	p := newPending[int](kindConnect, "")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var ok bool
			if i%2 == 0 {
				ok = p.resolve(i)
			} else {
				ok = p.reject(stderrors.New("lost"))
			}
			if ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestOpKindString(t *testing.T) {
	assert.Equal(t, "activation-check", kindActivationCheck.String())
	assert.Equal(t, "deinitialize", kindDeinitialize.String())
	assert.Equal(t, "unknown", opKind(42).String())
}
