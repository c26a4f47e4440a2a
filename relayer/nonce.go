package relayer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// NonceSource returns the next nonce of an account on the host chain.
type NonceSource interface {
	Nonce(ctx context.Context, address string) (uint64, error)
}

// NonceManager serializes the read nonce, sign and submit sequence of one account. The
// nonce is cached between submissions and queried again after a failed one.
type NonceManager struct {
	source      NonceSource
	address     string
	lockTimeout time.Duration
	sem         *semaphore.Weighted

	// guarded by sem
	nonce  uint64
	cached bool

	mu       sync.Mutex
	poisoned any
}

// NewNonceManager returns a manager of the nonces of address. Waiting for the nonce lock
// fails after lockTimeout, a zero lockTimeout waits until the context is done.
func NewNonceManager(source NonceSource, address string, lockTimeout time.Duration) *NonceManager {
	return &NonceManager{
		source:      source,
		address:     address,
		lockTimeout: lockTimeout,
		sem:         semaphore.NewWeighted(1),
	}
}

// WithNonce runs submit with the next nonce while holding the nonce lock. The nonce is
// consumed when submit succeeds. A failed submit drops the cached nonce. A panicking
// submit poisons the manager: this and every later call fail with ErrLockPoisoned until
// Reset.
func (m *NonceManager) WithNonce(ctx context.Context, submit func(nonce uint64) error) (err error) {
	if err := m.poisonedErr(); err != nil {
		return err
	}

	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.sem.Release(1)

	// the manager may have been poisoned while waiting
	if err := m.poisonedErr(); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			m.mu.Lock()
			m.poisoned = r
			m.mu.Unlock()
			m.cached = false
			err = &LockError{Kind: ErrLockPoisoned, Cause: r}
		}
	}()

	if !m.cached {
		nonce, err := m.source.Nonce(ctx, m.address)
		if err != nil {
			return err
		}
		m.nonce, m.cached = nonce, true
	}

	if err := submit(m.nonce); err != nil {
		m.cached = false
		return err
	}

	m.nonce++
	return nil
}

// Reset clears a poisoned manager. The nonce is queried again on the next call.
func (m *NonceManager) Reset(ctx context.Context) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.sem.Release(1)

	m.mu.Lock()
	m.poisoned = nil
	m.mu.Unlock()
	m.cached = false

	return nil
}

func (m *NonceManager) acquire(ctx context.Context) error {
	if m.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.lockTimeout)
		defer cancel()
	}

	if err := m.sem.Acquire(ctx, 1); err != nil {
		return &LockError{Kind: ErrLockTimeout, Cause: err}
	}
	return nil
}

func (m *NonceManager) poisonedErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.poisoned != nil {
		return &LockError{Kind: ErrLockPoisoned, Cause: m.poisoned}
	}
	return nil
}
