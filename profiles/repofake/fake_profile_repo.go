package fakeprofilerepo

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/go-auth-session/identity"
)

var _ identity.ProfileRepo = (*FakeProfileRepo)(nil)

// FakeProfileRepo is an in-memory profile store that counts lookups.
type FakeProfileRepo struct {
	profiles map[string]*identity.ProfileRecord // principal id to record
	lock     sync.RWMutex
	calls    int
	err      error
	release  chan struct{}
}

func NewFakeProfileRepo() *FakeProfileRepo {
	return &FakeProfileRepo{
		profiles: make(map[string]*identity.ProfileRecord),
	}
}

func (r *FakeProfileRepo) Upsert(p *identity.ProfileRecord) error {
	if p.PrincipalID == "" {
		return errors.New("principal id is required")
	}
	r.lock.Lock()
	defer r.lock.Unlock()

	r.profiles[p.PrincipalID] = p
	return nil
}

// FailWith makes every lookup return err. A nil err clears the failure.
func (r *FakeProfileRepo) FailWith(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.err = err
}

// Block makes lookups wait until the returned function is called.
func (r *FakeProfileRepo) Block() (release func()) {
	ch := make(chan struct{})
	r.lock.Lock()
	r.release = ch
	r.lock.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (r *FakeProfileRepo) Calls() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.calls
}

func (r *FakeProfileRepo) FindActiveProfileByPrincipalID(ctx context.Context, principalID string) (*identity.ProfileRecord, error) {
	r.lock.Lock()
	r.calls++
	release := r.release
	r.lock.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.profiles[principalID]
	if !ok || !p.Active {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}
