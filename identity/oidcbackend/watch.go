package oidcbackend

import (
	"context"

	"github.com/jrsteele09/go-auth-session/identity"
	"github.com/jrsteele09/go-auth-session/storage"
)

// WatchStorage reports sessions written or removed by other processes
// sharing store's file: a new access token becomes SIGNED_IN, a removed
// session becomes SIGNED_OUT. Changes made by this Backend are ignored.
func (b *Backend) WatchStorage(ctx context.Context, store *storage.FileStore) error {
	return store.Watch(ctx, func() {
		b.reconcile()
	})
}

func (b *Backend) reconcile() {
	b.sessionLock.Lock()
	defer b.sessionLock.Unlock()

	stored, err := b.load()
	if err != nil {
		b.logger.Warn().Err(err).Msg("unable to read session after storage change")
		return
	}

	switch {
	case stored == nil && b.current != "":
		b.current = ""
		b.logger.Info().Msg("session removed by another process")
		b.emit(identity.EventSignedOut, nil)
	case stored != nil && stored.Token.AccessToken != b.current:
		b.current = stored.Token.AccessToken
		sess := b.sessionFromStored(stored)
		b.logger.Info().Str("principal_id", sess.User.ID).Msg("session written by another process")
		b.emit(identity.EventSignedIn, sess)
	}
}
