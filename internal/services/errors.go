package services

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable marks a read that could not reach the backing
	// store. The accompanying snapshot is empty but renderable.
	ErrStoreUnavailable = errors.New("backing store unavailable")
	// ErrRenamePartial means the ledger was rewritten but saving the
	// settings afterwards failed; records carry the new name, settings the old.
	ErrRenamePartial = errors.New("records updated but settings were not saved")
	// ErrRestorePartial is the restore counterpart of ErrRenamePartial.
	ErrRestorePartial = errors.New("records restored but settings were not saved")
)

func wrapUnavailable(err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
