package models

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

var (
	ErrValidation          = fmt.Errorf("validation error")
	ErrIncorrectCredential = fmt.Errorf("incorrect password")
	ErrDecode              = fmt.Errorf("unable to decode image")
	ErrEncode              = fmt.Errorf("unable to encode image")
	ErrCapacity            = fmt.Errorf("storage capacity exceeded")
	ErrNotFound            = fmt.Errorf("not found")
	ErrCorruptRecord       = fmt.Errorf("stored record is unreadable")

	ErrBusy               = fmt.Errorf("an image is already being processed")
	ErrDiscarded          = fmt.Errorf("image result discarded")
	ErrNotProvisioned     = fmt.Errorf("no owner password has been set")
	ErrAlreadyProvisioned = fmt.Errorf("owner password is already set")
	ErrLockedOut          = fmt.Errorf("too many failed attempts")
	ErrUnauthorized       = fmt.Errorf("unauthorized")
)

/*
CapacityError is returned when writing a record would push the
durable store past its quota. It matches ErrCapacity with errors.Is.
*/
type CapacityError struct {
	Key   string
	Size  int64
	Used  int64
	Quota int64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf(
		"%s: record '%s' is %s, %s of %s already used",
		ErrCapacity.Error(),
		e.Key,
		humanize.Bytes(uint64(e.Size)),
		humanize.Bytes(uint64(e.Used)),
		humanize.Bytes(uint64(e.Quota)),
	)
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacity
}
