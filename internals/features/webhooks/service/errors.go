// file: internals/features/webhooks/service/errors.go
package service

import "errors"

var (
	// ErrMalformedPayload: body webhook bukan JSON valid. Raw event sudah
	// ditandai error sebelum err ini dikembalikan ke caller.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrTransitionConflict: compare-and-set status kalah race dengan worker
	// lain. Transient — aman dicoba lagi lewat reconciliation.
	ErrTransitionConflict = errors.New("concurrent status transition conflict")
)
