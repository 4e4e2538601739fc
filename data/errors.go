/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package data

import (
	"fmt"
	"sort"
	"strings"
)

// ClientErrorKind discriminates the protocol level failures a request can
// come back with.  These travel inside response events and are surfaced to
// the caller as typed outcomes, never as harness faults.
type ClientErrorKind int

const (
	// AccessDenied - the requester is not allowed to perform the operation.
	AccessDenied ClientErrorKind = iota
	// NoSuchAccount - no account registered for the destination manager.
	NoSuchAccount
	// AccountExists - an account is already registered.
	AccountExists
	// NoSuchData - no record at the requested (name, tag).
	NoSuchData
	// DataExists - a record already exists at the requested (name, tag).
	DataExists
	// NoSuchEntry - the requested entry key is absent.
	NoSuchEntry
	// TooManyEntries - the record exceeds the entry count cap.
	TooManyEntries
	// InvalidEntryActions - one or more entry actions failed validation.
	InvalidEntryActions
	// InvalidSuccessor - a version bump did not equal current version + 1.
	InvalidSuccessor
	// InvalidOwners - the owner set is not acceptable.
	InvalidOwners
	// InvalidOperation - the operation is malformed or oversized.
	InvalidOperation
	// NoSuchKey - the auth key to remove is not registered.
	NoSuchKey
	// KeyExists - the auth key to insert is already registered.
	KeyExists
	// LowBalance - the account has no mutations left to spend.
	LowBalance
	// InvalidInvitation - the invitation code is not recognised.
	InvalidInvitation
	// InvitationAlreadyClaimed - the invitation code was already used.
	InvitationAlreadyClaimed
	// NetworkOther - unclassified failure reported by the network.
	NetworkOther
)

func (k ClientErrorKind) String() string {
	switch k {
	case AccessDenied:
		return "access denied"
	case NoSuchAccount:
		return "no such account"
	case AccountExists:
		return "account exists"
	case NoSuchData:
		return "no such data"
	case DataExists:
		return "data exists"
	case NoSuchEntry:
		return "no such entry"
	case TooManyEntries:
		return "too many entries"
	case InvalidEntryActions:
		return "invalid entry actions"
	case InvalidSuccessor:
		return "invalid successor"
	case InvalidOwners:
		return "invalid owners"
	case InvalidOperation:
		return "invalid operation"
	case NoSuchKey:
		return "no such key"
	case KeyExists:
		return "key exists"
	case LowBalance:
		return "low balance"
	case InvalidInvitation:
		return "invalid invitation"
	case InvitationAlreadyClaimed:
		return "invitation already claimed"
	case NetworkOther:
		return "network error"
	default:
		return fmt.Sprintf("unknown client error %d", int(k))
	}
}

// EntryErrorKind classifies a per-key entry action failure.
type EntryErrorKind int

const (
	// EntryNoSuchEntry - update/delete targeted an absent key.
	EntryNoSuchEntry EntryErrorKind = iota
	// EntryExists - insert targeted a present key.
	EntryExists
	// EntryInvalidSuccessor - expected version did not equal current + 1.
	EntryInvalidSuccessor
)

func (k EntryErrorKind) String() string {
	switch k {
	case EntryNoSuchEntry:
		return "no such entry"
	case EntryExists:
		return "entry exists"
	case EntryInvalidSuccessor:
		return "invalid successor"
	default:
		return fmt.Sprintf("unknown entry error %d", int(k))
	}
}

// EntryError describes why a single entry action was rejected.
// CurrentVersion carries the version the store holds for the key, so the
// caller can rebuild a valid action.
type EntryError struct {
	Kind           EntryErrorKind
	CurrentVersion uint64
}

// ClientError is a typed protocol level failure.  EntryErrors is populated
// only for InvalidEntryActions, keyed by the offending entry key.
type ClientError struct {
	Kind        ClientErrorKind
	Msg         string
	EntryErrors map[string]EntryError
}

// NewClientError returns an error of the given kind with no detail message.
func NewClientError(kind ClientErrorKind) *ClientError {
	return &ClientError{Kind: kind}
}

// NewClientErrorf returns an error of the given kind with a detail message.
func NewClientErrorf(kind ClientErrorKind, format string, args ...interface{}) *ClientError {
	return &ClientError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (e *ClientError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())

	if e.Msg != "" {
		fmt.Fprintf(&b, ": %s", e.Msg)
	}

	if len(e.EntryErrors) > 0 {
		keys := make([]string, 0, len(e.EntryErrors))
		for key := range e.EntryErrors {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			ee := e.EntryErrors[key]
			fmt.Fprintf(&b, "; key %x: %s (current version %d)", key, ee.Kind, ee.CurrentVersion)
		}
	}

	return b.String()
}

// Is reports whether err is a ClientError of the given kind.
func Is(err error, kind ClientErrorKind) bool {
	ce, ok := err.(*ClientError)
	return ok && ce.Kind == kind
}
