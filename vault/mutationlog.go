/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vault

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/tidwall/wal"

	"vaultsim/crypto"
	"vaultsim/routing"
)

// MutationRecord is one applied mutation as journalled by the storage
// group.  Op is the request kind that caused it.
type MutationRecord struct {
	Op    string
	Name  crypto.XorName
	Tag   uint64
	MsgID routing.MessageID
}

func (r MutationRecord) marshal() []byte {
	op := []byte(r.Op)
	buf := make([]byte, 0, 1+len(op)+crypto.XorNameLen+8+routing.MessageIDLen)

	buf = append(buf, byte(len(op)))
	buf = append(buf, op...)
	buf = append(buf, r.Name[:]...)

	var tag [8]byte
	binary.LittleEndian.PutUint64(tag[:], r.Tag)
	buf = append(buf, tag[:]...)
	buf = append(buf, r.MsgID[:]...)

	return buf
}

func unmarshalMutationRecord(buf []byte) (MutationRecord, error) {
	if len(buf) < 1 {
		return MutationRecord{}, errors.New("empty mutation record")
	}

	opLen := int(buf[0])
	want := 1 + opLen + crypto.XorNameLen + 8 + routing.MessageIDLen
	if len(buf) != want {
		return MutationRecord{}, errors.Errorf("mutation record is %d bytes, expected %d", len(buf), want)
	}

	var rec MutationRecord
	rec.Op = string(buf[1 : 1+opLen])
	offset := 1 + opLen
	copy(rec.Name[:], buf[offset:offset+crypto.XorNameLen])
	offset += crypto.XorNameLen
	rec.Tag = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	copy(rec.MsgID[:], buf[offset:])

	return rec, nil
}

// MutationLog is the append-only journal of every mutation the storage
// group applied, in application order.
type MutationLog struct {
	log       *wal.Log
	nextIndex uint64
}

// OpenMutationLog opens (or creates) the journal at path.
func OpenMutationLog(path string) (*MutationLog, error) {
	log, err := wal.Open(path, &wal.Options{
		NoSync: true,
		NoCopy: true,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "could not open mutation log")
	}

	lastIndex, err := log.LastIndex()
	if err != nil {
		log.Close()
		return nil, errors.WithMessage(err, "could not read last index")
	}

	return &MutationLog{
		log:       log,
		nextIndex: lastIndex + 1,
	}, nil
}

// Append journals one applied mutation.
func (l *MutationLog) Append(rec MutationRecord) error {
	if err := l.log.Write(l.nextIndex, rec.marshal()); err != nil {
		return errors.WithMessagef(err, "could not journal mutation at index %d", l.nextIndex)
	}

	l.nextIndex++

	return nil
}

// Count returns the number of journalled mutations.
func (l *MutationLog) Count() uint64 {
	return l.nextIndex - 1
}

// Replay calls fn for every journalled mutation in application order,
// stopping early if fn returns false.
func (l *MutationLog) Replay(fn func(MutationRecord) bool) error {
	for index := uint64(1); index < l.nextIndex; index++ {
		buf, err := l.log.Read(index)
		if err != nil {
			return errors.WithMessagef(err, "could not read index %d, is the journal corrupt?", index)
		}

		rec, err := unmarshalMutationRecord(buf)
		if err != nil {
			return err
		}

		if !fn(rec) {
			return nil
		}
	}

	return nil
}

// Close releases the journal.
func (l *MutationLog) Close() error {
	return l.log.Close()
}
