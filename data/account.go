/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package data

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// TypeTagSessionPacket is the reserved tag of the mutable record whose
// storage creates a client account.
const TypeTagSessionPacket uint64 = 0

// AccLoginEntryKey is the reserved entry key holding the serialized account
// packet inside a session packet record.
var AccLoginEntryKey = []byte("Login")

// AccountInfo reports an account's mutation budget.
type AccountInfo struct {
	MutationsDone      uint64
	MutationsAvailable uint64
}

// AccountPacket is the opaque payload stored under AccLoginEntryKey when an
// account is created with an invitation.
type AccountPacket struct {
	InvitationString string
	AccPkt           []byte
}

// Marshal encodes the packet as two little-endian u32 length prefixed byte
// sequences, invitation first.
func (p AccountPacket) Marshal() []byte {
	invitation := []byte(p.InvitationString)
	buf := make([]byte, 0, 4+len(invitation)+4+len(p.AccPkt))

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(invitation)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, invitation...)

	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(p.AccPkt)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, p.AccPkt...)

	return buf
}

// UnmarshalAccountPacket decodes a packet produced by Marshal.
func UnmarshalAccountPacket(buf []byte) (AccountPacket, error) {
	if len(buf) < 4 {
		return AccountPacket{}, errors.Errorf("account packet truncated at %d bytes", len(buf))
	}

	invitationLen := binary.LittleEndian.Uint32(buf[0:4])
	offset := 4 + int(invitationLen)
	if len(buf) < offset+4 {
		return AccountPacket{}, errors.Errorf("account packet truncated at %d bytes", len(buf))
	}

	invitation := string(buf[4:offset])

	accPktLen := binary.LittleEndian.Uint32(buf[offset : offset+4])
	offset += 4
	if len(buf) != offset+int(accPktLen) {
		return AccountPacket{}, errors.Errorf("account packet length mismatch: %d trailing bytes", len(buf)-offset)
	}

	var accPkt []byte
	if accPktLen > 0 {
		accPkt = make([]byte, accPktLen)
		copy(accPkt, buf[offset:])
	}

	return AccountPacket{
		InvitationString: invitation,
		AccPkt:           accPkt,
	}, nil
}
