package seal

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/iotaledger/seals.go/common"
	"golang.org/x/xerrors"
)

type Status byte

const (
	// StatusDefined is the seal known to the holder and not validated yet
	StatusDefined = Status(iota)
	// StatusOpen is the seal which outpoint exists and is not spent
	StatusOpen
	// StatusClosed is the seal spent by a witness carrying a valid commitment to the message
	StatusClosed
	// StatusInvalid is the seal which can not be validated as open or closed, see ReasonKind
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusDefined:
		return "defined"
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	case StatusInvalid:
		return "invalid"
	}
	return fmt.Sprintf("Status(%d)", byte(s))
}

// ReasonKind classifies the reason of StatusInvalid. Only a mismatch is final:
// the other kinds may change with the later chain state or the revealed data
type ReasonKind byte

const (
	ReasonNone = ReasonKind(iota)
	// ReasonMismatch is a verification mismatch of the revealed data against the chain
	ReasonMismatch
	// ReasonOutpointUnknown is the sealed output not created yet
	ReasonOutpointUnknown
	// ReasonConflict is the outpoint spent by more than one transaction
	ReasonConflict
	// ReasonNoAnchor is the spent seal with the closing not revealed yet
	ReasonNoAnchor
	// ReasonOther is any other reason
	ReasonOther
)

func (k ReasonKind) String() string {
	switch k {
	case ReasonNone:
		return "none"
	case ReasonMismatch:
		return "mismatch"
	case ReasonOutpointUnknown:
		return "outpoint_unknown"
	case ReasonConflict:
		return "conflict"
	case ReasonNoAnchor:
		return "no_anchor"
	case ReasonOther:
		return "other"
	}
	return fmt.Sprintf("ReasonKind(%d)", byte(k))
}

func (k ReasonKind) IsValid() bool {
	return k <= ReasonOther
}

// KindOf classifies the invalidity reason
func KindOf(reason error) ReasonKind {
	switch {
	case reason == nil:
		return ReasonNone
	case xerrors.Is(reason, common.ErrVerificationMismatch):
		return ReasonMismatch
	case xerrors.Is(reason, ErrOutpointUnknown):
		return ReasonOutpointUnknown
	case xerrors.Is(reason, common.ErrSealConflict):
		return ReasonConflict
	case xerrors.Is(reason, ErrNoAnchor):
		return ReasonNoAnchor
	}
	return ReasonOther
}

// IsFinal is true for the outcomes no later validation can change: closed seals and mismatches
func IsFinal(status Status, kind ReasonKind) bool {
	return status == StatusClosed || (status == StatusInvalid && kind == ReasonMismatch)
}

// Result is the verdict of the seal validation
type Result struct {
	Status Status
	// Message is set for StatusClosed
	Message common.Message
	// Witness is the spending transaction, if any
	Witness *chainhash.Hash
	// Vout is the output of the witness carrying the container, for StatusClosed
	Vout int
	// Reason of StatusInvalid
	Reason error
}

func (r *Result) Kind() ReasonKind {
	if r.Status != StatusInvalid {
		return ReasonNone
	}
	return KindOf(r.Reason)
}

func (r *Result) IsFinal() bool {
	return IsFinal(r.Status, r.Kind())
}

func (r *Result) String() string {
	switch r.Status {
	case StatusClosed:
		return fmt.Sprintf("closed(%s) by %s:%d", r.Message, r.Witness, r.Vout)
	case StatusInvalid:
		return fmt.Sprintf("invalid: %v", r.Reason)
	}
	return r.Status.String()
}
