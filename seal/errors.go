package seal

import (
	"github.com/iotaledger/seals.go/common"
	"golang.org/x/xerrors"
)

// Seal parsing and definition errors. All of them are common.ErrMalformedInput
var (
	ErrMethodRequired = xerrors.Errorf("single-use-seal must start with the method name (e.g. 'tapret1st'): %w", common.ErrMalformedInput)
	ErrTxidRequired   = xerrors.Errorf("full transaction id is required for the seal definition: %w", common.ErrMalformedInput)
	ErrWrongMethod    = xerrors.Errorf("wrong seal close method id: %w", common.ErrMalformedInput)
	ErrWrongTxid      = xerrors.Errorf("unable to parse transaction id value, it must be 64-character hexadecimal string: %w", common.ErrMalformedInput)
	ErrWrongVout      = xerrors.Errorf("unable to parse transaction vout value, it must be a decimal unsigned integer: %w", common.ErrMalformedInput)
	ErrWrongStructure = xerrors.Errorf("wrong structure of seal string representation: %w", common.ErrMalformedInput)
	ErrWrongBlinding  = xerrors.Errorf("unable to parse blinding factor, it must be a decimal unsigned integer: %w", common.ErrMalformedInput)
	ErrBech32         = xerrors.Errorf("wrong Bech32 representation of the concealed seal: %w", common.ErrMalformedInput)
	// ErrWitnessVout is returned for a seal without txid when the outpoint is required
	ErrWitnessVout = xerrors.Errorf("seal is defined on the witness transaction output, txid is unknown: %w", common.ErrMalformedInput)
)

// Verdict reasons, carried in Result.Reason. Mismatches are never returned as Go errors
var (
	ErrOutpointUnknown   = xerrors.New("sealed outpoint was never created")
	ErrNoAnchor          = xerrors.New("seal is spent but no anchor is revealed")
	ErrDisclosure        = xerrors.Errorf("revealed seal does not match the concealed one: %w", common.ErrVerificationMismatch)
	ErrWrongCloseMethod  = xerrors.Errorf("anchor close method differs from the seal's: %w", common.ErrVerificationMismatch)
	ErrWrongProtocol     = xerrors.Errorf("anchor protocol differs from the expected one: %w", common.ErrVerificationMismatch)
	ErrNotSpendingSeal   = xerrors.Errorf("witness transaction does not spend the sealed outpoint: %w", common.ErrVerificationMismatch)
	ErrContainerMismatch = xerrors.Errorf("witness transaction does not carry the commitment: %w", common.ErrVerificationMismatch)
	ErrInclusionMismatch = xerrors.Errorf("message is not committed under the anchor's proof: %w", common.ErrVerificationMismatch)
)
