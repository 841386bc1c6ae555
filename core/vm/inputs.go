package vm

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// MemoryRange is a region of the parent's memory that receives a child's
// return data.
type MemoryRange struct {
	Offset uint64
	Length uint64
}

// CallScheme distinguishes the four message-call instructions.
type CallScheme uint8

const (
	SchemeCall CallScheme = iota
	SchemeCallCode
	SchemeDelegateCall
	SchemeStaticCall
)

func (s CallScheme) String() string {
	switch s {
	case SchemeCall:
		return "CALL"
	case SchemeCallCode:
		return "CALLCODE"
	case SchemeDelegateCall:
		return "DELEGATECALL"
	case SchemeStaticCall:
		return "STATICCALL"
	}
	return "UNKNOWN"
}

// CallValue is the value attached to a call. A transfer moves Amount from
// caller to target; an apparent value (DELEGATECALL) is only what CALLVALUE
// reports inside the child.
type CallValue struct {
	Amount   uint256.Int
	Apparent bool
}

// TransferValue returns the amount to move, if any.
func (v CallValue) TransferValue() (uint256.Int, bool) {
	if v.Apparent {
		return uint256.Int{}, false
	}
	return v.Amount, true
}

// TransfersValue reports a non-zero transfer.
func (v CallValue) TransfersValue() bool {
	return !v.Apparent && !v.Amount.IsZero()
}

// CallInputs describes a message call request.
type CallInputs struct {
	Input              []byte
	ReturnMemoryOffset MemoryRange
	GasLimit           uint64
	BytecodeAddress    common.Address // whose code runs
	TargetAddress      common.Address // whose storage and balance are used
	Caller             common.Address
	Value              CallValue
	Scheme             CallScheme
	IsStatic           bool
}

// Clone returns a deep copy.
func (c *CallInputs) Clone() *CallInputs {
	cp := *c
	cp.Input = bytes.Clone(c.Input)
	return &cp
}

// CreateKind distinguishes CREATE from CREATE2.
type CreateKind uint8

const (
	CreateKindCreate CreateKind = iota
	CreateKindCreate2
)

// CreateScheme selects the address derivation of a create.
type CreateScheme struct {
	Kind CreateKind
	Salt uint256.Int // CREATE2 only
}

// CreateInputs describes a contract creation request.
type CreateInputs struct {
	Caller   common.Address
	Scheme   CreateScheme
	Value    uint256.Int
	InitCode []byte
	GasLimit uint64
}

// Clone returns a deep copy.
func (c *CreateInputs) Clone() *CreateInputs {
	cp := *c
	cp.InitCode = bytes.Clone(c.InitCode)
	return &cp
}

// CreatedAddress derives the new contract address. nonce is the caller's
// nonce before it is bumped and only matters for CREATE.
func (c *CreateInputs) CreatedAddress(nonce uint64) common.Address {
	if c.Scheme.Kind == CreateKindCreate2 {
		salt := c.Scheme.Salt.Bytes32()
		return crypto.CreateAddress2(c.Caller, salt, crypto.Keccak256(c.InitCode))
	}
	return crypto.CreateAddress(c.Caller, nonce)
}

// InterpreterResult is what a finished frame hands back.
type InterpreterResult struct {
	Result InstructionResult
	Output []byte
	Gas    Gas
}

func (r *InterpreterResult) IsOk() bool     { return r.Result.IsOk() }
func (r *InterpreterResult) IsRevert() bool { return r.Result.IsRevert() }
func (r *InterpreterResult) IsError() bool  { return r.Result.IsError() }

// CallOutcome is the result of a finished call frame plus where in the
// parent's memory its output goes.
type CallOutcome struct {
	Result       InterpreterResult
	MemoryOffset MemoryRange
}

// NewCallOutcome pairs a result with its return region.
func NewCallOutcome(result InterpreterResult, memoryOffset MemoryRange) CallOutcome {
	return CallOutcome{Result: result, MemoryOffset: memoryOffset}
}

// InstructionResult returns the status of the call.
func (o *CallOutcome) InstructionResult() InstructionResult { return o.Result.Result }

// Output returns the child's return data.
func (o *CallOutcome) Output() []byte { return o.Result.Output }

// CreateOutcome is the result of a finished create frame. Address is only
// set when the create succeeded.
type CreateOutcome struct {
	Result  InterpreterResult
	Address *common.Address
}

// NewCreateOutcome pairs a result with the created address.
func NewCreateOutcome(result InterpreterResult, address *common.Address) CreateOutcome {
	return CreateOutcome{Result: result, Address: address}
}

// InstructionResult returns the status of the create.
func (o *CreateOutcome) InstructionResult() InstructionResult { return o.Result.Result }

// Output returns the init code's return data.
func (o *CreateOutcome) Output() []byte { return o.Result.Output }

// ActionKind tells the frame driver why an interpreter stopped running.
type ActionKind uint8

const (
	ActionNone ActionKind = iota
	ActionCall
	ActionCreate
	ActionReturn
)

// InterpreterAction is the request an interpreter yields: run a child call
// or create, or finish the frame with a result.
type InterpreterAction struct {
	Kind   ActionKind
	Call   *CallInputs
	Create *CreateInputs
	Result *InterpreterResult
}
