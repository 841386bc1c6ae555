package vm

import "fmt"

// InstructionResult is the execution status of an interpreter. Statuses are
// plain data carried up the frame chain; they are never raised as Go errors.
type InstructionResult uint8

const (
	Continue InstructionResult = iota

	// success kinds
	Stop
	Return
	SelfDestruct

	// revert kinds
	Revert
	CallTooDeep
	OutOfFunds

	// CallOrCreate suspends the interpreter until a child frame returns.
	CallOrCreate

	// error kinds
	OutOfGas
	MemoryOOG
	MemoryLimitOOG
	PrecompileOOG
	InvalidOperandOOG
	OpcodeNotFound
	CallNotAllowedInsideStatic
	StateChangeDuringStaticCall
	InvalidFEOpcode
	InvalidJump
	NotActivated
	StackUnderflow
	StackOverflow
	OutOfOffset
	CreateCollision
	OverflowPayment
	PrecompileError
	NonceOverflow
	CreateContractSizeLimit
	CreateContractStartingWithEF
	CreateInitCodeSizeLimit
	FatalExternalError
)

var resultNames = [...]string{
	Continue:                     "Continue",
	Stop:                         "Stop",
	Return:                       "Return",
	SelfDestruct:                 "SelfDestruct",
	Revert:                       "Revert",
	CallTooDeep:                  "CallTooDeep",
	OutOfFunds:                   "OutOfFunds",
	CallOrCreate:                 "CallOrCreate",
	OutOfGas:                     "OutOfGas",
	MemoryOOG:                    "MemoryOOG",
	MemoryLimitOOG:               "MemoryLimitOOG",
	PrecompileOOG:                "PrecompileOOG",
	InvalidOperandOOG:            "InvalidOperandOOG",
	OpcodeNotFound:               "OpcodeNotFound",
	CallNotAllowedInsideStatic:   "CallNotAllowedInsideStatic",
	StateChangeDuringStaticCall:  "StateChangeDuringStaticCall",
	InvalidFEOpcode:              "InvalidFEOpcode",
	InvalidJump:                  "InvalidJump",
	NotActivated:                 "NotActivated",
	StackUnderflow:               "StackUnderflow",
	StackOverflow:                "StackOverflow",
	OutOfOffset:                  "OutOfOffset",
	CreateCollision:              "CreateCollision",
	OverflowPayment:              "OverflowPayment",
	PrecompileError:              "PrecompileError",
	NonceOverflow:                "NonceOverflow",
	CreateContractSizeLimit:      "CreateContractSizeLimit",
	CreateContractStartingWithEF: "CreateContractStartingWithEF",
	CreateInitCodeSizeLimit:      "CreateInitCodeSizeLimit",
	FatalExternalError:           "FatalExternalError",
}

func (r InstructionResult) String() string {
	if int(r) < len(resultNames) {
		return resultNames[r]
	}
	return fmt.Sprintf("InstructionResult(%d)", uint8(r))
}

// IsOk reports a success kind: Stop, Return or SelfDestruct.
func (r InstructionResult) IsOk() bool {
	return r == Stop || r == Return || r == SelfDestruct
}

// IsRevert reports a revert kind. Reverts roll back state but return the
// frame's unused gas to the caller.
func (r InstructionResult) IsRevert() bool {
	return r == Revert || r == CallTooDeep || r == OutOfFunds
}

// IsError reports an error kind. Errors roll back state and forfeit all gas.
func (r InstructionResult) IsError() bool {
	return r >= OutOfGas
}
