package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Contract is the code being executed by one interpreter together with the
// call context it runs in.
type Contract struct {
	Caller   common.Address
	Address  common.Address // storage and balance context
	Code     []byte
	CodeHash common.Hash
	Input    []byte
	Value    uint256.Int // apparent value, as seen by CALLVALUE

	jumpdests []bool // lazily built JUMPDEST bitmap
}

// NewContract builds a contract for code running at address on behalf of
// caller.
func NewContract(caller, address common.Address, value uint256.Int, code, input []byte) *Contract {
	return &Contract{
		Caller:  caller,
		Address: address,
		Code:    code,
		Input:   input,
		Value:   value,
	}
}

// NewContractFromCall builds the contract for a message call frame.
func NewContractFromCall(inputs *CallInputs, code []byte, codeHash common.Hash) *Contract {
	c := NewContract(inputs.Caller, inputs.TargetAddress, inputs.Value.Amount, code, inputs.Input)
	c.CodeHash = codeHash
	return c
}

// NewContractFromCreate builds the contract running the init code of a
// create frame at the freshly derived address.
func NewContractFromCreate(inputs *CreateInputs, address common.Address) *Contract {
	return NewContract(inputs.Caller, address, inputs.Value, inputs.InitCode, nil)
}

// GetOp returns the opcode at position n, or STOP past the end of code.
func (c *Contract) GetOp(n uint64) OpCode {
	if n < uint64(len(c.Code)) {
		return OpCode(c.Code[n])
	}
	return STOP
}

// Hash returns the keccak256 of the code, computing it on first use.
func (c *Contract) Hash() common.Hash {
	if c.CodeHash == (common.Hash{}) {
		c.CodeHash = crypto.Keccak256Hash(c.Code)
	}
	return c.CodeHash
}

// ValidJumpdest reports whether dest is a JUMPDEST that is not push data.
func (c *Contract) ValidJumpdest(dest *uint256.Int) bool {
	if !dest.IsUint64() {
		return false
	}
	udest := dest.Uint64()
	if udest >= uint64(len(c.Code)) {
		return false
	}
	if c.jumpdests == nil {
		c.analyzeJumpdests()
	}
	return c.jumpdests[udest]
}

func (c *Contract) analyzeJumpdests() {
	c.jumpdests = make([]bool, len(c.Code))
	for i := 0; i < len(c.Code); i++ {
		op := OpCode(c.Code[i])
		if op == JUMPDEST {
			c.jumpdests[i] = true
		}
		i += op.ImmediateSize()
	}
}
