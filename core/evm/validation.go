package evm

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eth2030/evmcore/core/state"
	"github.com/eth2030/evmcore/core/vm"
	"github.com/eth2030/evmcore/params"
)

// Transaction validation errors. A transaction failing any of these is not
// executed and leaves no state changes behind.
var (
	ErrIntrinsicGasTooLow    = errors.New("evm: gas limit below intrinsic gas")
	ErrGasLimitAboveBlock    = errors.New("evm: gas limit exceeds block gas limit")
	ErrGasPriceBelowBaseFee  = errors.New("evm: gas price below block base fee")
	ErrInitCodeSizeLimit     = errors.New("evm: init code size exceeds limit")
	ErrNonceMismatch         = errors.New("evm: nonce mismatch")
	ErrInsufficientFunds     = errors.New("evm: insufficient funds for gas * price + value")
	ErrGasCostOverflow       = errors.New("evm: gas limit * gas price overflows")
	ErrCallerNonceAtMaxValue = errors.New("evm: caller nonce at max value")
	ErrCallerHasDeployedCode = errors.New("evm: caller has deployed code")
)

// IntrinsicGas returns the gas charged before the first frame runs: the
// base transaction cost, calldata, the access list and, from Shanghai on,
// the init code words of a create.
func IntrinsicGas(spec params.SpecID, tx *vm.TxEnv) uint64 {
	gas := params.TxGas
	if tx.IsCreate() && spec.IsEnabledIn(params.Homestead) {
		gas = params.TxGasContractCreation
	}

	nonZero := params.TxDataNonZeroFrontier
	if spec.IsEnabledIn(params.Istanbul) {
		nonZero = params.TxDataNonZeroEIP2028
	}
	for _, b := range tx.Data {
		if b == 0 {
			gas += params.TxDataZeroGas
		} else {
			gas += nonZero
		}
	}

	if spec.IsEnabledIn(params.Berlin) {
		for _, t := range tx.AccessList {
			gas += params.TxAccessListAddressGas
			gas += uint64(len(t.StorageKeys)) * params.TxAccessListStorageKeyGas
		}
	}
	if tx.IsCreate() && spec.IsEnabledIn(params.Shanghai) {
		gas += (uint64(len(tx.Data)) + 31) / 32 * params.InitCodeWordGas
	}
	return gas
}

// validateEnv checks the transaction against the block and returns its
// intrinsic gas.
func validateEnv(spec params.SpecID, env *vm.Env) (uint64, error) {
	tx := &env.Tx
	if tx.GasLimit > env.Block.GasLimit {
		return 0, fmt.Errorf("%w: %d > %d", ErrGasLimitAboveBlock, tx.GasLimit, env.Block.GasLimit)
	}
	if spec.IsEnabledIn(params.London) && !env.Cfg.DisableBaseFee && tx.GasPrice.Lt(&env.Block.BaseFee) {
		return 0, fmt.Errorf("%w: %s < %s", ErrGasPriceBelowBaseFee, tx.GasPrice.Dec(), env.Block.BaseFee.Dec())
	}
	if tx.IsCreate() && spec.IsEnabledIn(params.Shanghai) && len(tx.Data) > params.MaxInitCodeSize {
		return 0, fmt.Errorf("%w: %d", ErrInitCodeSizeLimit, len(tx.Data))
	}
	intrinsic := IntrinsicGas(spec, tx)
	if tx.GasLimit < intrinsic {
		return 0, fmt.Errorf("%w: have %d, want %d", ErrIntrinsicGasTooLow, tx.GasLimit, intrinsic)
	}
	return intrinsic, nil
}

// validateCaller checks the caller account against the transaction and
// returns the up-front gas cost.
func validateCaller(env *vm.Env, caller *state.Account) (uint256.Int, error) {
	tx := &env.Tx
	if caller.Info.HasCode() {
		return uint256.Int{}, fmt.Errorf("%w: %s", ErrCallerHasDeployedCode, tx.Caller)
	}
	if !env.Cfg.DisableNonceCheck && tx.Nonce != nil {
		if caller.Info.Nonce == ^uint64(0) {
			return uint256.Int{}, ErrCallerNonceAtMaxValue
		}
		if *tx.Nonce != caller.Info.Nonce {
			return uint256.Int{}, fmt.Errorf("%w: tx %d, state %d", ErrNonceMismatch, *tx.Nonce, caller.Info.Nonce)
		}
	}

	price := env.EffectiveGasPrice()
	var cost uint256.Int
	if _, overflow := cost.MulOverflow(uint256.NewInt(tx.GasLimit), &price); overflow {
		return uint256.Int{}, ErrGasCostOverflow
	}
	if env.Cfg.DisableBalanceCheck {
		return cost, nil
	}
	var need uint256.Int
	if _, overflow := need.AddOverflow(&cost, &tx.Value); overflow || caller.Info.Balance.Lt(&need) {
		return uint256.Int{}, fmt.Errorf("%w: address %s have %s want %s",
			ErrInsufficientFunds, tx.Caller, caller.Info.Balance.Dec(), need.Dec())
	}
	return cost, nil
}
