package params

import gethparams "github.com/ethereum/go-ethereum/params"

// Protocol limits.
const (
	CallCreateDepth = gethparams.CallCreateDepth // maximum frame nesting
	StackLimit      = gethparams.StackLimit
	MaxCodeSize     = gethparams.MaxCodeSize     // EIP-170
	MaxInitCodeSize = gethparams.MaxInitCodeSize // EIP-3860
	CallStipend     = gethparams.CallStipend
)

// Gas schedule.
const (
	TxGas                 = gethparams.TxGas
	TxGasContractCreation = gethparams.TxGasContractCreation
	TxDataZeroGas         = gethparams.TxDataZeroGas
	TxDataNonZeroFrontier = gethparams.TxDataNonZeroGasFrontier
	TxDataNonZeroEIP2028  = gethparams.TxDataNonZeroGasEIP2028

	TxAccessListAddressGas    = gethparams.TxAccessListAddressGas
	TxAccessListStorageKeyGas = gethparams.TxAccessListStorageKeyGas

	CreateGas       = gethparams.CreateGas
	CreateDataGas   = gethparams.CreateDataGas
	InitCodeWordGas = gethparams.InitCodeWordGas

	Keccak256Gas     = gethparams.Keccak256Gas
	Keccak256WordGas = gethparams.Keccak256WordGas
	MemoryGas        = gethparams.MemoryGas
	QuadCoeffDiv     = gethparams.QuadCoeffDiv
	CopyGas          = gethparams.CopyGas

	LogGas      = gethparams.LogGas
	LogTopicGas = gethparams.LogTopicGas
	LogDataGas  = gethparams.LogDataGas

	JumpdestGas = gethparams.JumpdestGas
	ExpGas      = gethparams.ExpGas

	ExpByteFrontier = gethparams.ExpByteFrontier
	ExpByteEIP158   = gethparams.ExpByteEIP158

	CallGasFrontier      = gethparams.CallGasFrontier
	CallGasEIP150        = gethparams.CallGasEIP150
	CallValueTransferGas = gethparams.CallValueTransferGas
	CallNewAccountGas    = gethparams.CallNewAccountGas

	SloadGasFrontier = gethparams.SloadGasFrontier
	SloadGasEIP150   = gethparams.SloadGasEIP150
	SloadGasEIP2200  = gethparams.SloadGasEIP2200

	SstoreSetGas    = gethparams.SstoreSetGas
	SstoreResetGas  = gethparams.SstoreResetGas
	SstoreRefundGas = gethparams.SstoreRefundGas

	SstoreSentryGasEIP2200            = gethparams.SstoreSentryGasEIP2200
	SstoreSetGasEIP2200               = gethparams.SstoreSetGasEIP2200
	SstoreResetGasEIP2200             = gethparams.SstoreResetGasEIP2200
	SstoreClearsScheduleRefundEIP2200 = gethparams.SstoreClearsScheduleRefundEIP2200
	SstoreClearsScheduleRefundEIP3529 = gethparams.SstoreClearsScheduleRefundEIP3529

	ColdAccountAccessCostEIP2929 = gethparams.ColdAccountAccessCostEIP2929
	ColdSloadCostEIP2929         = gethparams.ColdSloadCostEIP2929
	WarmStorageReadCostEIP2929   = gethparams.WarmStorageReadCostEIP2929

	BalanceGasFrontier = gethparams.BalanceGasFrontier
	BalanceGasEIP150   = gethparams.BalanceGasEIP150
	BalanceGasEIP1884  = gethparams.BalanceGasEIP1884

	ExtcodeSizeGasFrontier       = gethparams.ExtcodeSizeGasFrontier
	ExtcodeSizeGasEIP150         = gethparams.ExtcodeSizeGasEIP150
	ExtcodeCopyBaseFrontier      = gethparams.ExtcodeCopyBaseFrontier
	ExtcodeCopyBaseEIP150        = gethparams.ExtcodeCopyBaseEIP150
	ExtcodeHashGasConstantinople = gethparams.ExtcodeHashGasConstantinople
	ExtcodeHashGasEIP1884        = gethparams.ExtcodeHashGasEIP1884
	SloadGasEIP1884              = gethparams.SloadGasEIP1884

	SelfdestructGasEIP150   = gethparams.SelfdestructGasEIP150
	SelfdestructRefundGas   = gethparams.SelfdestructRefundGas
	CreateBySelfdestructGas = gethparams.CreateBySelfdestructGas
)
