package vm

import (
	"bytes"
	"fmt"
	"sync"

	goethkzg "github.com/crate-crypto/go-eth-kzg"
	"github.com/minio/sha256-simd"
)

const (
	pointEvaluationGas         = 50000
	pointEvaluationInputLength = 192
	blobCommitmentVersionKZG   = 0x01
)

var (
	kzgOnce sync.Once
	kzgCtx  *goethkzg.Context
	kzgErr  error

	// FIELD_ELEMENTS_PER_BLOB || BLS_MODULUS, both as 32-byte big-endian words.
	pointEvaluationReturn = func() []byte {
		out := make([]byte, 64)
		out[30] = 0x10 // 4096
		modulus := []byte{
			0x73, 0xed, 0xa7, 0x53, 0x29, 0x9d, 0x7d, 0x48, 0x33, 0x39, 0xd8, 0x08, 0x09, 0xa1, 0xd8, 0x05,
			0x53, 0xbd, 0xa4, 0x02, 0xff, 0xfe, 0x5b, 0xfe, 0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x01,
		}
		copy(out[32:], modulus)
		return out
	}()
)

func kzgContext() (*goethkzg.Context, error) {
	kzgOnce.Do(func() {
		kzgCtx, kzgErr = goethkzg.NewContext4096Secure()
	})
	return kzgCtx, kzgErr
}

// kzgToVersionedHash implements kzg_to_versioned_hash from EIP-4844.
func kzgToVersionedHash(commitment []byte) [32]byte {
	h := sha256.Sum256(commitment)
	h[0] = blobCommitmentVersionKZG
	return h
}

// pointEvaluation is the EIP-4844 point evaluation precompile at 0x0a.
type pointEvaluation struct{}

func (c *pointEvaluation) RequiredGas([]byte) uint64 { return pointEvaluationGas }

func (c *pointEvaluation) Run(input []byte) ([]byte, error) {
	if len(input) != pointEvaluationInputLength {
		return nil, errBadInput
	}
	var (
		commitment goethkzg.KZGCommitment
		proof      goethkzg.KZGProof
		z, y       goethkzg.Scalar
	)
	copy(z[:], input[32:64])
	copy(y[:], input[64:96])
	copy(commitment[:], input[96:144])
	copy(proof[:], input[144:192])

	vh := kzgToVersionedHash(commitment[:])
	if !bytes.Equal(vh[:], input[:32]) {
		return nil, fmt.Errorf("point evaluation: versioned hash mismatch")
	}
	ctx, err := kzgContext()
	if err != nil {
		return nil, fmt.Errorf("point evaluation: %w", err)
	}
	if err := ctx.VerifyKZGProof(commitment, z, y, proof); err != nil {
		return nil, fmt.Errorf("point evaluation: %w", err)
	}
	return bytes.Clone(pointEvaluationReturn), nil
}
