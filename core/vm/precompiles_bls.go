package vm

import (
	"errors"

	gethparams "github.com/ethereum/go-ethereum/params"
	blst "github.com/supranational/blst/bindings/go"
)

const (
	blsFpEncodedLength = 64 // 16 zero bytes of padding then 48 bytes big-endian
	blsG1EncodedLength = 2 * blsFpEncodedLength
)

var errBLSInvalidPoint = errors.New("bls12-381: invalid G1 point")

// bls12381G1Add is the EIP-2537 G1 addition precompile at 0x0b.
type bls12381G1Add struct{}

func (c *bls12381G1Add) RequiredGas([]byte) uint64 { return gethparams.Bls12381G1AddGas }

func (c *bls12381G1Add) Run(input []byte) ([]byte, error) {
	if len(input) != 2*blsG1EncodedLength {
		return nil, errBadInput
	}
	a, err := decodeG1(input[:blsG1EncodedLength])
	if err != nil {
		return nil, err
	}
	b, err := decodeG1(input[blsG1EncodedLength:])
	if err != nil {
		return nil, err
	}

	if a == nil && b == nil {
		return make([]byte, blsG1EncodedLength), nil
	}
	var sum *blst.P1
	for _, pt := range []*blst.P1Affine{a, b} {
		if pt == nil {
			continue
		}
		p := new(blst.P1)
		p.FromAffine(pt)
		if sum == nil {
			sum = p
		} else {
			sum.AddAssign(p)
		}
	}
	return encodeG1(sum.ToAffine()), nil
}

// decodeG1 parses a padded uncompressed G1 point. The all-zero encoding is
// the point at infinity and decodes to nil.
func decodeG1(in []byte) (*blst.P1Affine, error) {
	if !allZero(in[:16]) || !allZero(in[blsFpEncodedLength:blsFpEncodedLength+16]) {
		return nil, errBLSInvalidPoint
	}
	if allZero(in) {
		return nil, nil
	}
	raw := make([]byte, 96)
	copy(raw[:48], in[16:blsFpEncodedLength])
	copy(raw[48:], in[blsFpEncodedLength+16:])
	p := new(blst.P1Affine).Deserialize(raw)
	if p == nil {
		return nil, errBLSInvalidPoint
	}
	return p, nil
}

func encodeG1(p *blst.P1Affine) []byte {
	out := make([]byte, blsG1EncodedLength)
	raw := p.Serialize()
	if raw[0]&0x40 != 0 { // infinity flag
		return out
	}
	copy(out[16:blsFpEncodedLength], raw[:48])
	copy(out[blsFpEncodedLength+16:], raw[48:])
	return out
}
