package pool

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/mystikonetwork/relayer/types"
)

func testParams() *types.TransactParams {
	sigPk := make(types.HexBytes, 32)
	sigPk[31] = 0x7
	return &types.TransactParams{
		Proof: types.Proof{
			A: types.G1Point{X: types.NewBigInt(1), Y: types.NewBigInt(2)},
			B: types.G2Point{
				X: [2]*types.BigInt{types.NewBigInt(3), types.NewBigInt(4)},
				Y: [2]*types.BigInt{types.NewBigInt(5), types.NewBigInt(6)},
			},
			C: types.G1Point{X: types.NewBigInt(7), Y: types.NewBigInt(8)},
		},
		RootHash:                types.NewBigInt(1234),
		SerialNumbers:           []*types.BigInt{types.NewBigInt(11)},
		SigHashes:               []*types.BigInt{types.NewBigInt(22)},
		SigPk:                   sigPk,
		PublicAmount:            types.NewBigInt(1000),
		RelayerFeeAmount:        types.NewBigInt(50),
		OutCommitments:          []*types.BigInt{types.NewBigInt(33), types.NewBigInt(44)},
		OutRollupFees:           []*types.BigInt{types.NewBigInt(1), types.NewBigInt(2)},
		PublicRecipient:         "0x1111111111111111111111111111111111111111",
		RelayerAddress:          "0x2222222222222222222222222222222222222222",
		OutEncryptedNotes:       []types.HexBytes{{0xde, 0xad}, {0xbe, 0xef}},
		RandomAuditingPublicKey: types.NewBigInt(99),
		EncryptedAuditorNotes:   []*types.BigInt{types.NewBigInt(5)},
	}
}

func TestEncodeTransact(t *testing.T) {
	c := qt.New(t)
	data, err := EncodeTransact(testParams(), "0xaabbcc")
	c.Assert(err, qt.IsNil)
	c.Assert(len(data) > 4, qt.IsTrue)
	c.Assert(bytes.Equal(data[:4], PoolABI.Methods["transact"].ID), qt.IsTrue)

	// The calldata decodes back into the two declared arguments.
	values, err := PoolABI.Methods["transact"].Inputs.UnpackValues(data[4:])
	c.Assert(err, qt.IsNil)
	c.Assert(values, qt.HasLen, 2)
	c.Assert(values[1].([]byte), qt.DeepEquals, []byte{0xaa, 0xbb, 0xcc})

	// Encoding is deterministic.
	again, err := EncodeTransact(testParams(), "0xaabbcc")
	c.Assert(err, qt.IsNil)
	c.Assert(bytes.Equal(data, again), qt.IsTrue)
}

func TestEncodeTransactRejectsBadInput(t *testing.T) {
	c := qt.New(t)

	params := testParams()
	params.SigPk = types.HexBytes{0x01}
	_, err := EncodeTransact(params, "0xaabbcc")
	c.Assert(err, qt.ErrorMatches, "sig_pk must be 32 bytes.*")

	params = testParams()
	params.PublicRecipient = "not-an-address"
	_, err = EncodeTransact(params, "0xaabbcc")
	c.Assert(err, qt.ErrorMatches, "invalid public_recipient.*")

	params = testParams()
	_, err = EncodeTransact(params, "zzzz")
	c.Assert(err, qt.ErrorMatches, "decode signature.*")
}

func TestEncodeTransactNilFieldsDefaultToZero(t *testing.T) {
	c := qt.New(t)
	params := testParams()
	params.RootHash = nil
	params.RandomAuditingPublicKey = nil
	data, err := EncodeTransact(params, "0x00")
	c.Assert(err, qt.IsNil)
	c.Assert(len(data) > 4, qt.IsTrue)
}
