package execid

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
)

var strategy = common.HexToAddress("0x7777777777777777777777777777777777777777")

func TestHashIsDeterministic(t *testing.T) {
	a := Hash(1, strategy, []byte{0x01, 0x02}, big.NewInt(100))
	b := Hash(1, strategy, []byte{0x01, 0x02}, big.NewInt(100))
	assert.Equal(t, a, b)
}

func TestHashVariesWithEveryField(t *testing.T) {
	base := Hash(1, strategy, []byte{0x01}, big.NewInt(100))

	assert.NotEqual(t, base, Hash(2, strategy, []byte{0x01}, big.NewInt(100)))
	assert.NotEqual(t, base, Hash(1, common.HexToAddress("0x01"), []byte{0x01}, big.NewInt(100)))
	assert.NotEqual(t, base, Hash(1, strategy, []byte{0x02}, big.NewInt(100)))
	assert.NotEqual(t, base, Hash(1, strategy, []byte{0x01}, big.NewInt(101)))
}

func TestHashMatchesPackedKeccak(t *testing.T) {
	calldata := []byte{0xde, 0xad, 0xbe, 0xef}
	gasPrice := big.NewInt(1337)

	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], 42)
	packed := append([]byte{}, nonceBytes[:]...)
	packed = append(packed, strategy.Bytes()...)
	packed = append(packed, calldata...)
	packed = append(packed, common.BigToHash(gasPrice).Bytes()...)

	assert.Equal(t, crypto.Keccak256Hash(packed), Hash(42, strategy, calldata, gasPrice))
}

func TestHashEmptyCalldata(t *testing.T) {
	// Empty and nil calldata pack identically.
	assert.Equal(t,
		Hash(7, strategy, nil, big.NewInt(0)),
		Hash(7, strategy, []byte{}, big.NewInt(0)))
}

func TestHashFieldBoundaries(t *testing.T) {
	// Calldata bytes must not be confusable with the gas price padding: a
	// trailing zero byte in calldata changes the digest.
	assert.NotEqual(t,
		Hash(1, strategy, []byte{0x01}, big.NewInt(5)),
		Hash(1, strategy, []byte{0x01, 0x00}, big.NewInt(5)))
}
