// Package execid derives the unique identifier ("exec hash") for an
// execution request. The hash is a pure function of the request content plus
// the nonce the registry consumed for it, so two requests with identical
// content still get distinct identifiers.
package execid

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Hash computes keccak256 over the order-sensitive packed encoding of
// (nonce, strategy, calldata, gasPrice). Packing layout: 8-byte big-endian
// nonce, 20-byte strategy address, raw calldata, 32-byte left-padded gas
// price.
func Hash(nonce uint64, strategy common.Address, calldata []byte, gasPrice *big.Int) common.Hash {
	buf := make([]byte, 0, 8+common.AddressLength+len(calldata)+common.HashLength)

	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], nonce)
	buf = append(buf, nonceBytes[:]...)

	buf = append(buf, strategy.Bytes()...)
	buf = append(buf, calldata...)
	buf = append(buf, common.BigToHash(gasPrice).Bytes()...)

	return crypto.Keccak256Hash(buf)
}
