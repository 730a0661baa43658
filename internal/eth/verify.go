package eth

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const signatureLength = 65

// PersonalSignHash computes the EIP-191 "personal_sign" hash of a
// message, the digest wallets actually sign.
func PersonalSignHash(message []byte) common.Hash {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256Hash([]byte(prefixed))
}

// RecoverAddress recovers the signer address of an EIP-191 personal
// message from a hex-encoded 65-byte signature.
func RecoverAddress(message []byte, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(sig) != signatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", signatureLength, len(sig))
	}

	// Wallets encode the recovery id as 27/28; go-ethereum expects 0/1.
	recovered := make([]byte, signatureLength)
	copy(recovered, sig)
	if recovered[64] >= 27 {
		recovered[64] -= 27
	}

	pub, err := crypto.SigToPub(PersonalSignHash(message).Bytes(), recovered)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pub), nil
}

// SignPersonal signs a message with the EIP-191 personal prefix and
// returns the hex-encoded signature in wallet format (V = 27/28).
func SignPersonal(message []byte, key *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(PersonalSignHash(message).Bytes(), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}
