package keys

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
)

// RecordSignature is the detached signature written next to a run-record
// dump (<dump>.sig). The address lets a collector attribute the record
// without any key registry.
type RecordSignature struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

// SigFile returns the path of the detached signature for a dump file.
func SigFile(dumpPath string) string {
	return dumpPath + ".sig"
}

func recordHash(record []byte) []byte {
	digest := sha256.Sum256(record)
	message := fmt.Sprintf("%x", digest)
	return crypto.Keccak256([]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)))
}

// SignRecord signs run-record bytes with the operator key.
func SignRecord(privateKey *ecdsa.PrivateKey, record []byte) (RecordSignature, error) {
	signature, err := crypto.Sign(recordHash(record), privateKey)
	if err != nil {
		return RecordSignature{}, fmt.Errorf("failed to sign record: %w", err)
	}
	signature[64] += 27 // for EIP-155 compatibility

	return RecordSignature{
		Address:   crypto.PubkeyToAddress(privateKey.PublicKey).Hex(),
		Signature: hex.EncodeToString(signature),
	}, nil
}

// VerifyRecord checks a detached signature against run-record bytes by
// recovering the signer address and comparing it to the claimed one.
func VerifyRecord(sig RecordSignature, record []byte) (bool, error) {
	signature, err := hex.DecodeString(sig.Signature)
	if err != nil {
		return false, fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(signature) == 65 {
		// EIP-155 replay protection, v is 27 or 28
		if signature[64] == 27 || signature[64] == 28 {
			signature[64] -= 27
		}
	}

	sigPublicKey, err := crypto.SigToPub(recordHash(record), signature)
	if err != nil {
		return false, err
	}

	recoveredAddress := crypto.PubkeyToAddress(*sigPublicKey).Hex()
	return recoveredAddress == sig.Address, nil
}

// WriteSignature persists the detached signature for a dump file.
func WriteSignature(dumpPath string, sig RecordSignature) error {
	data, err := json.MarshalIndent(sig, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(SigFile(dumpPath), data, 0644)
}

// ReadSignature loads the detached signature for a dump file.
func ReadSignature(dumpPath string) (RecordSignature, error) {
	data, err := os.ReadFile(SigFile(dumpPath))
	if err != nil {
		return RecordSignature{}, err
	}
	var sig RecordSignature
	if err := json.Unmarshal(data, &sig); err != nil {
		return RecordSignature{}, err
	}
	return sig, nil
}
