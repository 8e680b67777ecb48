package runrecord

import (
	"errors"
	"os"

	"github.com/accelbench/accelbench/internal/keys"
)

// VerifyFile checks the detached signature written next to a dumped record
// and returns the signer address on success.
func VerifyFile(dumpPath string) (string, error) {
	data, err := os.ReadFile(dumpPath)
	if err != nil {
		return "", err
	}
	sig, err := keys.ReadSignature(dumpPath)
	if err != nil {
		return "", err
	}
	ok, err := keys.VerifyRecord(sig, data)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("signature does not match record")
	}
	return sig.Address, nil
}
