package keys

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyRecord(t *testing.T) {
	privateKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	record := []byte(`{"name":"STREAM","validated":true}`)

	sig, err := SignRecord(privateKey, record)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(privateKey.PublicKey).Hex(), sig.Address)
	assert.Len(t, sig.Signature, 130) // 65 bytes hex encoded

	t.Run("valid signature verifies", func(t *testing.T) {
		ok, err := VerifyRecord(sig, record)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("tampered record fails", func(t *testing.T) {
		ok, err := VerifyRecord(sig, []byte(`{"name":"STREAM","validated":false}`))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("wrong address fails", func(t *testing.T) {
		other, err := crypto.GenerateKey()
		require.NoError(t, err)

		forged := sig
		forged.Address = crypto.PubkeyToAddress(other.PublicKey).Hex()
		ok, err := VerifyRecord(forged, record)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("garbage signature errors", func(t *testing.T) {
		_, err := VerifyRecord(RecordSignature{Address: sig.Address, Signature: "zz"}, record)
		assert.Error(t, err)
	})
}

func TestSignatureFileRoundTrip(t *testing.T) {
	privateKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	record := []byte(`{"name":"GEMM"}`)
	sig, err := SignRecord(privateKey, record)
	require.NoError(t, err)

	dumpPath := filepath.Join(t.TempDir(), "gemm.json")
	require.NoError(t, WriteSignature(dumpPath, sig))
	assert.FileExists(t, dumpPath+".sig")

	loaded, err := ReadSignature(dumpPath)
	require.NoError(t, err)
	assert.Equal(t, sig, loaded)

	ok, err := VerifyRecord(loaded, record)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReadSignatureMissing(t *testing.T) {
	_, err := ReadSignature(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
