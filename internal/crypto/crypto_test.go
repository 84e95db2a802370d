package crypto

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known Hardhat account #0.
const (
	testKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestSealOpenRoundTrip(t *testing.T) {
	doc, err := SealKey("0x"+testKey, "hunter2")
	require.NoError(t, err)

	got, err := OpenKey(doc, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, testKey, got)

	_, err = OpenKey(doc, "wrong")
	assert.Error(t, err)
}

func TestSealKeyRejectsBadInput(t *testing.T) {
	_, err := SealKey(testKey, "")
	assert.ErrorIs(t, err, errEmptyPassword)

	_, err = SealKey("zz", "pw")
	assert.Error(t, err)

	_, err = SealKey("abcd", "pw")
	assert.Error(t, err)
}

func TestResolveKey(t *testing.T) {
	k, err := ResolveKey(KeySource{RawKey: "0x" + testKey, KeyFile: "/nonexistent"})
	require.NoError(t, err)
	assert.Equal(t, testKey, k)

	doc, err := SealKey(testKey, "pw")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, doc, 0o600))

	k, err = ResolveKey(KeySource{KeyFile: path, Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, testKey, k)

	_, err = ResolveKey(KeySource{})
	assert.Error(t, err)
}

func TestSignerAddress(t *testing.T) {
	s, err := LoadSigner(KeySource{RawKey: testKey}, 137)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress), s.Address())
	assert.Equal(t, int64(137), s.ChainID())
}

func TestSignOrderRecoversSigner(t *testing.T) {
	s, err := NewSigner(testKey, 137)
	require.NoError(t, err)

	order := OrderPayload{
		Salt:          "12345",
		Maker:         testAddress,
		Signer:        testAddress,
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenID:       "71321045679252212594626385532706912750332728571942532289631379312455583992563",
		MakerAmount:   "30000000",
		TakerAmount:   "50000000",
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		Side:          0,
		SignatureType: SignatureEOA,
	}
	sig, err := s.SignOrder(order, CTFExchange)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sig, "0x"))
	require.Len(t, sig, 2+130)

	structHash, err := orderStructHash(order)
	require.NoError(t, err)
	digest := typedDataHash(s.exchangeDomain(CTFExchange), structHash)

	raw := common.FromHex(sig)
	raw[64] -= 27
	pub, err := ethcrypto.SigToPub(digest, raw)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), ethcrypto.PubkeyToAddress(*pub))

	negRisk, err := s.SignOrder(order, NegRiskCTFExchange)
	require.NoError(t, err)
	assert.NotEqual(t, sig, negRisk)
}

func TestSignOrderRejectsBadAmounts(t *testing.T) {
	s, err := NewSigner(testKey, 137)
	require.NoError(t, err)
	_, err = s.SignOrder(OrderPayload{Salt: "1", TokenID: "x"}, CTFExchange)
	assert.Error(t, err)
}

func TestSignAuthMessageDeterministic(t *testing.T) {
	s, err := NewSigner(testKey, 137)
	require.NoError(t, err)
	a, err := s.SignAuthMessage(1700000000, 0)
	require.NoError(t, err)
	b, err := s.SignAuthMessage(1700000000, 0)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := s.SignAuthMessage(1700000001, 0)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestL2HeadersAt(t *testing.T) {
	creds := &APICreds{Key: "key-123", Secret: "c2VjcmV0LXNlY3JldA==", Passphrase: "pp"}
	h := creds.L2HeadersAt(testAddress, "POST", "/order", `{"a":1}`, 1700000000)

	assert.Equal(t, testAddress, h["POLY_ADDRESS"])
	assert.Equal(t, "key-123", h["POLY_API_KEY"])
	assert.Equal(t, "1700000000", h["POLY_TIMESTAMP"])
	assert.Equal(t, "pp", h["POLY_PASSPHRASE"])
	assert.NotEmpty(t, h["POLY_SIGNATURE"])
	assert.NotContains(t, h["POLY_SIGNATURE"], "+")
	assert.NotContains(t, h["POLY_SIGNATURE"], "/")

	again := creds.L2HeadersAt(testAddress, "POST", "/order", `{"a":1}`, 1700000000)
	assert.Equal(t, h["POLY_SIGNATURE"], again["POLY_SIGNATURE"])

	other := creds.L2HeadersAt(testAddress, "POST", "/order", `{"a":2}`, 1700000000)
	assert.NotEqual(t, h["POLY_SIGNATURE"], other["POLY_SIGNATURE"])
}

func TestAPICredsStringRedacts(t *testing.T) {
	c := &APICreds{Key: "abcdefgh", Secret: "supersecret"}
	s := c.String()
	assert.NotContains(t, s, "supersecret")
	assert.Contains(t, s, "abcd****")
}
