package cryptoutils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tdx_pb "github.com/google/go-tdx-guest/proto/tdx"
	"github.com/ruteri/tee-provenance-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFileRoundTrip(t *testing.T) {
	priv, pub, err := GenerateProviderKey()
	require.NoError(t, err)

	kf, err := SealKey(priv, []byte("correct horse"))
	require.NoError(t, err)
	assert.Equal(t, pub, kf.PublicKey)

	raw, err := kf.Marshal()
	require.NoError(t, err)
	assert.NotContains(t, string(raw), hex.EncodeToString(priv.Seed()))

	parsed, err := ParseKeyFile(raw)
	require.NoError(t, err)
	opened, err := parsed.Open([]byte("correct horse"))
	require.NoError(t, err)
	assert.True(t, priv.Equal(opened))

	_, err = parsed.Open([]byte("battery staple"))
	require.ErrorIs(t, err, ErrWrongPassphrase)

	parsed.PublicKey[0] ^= 0xff
	_, err = parsed.Open([]byte("correct horse"))
	require.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestShamirShares(t *testing.T) {
	priv, _, err := GenerateProviderKey()
	require.NoError(t, err)

	shares, err := SplitKey(priv, 5, 3)
	require.NoError(t, err)
	require.Len(t, shares, 5)

	recovered, err := CombineShares([]string{shares[4], shares[0], shares[2]})
	require.NoError(t, err)
	assert.True(t, priv.Equal(recovered))

	partial, err := CombineShares(shares[:2])
	if err == nil {
		assert.False(t, priv.Equal(partial))
	}

	_, err = SplitKey(priv, 3, 4)
	require.Error(t, err)
	_, err = CombineShares([]string{shares[0], "zz"})
	require.Error(t, err)
}

func TestTeeHashFromBody(t *testing.T) {
	body := &tdx_pb.TDQuoteBody{
		MrTd:  make([]byte, 48),
		Rtmrs: [][]byte{make([]byte, 48), make([]byte, 48), make([]byte, 48), make([]byte, 48)},
	}
	body.MrTd[0] = 1

	h := sha256.New()
	h.Write(body.MrTd)
	for _, r := range body.Rtmrs {
		h.Write(r)
	}
	want, err := interfaces.NewTeeHashFromBytes(h.Sum(nil))
	require.NoError(t, err)

	got, err := TeeHashFromBody(body)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	body.Rtmrs[3][0] = 1
	changed, err := TeeHashFromBody(body)
	require.NoError(t, err)
	assert.NotEqual(t, got, changed)

	_, err = TeeHashFromBody(&tdx_pb.TDQuoteBody{MrTd: body.MrTd})
	require.Error(t, err)

	_, err = TeeHashFromQuote([]byte("not a quote"))
	require.Error(t, err)
}

func TestRemoteQuoteProvider(t *testing.T) {
	att := interfaces.Attestation{TeeHash: interfaces.TeeHash{1}, RequestID: 7}
	reportData, err := ReportDataFor(att)
	require.NoError(t, err)
	hash, err := att.Hash()
	require.NoError(t, err)
	assert.Equal(t, hash[:], reportData[:32])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/attest/") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("quote:" + strings.TrimPrefix(r.URL.Path, "/attest/")))
	}))
	defer srv.Close()

	quote, err := (&RemoteQuoteProvider{Address: srv.URL}).Quote(reportData)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(quote), "quote:"))

	_, err = (&RemoteQuoteProvider{Address: srv.URL + "/missing"}).Quote(reportData)
	require.Error(t, err)
}
