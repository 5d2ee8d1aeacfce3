package cryptoutils

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tdx_abi "github.com/google/go-tdx-guest/abi"
	tdx_client "github.com/google/go-tdx-guest/client"
	tdx_pb "github.com/google/go-tdx-guest/proto/tdx"
	"github.com/google/go-tdx-guest/verify"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// QuoteProvider produces a raw TDX quote binding reportData.
type QuoteProvider interface {
	Quote(reportData [64]byte) ([]byte, error)
}

// DeviceQuoteProvider asks the local TDX guest for a quote, through configfs
// when available and the legacy device otherwise.
type DeviceQuoteProvider struct{}

func (DeviceQuoteProvider) Quote(reportData [64]byte) ([]byte, error) {
	qp := &tdx_client.LinuxConfigFsQuoteProvider{}
	if qp.IsSupported() == nil {
		return qp.GetRawQuote(reportData)
	}

	qd, err := tdx_client.OpenDevice()
	if err != nil {
		return nil, fmt.Errorf("no TDX quote provider available: %w", err)
	}
	defer qd.Close()
	return tdx_client.GetRawQuote(qd, reportData)
}

// RemoteQuoteProvider fetches quotes from a quote service at
// <Address>/attest/<hex report data>, for guests that cannot reach the
// device directly.
type RemoteQuoteProvider struct {
	Address string
	Client  *http.Client
}

func (p *RemoteQuoteProvider) Quote(reportData [64]byte) ([]byte, error) {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Get(fmt.Sprintf("%s/attest/%x", p.Address, reportData))
	if err != nil {
		return nil, fmt.Errorf("calling remote quote provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading quote: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote quote provider returned status %d: %s", resp.StatusCode, body)
	}
	return body, nil
}

var ErrUnsupportedQuote = errors.New("unsupported quote version")

func parseQuoteV4(quote []byte) (*tdx_pb.QuoteV4, error) {
	parsed, err := tdx_abi.QuoteToProto(quote)
	if err != nil {
		return nil, fmt.Errorf("could not parse quote: %w", err)
	}
	v4, ok := parsed.(*tdx_pb.QuoteV4)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedQuote, parsed)
	}
	return v4, nil
}

// TeeHashFromBody derives the registry TEE hash from the measurement
// registers of a TD report: SHA-256 over MRTD followed by RTMR0..RTMR3.
// Anything that changes the booted image changes the hash.
func TeeHashFromBody(body *tdx_pb.TDQuoteBody) (interfaces.TeeHash, error) {
	if body == nil || len(body.Rtmrs) != 4 {
		return interfaces.TeeHash{}, errors.New("quote body has no measurement registers")
	}
	h := sha256.New()
	h.Write(body.MrTd)
	for _, rtmr := range body.Rtmrs {
		h.Write(rtmr)
	}
	return interfaces.NewTeeHashFromBytes(h.Sum(nil))
}

// TeeHashFromQuote parses a TDX v4 quote and derives its TEE hash. The quote
// signature is not checked; use VerifyQuote for that.
func TeeHashFromQuote(quote []byte) (interfaces.TeeHash, error) {
	v4, err := parseQuoteV4(quote)
	if err != nil {
		return interfaces.TeeHash{}, err
	}
	return TeeHashFromBody(v4.TdQuoteBody)
}

// VerifyQuote checks the quote's certificate chain and signature against
// Intel's collateral and that it binds reportData, then returns its TEE hash.
func VerifyQuote(quote []byte, reportData [64]byte) (interfaces.TeeHash, error) {
	v4, err := parseQuoteV4(quote)
	if err != nil {
		return interfaces.TeeHash{}, err
	}
	if err := verify.TdxQuote(v4, verify.DefaultOptions()); err != nil {
		return interfaces.TeeHash{}, fmt.Errorf("quote verification failed: %w", err)
	}
	if !bytes.Equal(v4.TdQuoteBody.ReportData, reportData[:]) {
		return interfaces.TeeHash{}, fmt.Errorf("quote binds report data %x, expected %x", v4.TdQuoteBody.ReportData, reportData[:])
	}
	return TeeHashFromBody(v4.TdQuoteBody)
}

// ReportDataFor binds a quote to an attestation: the first 32 bytes are the
// attestation hash, the rest is zero.
func ReportDataFor(att interfaces.Attestation) ([64]byte, error) {
	var reportData [64]byte
	hash, err := att.Hash()
	if err != nil {
		return reportData, err
	}
	copy(reportData[:], hash[:])
	return reportData, nil
}
