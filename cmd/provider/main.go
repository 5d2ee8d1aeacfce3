package main

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/tee-provenance-registry/cmd/flags"
	"github.com/ruteri/tee-provenance-registry/cryptoutils"
	"github.com/ruteri/tee-provenance-registry/interfaces"
	"github.com/urfave/cli/v2"
)

var flagKeyFile = &cli.StringFlag{
	Name:  "key-file",
	Value: "provider-key.json",
	Usage: "encrypted provider key file",
}
var flagPassphraseFile = &cli.StringFlag{
	Name:    "passphrase-file",
	Usage:   "file holding the key file passphrase",
	EnvVars: []string{"PROVIDER_PASSPHRASE_FILE"},
}
var flagShares = &cli.IntFlag{
	Name:  "shares",
	Usage: "also split the key into this many Shamir shares",
}
var flagThreshold = &cli.IntFlag{
	Name:  "threshold",
	Value: 2,
	Usage: "shares needed to recover the key",
}
var flagSharesDir = &cli.StringFlag{
	Name:  "shares-dir",
	Value: ".",
	Usage: "directory for share files",
}
var flagShareFiles = &cli.StringSliceFlag{
	Name:     "share",
	Required: true,
	Usage:    "share file, repeatable",
}
var flagTeeHash = &cli.StringFlag{
	Name:  "tee-hash",
	Usage: "TEE hash to attest to",
}
var flagQuoteFile = &cli.StringFlag{
	Name:  "quote",
	Usage: "derive the TEE hash from this raw TDX quote",
}
var flagQuoteProvider = &cli.StringFlag{
	Name:  "quote-provider",
	Usage: "obtain a fresh quote from 'device' or from a quote service URL",
}
var flagContentType = &cli.StringFlag{
	Name:  "type",
	Value: interfaces.ManifestType.String(),
	Usage: "content type of the uploaded file",
}
var flagOwner = &cli.StringFlag{
	Name:     "owner",
	Required: true,
	Usage:    "certificate owner address",
}
var flagStorageID = &cli.StringFlag{
	Name:     "storage-id",
	Required: true,
}
var flagManifestHash = &cli.StringFlag{
	Name:     "manifest-hash",
	Required: true,
}
var flagAttestationHash = &cli.StringFlag{
	Name:     "attestation-hash",
	Required: true,
}

func readPassphrase(cCtx *cli.Context) ([]byte, error) {
	path := cCtx.String(flagPassphraseFile.Name)
	if path == "" {
		if pass := os.Getenv("PROVIDER_PASSPHRASE"); pass != "" {
			return []byte(pass), nil
		}
		return nil, errors.New("set --passphrase-file or PROVIDER_PASSPHRASE")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []byte(strings.TrimRight(string(data), "\r\n")), nil
}

func writeKeyFile(cCtx *cli.Context, priv ed25519.PrivateKey) (*cryptoutils.KeyFile, error) {
	pass, err := readPassphrase(cCtx)
	if err != nil {
		return nil, err
	}
	kf, err := cryptoutils.SealKey(priv, pass)
	if err != nil {
		return nil, err
	}
	data, err := kf.Marshal()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(cCtx.String(flagKeyFile.Name), data, 0o600); err != nil {
		return nil, err
	}
	return kf, nil
}

func loadKey(cCtx *cli.Context) (ed25519.PrivateKey, interfaces.PublicKey, error) {
	data, err := os.ReadFile(cCtx.String(flagKeyFile.Name))
	if err != nil {
		return nil, interfaces.PublicKey{}, err
	}
	kf, err := cryptoutils.ParseKeyFile(data)
	if err != nil {
		return nil, interfaces.PublicKey{}, err
	}
	pass, err := readPassphrase(cCtx)
	if err != nil {
		return nil, interfaces.PublicKey{}, err
	}
	priv, err := kf.Open(pass)
	return priv, kf.PublicKey, err
}

func quoteProvider(source string) cryptoutils.QuoteProvider {
	if source == "device" {
		return cryptoutils.DeviceQuoteProvider{}
	}
	return &cryptoutils.RemoteQuoteProvider{Address: strings.TrimSuffix(source, "/")}
}

// teeHashFor picks the attested TEE hash from the flags. A fresh quote binds
// the provider key and request id through its report data.
func teeHashFor(cCtx *cli.Context, att interfaces.Attestation) (interfaces.TeeHash, error) {
	switch {
	case cCtx.String(flagTeeHash.Name) != "":
		return interfaces.NewTeeHashFromHex(cCtx.String(flagTeeHash.Name))
	case cCtx.String(flagQuoteFile.Name) != "":
		quote, err := os.ReadFile(cCtx.String(flagQuoteFile.Name))
		if err != nil {
			return interfaces.TeeHash{}, err
		}
		return cryptoutils.TeeHashFromQuote(quote)
	case cCtx.String(flagQuoteProvider.Name) != "":
		reportData, err := cryptoutils.ReportDataFor(att)
		if err != nil {
			return interfaces.TeeHash{}, err
		}
		quote, err := quoteProvider(cCtx.String(flagQuoteProvider.Name)).Quote(reportData)
		if err != nil {
			return interfaces.TeeHash{}, err
		}
		return cryptoutils.VerifyQuote(quote, reportData)
	default:
		return interfaces.TeeHash{}, errors.New("one of --tee-hash, --quote or --quote-provider is required")
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	app := &cli.App{
		Name:  "registry-provider",
		Usage: "Provider tooling: key management, verification requests and attestations",
		Flags: flags.ClientFlags,
		Commands: []*cli.Command{
			{
				Name:  "keygen",
				Usage: "create an encrypted provider key",
				Flags: []cli.Flag{flagKeyFile, flagPassphraseFile, flagShares, flagThreshold, flagSharesDir},
				Action: func(cCtx *cli.Context) error {
					priv, pub, err := cryptoutils.GenerateProviderKey()
					if err != nil {
						return err
					}
					if _, err := writeKeyFile(cCtx, priv); err != nil {
						return err
					}

					if n := cCtx.Int(flagShares.Name); n > 0 {
						shares, err := cryptoutils.SplitKey(priv, n, cCtx.Int(flagThreshold.Name))
						if err != nil {
							return err
						}
						dir := cCtx.String(flagSharesDir.Name)
						for i, share := range shares {
							path := filepath.Join(dir, fmt.Sprintf("share-%d.txt", i+1))
							if err := os.WriteFile(path, []byte(share), 0o600); err != nil {
								return err
							}
						}
					}
					fmt.Println(pub.String())
					return nil
				},
			},
			{
				Name:  "recover",
				Usage: "rebuild the key file from Shamir shares",
				Flags: []cli.Flag{flagKeyFile, flagPassphraseFile, flagShareFiles},
				Action: func(cCtx *cli.Context) error {
					var shares []string
					for _, path := range cCtx.StringSlice(flagShareFiles.Name) {
						data, err := os.ReadFile(path)
						if err != nil {
							return err
						}
						shares = append(shares, strings.TrimSpace(string(data)))
					}
					priv, err := cryptoutils.CombineShares(shares)
					if err != nil {
						return err
					}
					kf, err := writeKeyFile(cCtx, priv)
					if err != nil {
						return err
					}
					fmt.Println(kf.PublicKey.String())
					return nil
				},
			},
			{
				Name:      "request",
				Usage:     "archive a file and open a verification request for it",
				ArgsUsage: "<file>",
				Flags:     []cli.Flag{flagContentType},
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 1 {
						return errors.New("expected one file")
					}
					data, err := os.ReadFile(cCtx.Args().First())
					if err != nil {
						return err
					}
					ct, err := interfaces.ParseContentType(cCtx.String(flagContentType.Name))
					if err != nil {
						return err
					}
					c, err := flags.NewClient(cCtx, false)
					if err != nil {
						return err
					}

					stored, err := c.StoreContent(cCtx.Context, data, ct)
					if err != nil {
						return err
					}
					id, err := c.Registry().SubmitRequest(cCtx.Context, common.Hash(interfaces.ComputeID(data)))
					if err != nil {
						return err
					}
					return printJSON(map[string]any{
						"request_id":    id,
						"storage_id":    stored.StorageID,
						"manifest_hash": stored.ManifestHash,
					})
				},
			},
			{
				Name:      "attest",
				Usage:     "sign and submit an attestation for a request",
				ArgsUsage: "<request id>",
				Flags:     []cli.Flag{flagKeyFile, flagPassphraseFile, flagTeeHash, flagQuoteFile, flagQuoteProvider},
				Action: func(cCtx *cli.Context) error {
					id, err := strconv.ParseUint(cCtx.Args().First(), 10, 64)
					if err != nil {
						return fmt.Errorf("invalid request id: %w", err)
					}
					priv, pub, err := loadKey(cCtx)
					if err != nil {
						return err
					}

					att := interfaces.Attestation{Provider: pub, RequestID: id}
					if att.TeeHash, err = teeHashFor(cCtx, att); err != nil {
						return err
					}
					payload, err := att.Encode()
					if err != nil {
						return err
					}
					sig, err := interfaces.NewSignatureFromBytes(ed25519.Sign(priv, payload))
					if err != nil {
						return err
					}

					c, err := flags.NewClient(cCtx, false)
					if err != nil {
						return err
					}
					state, err := c.Registry().ProcessVerification(cCtx.Context, id, att, sig)
					if err != nil {
						return err
					}
					attHash, err := att.Hash()
					if err != nil {
						return err
					}
					return printJSON(map[string]any{
						"state":            state,
						"tee_hash":         att.TeeHash,
						"attestation_hash": attHash.Hex(),
					})
				},
			},
			{
				Name:      "relay",
				Usage:     "verify a request and mint its certificate, as an approved relayer",
				ArgsUsage: "<request id>",
				Flags:     []cli.Flag{flagOwner, flagStorageID, flagManifestHash, flagAttestationHash},
				Action: func(cCtx *cli.Context) error {
					id, err := strconv.ParseUint(cCtx.Args().First(), 10, 64)
					if err != nil {
						return fmt.Errorf("invalid request id: %w", err)
					}
					owner, err := interfaces.NewPrincipalFromHex(cCtx.String(flagOwner.Name))
					if err != nil {
						return err
					}
					c, err := flags.NewClient(cCtx, true)
					if err != nil {
						return err
					}
					result, err := c.Oracle().VerifyAndMint(cCtx.Context, c.Address(), owner, id, interfaces.CertificateDetails{
						StorageID:       cCtx.String(flagStorageID.Name),
						ManifestHash:    cCtx.String(flagManifestHash.Name),
						AttestationHash: cCtx.String(flagAttestationHash.Name),
					})
					if err != nil {
						return err
					}
					return printJSON(result)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
