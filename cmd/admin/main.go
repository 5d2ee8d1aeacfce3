package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/tee-provenance-registry/api/clients"
	"github.com/ruteri/tee-provenance-registry/cmd/flags"
	"github.com/ruteri/tee-provenance-registry/cryptoutils"
	"github.com/ruteri/tee-provenance-registry/interfaces"
	"github.com/urfave/cli/v2"
)

var flagQuote = &cli.StringFlag{
	Name:     "quote",
	Required: true,
	Usage:    "path to a raw TDX quote",
}
var flagReportData = &cli.StringFlag{
	Name:  "report-data",
	Usage: "hex report data the quote must bind; when set the quote signature chain is verified against Intel collateral",
}
var flagKeyOut = &cli.StringFlag{
	Name:  "out",
	Value: "admin.key",
	Usage: "where to write the generated signing key",
}

var errUsage = errors.New("missing argument, see --help")

func firstArg(cCtx *cli.Context) (string, error) {
	if cCtx.NArg() < 1 {
		return "", errUsage
	}
	return cCtx.Args().First(), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// signed wraps an action that needs a signing client.
func signed(fn func(cCtx *cli.Context, c *clients.Client) error) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		c, err := flags.NewClient(cCtx, true)
		if err != nil {
			return err
		}
		return fn(cCtx, c)
	}
}

func keyAction(fn func(cCtx *cli.Context, c *clients.Client, key interfaces.PublicKey) error) cli.ActionFunc {
	return signed(func(cCtx *cli.Context, c *clients.Client) error {
		raw, err := firstArg(cCtx)
		if err != nil {
			return err
		}
		key, err := interfaces.NewPublicKeyFromHex(raw)
		if err != nil {
			return err
		}
		return fn(cCtx, c, key)
	})
}

func hashAction(fn func(cCtx *cli.Context, c *clients.Client, hash interfaces.TeeHash) error) cli.ActionFunc {
	return signed(func(cCtx *cli.Context, c *clients.Client) error {
		raw, err := firstArg(cCtx)
		if err != nil {
			return err
		}
		hash, err := interfaces.NewTeeHashFromHex(raw)
		if err != nil {
			return err
		}
		return fn(cCtx, c, hash)
	})
}

func principalAction(fn func(cCtx *cli.Context, c *clients.Client, p interfaces.Principal) error) cli.ActionFunc {
	return signed(func(cCtx *cli.Context, c *clients.Client) error {
		raw, err := firstArg(cCtx)
		if err != nil {
			return err
		}
		p, err := interfaces.NewPrincipalFromHex(raw)
		if err != nil {
			return err
		}
		return fn(cCtx, c, p)
	})
}

func main() {
	app := &cli.App{
		Name:           "registry-admin",
		Usage:          "Administer a TEE provenance registry node",
		Flags:          flags.ClientFlags,
		DefaultCommand: "status",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "show the registry admin and the signer address",
				Action: func(cCtx *cli.Context) error {
					c, err := flags.NewClient(cCtx, false)
					if err != nil {
						return err
					}
					admin, err := c.Registry().Admin(cCtx.Context)
					if err != nil {
						return err
					}
					status := map[string]any{"registry_admin": admin}
					if signer := c.Address(); signer != (interfaces.Principal{}) {
						status["signer"] = signer
					}
					return printJSON(status)
				},
			},
			{
				Name:  "generate-key",
				Usage: "create a secp256k1 signing key",
				Flags: []cli.Flag{flagKeyOut},
				Action: func(cCtx *cli.Context) error {
					key, err := crypto.GenerateKey()
					if err != nil {
						return fmt.Errorf("failed to generate key: %w", err)
					}
					out := cCtx.String(flagKeyOut.Name)
					if err := os.WriteFile(out, []byte(hex.EncodeToString(crypto.FromECDSA(key))), 0o600); err != nil {
						return err
					}
					fmt.Println(crypto.PubkeyToAddress(key.PublicKey).Hex())
					return nil
				},
			},
			{
				Name:      "init",
				Usage:     "initialize the registry with an admin",
				ArgsUsage: "<admin address>",
				Action: principalAction(func(cCtx *cli.Context, c *clients.Client, admin interfaces.Principal) error {
					return c.Registry().Initialize(cCtx.Context, admin)
				}),
			},
			{
				Name:      "add-provider",
				Usage:     "trust a provider signing key",
				ArgsUsage: "<ed25519 public key hex>",
				Action: keyAction(func(cCtx *cli.Context, c *clients.Client, key interfaces.PublicKey) error {
					return c.Registry().AddProvider(cCtx.Context, key)
				}),
			},
			{
				Name:      "remove-provider",
				Usage:     "stop trusting a provider signing key",
				ArgsUsage: "<ed25519 public key hex>",
				Action: keyAction(func(cCtx *cli.Context, c *clients.Client, key interfaces.PublicKey) error {
					return c.Registry().RemoveProvider(cCtx.Context, key)
				}),
			},
			{
				Name:      "add-tee-hash",
				Usage:     "trust a TEE measurement",
				ArgsUsage: "<tee hash hex>",
				Action: hashAction(func(cCtx *cli.Context, c *clients.Client, hash interfaces.TeeHash) error {
					return c.Registry().AddTeeHash(cCtx.Context, hash)
				}),
			},
			{
				Name:      "remove-tee-hash",
				Usage:     "stop trusting a TEE measurement",
				ArgsUsage: "<tee hash hex>",
				Action: hashAction(func(cCtx *cli.Context, c *clients.Client, hash interfaces.TeeHash) error {
					return c.Registry().RemoveTeeHash(cCtx.Context, hash)
				}),
			},
			{
				Name:      "init-provenance",
				Usage:     "set the certificate minting authority",
				ArgsUsage: "<authority address>",
				Action: principalAction(func(cCtx *cli.Context, c *clients.Client, authority interfaces.Principal) error {
					return c.InitializeProvenance(cCtx.Context, authority)
				}),
			},
			{
				Name:      "init-oracle",
				Usage:     "configure the verification oracle",
				ArgsUsage: "<registry address> <provenance address> <admin address>",
				Action: signed(func(cCtx *cli.Context, c *clients.Client) error {
					if cCtx.NArg() != 3 {
						return errUsage
					}
					var addrs [3]interfaces.Principal
					for i := range addrs {
						p, err := interfaces.NewPrincipalFromHex(cCtx.Args().Get(i))
						if err != nil {
							return err
						}
						addrs[i] = p
					}
					return c.Oracle().Initialize(cCtx.Context, addrs[0], addrs[1], addrs[2])
				}),
			},
			{
				Name:      "approve-relay",
				Usage:     "allow an address to relay verify-and-mint calls",
				ArgsUsage: "<relayer address>",
				Action: principalAction(func(cCtx *cli.Context, c *clients.Client, relayer interfaces.Principal) error {
					return c.Oracle().AddProvider(cCtx.Context, relayer)
				}),
			},
			{
				Name:      "revoke-relay",
				Usage:     "revoke a relayer",
				ArgsUsage: "<relayer address>",
				Action: principalAction(func(cCtx *cli.Context, c *clients.Client, relayer interfaces.Principal) error {
					return c.Oracle().RemoveProvider(cCtx.Context, relayer)
				}),
			},
			{
				Name:  "tee-hash",
				Usage: "derive the registry TEE hash from a TDX quote",
				Flags: []cli.Flag{flagQuote, flagReportData},
				Action: func(cCtx *cli.Context) error {
					quote, err := os.ReadFile(cCtx.String(flagQuote.Name))
					if err != nil {
						return err
					}
					var hash interfaces.TeeHash
					if raw := cCtx.String(flagReportData.Name); raw != "" {
						data, derr := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
						if derr != nil || len(data) > 64 {
							return errors.New("invalid --report-data")
						}
						var reportData [64]byte
						copy(reportData[:], data)
						hash, err = cryptoutils.VerifyQuote(quote, reportData)
					} else {
						hash, err = cryptoutils.TeeHashFromQuote(quote)
					}
					if err != nil {
						return err
					}
					fmt.Println(hash.String())
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
