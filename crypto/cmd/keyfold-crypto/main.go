package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/keyfold/keyfold/crypto"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:  "keyfold-crypto",
		Usage: "informal debugging CLI tool for keyfold keys and cryptography",
	}
	app.Commands = []*cli.Command{
		&cli.Command{
			Name:  "generate",
			Usage: "create a new key pair",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "k256",
					Usage: "generate a K-256 / secp256k1 / ES256K key pair (default)",
				},
				&cli.BoolFlag{
					Name:  "p256",
					Usage: "generate a P-256 / secp256r1 / ES256 key pair",
				},
				&cli.BoolFlag{
					Name:  "jwk",
					Usage: "print the secret key as JWK JSON instead of multibase",
				},
			},
			Action: runGenerate,
		},
		&cli.Command{
			Name:      "inspect",
			Usage:     "print encodings of a public key (multibase, did:key, or JWK JSON)",
			ArgsUsage: "<key>",
			Action:    runInspect,
		},
		&cli.Command{
			Name:      "verify",
			Usage:     "verify a signature over a message",
			ArgsUsage: "<pubkey> <sig-base64url> <message>",
			Action:    runVerify,
		},
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(h))
	app.RunAndExitOnError()
}

func runGenerate(cctx *cli.Context) error {
	alg := crypto.AlgK256
	if cctx.Bool("p256") {
		alg = crypto.AlgP256
	}
	pair, err := crypto.GenerateKeyPair(alg, nil)
	if err != nil {
		return err
	}
	if cctx.Bool("jwk") {
		jwk, err := pair.(crypto.JWKExporter).JWK(true)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(jwk, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}
	secret, err := secretMultibase(pair)
	if err != nil {
		return err
	}
	fmt.Println(secret)
	return nil
}

func runInspect(cctx *cli.Context) error {
	s := cctx.Args().First()
	if s == "" {
		return fmt.Errorf("expected a public key argument")
	}
	pair, err := parsePublicAny(s)
	if err != nil {
		return err
	}
	jwk, err := pair.(crypto.JWKExporter).JWK(false)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(jwk, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("Algorithm: %s\n", pair.Algorithm())
	fmt.Printf("DID Key: %s\n", didKey(pair))
	fmt.Printf("JWK: %s\n", string(out))
	return nil
}

func runVerify(cctx *cli.Context) error {
	args := cctx.Args()
	if args.Len() != 3 {
		return fmt.Errorf("expected <pubkey> <sig-base64url> <message> arguments")
	}
	pair, err := parsePublicAny(args.Get(0))
	if err != nil {
		return err
	}
	sig, err := base64.RawURLEncoding.DecodeString(args.Get(1))
	if err != nil {
		return fmt.Errorf("invalid signature base64: %w", err)
	}
	ok, err := pair.(crypto.Verifier).VerifySignature([]byte(args.Get(2)), sig, crypto.SigTypeDefault)
	if err != nil {
		return err
	}
	if !ok {
		return crypto.ErrInvalidSignature
	}
	fmt.Println("valid signature")
	return nil
}

// parsePublicAny accepts a did:key string, a multibase string, or JWK JSON.
func parsePublicAny(s string) (crypto.KeyPair, error) {
	switch {
	case len(s) > 0 && s[0] == '{':
		return crypto.ParseJWKBytes([]byte(s))
	case len(s) > 8 && s[:8] == "did:key:":
		return crypto.ParsePublicDIDKey(s)
	default:
		return crypto.ParsePublicMultibase(s)
	}
}

func didKey(pair crypto.KeyPair) string {
	switch k := pair.(type) {
	case *crypto.K256KeyPair:
		return k.DIDKey()
	case *crypto.P256KeyPair:
		return k.DIDKey()
	default:
		return ""
	}
}

func secretMultibase(pair crypto.KeyPair) (string, error) {
	switch k := pair.(type) {
	case *crypto.K256KeyPair:
		return k.SecretMultibase()
	case *crypto.P256KeyPair:
		return k.SecretMultibase()
	default:
		return "", fmt.Errorf("key type %s has no secret multibase form", pair.Algorithm())
	}
}
