package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"strings"

	"rcavault/cmd/internal/passphrase"
	"rcavault/crypto"
	"rcavault/native/capacity"
	"rcavault/observability/logging"
)

type passSource interface {
	Get() (string, error)
}

var newPassSource = func(env string) passSource { return passphrase.NewSource(env) }

func runGenerateKey(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(generateKeyCommand, flag.ContinueOnError)
	keystorePath := fs.String("keystore", "caporacle.keystore", "Output path for the keystore file")
	passEnv := fs.String("pass-env", passphrase.DefaultEnv, "Environment variable containing the keystore passphrase")
	force := fs.Bool("force", false, "Overwrite an existing keystore file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*force {
		if _, err := os.Stat(*keystorePath); err == nil {
			return fmt.Errorf("keystore %s already exists; use --force to overwrite", *keystorePath)
		}
	}
	pass, err := newPassSource(*passEnv).Get()
	if err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	if err := crypto.SaveToKeystore(*keystorePath, key, pass); err != nil {
		return fmt.Errorf("write keystore: %w", err)
	}
	addr := key.PubKey().Address()
	fmt.Fprintf(out, "address: %s\nhex: %s\nkeystore: %s\n", addr.String(), addr.Common().Hex(), *keystorePath)
	return nil
}

func runSignCapacity(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(signCapacityCommand, flag.ContinueOnError)
	keystorePath := fs.String("keystore", "caporacle.keystore", "Capacity oracle keystore")
	passEnv := fs.String("pass-env", passphrase.DefaultEnv, "Environment variable containing the keystore passphrase")
	chainID := fs.Uint64("chain", 0, "Chain id of the signing domain")
	controller := fs.String("controller", "", "Controller address of the signing domain")
	user := fs.String("user", "", "User the claim authorises")
	shield := fs.String("shield", "", "Shield the claim is for")
	amount := fs.String("amount", "", "Maximum underlying amount, in base units")
	nonce := fs.Uint64("nonce", 0, "User nonce at the controller")
	expiry := fs.Uint64("expiry", 0, "Unix expiry of the claim")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *chainID == 0 {
		return fmt.Errorf("--chain required")
	}
	ctrl, err := crypto.ParseAddress(*controller)
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	userAddr, err := crypto.ParseAddress(*user)
	if err != nil {
		return fmt.Errorf("user: %w", err)
	}
	shieldAddr, err := crypto.ParseAddress(*shield)
	if err != nil {
		return fmt.Errorf("shield: %w", err)
	}
	value, ok := new(big.Int).SetString(strings.TrimSpace(*amount), 10)
	if !ok || value.Sign() <= 0 {
		return fmt.Errorf("--amount must be a positive integer")
	}
	if *expiry == 0 {
		return fmt.Errorf("--expiry required")
	}

	pass, err := newPassSource(*passEnv).Get()
	if err != nil {
		return err
	}
	key, err := crypto.LoadFromKeystore(*keystorePath, pass)
	if err != nil {
		return fmt.Errorf("load keystore: %w", err)
	}
	claim := capacity.Claim{User: userAddr, Shield: shieldAddr, Amount: value, Nonce: *nonce, Expiry: *expiry}
	sig, err := capacity.Sign(key.PrivateKey, capacity.Domain{ChainID: *chainID, Controller: ctrl}, claim)
	if err != nil {
		return fmt.Errorf("sign claim: %w", err)
	}
	logger := slog.Default()
	logger.Info("capacity claim signed",
		slog.String("signer", key.PubKey().Address().String()),
		logging.MaskAddress("user", userAddr.Hex()),
		slog.String("shield", shieldAddr.Hex()),
		slog.Uint64("nonce", *nonce))
	fmt.Fprintf(out, "0x%s\n", hex.EncodeToString(sig.Bytes()))
	return nil
}
