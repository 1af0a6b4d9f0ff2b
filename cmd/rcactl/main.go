package main

import (
	"fmt"
	"io"
	"os"
)

const (
	generateKeyCommand  = "generate-key"
	signCapacityCommand = "sign-capacity"
	rootCommand         = "root"
	proofCommand        = "proof"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		usage(os.Stderr)
		return fmt.Errorf("command required")
	}
	switch args[0] {
	case generateKeyCommand:
		return runGenerateKey(args[1:], out)
	case signCapacityCommand:
		return runSignCapacity(args[1:], out)
	case rootCommand:
		return runRoot(args[1:], out)
	case proofCommand:
		return runProof(args[1:], out)
	default:
		usage(os.Stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: rcactl <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  generate-key    create a capacity oracle keystore")
	fmt.Fprintln(w, "  sign-capacity   sign a capacity claim for a mint")
	fmt.Fprintln(w, "  root            compute the Merkle root of a YAML table")
	fmt.Fprintln(w, "  proof           print the proof for one row of a YAML table")
}
