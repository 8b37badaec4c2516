package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/andresmejia3/facecheck/internal/types"
)

// Die is the unified exit strategy for the CLI.
// It prints the error box to stderr and exits with status 1.
func Die(context string, err error) {
	writeError(os.Stderr, context, err)
	os.Exit(1)
}

func writeError(w io.Writer, context string, err error) {
	fmt.Fprintf(w, "\n---------------------------------------------------------\n")
	fmt.Fprintf(w, "🚨 FACECHECK ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(w, "DETAILS: %v\n", err)
	}
	fmt.Fprintf(w, "---------------------------------------------------------\n")
}

// CorpusID creates a deterministic hash for a sample corpus based on each
// sample's label, file name, size and modification time. Two runs with the
// same CorpusID scored exactly the same images.
func CorpusID(samples []types.Sample) (string, error) {
	h := sha256.New()
	for _, s := range samples {
		info, err := os.Stat(s.Path)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s\x00%s\x00%d\x00%d\n", s.Label, info.Name(), info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
