package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/qr"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/risk"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/signer"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
)

// qrCmd groups the air gap commands.
var qrCmd = &cobra.Command{
	Use:   "qr",
	Short: "Move payments across the air gap as QR codes",
}

var qrExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Build a payment and write its unsigned envelope as QR codes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cmd)
		if err != nil {
			return err
		}

		out, size, err := outputFlags(cmd)
		if err != nil {
			return err
		}

		fromText, err := cmd.Flags().GetString("from")
		if err != nil {
			return err
		}
		from, err := address.ParseDestination(fromText)
		if err != nil {
			return err
		}

		st, err := w.state(nil)
		if err != nil {
			return err
		}

		p, err := prepare(cmd, st, from)
		if err != nil {
			return userErr(err)
		}
		printPayment(p)

		envelope, err := st.Envelope(p.ID)
		if err != nil {
			return userErr(err)
		}

		frags, err := qr.Fragments(envelope)
		if err != nil {
			return err
		}

		return writeFragments(out, "unsigned", frags, size)
	},
}

var qrSignCmd = &cobra.Command{
	Use:   "sign <fragments-file>",
	Short: "Sign an unsigned envelope on the cold device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cmd)
		if err != nil {
			return err
		}

		out, size, err := outputFlags(cmd)
		if err != nil {
			return err
		}

		local, err := w.signer(cmd)
		if err != nil {
			return err
		}

		frags, err := readFragments(args[0])
		if err != nil {
			return err
		}

		signed, err := signer.NewCold(local, w.verifier).SignFragments(cmd.Context(), frags, w.settings.Snapshot())
		if err != nil {
			return userErr(err)
		}

		return writeFragments(out, "signed", signed, size)
	},
}

var qrImportCmd = &cobra.Command{
	Use:   "import <unsigned-file> <signed-file>",
	Short: "Check a signed envelope against the exported one and broadcast it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWallet(cmd)
		if err != nil {
			return err
		}

		yes, err := cmd.Flags().GetBool("yes")
		if err != nil {
			return err
		}

		unsigned, err := readFragments(args[0])
		if err != nil {
			return err
		}
		signed, err := readFragments(args[1])
		if err != nil {
			return err
		}

		txid, err := runImport(cmd.Context(), w, unsigned, signed, yes)
		if err != nil {
			return err
		}

		fmt.Println("txid:", txid)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(qrCmd)
	qrCmd.AddCommand(qrExportCmd, qrSignCmd, qrImportCmd)

	for _, c := range []*cobra.Command{qrExportCmd, qrSignCmd} {
		c.Flags().StringP("out", "o", "zwallet/qr/", "Folder the fragments and images are written to.")
		c.Flags().Int("size", 512, "Edge of every QR image in pixels.")
	}
	qrExportCmd.Flags().String("from", "", "The cold wallet address paying.")
	qrExportCmd.Flags().Bool("node-seeded", false, "Have the node create the transfer and check it instead of building it locally.")
	_ = qrExportCmd.MarkFlagRequired("from")
	qrImportCmd.Flags().BoolP("yes", "y", false, "Give the second confirmation a risky payment needs.")
}

// runImport checks the signed envelope carries the exported transaction,
// reassesses its risk against the current contract and broadcasts it.
func runImport(ctx context.Context, w *wallet, unsigned, signed []string, yes bool) (string, error) {
	text, err := qr.Assemble(unsigned)
	if err != nil {
		return "", userErr(err)
	}
	u, err := qr.DecodeUnsigned(text)
	if err != nil {
		return "", userErr(err)
	}
	if _, err := u.Transaction(w.verifier); err != nil {
		return "", userErr(err)
	}

	if text, err = qr.Assemble(signed); err != nil {
		return "", userErr(err)
	}
	s, err := qr.DecodeSigned(text)
	if err != nil {
		return "", userErr(err)
	}
	if err := qr.Verify(u, s); err != nil {
		return "", userErr(err)
	}

	tx, err := s.Transaction()
	if err != nil {
		return "", userErr(err)
	}

	cfg := w.settings.Snapshot()

	res := risk.New(w.verifier, w.book).Assess(tx, cfg, u.From)
	fmt.Println("risk:  ", res.Level, res.Message)
	if err := confirmRisk(res, yes); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	txid, err := w.bc.Broadcast(ctx, tx, cfg)
	if err != nil {
		return "", userErr(err)
	}

	return txid, nil
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

func outputFlags(cmd *cobra.Command) (string, int, error) {
	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return "", 0, err
	}
	size, err := cmd.Flags().GetInt("size")
	if err != nil {
		return "", 0, err
	}
	return out, size, nil
}

// writeFragments writes the fragments one per line to <name>.txt and
// renders each as <name>-<n>.png.
func writeFragments(dir, name string, frags []string, size int) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	text := strings.Join(frags, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, name+".txt"), []byte(text), 0600); err != nil {
		return err
	}

	for i, frag := range frags {
		png, err := qr.Render(frag, size)
		if err != nil {
			return err
		}

		path := filepath.Join(dir, fmt.Sprintf("%s-%02d.png", name, i+1))
		if err := os.WriteFile(path, png, 0600); err != nil {
			return err
		}
		fmt.Println(path)
	}

	return nil
}

// readFragments reads scanned fragments, one per line.
func readFragments(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var frags []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			frags = append(frags, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return frags, nil
}
