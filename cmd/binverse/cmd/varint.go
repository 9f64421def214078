package cmd

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ssargent/binverse/pkg/binverse"
)

func newVarintCmd() *cobra.Command {
	varintCmd := &cobra.Command{
		Use:   "varint",
		Short: "Encode and decode LEB128 variable-length integers",
	}

	encodeCmd := &cobra.Command{
		Use:   "encode <n>",
		Short: "Print the varint encoding of n as hex",
		Long: `Print the varint encoding of n as hex.

Example:
  binverse varint encode 300
  binverse varint encode --signed -- -3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signed, _ := cmd.Flags().GetBool("signed")

			var encoded []byte
			if signed {
				v, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid integer %q: %w", args[0], err)
				}
				encoded = binverse.AppendVarint(nil, v)
			} else {
				v, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid unsigned integer %q: %w", args[0], err)
				}
				encoded = binverse.EncodeUvarint(v)
			}
			cmd.Println(hex.EncodeToString(encoded))
			return nil
		},
	}
	encodeCmd.Flags().Bool("signed", false, "Zig-zag encode a signed integer")

	decodeCmd := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a hex varint",
		Long: `Decode a hex varint and print its value and length.

Non-minimal encodings and trailing bytes are rejected.

Example:
  binverse varint decode ac02`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signed, _ := cmd.Flags().GetBool("signed")

			data, err := hex.DecodeString(args[0])
			if err != nil {
				return fmt.Errorf("invalid hex: %w", err)
			}

			var value string
			var n int
			if signed {
				r := bytes.NewReader(data)
				v, err := binverse.ReadVarint(r)
				if err != nil {
					return err
				}
				value, n = strconv.FormatInt(v, 10), len(data)-r.Len()
			} else {
				v, read, err := binverse.DecodeUvarint(data)
				if err != nil {
					return err
				}
				value, n = strconv.FormatUint(v, 10), read
			}
			if n != len(data) {
				return fmt.Errorf("%d trailing bytes after varint", len(data)-n)
			}

			cmd.Printf("%s (%d bytes)\n", value, n)
			return nil
		},
	}
	decodeCmd.Flags().Bool("signed", false, "Zig-zag decode to a signed integer")

	varintCmd.AddCommand(encodeCmd, decodeCmd)
	return varintCmd
}
