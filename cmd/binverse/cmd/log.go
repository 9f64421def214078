/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/binverse/pkg/codec"
)

func newLogCmd() *cobra.Command {
	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Append to and dump stream logs",
	}

	appendCmd := &cobra.Command{
		Use:   "append <file> <hex-stream>",
		Short: "Append a stream to a log",
		Long: `Append a complete binverse stream, given as hex, to a stream log.
The log is created if it does not exist.

Example:
  binverse log append ./data/streams.log 0100000005`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := containerFrom(cmd)
			if err != nil {
				return err
			}
			payload, err := hex.DecodeString(args[1])
			if err != nil {
				return fmt.Errorf("invalid hex: %w", err)
			}

			l, err := c.OpenLog(args[0])
			if err != nil {
				return err
			}
			offset, err := l.Append(payload)
			if err != nil {
				_ = l.Close()
				return err
			}
			if err := l.Close(); err != nil {
				return err
			}

			cmd.Printf("Appended %d bytes at offset %d\n", len(payload), offset)
			return nil
		},
	}

	dumpCmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "List every frame in a log",
		Long: `Recover a stream log and list its frames. A damaged tail is truncated
before listing.

Example:
  binverse log dump ./data/streams.log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := containerFrom(cmd)
			if err != nil {
				return err
			}
			if _, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("log file does not exist: %s", args[0])
			}

			l, err := c.OpenLog(args[0])
			if err != nil {
				return err
			}
			defer l.Close()

			if r := l.Recovery(); r.Truncated() {
				cmd.Printf("Recovered from corruption: truncated %d -> %d bytes\n", r.FileSizeBefore, r.FileSizeAfter)
			}

			count := 0
			err = l.Scan(func(offset int64, frame *codec.Frame) error {
				printFrame(cmd, offset, frame)
				count++
				return nil
			})
			if err != nil {
				return err
			}
			cmd.Printf("%d frames\n", count)
			return nil
		},
	}

	logCmd.AddCommand(appendCmd, dumpCmd)
	return logCmd
}
