/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssargent/binverse/pkg/binverse"
	"github.com/ssargent/binverse/pkg/codec"
	"github.com/ssargent/binverse/pkg/store"
)

func newInspectCmd() *cobra.Command {
	// inspectCmd represents the inspect command
	inspectCmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show the revision header of a stream or the frames of a log",
		Long: `Show the revision header and size of a binverse stream file.

With --frames the file is read as a stream log and every frame is listed.

Examples:
  binverse inspect record.bin
  binverse inspect --frames ./data/streams.log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frames, _ := cmd.Flags().GetBool("frames")
			if frames {
				c, err := containerFrom(cmd)
				if err != nil {
					return err
				}
				return inspectFrames(cmd, args[0], c.GetConfig().Log.MaxFrameSize)
			}
			return inspectStream(cmd, args[0])
		},
	}

	inspectCmd.Flags().Bool("frames", false, "Read the file as a stream log")
	return inspectCmd
}

func inspectStream(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read stream: %w", err)
	}
	rev, err := binverse.PeekRevision(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	cmd.Printf("Revision: %d\n", rev)
	cmd.Printf("Size: %d bytes\n", len(data))
	cmd.Printf("Body: %d bytes\n", len(data)-binverse.HeaderSize)
	return nil
}

func inspectFrames(cmd *cobra.Command, path string, maxFrameSize uint32) error {
	reader, err := store.NewLogReader(store.LogReaderConfig{
		FilePath:     path,
		MaxFrameSize: maxFrameSize,
	})
	if err != nil {
		return err
	}
	defer reader.Close()

	count := 0
	it := reader.Iterator()
	defer it.Close()
	for it.Next() {
		printFrame(cmd, it.Offset(), it.Frame())
		count++
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("after %d frames: %w", count, err)
	}

	cmd.Printf("%d frames\n", count)
	return nil
}

func printFrame(cmd *cobra.Command, offset int64, frame *codec.Frame) {
	rev, err := frame.Revision()
	if err != nil {
		cmd.Printf("offset=%d size=%d error=%v\n", offset, len(frame.Payload), err)
		return
	}
	cmd.Printf("offset=%d revision=%d size=%d time=%s\n",
		offset, rev, len(frame.Payload), frame.Time().UTC().Format(time.RFC3339Nano))
}
