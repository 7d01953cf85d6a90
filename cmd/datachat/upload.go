package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newUploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload data files for use in conversations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			refs, err := a.client.UploadFiles(context.Background(), args)
			if err != nil {
				return err
			}
			for _, ref := range refs {
				fmt.Fprintf(os.Stdout, "%s\t%s\t%d bytes\n", ref.ID, ref.Name, ref.Size)
			}
			return nil
		},
	}
}
