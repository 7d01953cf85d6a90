package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tidalab/datachat/pkg/client"
)

func newScriptCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Manage saved analysis scripts",
	}
	cmd.AddCommand(newScriptSaveCmd(a))
	return cmd
}

func newScriptSaveCmd(a *app) *cobra.Command {
	var (
		name        string
		description string
		language    string
	)

	cmd := &cobra.Command{
		Use:   "save <file>",
		Short: "Save a script file to the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			saved, err := a.client.SaveScript(context.Background(), client.Script{
				Name:        name,
				Description: description,
				Code:        string(code),
				Language:    language,
			})
			if err != nil {
				return err
			}
			if saved.ID != "" {
				fmt.Fprintf(os.Stdout, "saved script %s (%s)\n", saved.Name, saved.ID)
			} else {
				fmt.Fprintf(os.Stdout, "saved script %s\n", saved.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "script name (default: file name)")
	cmd.Flags().StringVar(&description, "description", "", "script description")
	cmd.Flags().StringVar(&language, "language", "python", "script language")
	return cmd
}
