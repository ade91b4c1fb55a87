package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shelfsync/internal/isbn"
)

func newISBNCommand() *cobra.Command {
	isbnCmd := &cobra.Command{
		Use:         "isbn",
		Short:       "ISBN utilities",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}

	isbnCmd.AddCommand(&cobra.Command{
		Use:   "convert <isbn>",
		Short: "Convert an ISBN-10 to its ISBN-13 form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := isbn.Normalize(args[0])
			switch {
			case isbn.IsISBN13(value):
				fmt.Fprintln(cmd.OutOrStdout(), value)
			case isbn.IsISBN10(value):
				fmt.Fprintln(cmd.OutOrStdout(), isbn.ConvertISBN10To13(value))
			default:
				return fmt.Errorf("%q is not a valid ISBN-10 or ISBN-13", args[0])
			}
			return nil
		},
	})

	return isbnCmd
}
