package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/medsynth/medsynth/pkg/models"
	"github.com/medsynth/medsynth/pkg/schema"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [kind]",
		Short: "List entity kinds, or print the JSON schema the model is given for one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := schema.Default()
			kinds := reg.Kinds()
			if len(args) == 0 {
				for _, k := range kinds {
					fmt.Println(k)
				}
				return nil
			}
			kind := models.EntityKind(args[0])
			if !slices.Contains(kinds, kind) {
				return fmt.Errorf("unknown entity kind %q", args[0])
			}
			fmt.Println(reg.SchemaFor(kind).String())
			return nil
		},
	}
}
