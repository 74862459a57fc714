package main

import (
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

func newConfigCmd(glob *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   `config`,
		Short: `Configuration utilities`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   `show`,
		Short: `Show effective configuration`,
		Long: `Show the effective configuration after merging defaults, config file, and
environment variables. The password is never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := glob.loadConfig()
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(conf)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})
	return cmd
}
