package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cloudkit/internal/cloud"
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List containers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		image, _ := cmd.Flags().GetString("image")

		session, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer session.Close()

		var containers []*cloud.Container
		if image != "" {
			img, err := session.Image(cmd.Context(), image)
			if err != nil {
				return err
			}
			containers, err = img.Containers(cmd.Context())
			if err != nil {
				return err
			}
		} else {
			containers, err = session.Containers(cmd.Context(), nil)
			if err != nil {
				return err
			}
		}

		rows := make([]string, 0, len(containers))
		for _, c := range containers {
			rows = append(rows, fmt.Sprintf("%-24s %-12.12s %-32s %s", c.Name(), c.ID(), c.Image(), c.Status()))
		}
		console.PrintList("Containers:", rows)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <container>",
	Short: "Stop a running container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer session.Close()

		c, err := session.Container(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := c.Stop(cmd.Context()); err != nil {
			return err
		}
		console.PrintSuccess("Stopped container " + c.Name())
		return nil
	},
}

func addContainerCommands(root *cobra.Command) {
	psCmd.Flags().String("image", "", "Only list containers started from this image")
	root.AddCommand(psCmd, stopCmd)
}
