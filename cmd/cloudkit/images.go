package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cloudkit/internal/cloud"
	cerrors "cloudkit/internal/errors"
	"cloudkit/pkg/runtime"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the configured provider",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer session.Close()

		console.PrintSuccess(fmt.Sprintf("Logged in to %s", session.Kind()))
		return nil
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags <image>",
	Short: "List the tags of an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, _ := cmd.Flags().GetString("filter")

		img, done, err := openImage(cmd, args[0])
		if err != nil {
			return err
		}
		defer done()

		tags, err := img.GetTags(cmd.Context(), filter)
		if err != nil {
			return err
		}
		console.PrintList(fmt.Sprintf("Tags of %s:", img.Name()), tags)
		return nil
	},
}

var tagCmd = &cobra.Command{
	Use:   "tag <image> <new-name>",
	Short: "Tag an image with a new name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, done, err := openImage(cmd, args[0])
		if err != nil {
			return err
		}
		defer done()

		tagged, err := img.Tag(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		console.PrintSuccess(fmt.Sprintf("Tagged %s as %s", img.Name(), tagged.Name()))
		return nil
	},
}

func imageActionCmd(action runtime.ImageAction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " <image>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, done, err := openImage(cmd, args[0])
			if err != nil {
				return err
			}
			defer done()

			records, err := img.Manage(cmd.Context(), action)
			if err != nil {
				return err
			}
			console.PrintSuccess(fmt.Sprintf("%s %s completed (%d log records)", action, img.Name(), len(records)))
			return nil
		},
	}
}

var runCmd = &cobra.Command{
	Use:   "run <image> [command...]",
	Short: "Start a container from an image",
	Long: `Run starts a container from an image, pulling the image first unless
--no-update is given. The container runs detached unless --attach is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noUpdate, _ := cmd.Flags().GetBool("no-update")
		attach, _ := cmd.Flags().GetBool("attach")
		name, _ := cmd.Flags().GetString("name")
		autoRemove, _ := cmd.Flags().GetBool("rm")
		envs, _ := cmd.Flags().GetStringArray("env")

		envVars, err := parseEnv(envs)
		if err != nil {
			return err
		}

		img, done, err := openImage(cmd, args[0])
		if err != nil {
			return err
		}
		defer done()

		c, err := img.Run(cmd.Context(), cloud.RunOptions{
			Attach:   attach,
			NoUpdate: noUpdate,
			Container: runtime.RunOptions{
				Name:       name,
				Command:    args[1:],
				EnvVars:    envVars,
				AutoRemove: autoRemove,
			},
		})
		if err != nil {
			return err
		}

		if attach {
			console.PrintSuccess(fmt.Sprintf("Container %s %s", c.Name(), c.Status()))
		} else {
			console.PrintSuccess(fmt.Sprintf("Started container %s (%s)", c.Name(), c.ID()))
		}
		return nil
	},
}

var execCmd = &cobra.Command{
	Use:   "exec -- <args...>",
	Short: "Pass arguments through to the provider's command-line tool",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer session.Close()

		_, err = session.Exec(cmd.Context(), execOptions(cmd), args...)
		return err
	},
}

// execOptions echoes the tool's stdout and, with --ignore-stderr, tolerates
// the informational messages it writes to stderr.
func execOptions(cmd *cobra.Command) runtime.ExecOptions {
	ignoreStderr, _ := cmd.Flags().GetBool("ignore-stderr")
	return runtime.ExecOptions{ShowStdout: true, IgnoreStderr: ignoreStderr}
}

// openImage logs in and resolves name. The returned func closes the session.
func openImage(cmd *cobra.Command, name string) (*cloud.Image, func(), error) {
	session, err := openSession(cmd)
	if err != nil {
		return nil, nil, err
	}
	img, err := session.Image(cmd.Context(), name)
	if err != nil {
		session.Close()
		return nil, nil, err
	}
	return img, func() { session.Close() }, nil
}

// parseEnv converts KEY=VALUE pairs into a map.
func parseEnv(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, cerrors.NewConfigError("Invalid environment variable "+pair,
				"expected KEY=VALUE", "Pass variables as -e KEY=VALUE",
				fmt.Errorf("invalid environment variable %q: expected KEY=VALUE", pair))
		}
		env[key] = value
	}
	return env, nil
}

func addImageCommands(root *cobra.Command) {
	tagsCmd.Flags().String("filter", "", "Filter expression passed to the registry's tag listing")

	runCmd.Flags().Bool("no-update", false, "Do not pull the image before starting the container")
	runCmd.Flags().Bool("attach", false, "Wait for the container to exit instead of detaching")
	runCmd.Flags().String("name", "", "Container name")
	runCmd.Flags().Bool("rm", false, "Remove the container when it exits")
	runCmd.Flags().StringArrayP("env", "e", nil, "Set an environment variable (KEY=VALUE, repeatable)")

	execCmd.Flags().Bool("ignore-stderr", false, "Do not treat output on the tool's stderr as a failure")

	root.AddCommand(loginCmd, tagsCmd, tagCmd, runCmd, execCmd,
		imageActionCmd(runtime.ActionPull, "Pull an image from its registry"),
		imageActionCmd(runtime.ActionPush, "Push an image to its registry"),
	)
}
