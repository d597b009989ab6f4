package cmd

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gophertribe/devtool/build"
)

const (
	mainPackage   = "./cmd/chargemon"
	configPackage = "github.com/mklimuk/chargemon/config"
	// the charger host is a Raspberry Pi class board
	buildImage = "gophertribe/gobuild:1.25-bookworm"
)

func BuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the chargemon binary (cgo is required by hidapi)",
		RunE: func(cmd *cobra.Command, args []string) error {
			targetOS, _ := cmd.Flags().GetString("os")
			targetArch, _ := cmd.Flags().GetString("arch")
			version, _ := cmd.Flags().GetString("version")
			output := fmt.Sprintf("dist/chargemon-%s-%s", targetOS, targetArch)

			if targetOS == runtime.GOOS && targetArch == runtime.GOARCH {
				slog.Info("native build", "output", output, "version", version)
				return build.GoBuild(output, mainPackage, build.GoBuildOpts{
					Version:       version,
					InjectVersion: true,
					ConfigPackage: configPackage,
					EnableCgo:     true,
					Arch:          targetArch,
					OS:            targetOS,
				})
			}

			// cross builds with cgo run natively inside a container of the target platform
			noCache, err := cmd.Flags().GetBool("no-cache")
			if err != nil {
				return fmt.Errorf("could not get no-cache flag: %w", err)
			}
			slog.Info("docker build", "os", targetOS, "arch", targetArch, "image", buildImage)
			return build.Docker(cmd.Context(), fmt.Sprintf("./dev-%s-%s", targetOS, targetArch),
				[]string{"build", "--version", version, "--os", targetOS, "--arch", targetArch},
				build.DockerBuildOpts{
					NoCache: noCache,
					Image:   buildImage,
				})
		},
	}
	cmd.Flags().Bool("no-cache", false, "do not use the docker build cache")
	cmd.Flags().String("version", "latest", "version injected into the binary")
	cmd.Flags().String("os", runtime.GOOS, "target os")
	cmd.Flags().String("arch", runtime.GOARCH, "target arch")
	return cmd
}
