package cmd

import (
	goruntime "runtime"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/radar/cli/render"
	"github.com/pithecene-io/radar/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version         string `json:"version" yaml:"version"`
	AlertContract   string `json:"alert_contract" yaml:"alert_contract"`
	Commit          string `json:"commit" yaml:"commit"`
	DefaultEndpoint string `json:"default_endpoint" yaml:"default_endpoint"`
	Platform        string `json:"platform" yaml:"platform"`
}

// VersionCommand returns the version command.
// It must not contact the daemon.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  OutputFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return cli.Exit(err.Error(), exitConfigError)
		}

		return r.Render(newVersionResponse(commit))
	}
}

func newVersionResponse(commit string) VersionResponse {
	return VersionResponse{
		Version:         types.Version,
		AlertContract:   types.AlertContractVersion,
		Commit:          commit,
		DefaultEndpoint: types.DefaultEndpoint().String(),
		Platform:        goruntime.GOOS + "/" + goruntime.GOARCH,
	}
}
