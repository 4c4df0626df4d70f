package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/skill-bright/cde-huddle-sub001/internal/config"
)

var CLI struct {
	Config string `help:"Path to the YAML config file." type:"path" default:"config.yaml"`

	Serve  ServeCmd  `cmd:"" help:"Serve the HTTP API and run the weekly schedule." default:"1"`
	Run    RunCmd    `cmd:"" help:"Run the weekly report job on its schedule."`
	Report ReportCmd `cmd:"" help:"Generate a report for a week and print it as JSON."`
	Submit SubmitCmd `cmd:"" help:"Submit a standup update."`
	Token  TokenCmd  `cmd:"" help:"Print an API bearer token for a team member."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("huddle"),
		kong.Description("Team standup updates and weekly reports"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	a, err := newApp(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := ctx.Run(a); err != nil {
		a.logger.Error("command failed", "command", ctx.Command(), "err", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		a.Close()
		os.Exit(1)
	}
}
