package cli

import (
	"context"

	mcpsvc "github.com/m-mizutani/burrow/pkg/service/mcp"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Expose the FAQ search tools as an MCP server over stdio",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// Logs must stay off stdout here, the stdio transport owns it.
			ctx = cfg.setupLogger(ctx)

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			idx, err := cfg.newIndex(ctx, gemini)
			if err != nil {
				return err
			}

			return mcpsvc.NewServer(idx).Run(ctx)
		},
	}
}
