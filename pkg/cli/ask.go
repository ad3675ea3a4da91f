package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/burrow/pkg/usecase/assistant"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func askCommand() *cli.Command {
	var (
		cfg      config
		actorID  string
		threadID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "actor",
			Usage:       "Actor ID for session memory",
			Sources:     cli.EnvVars("BURROW_ACTOR_ID"),
			Destination: &actorID,
		},
		&cli.StringFlag{
			Name:        "thread",
			Usage:       "Thread ID for session memory",
			Sources:     cli.EnvVars("BURROW_THREAD_ID"),
			Destination: &threadID,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, memoryFlags(&cfg)...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a single question",
		ArgsUsage: "<question>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if question == "" {
				return goerr.New("question is required")
			}

			ctx = cfg.setupLogger(ctx)

			uc, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
				spinner.WithSuffix(" thinking..."))
			sp.Start()

			out, err := uc.Query(ctx, assistant.Input{
				Prompt:   question,
				ActorID:  actorID,
				ThreadID: threadID,
			})
			sp.Stop()
			if err != nil {
				return goerr.Wrap(err, "failed to answer question")
			}

			fmt.Fprintf(c.Root().Writer, "%s\n", out.Result)
			return nil
		},
	}
}
