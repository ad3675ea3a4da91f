package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/m-mizutani/burrow/pkg/usecase/assistant"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
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
			Usage:       "Thread ID for session memory (random per run when empty)",
			Sources:     cli.EnvVars("BURROW_THREAD_ID"),
			Destination: &threadID,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, memoryFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive question answering session",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			uc, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}

			if threadID == "" {
				threadID = uuid.NewString()
			}

			rl, err := readline.New("> ")
			if err != nil {
				return goerr.Wrap(err, "failed to open prompt")
			}
			defer rl.Close()

			fmt.Fprintf(c.Root().Writer, "Chat session started. Type 'exit' to quit.\n")

			for {
				line, err := rl.Readline()
				if err == readline.ErrInterrupt || err == io.EOF {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				message := strings.TrimSpace(line)
				if message == "exit" {
					break
				}
				if message == "" {
					continue
				}

				out, err := uc.Query(ctx, assistant.Input{
					Prompt:   message,
					ActorID:  actorID,
					ThreadID: threadID,
				})
				if err != nil {
					fmt.Fprintf(c.Root().ErrWriter, "error: %v\n", err)
					continue
				}

				fmt.Fprintf(c.Root().Writer, "%s\n", out.Result)
			}

			fmt.Fprintf(c.Root().Writer, "\nChat session completed\n")
			return nil
		},
	}
}
