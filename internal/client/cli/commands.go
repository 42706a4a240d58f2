package cli

import (
	"context"
	"fmt"
)

// Run выполняет команду args[0] с аргументами args[1:]
func (c *Cli) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: command is required", ErrUsage)
	}

	command, rest := args[0], args[1:]
	switch command {
	case "health":
		return c.runHealth(ctx)
	case "token":
		return c.runToken(ctx, rest)
	case "clock":
		return c.withCollab(ctx, rest, c.runClock)
	case "value":
		return c.withCollab(ctx, rest, c.runValue)
	case "snapshot":
		return c.withCollab(ctx, rest, c.runSnapshot)
	case "mutate":
		return c.runMutate(ctx, rest)
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, command)
	}
}

// withCollab проверяет имя коллаборации, при необходимости получает токен
// и передает команде оставшиеся аргументы
func (c *Cli) withCollab(ctx context.Context, args []string, fn func(ctx context.Context, collab string, args []string) error) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: collaboration name is required", ErrUsage)
	}
	if err := c.login(ctx, args[0]); err != nil {
		return err
	}
	return fn(ctx, args[0], args[1:])
}

func (c *Cli) login(ctx context.Context, collab string) error {
	if !c.opts.Auth {
		return nil
	}
	_, err := c.authenticate(ctx, collab)
	return err
}
