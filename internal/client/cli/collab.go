package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/iudanet/deltasync/internal/models"
	"github.com/iudanet/deltasync/pkg/api"
)

func (c *Cli) runClock(ctx context.Context, collab string, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: usage: clock <collab>", ErrUsage)
	}

	resp, err := c.apiClient.Clock(ctx, collab)
	if err != nil {
		return fmt.Errorf("failed to get clock: %w", err)
	}

	c.io.Printf("Replica: %s\n", resp.ReplicaID)
	return c.printJSON(resp.Clock)
}

func (c *Cli) runValue(ctx context.Context, collab string, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("%w: usage: value <collab> [sub]", ErrUsage)
	}
	var sub string
	if len(args) == 1 {
		sub = args[0]
	}

	resp, err := c.apiClient.Value(ctx, collab, sub)
	if err != nil {
		return fmt.Errorf("failed to get value: %w", err)
	}

	c.io.Printf("%s (%s)\n", resp.Name, resp.Type)
	return c.printJSON(resp.Value)
}

func (c *Cli) runSnapshot(ctx context.Context, collab string, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: usage: snapshot <collab>", ErrUsage)
	}

	resp, err := c.apiClient.Snapshot(ctx, collab)
	if err != nil {
		return fmt.Errorf("failed to get snapshot: %w", err)
	}

	for _, raw := range resp.Records {
		var record models.DeltaRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return fmt.Errorf("invalid snapshot record: %w", err)
		}
		c.io.Printf("%s (%s) clock=%v\n", record.Name, record.Type, record.Clock())
	}
	c.io.Printf("Records: %d\n", len(resp.Records))
	return nil
}

// runMutate разбирает флаги -sub и -type, затем collab, mutator и аргументы.
// Аргументы передаются строками, числовые мутаторы разбирают их на узле.
func (c *Cli) runMutate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mutate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	sub := fs.String("sub", "", "sub-collaboration name")
	typeName := fs.String("type", "", "CRDT type of a new sub-collaboration")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	rest := fs.Args()
	if len(rest) < 2 {
		return fmt.Errorf("%w: usage: mutate [-sub NAME -type T] <collab> <mutator> [args...]", ErrUsage)
	}
	collab, mutator := rest[0], rest[1]

	if err := c.login(ctx, collab); err != nil {
		return err
	}

	mutArgs := make([]any, 0, len(rest)-2)
	for _, arg := range rest[2:] {
		mutArgs = append(mutArgs, arg)
	}

	resp, err := c.apiClient.Mutate(ctx, collab, api.MutateRequest{
		Sub:     *sub,
		Type:    *typeName,
		Mutator: mutator,
		Args:    mutArgs,
	})
	if err != nil {
		return fmt.Errorf("mutation failed: %w", err)
	}

	c.io.Println("✓ Mutation applied")
	return c.printJSON(resp.Clock)
}
