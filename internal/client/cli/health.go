package cli

import (
	"context"
	"fmt"
	"strings"
)

func (c *Cli) runHealth(ctx context.Context) error {
	health, err := c.apiClient.Health(ctx)
	if err != nil {
		return fmt.Errorf("failed to get node status: %w", err)
	}

	c.io.Printf("Node:           %s\n", c.apiClient.BaseURL())
	c.io.Printf("Status:         %s\n", health.Status)
	c.io.Printf("Version:        %s\n", health.Version)
	c.io.Printf("Replica ID:     %s\n", health.ReplicaID)
	c.io.Printf("Collaborations: %s\n", strings.Join(health.Collaborations, ", "))
	return nil
}
