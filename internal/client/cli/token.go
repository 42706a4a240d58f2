package cli

import (
	"context"
	"fmt"
)

// runToken получает токен пира и печатает его, например для curl
func (c *Cli) runToken(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: token <collab>", ErrUsage)
	}

	resp, err := c.authenticate(ctx, args[0])
	if err != nil {
		return err
	}

	c.io.Println(resp.AccessToken)
	c.io.Printf("Token type: %s, expires in %d seconds\n", resp.TokenType, resp.ExpiresIn)
	return nil
}
