package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/iudanet/deltasync/internal/client/api"
	"github.com/iudanet/deltasync/internal/client/iocli"
	"github.com/iudanet/deltasync/internal/crypto"
	"github.com/iudanet/deltasync/internal/validation"
	pkgapi "github.com/iudanet/deltasync/pkg/api"
)

// SecretEnv переменная окружения с общим секретом коллаборации
const SecretEnv = "DELTASYNC_SECRET"

// ErrUsage неверные аргументы команды
var ErrUsage = errors.New("invalid usage")

// Secrets источники общего секрета коллаборации
type Secrets struct {
	FromFile string
	FromArgs string
}

// Options глобальные параметры CLI
type Options struct {
	Secrets Secrets
	PeerID  string
	// Auth получать токен перед командами коллабораций
	Auth bool
}

// Cli выполняет команды против одного узла
type Cli struct {
	apiClient *api.Client
	io        iocli.IO
	opts      Options
}

// New создает CLI
func New(apiClient *api.Client, io iocli.IO, opts Options) *Cli {
	if opts.PeerID == "" {
		opts.PeerID = "cli"
	}
	return &Cli{
		apiClient: apiClient,
		io:        io,
		opts:      opts,
	}
}

// getSecret retrieves the collaboration secret from various sources with priority:
// 1. Environment variable DELTASYNC_SECRET
// 2. File specified in FromFile
// 3. Command-line parameter FromArgs
// 4. Interactive prompt (fallback)
func (c *Cli) getSecret() (string, error) {
	// Priority 1: Environment variable
	if envSecret := os.Getenv(SecretEnv); envSecret != "" {
		return envSecret, nil
	}

	// Priority 2: File
	if c.opts.Secrets.FromFile != "" {
		content, err := os.ReadFile(c.opts.Secrets.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read secret file: %w", err)
		}
		secret := strings.TrimSpace(string(content))
		if secret == "" {
			return "", fmt.Errorf("secret file is empty")
		}
		return secret, nil
	}

	// Priority 3: CLI parameter
	if c.opts.Secrets.FromArgs != "" {
		return c.opts.Secrets.FromArgs, nil
	}

	// Priority 4: Interactive prompt (fallback)
	secret, err := c.io.ReadPassword("Collaboration secret: ")
	if err != nil {
		return "", fmt.Errorf("failed to read secret from stdin: %w", err)
	}
	if secret == "" {
		return "", fmt.Errorf("secret cannot be empty")
	}
	return secret, nil
}

// authenticate получает токен пира для коллаборации и сохраняет его в клиенте
func (c *Cli) authenticate(ctx context.Context, collaboration string) (*pkgapi.TokenResponse, error) {
	if err := validation.ValidatePeerID(c.opts.PeerID); err != nil {
		return nil, err
	}

	secret, err := c.getSecret()
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateSecret(secret); err != nil {
		return nil, fmt.Errorf("invalid secret: %w", err)
	}

	keys, err := crypto.DeriveKeys(secret, collaboration)
	if err != nil {
		return nil, fmt.Errorf("failed to derive keys: %w", err)
	}
	hash, err := crypto.HashAuthKey(keys.AuthKey)
	if err != nil {
		return nil, err
	}

	resp, err := c.apiClient.RequestToken(ctx, pkgapi.TokenRequest{
		PeerID:        c.opts.PeerID,
		Collaboration: collaboration,
		AuthKeyHash:   hash,
	})
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	return resp, nil
}

// printJSON выводит значение с отступами
func (c *Cli) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = c.io.Write(append(data, '\n'))
	return err
}

func PrintUsage() {
	fmt.Println("DeltaSync Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  deltasync [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version              Show version information")
	fmt.Println("  --server URL           Node URL (default: http://localhost:8080)")
	fmt.Println("  --peer-id ID           Peer identifier used for tokens (default: cli)")
	fmt.Println("  --auth                 Request a token before collaboration commands")
	fmt.Println("  --secret SECRET        Collaboration secret (not recommended, use env var or file)")
	fmt.Println("  --secret-file PATH     Path to file containing the collaboration secret")
	fmt.Println()
	fmt.Println("Secret Priority (highest to lowest):")
	fmt.Println("  1. DELTASYNC_SECRET environment variable")
	fmt.Println("  2. --secret-file (file path)")
	fmt.Println("  3. --secret (command line)")
	fmt.Println("  4. Interactive prompt (fallback)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  health                                  Show node status")
	fmt.Println("  token <collab>                          Request a peer token")
	fmt.Println("  clock <collab>                          Show the vector clock")
	fmt.Println("  value <collab> [sub]                    Show the current value")
	fmt.Println("  snapshot <collab>                       Dump full-state records")
	fmt.Println("  mutate [-sub NAME -type T] <collab> <mutator> [args...]")
	fmt.Println("                                          Apply a local mutation on the node")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  deltasync value notes")
	fmt.Println("  deltasync mutate notes add milk bread")
	fmt.Println("  deltasync mutate -sub likes -type gcounter notes inc 2")
	fmt.Println()
	fmt.Println("  # Using environment variable (recommended)")
	fmt.Println("  export DELTASYNC_SECRET='collaboration-secret'")
	fmt.Println("  deltasync --auth --server https://node.example.com value notes")
}
