package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"estate_api/internal/app"
	"estate_api/internal/domain"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-create listings from a JSON file",
	Long: `Reads a JSON array of listings (the same shape the API accepts on
POST /api/properties) and creates them on behalf of --owner.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		owner, _ := cmd.Flags().GetString("owner")
		workers, _ := cmd.Flags().GetInt("workers")
		if file == "" || owner == "" {
			return errors.New("--file and --owner are required")
		}

		f, err := os.Open(file)
		if err != nil {
			return err
		}
		items, err := parseListings(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}

		ctx := cmd.Context()
		u, err := env.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(owner)))
		if err != nil {
			return fmt.Errorf("owner %s: %w", owner, err)
		}
		if !u.Role.CanList() {
			return fmt.Errorf("owner %s has role %s; agent or admin required", owner, u.Role)
		}
		who := domain.Principal{UserID: u.ID, Email: u.Email, Role: u.Role}

		log.Info().Str("file", file).Int("listings", len(items)).Int("workers", workers).Msg("import starting")
		res := runImport(ctx, env.svc.Properties, who, items, workers)
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d, failed %d\n", res.Created, res.Failed)
		if res.Failed > 0 {
			return fmt.Errorf("%d listings failed", res.Failed)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().String("file", "", "path to a JSON array of listings")
	importCmd.Flags().String("owner", "", "email of the agent who will own the listings")
	importCmd.Flags().Int("workers", 4, "concurrent inserts")
}

// parseListings decodes a JSON array of listings. An empty array is an error.
func parseListings(r io.Reader) ([]app.PropertyInput, error) {
	var items []app.PropertyInput
	dec := json.NewDecoder(r)
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}
	if dec.More() {
		return nil, errors.New("trailing data after listings array")
	}
	if len(items) == 0 {
		return nil, errors.New("no listings")
	}
	return items, nil
}

type importResult struct {
	Created int
	Failed  int
}

// runImport creates items with at most workers inserts in flight.
func runImport(ctx context.Context, props *app.PropertyService, who domain.Principal, items []app.PropertyInput, workers int) importResult {
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg              sync.WaitGroup
		created, failed atomic.Int64
	)

	for i, in := range items {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			failed.Add(int64(len(items) - i))
			log.Warn().Err(err).Msg("import interrupted")
			break
		}

		wg.Add(1)
		go func(n int, in app.PropertyInput) {
			defer wg.Done()
			defer sem.Release(1)

			p, err := props.Create(ctx, who, in)
			if err != nil {
				failed.Add(1)
				log.Warn().Int("index", n).Str("title", in.Title).Err(err).Msg("import failed")
				return
			}
			created.Add(1)
			log.Debug().Int("index", n).Int64("id", p.ID).Msg("import ok")
		}(i, in)
	}

	wg.Wait()
	log.Info().Int64("created", created.Load()).Int64("failed", failed.Load()).Msg("import completed")
	return importResult{Created: int(created.Load()), Failed: int(failed.Load())}
}
