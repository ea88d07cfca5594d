package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/service"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/httpclient"
)

func newRecomputeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild derived aggregates from stored reviews",
		Long: `Rebuild game rating averages and per-user review counts from the
reviews actually stored.

Subcommands:
  game ID   - Recompute one game's count and averages
  user ID   - Recount one user's reviews
  all       - Recompute every game and user`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "game GAME_ID",
			Short: "Recompute one game's count and averages",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var game domain.Game
				if err := recompute(cmd.Context(), opts, "games/"+url.PathEscape(args[0]), &game); err != nil {
					return err
				}
				return report(cmd.OutOrStdout(), opts, game, func(w io.Writer) {
					fmt.Fprintf(w, "game %s (%s): %d reviews, overall %.2f\n",
						game.ID, game.LinkName, game.NumReviews, game.Averages.Overall)
				})
			},
		},
		&cobra.Command{
			Use:   "user USER_ID",
			Short: "Recount one user's reviews",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var stats domain.UserStats
				if err := recompute(cmd.Context(), opts, "users/"+url.PathEscape(args[0]), &stats); err != nil {
					return err
				}
				return report(cmd.OutOrStdout(), opts, stats, func(w io.Writer) {
					fmt.Fprintf(w, "user %s: %d reviews\n", stats.UserID, stats.NumReviews)
				})
			},
		},
		&cobra.Command{
			Use:   "all",
			Short: "Recompute every game and user",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				var res service.RecomputeResult
				if err := recompute(cmd.Context(), opts, "all", &res); err != nil {
					return err
				}
				return report(cmd.OutOrStdout(), opts, res, func(w io.Writer) {
					fmt.Fprintf(w, "recomputed %d games and %d users\n", res.Games, res.Users)
				})
			},
		},
	)
	return cmd
}

// recompute calls the admin recompute endpoint and decodes the data field
// of the response envelope into out.
func recompute(ctx context.Context, opts *options, target string, out any) error {
	token, err := bearer(opts)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	endpoint := strings.TrimRight(opts.server, "/") + "/api/v1/admin/recompute/" + target
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	cfg := httpclient.DefaultConfig()
	cfg.Timeout = opts.timeout
	cfg.UserAgent = "reviewctl"
	resp, err := httpclient.New(cfg).Do(ctx, req)
	if err != nil {
		return fmt.Errorf("recompute %s: %w", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		return httpclient.ParseResponseError(resp, "review-service")
	}
	defer resp.Body.Close()

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func report(w io.Writer, opts *options, v any, text func(io.Writer)) error {
	if opts.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
