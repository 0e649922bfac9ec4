package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyGap-Intelligence/internal/application/analysis"
	"github.com/turtacn/KeyGap-Intelligence/internal/config"
	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// analyze
// ─────────────────────────────────────────────────────────────────────────────

type analyzeOptions struct {
	primary     string
	competitors []string
	location    int
	language    string
	limit       int
	margin      int
	owner       string
	product     string
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compare a primary domain against its competitors",
		Long: "Fetch the ranked keywords of every domain, compare the primary domain\n" +
			"against each competitor and print the keywords it is missing or trailing on,\n" +
			"best opportunity first.",
		Example: "  keygap analyze --primary example.com --competitors rival.com,other.io\n" +
			"  keygap analyze --primary example.com --competitors rival.com --margin 3 -o table",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.primary, "primary", "", "primary domain (required)")
	f.StringSliceVar(&opts.competitors, "competitors", nil, "comma-separated competitor domains (required)")
	f.IntVar(&opts.location, "location", config.DefaultLocationCode, "provider location code")
	f.StringVar(&opts.language, "language", config.DefaultLanguageCode, "provider language code")
	f.IntVar(&opts.limit, "limit", config.DefaultKeywordLimit, "maximum keywords fetched per domain")
	f.IntVar(&opts.margin, "margin", config.DefaultWeakPositionMargin, "positions the primary may trail before a keyword counts as weak")
	f.StringVar(&opts.owner, "owner", "", "owner recorded with the snapshot")
	f.StringVar(&opts.product, "product", "", "product recorded with the snapshot")
	_ = cmd.MarkFlagRequired("primary")
	_ = cmd.MarkFlagRequired("competitors")

	return cmd
}

// buildRequest maps flags onto a Request.  Options whose flag was not given
// stay zero so the configured analysis defaults apply.
func (o *analyzeOptions) buildRequest(cmd *cobra.Command) (analysis.Request, error) {
	req := analysis.Request{
		Primary:     strings.TrimSpace(o.primary),
		Competitors: make([]string, 0, len(o.competitors)),
		Owner:       o.owner,
		Product:     o.product,
	}
	for _, c := range o.competitors {
		if c = strings.TrimSpace(c); c != "" {
			req.Competitors = append(req.Competitors, c)
		}
	}
	if len(req.Competitors) == 0 {
		return req, errors.New(errors.ErrCodeValidation, "at least one competitor is required")
	}

	f := cmd.Flags()
	if f.Changed("location") {
		if o.location < 1 {
			return req, errors.New(errors.ErrCodeValidation, "--location must be positive")
		}
		req.Options.LocationCode = o.location
	}
	if f.Changed("language") {
		req.Options.LanguageCode = o.language
	}
	if f.Changed("limit") {
		if o.limit < 1 {
			return req, errors.New(errors.ErrCodeValidation, "--limit must be positive")
		}
		req.Options.KeywordLimit = o.limit
	}
	if f.Changed("margin") {
		if o.margin < 0 {
			return req, errors.New(errors.ErrCodeValidation, "--margin must not be negative")
		}
		m := o.margin
		req.Options.WeakPositionMargin = &m
	}
	return req, nil
}

func runAnalyze(cmd *cobra.Command, opts *analyzeOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	req, err := opts.buildRequest(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := cliCtx.withTimeout(cmd.Context())
	defer cancel()

	backend, err := cliCtx.Backend(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	cliCtx.Logger.Info("running analysis",
		logging.String("primary", req.Primary),
		logging.Strings("competitors", req.Competitors))

	res, err := backend.Analyze(ctx, req)
	if err != nil {
		return err
	}
	return PrintResult(cmd, resultView{res})
}

// ─────────────────────────────────────────────────────────────────────────────
// show
// ─────────────────────────────────────────────────────────────────────────────

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <analysis-id>",
		Short: "Print a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.withTimeout(cmd.Context())
			defer cancel()

			backend, err := cliCtx.Backend(ctx)
			if err != nil {
				return err
			}
			defer backend.Close()

			res, err := backend.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, resultView{res})
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// version
// ─────────────────────────────────────────────────────────────────────────────

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		// version needs no config.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "keygap %s\ncommit: %s\nbuilt:  %s\n", Version, GitCommit, BuildDate)
			return nil
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// rendering
// ─────────────────────────────────────────────────────────────────────────────

// resultView renders a Result for every output format.
type resultView struct {
	*analysis.Result
}

func (v resultView) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Result)
}

func (v resultView) TableHeaders() []string {
	return []string{"#", "KEYWORD", "KIND", "VOLUME", "KD", "CPC", "PRIMARY", "BEST COMPETITOR", "SCORE"}
}

func (v resultView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Opportunities))
	for i, o := range v.Opportunities {
		primary := "-"
		if o.PrimaryPosition != nil {
			primary = strconv.Itoa(*o.PrimaryPosition)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			o.Keyword,
			string(o.Kind),
			strconv.FormatInt(o.SearchVolume, 10),
			strconv.Itoa(o.Difficulty),
			o.CPC.StringFixed(2),
			primary,
			fmt.Sprintf("%s (#%d)", o.BestCompetitor, o.BestCompetitorPosition),
			strconv.FormatFloat(o.Score, 'f', 3, 64),
		})
	}
	return rows
}

func (v resultView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analysis %s\n", v.ID)
	fmt.Fprintf(&sb, "  %s\n\n", v.AuditLabel)

	domainRows := make([][]string, 0, len(v.Domains))
	for _, d := range v.Domains {
		note := ""
		if d.Status == analysis.StatusFailed {
			note = fmt.Sprintf("%s %s", d.ErrorCode, d.Reason)
		}
		domainRows = append(domainRows, []string{
			d.Domain, d.Role, string(d.Status),
			strconv.Itoa(d.Kept), strconv.Itoa(d.Ranked), strconv.Itoa(d.Dropped), note,
		})
	}
	sb.WriteString(FormatTable([]string{"DOMAIN", "ROLE", "STATUS", "KEPT", "RANKED", "DROPPED", "NOTE"}, domainRows))

	fmt.Fprintf(&sb, "\nOpportunities: %d\n", len(v.Opportunities))
	if len(v.Opportunities) > 0 {
		sb.WriteString(FormatTable(v.TableHeaders(), v.TableRows()))
	}

	if v.Persistence.Stored {
		sb.WriteString("\nSnapshot stored.\n")
	} else {
		fmt.Fprintf(&sb, "\nSnapshot NOT stored: %s\n", v.Persistence.Error)
	}
	return sb.String()
}

//Personal.AI order the ending
