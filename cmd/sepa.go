// =============================================================================
// Roster Sync - SEPA Command
// =============================================================================
//
// COMMAND USAGE:
//   roster sepa [flags]
//
// Builds a pain.008.001.02 direct debit remittance for every active member
// paying by direct debit. Members that fail validation are left out and
// listed in a validation log next to the remittance.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ginjaninja78/roster-sync/internal/validation"
	"github.com/ginjaninja78/roster-sync/internal/xmlwriter"
	"github.com/ginjaninja78/roster-sync/pkg/utils"
	"github.com/spf13/cobra"
)

type sepaOptions struct {
	envFile      string
	sequenceType string
	collection   string
	output       string
}

func newSepaCmd(a *app) *cobra.Command {
	opts := &sepaOptions{}

	sepaCmd := &cobra.Command{
		Use:   "sepa",
		Short: "Generate the SEPA direct debit remittance for domiciled members",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSepa(cmd, opts)
		},
	}

	sepaCmd.Flags().StringVar(&opts.envFile, "env", "", "Credentials .env file (default from config)")
	sepaCmd.Flags().StringVar(&opts.sequenceType, "sequence", "", "Sequence type FRST, RCUR, OOFF or FNAL (default from config)")
	sepaCmd.Flags().StringVar(&opts.collection, "date", "", "Requested collection date YYYY-MM-DD (default: today + collection_days)")
	sepaCmd.Flags().StringVar(&opts.output, "output", "", "Output file (default: <output_dir>/remesa_sepa_<timestamp>.xml)")

	return sepaCmd
}

func (a *app) runSepa(cmd *cobra.Command, opts *sepaOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	now := time.Now()
	sepaCfg := a.cfg.SEPA

	// =========================================================================
	// STEP 1: RESOLVE REMITTANCE SETTINGS
	// =========================================================================

	sequence := sepaCfg.SequenceType
	if opts.sequenceType != "" {
		sequence = strings.ToUpper(opts.sequenceType)
		switch sequence {
		case "FRST", "RCUR", "OOFF", "FNAL":
		default:
			return fmt.Errorf("invalid sequence type %q", opts.sequenceType)
		}
	}

	collection := now.AddDate(0, 0, sepaCfg.CollectionDays)
	if opts.collection != "" {
		parsed, err := time.Parse("2006-01-02", opts.collection)
		if err != nil {
			return fmt.Errorf("invalid collection date %q: %w", opts.collection, err)
		}
		collection = parsed
	}

	creds, err := a.loadCredentials(opts.envFile)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: SELECT AND VALIDATE MEMBERS
	// =========================================================================

	sess, err := a.connect(ctx, creds)
	if err != nil {
		return err
	}
	defer sess.Close()

	members, err := sess.repo.ActiveDirectDebit(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Active direct debit members: %d\n", len(members))

	result := validation.NewValidator(sepaCfg.DefaultDues).ValidateMembers(members)
	files := a.files()
	if len(result.Errors) > 0 {
		fmt.Fprint(out, validation.FormatErrors(result.Errors))
		logPath := files.OutputPath("sepa_validation_{timestamp}.txt", now)
		if err := validation.WriteErrorLog(result.Errors, logPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Validation log written to %s\n", logPath)
	}
	if len(result.Valid) == 0 {
		return fmt.Errorf("no member passed validation, remittance not generated")
	}

	// =========================================================================
	// STEP 3: GENERATE XML
	// =========================================================================

	remittance := xmlwriter.Remittance{
		InitiatingParty: sepaCfg.InitiatingParty,
		Creditor: xmlwriter.Creditor{
			Name:     sepaCfg.CreditorName,
			IBAN:     validation.NormalizeAccount(sepaCfg.CreditorIBAN),
			BIC:      validation.NormalizeAccount(sepaCfg.CreditorBIC),
			SchemeID: sepaCfg.CreditorID,
		},
		SequenceType:   sequence,
		CollectionDate: collection,
		RemittanceText: sepaCfg.RemittanceText,
		Members:        result.Valid,
	}

	genOpts := xmlwriter.DefaultGenerateOptions()
	genOpts.Now = func() time.Time { return now }
	document, err := xmlwriter.GenerateSEPA(remittance, genOpts)
	if err != nil {
		return err
	}

	path := opts.output
	if path == "" {
		if err := files.EnsureDirectories(); err != nil {
			return err
		}
		path = files.OutputPath(utils.RemittanceFileFormat, now)
	}
	if err := os.WriteFile(path, document, 0644); err != nil {
		return fmt.Errorf("failed to write remittance: %w", err)
	}

	count, cents := remittance.Totals()
	fmt.Fprintf(out, "Remittance written: %s (%d transactions, %d.%02d EUR, %d rejected)\n",
		path, count, cents/100, cents%100, result.MembersRejected)
	return nil
}
