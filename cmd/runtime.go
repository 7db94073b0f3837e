package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ginjaninja78/roster-sync/internal/backup"
	"github.com/ginjaninja78/roster-sync/internal/config"
	"github.com/ginjaninja78/roster-sync/internal/database"
	"github.com/ginjaninja78/roster-sync/internal/roster"
	"github.com/ginjaninja78/roster-sync/pkg/utils"
)

// session is an open database connection with its repository.
type session struct {
	db    *database.DB
	repo  *roster.Repository
	creds *config.Credentials
}

func (s *session) Close() {
	if err := s.db.Close(); err != nil {
		slog.Warn("failed to close database", "error", err)
	}
}

// loadCredentials resolves the credentials file from the flag or config.
func (a *app) loadCredentials(envFlag string) (*config.Credentials, error) {
	envFile := envFlag
	if envFile == "" {
		envFile = a.cfg.EnvFile
	}
	return config.LoadCredentials(envFile)
}

// connect opens the database described by creds.
func (a *app) connect(ctx context.Context, creds *config.Credentials) (*session, error) {
	db, err := database.Open(ctx, creds, a.verbose)
	if err != nil {
		return nil, err
	}
	return &session{
		db:    db,
		repo:  roster.NewRepository(db.DB, creds.Table),
		creds: creds,
	}, nil
}

func (a *app) files() *utils.FileManager {
	return utils.NewFileManager(a.cfg.BackupDir, a.cfg.OutputDir)
}

// =============================================================================
// BACKUP
// =============================================================================

// takeBackup writes a verified backup and prunes expired ones.
func (a *app) takeBackup(ctx context.Context, source backup.Source, now time.Time) (*backup.Result, error) {
	files := a.files()
	result, err := backup.NewWriter(source, files).WithClock(func() time.Time { return now }).Create(ctx)
	if err != nil {
		return nil, err
	}

	if days := a.cfg.BackupRetentionDays; days > 0 {
		maxAge := time.Duration(days) * 24 * time.Hour
		removed, err := utils.PruneOldFiles(files.BackupDir, "backup_socios_*.csv", maxAge, now)
		if err != nil {
			slog.Warn("failed to prune old backups", "error", err)
		} else if removed > 0 {
			slog.Info("old backups removed", "count", removed, "older_than_days", days)
		}
	}
	return result, nil
}

// =============================================================================
// CONFIRMATION PROMPT
// =============================================================================

// prompter asks yes/no questions on the command's input.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// confirm prints question and reports whether the answer equals token,
// ignoring case and surrounding whitespace. End of input is a refusal.
func (p *prompter) confirm(question, token string) (bool, error) {
	fmt.Fprintf(p.out, "%s (type %s to continue): ", question, token)

	answer, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	if !strings.HasSuffix(answer, "\n") {
		fmt.Fprintln(p.out)
	}

	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(token)), nil
}
