// =============================================================================
// Roster Sync - Main Entry Point
// =============================================================================
//
// USAGE:
//   roster sync         - Reconcile the membership spreadsheet into the database
//   roster backup       - Back up the member table
//   roster sepa         - Generate the SEPA direct debit remittance
//   roster version      - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Core logic (reader, engine, gateway, backup, reports)
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/roster-sync/cmd"
)

func main() {
	cmd.Execute()
}
