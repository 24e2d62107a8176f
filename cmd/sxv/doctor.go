package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/synthvault/catalog/internal/storage/sqlite"
)

// minToolingVersion is the oldest sxv build this database's on-disk
// schema is known to round-trip cleanly with. Bumped whenever a
// migration changes a default or column meaning in a way an older
// binary would misread.
const minToolingVersion = "0.1.0"

type doctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type doctorResult struct {
	Path      string        `json:"path"`
	Checks    []doctorCheck `json:"checks"`
	OverallOK bool          `json:"overall_ok"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "check catalog database health",
	Long: `doctor opens the catalog database read-only and reports:
  - whether the file opens and its schema is current
  - whether any two categories share a bit index
  - whether any patch_in_list entry references a patch that no longer exists

Orphaned list entries are reported, not repaired (a list never cascades
onto the patches it references).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolvedDBPath()
		result := runDoctorChecks(cmdContext(cmd), path)

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
		} else {
			printDoctorResult(result)
		}

		if !result.OverallOK {
			os.Exit(1)
		}
		return nil
	},
}

func runDoctorChecks(ctx context.Context, path string) doctorResult {
	result := doctorResult{Path: path, OverallOK: true}
	addCheck := func(name string, ok bool, message string) {
		result.Checks = append(result.Checks, doctorCheck{Name: name, OK: ok, Message: message})
		if !ok {
			result.OverallOK = false
		}
	}

	mgr, err := sqlite.Open(ctx, path, sqlite.ModeReadOnly, nil)
	if err != nil {
		addCheck("open", false, err.Error())
		return result
	}
	defer func() { _ = mgr.Close() }()
	addCheck("open", true, fmt.Sprintf("opened at schema version %d", sqlite.CurrentSchemaVersion))

	checkCategoryBitIndices(ctx, mgr, addCheck)
	checkOrphanedListEntries(ctx, mgr, addCheck)
	checkToolingVersion(addCheck)
	return result
}

// checkToolingVersion compares this binary's own Version against
// minToolingVersion with semver, the same normalize-then-Compare shape
// the teacher's daemon uses to gate a client against a server version.
func checkToolingVersion(addCheck func(name string, ok bool, message string)) {
	running := normalizeSemver(Version)
	minimum := normalizeSemver(minToolingVersion)

	if !semver.IsValid(running) || !semver.IsValid(minimum) {
		addCheck("tooling version", true, fmt.Sprintf("running %s (not a comparable semver, skipping check)", Version))
		return
	}
	if semver.Compare(running, minimum) < 0 {
		addCheck("tooling version", false, fmt.Sprintf("sxv %s is older than the minimum supported %s for this schema", Version, minToolingVersion))
		return
	}
	addCheck("tooling version", true, fmt.Sprintf("sxv %s >= minimum supported %s", Version, minToolingVersion))
}

func normalizeSemver(v string) string {
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}

func checkCategoryBitIndices(ctx context.Context, mgr *sqlite.Manager, addCheck func(name string, ok bool, message string)) {
	rows, err := mgr.DB().QueryContext(ctx, `SELECT bit_index FROM categories ORDER BY bit_index`)
	if err != nil {
		addCheck("category bit indices", false, err.Error())
		return
	}
	defer func() { _ = rows.Close() }()

	var indices []int
	seen := make(map[int]bool)
	collisions := 0
	for rows.Next() {
		var bitIndex int
		if err := rows.Scan(&bitIndex); err != nil {
			addCheck("category bit indices", false, err.Error())
			return
		}
		if seen[bitIndex] {
			collisions++
		}
		seen[bitIndex] = true
		indices = append(indices, bitIndex)
	}
	if err := rows.Err(); err != nil {
		addCheck("category bit indices", false, err.Error())
		return
	}

	sort.Ints(indices)
	gaps := 0
	for i := 1; i < len(indices); i++ {
		if indices[i] != indices[i-1]+1 {
			gaps++
		}
	}

	if collisions > 0 {
		addCheck("category bit indices", false, fmt.Sprintf("%d bit index collision(s)", collisions))
		return
	}
	addCheck("category bit indices", true, fmt.Sprintf("%d categories, %d gap(s) from deactivated bits", len(indices), gaps))
}

func checkOrphanedListEntries(ctx context.Context, mgr *sqlite.Manager, addCheck func(name string, ok bool, message string)) {
	row := mgr.DB().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM patch_in_list pil
		LEFT JOIN patches p ON p.synth_name = pil.synth_name AND p.content_hash = pil.content_hash
		WHERE p.content_hash IS NULL
	`)
	var orphans int
	if err := row.Scan(&orphans); err != nil {
		addCheck("list entries", false, err.Error())
		return
	}
	if orphans > 0 {
		addCheck("list entries", true, fmt.Sprintf("%d orphaned entry/entries reference a deleted patch (not repaired)", orphans))
		return
	}
	addCheck("list entries", true, "every list entry resolves to a live patch")
}

func printDoctorResult(result doctorResult) {
	fmt.Printf("sxv doctor: %s\n", result.Path)
	for _, c := range result.Checks {
		icon := color.GreenString("✓")
		if !c.OK {
			icon = color.RedString("✗")
		}
		fmt.Printf("  %s %-24s %s\n", icon, c.Name, c.Message)
	}
	if result.OverallOK {
		color.Green("all checks passed\n")
	} else {
		color.Red("some checks failed\n")
	}
}
