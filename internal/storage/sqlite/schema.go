package sqlite

// CurrentSchemaVersion is the schema version this binary creates fresh
// databases at and migrates older ones up to (spec.md §4.3).
const CurrentSchemaVersion = 7

// freshSchema creates every table at CurrentSchemaVersion in one shot,
// for a database that has no schema_version row yet. Migrations below
// exist to carry an *existing* file forward; a brand-new file never runs
// them; it is created directly at the shape the newest migration would
// have produced.
const freshSchema = `
CREATE TABLE IF NOT EXISTS schema_version (
	number INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS patches (
	synth_name             TEXT NOT NULL,
	content_hash           TEXT NOT NULL,
	display_name            TEXT NOT NULL DEFAULT '',
	kind_code               INTEGER NOT NULL DEFAULT 0,
	bytes                   BLOB NOT NULL,
	favorite_state          INTEGER NOT NULL DEFAULT 0,
	hidden                  INTEGER,
	import_id               TEXT,
	import_display_string   TEXT,
	source_descriptor       TEXT,
	bank_number             INTEGER NOT NULL DEFAULT 0 CHECK (bank_number >= 0),
	program_number          INTEGER NOT NULL DEFAULT 0 CHECK (program_number >= 0),
	categories_mask         INTEGER NOT NULL DEFAULT 0,
	user_decision_mask      INTEGER NOT NULL DEFAULT 0,
	type                    INTEGER,
	midiBankNo              INTEGER,
	PRIMARY KEY (synth_name, content_hash)
);

CREATE INDEX IF NOT EXISTS idx_patches_import ON patches(import_id);
CREATE INDEX IF NOT EXISTS idx_patches_name ON patches(synth_name, display_name);

CREATE TABLE IF NOT EXISTS imports (
	synth_name   TEXT NOT NULL,
	id           TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	timestamp    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (synth_name, id)
);

CREATE TABLE IF NOT EXISTS categories (
	bit_index INTEGER PRIMARY KEY,
	name      TEXT NOT NULL UNIQUE,
	color     TEXT NOT NULL DEFAULT '#808080',
	active    INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS lists (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS patch_in_list (
	list_id      TEXT NOT NULL,
	synth_name   TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	order_num    INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY (list_id) REFERENCES lists(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_patch_in_list_list ON patch_in_list(list_id, order_num);
`

// defaultCategories seeds the taxonomy the first time a fresh database
// is created or an existing one is migrated through version 6 (spec.md
// §4.3 migration table, "5 → 6: create categories, seed defaults").
var defaultCategories = []struct {
	BitIndex int
	Name     string
	Color    string
}{
	{0, "Bass", "#3b6ea5"},
	{1, "Lead", "#b5442a"},
	{2, "Pad", "#5a9e6f"},
	{3, "Keys", "#9a7d2e"},
	{4, "Drum", "#7a4fa0"},
	{5, "FX", "#c27ba0"},
	{6, "Arp", "#4a90a4"},
	{7, "Untagged", "#808080"},
}
