package protocol

// Directory and path constants used throughout roulette.
const (
	// StateDir is the per-workspace state directory (e.g., <root>/.roulette).
	// It holds the ledger, snapshots, config, PID file and socket.
	StateDir = ".roulette"

	// SnapshotsDir is the subdirectory of StateDir holding full-tree snapshots.
	SnapshotsDir = "snapshots"

	// LedgerFile is the SQLite history ledger inside StateDir.
	LedgerFile = "ledger.db"
)

// Retention and capacity bounds.
const (
	// SnapshotRetention is K: at most this many snapshots survive a prune.
	SnapshotRetention = 3

	// LedgerCapacity is N: the ledger never holds more events than this.
	LedgerCapacity = 100
)

// ExcludedDirs are directory names skipped at any depth when taking a
// snapshot. StateDir is included so snapshots never copy themselves.
var ExcludedDirs = []string{
	".git",
	"node_modules",
	"out",
	"dist",
	".vscode-test",
	StateDir,
}
