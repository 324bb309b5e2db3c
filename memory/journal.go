package memory

import "context"

// AppendJournal is the durable-storage collaborator the memory bus fans
// writes to. The core ships no concrete implementation: a real deployment
// backs it with whatever durable log/store fits (file, database, object
// storage) — this module depends only on the interface (§1 external
// collaborators).
type AppendJournal interface {
	Append(ctx context.Context, rec Record) error
}
