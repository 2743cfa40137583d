package ledger

import (
	"context"
	"fmt"
	"sort"

	"roulette/pkg/protocol"
)

// MutationCount is how often one mutation was applied and how it ended.
type MutationCount struct {
	Mutation string `json:"mutation"`
	Total    int    `json:"total"`
	Undone   int    `json:"undone"`
	Expired  int    `json:"expired"`
	Accepted int    `json:"accepted"`
}

// Stats summarizes the retained history.
type Stats struct {
	Total     int             `json:"total"`
	ByStatus  map[string]int  `json:"by_status"`
	Mutations []MutationCount `json:"mutations"` // most frequent first
}

// UndoRate is the fraction of events that were hard-undone.
func (s Stats) UndoRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.ByStatus[string(protocol.StatusUndone)]) / float64(s.Total)
}

// Stats aggregates the retained events per mutation and per status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT mutation, status, COUNT(*) FROM events GROUP BY mutation, status`)
	if err != nil {
		return Stats{}, fmt.Errorf("ledger stats: %w", err)
	}
	defer rows.Close()

	st := Stats{ByStatus: make(map[string]int)}
	byName := make(map[string]*MutationCount)
	for rows.Next() {
		var (
			name, status string
			n            int
		)
		if err := rows.Scan(&name, &status, &n); err != nil {
			return Stats{}, fmt.Errorf("ledger stats scan: %w", err)
		}
		mc, ok := byName[name]
		if !ok {
			mc = &MutationCount{Mutation: name}
			byName[name] = mc
		}
		mc.Total += n
		switch protocol.Status(status) {
		case protocol.StatusUndone:
			mc.Undone += n
		case protocol.StatusExpired:
			mc.Expired += n
		case protocol.StatusAccepted:
			mc.Accepted += n
		}
		st.ByStatus[status] += n
		st.Total += n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("ledger stats rows: %w", err)
	}

	for _, mc := range byName {
		st.Mutations = append(st.Mutations, *mc)
	}
	sort.Slice(st.Mutations, func(i, j int) bool {
		if st.Mutations[i].Total != st.Mutations[j].Total {
			return st.Mutations[i].Total > st.Mutations[j].Total
		}
		return st.Mutations[i].Mutation < st.Mutations[j].Mutation
	})
	return st, nil
}
