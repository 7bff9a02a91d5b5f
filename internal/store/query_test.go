package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestSnapshotQuery_ToSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		query         SnapshotQuery
		wantCountSQL  string
		wantArgs      []any
		wantDataHas   []string // substrings that must appear in dataSQL
		wantDataNotIn []string // substrings that must NOT appear
	}{
		{
			name:  "empty query uses defaults",
			query: SnapshotQuery{},
			wantDataHas: []string{
				"FROM snapshots",
				"ORDER BY last_updated DESC",
				"LIMIT 50",
				"OFFSET 0",
			},
			wantDataNotIn: []string{"WHERE"},
			wantCountSQL:  "SELECT COUNT(*) FROM snapshots",
			wantArgs:      nil,
		},
		{
			name: "marketplace filter",
			query: SnapshotQuery{
				Marketplace: ptr("us"),
			},
			wantDataHas:  []string{"WHERE marketplace = $1"},
			wantCountSQL: "SELECT COUNT(*) FROM snapshots WHERE marketplace = $1",
			wantArgs:     []any{"us"},
		},
		{
			name: "minimum demand filter",
			query: SnapshotQuery{
				MinDemand: ptr(20),
			},
			wantDataHas:  []string{"WHERE demand >= $1"},
			wantCountSQL: "SELECT COUNT(*) FROM snapshots WHERE demand >= $1",
			wantArgs:     []any{20},
		},
		{
			name: "with data filter takes no argument",
			query: SnapshotQuery{
				WithData: true,
			},
			wantDataHas:  []string{"WHERE listing_count > 0"},
			wantCountSQL: "SELECT COUNT(*) FROM snapshots WHERE listing_count > 0",
			wantArgs:     nil,
		},
		{
			name: "all filters with correct parameter numbering",
			query: SnapshotQuery{
				Marketplace: ptr("de"),
				MinDemand:   ptr(5),
				WithData:    true,
			},
			wantDataHas: []string{
				"marketplace = $1",
				"demand >= $2",
				"listing_count > 0",
				" AND ",
			},
			wantCountSQL: "SELECT COUNT(*) FROM snapshots WHERE marketplace = $1 AND demand >= $2 AND listing_count > 0",
			wantArgs:     []any{"de", 5},
		},
		{
			name: "order by demand",
			query: SnapshotQuery{
				OrderBy: "demand",
			},
			wantDataHas: []string{"ORDER BY demand DESC"},
		},
		{
			name: "order by avg_price",
			query: SnapshotQuery{
				OrderBy: "avg_price",
			},
			wantDataHas: []string{"ORDER BY avg_price ASC"},
		},
		{
			name: "invalid order by falls back to default",
			query: SnapshotQuery{
				OrderBy: "DROP TABLE snapshots; --",
			},
			wantDataHas:   []string{"ORDER BY last_updated DESC"},
			wantDataNotIn: []string{"DROP TABLE"},
		},
		{
			name: "custom limit and offset",
			query: SnapshotQuery{
				Limit:  25,
				Offset: 100,
			},
			wantDataHas: []string{
				"LIMIT 25",
				"OFFSET 100",
			},
		},
		{
			name: "zero limit defaults to 50",
			query: SnapshotQuery{
				Limit: 0,
			},
			wantDataHas: []string{"LIMIT 50"},
		},
		{
			name: "limit exceeding max is capped",
			query: SnapshotQuery{
				Limit: 10000,
			},
			wantDataHas: []string{"LIMIT 500"},
		},
		{
			name: "negative offset defaults to 0",
			query: SnapshotQuery{
				Offset: -5,
			},
			wantDataHas: []string{"OFFSET 0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q := tt.query
			dataSQL, countSQL, args := q.ToSQL()

			for _, s := range tt.wantDataHas {
				assert.Contains(t, dataSQL, s, "dataSQL should contain %q", s)
			}

			for _, s := range tt.wantDataNotIn {
				assert.NotContains(t, dataSQL, s, "dataSQL should not contain %q", s)
			}

			if tt.wantCountSQL != "" {
				assert.Equal(t, tt.wantCountSQL, countSQL)
			}

			if tt.wantArgs != nil {
				require.Len(t, args, len(tt.wantArgs))
				assert.Equal(t, tt.wantArgs, args)
			} else {
				assert.Empty(t, args)
			}
		})
	}
}
