package store

import (
	"fmt"
	"strings"
)

const (
	defaultLimit = 50
	maxLimit     = 500

	orderByLastUpdated = "last_updated"
	orderByDemand      = "demand"
	orderByAvgPrice    = "avg_price"
)

// validOrderBy maps allowed OrderBy values to their SQL column expressions.
var validOrderBy = map[string]string{
	orderByLastUpdated: "last_updated DESC",
	orderByDemand:      "demand DESC",
	orderByAvgPrice:    "avg_price ASC",
}

const defaultOrderBy = "last_updated DESC"

const baseSnapshotsSelect = `SELECT keyword, marketplace, listing_count, avg_price, median_price,
	min_price, max_price, avg_rating, total_reviews,
	COALESCE(top_brand, ''), top_brand_share,
	priority, demand, last_updated
FROM snapshots`

const countSnapshotsSelect = "SELECT COUNT(*) FROM snapshots"

// ToSQL builds the WHERE clause, ORDER BY, LIMIT, and OFFSET for a snapshot
// query. It returns two SQL strings (one for the data query, one for the
// count query) and the positional parameters.
func (q *SnapshotQuery) ToSQL() (dataSQL, countSQL string, args []any) {
	var conditions []string
	paramIdx := 1

	if q.Marketplace != nil {
		conditions = append(conditions, fmt.Sprintf("marketplace = $%d", paramIdx))
		args = append(args, *q.Marketplace)
		paramIdx++
	}

	if q.MinDemand != nil {
		conditions = append(conditions, fmt.Sprintf("demand >= $%d", paramIdx))
		args = append(args, *q.MinDemand)
		paramIdx++ //nolint:wastedassign // keeps the pattern uniform for the next filter
	}

	if q.WithData {
		conditions = append(conditions, "listing_count > 0")
	}

	var whereClause string
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	// Order by
	orderClause := defaultOrderBy
	if q.OrderBy != "" {
		if col, ok := validOrderBy[q.OrderBy]; ok {
			orderClause = col
		}
	}

	// Limit
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := max(q.Offset, 0)

	dataSQL = fmt.Sprintf(
		"%s%s ORDER BY %s LIMIT %d OFFSET %d",
		baseSnapshotsSelect, whereClause, orderClause, limit, offset,
	)

	countSQL = countSnapshotsSelect + whereClause

	return dataSQL, countSQL, args
}
