package store

// SQL query constants organized by entity. All SQL lives here;
// PostgresStore methods reference these constants.

// Refresh queue queries.
const (
	// The conflict target matches the partial unique index on live
	// entries, so a concurrent enqueue for the same key can only raise
	// the surviving row's priority, never create a second live entry.
	// Manual requests stamp requested_at even when they land on an
	// existing row; quota counting keys on that stamp, not created_at.
	queryEnqueueRefresh = `
		INSERT INTO refresh_queue (keyword, marketplace, priority, requested_by, requested_at)
		VALUES ($1, $2, $3, $4, CASE WHEN $4::text IS NOT NULL THEN now() END)
		ON CONFLICT (keyword, marketplace) WHERE state IN ('pending', 'processing')
		DO UPDATE SET
			priority     = GREATEST(refresh_queue.priority, EXCLUDED.priority),
			requested_by = COALESCE(EXCLUDED.requested_by, refresh_queue.requested_by),
			requested_at = COALESCE(EXCLUDED.requested_at, refresh_queue.requested_at)
		RETURNING id`

	queryClaimBatch = `
		WITH claimed AS (
			SELECT id FROM refresh_queue
			WHERE state = 'pending'
			ORDER BY priority DESC, created_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE refresh_queue
		SET state = 'processing', claimed_at = now(), claimed_by = $1,
			attempts = attempts + 1
		FROM claimed
		WHERE refresh_queue.id = claimed.id
		RETURNING refresh_queue.id, refresh_queue.keyword, refresh_queue.marketplace,
			refresh_queue.priority, refresh_queue.requested_by, refresh_queue.state,
			COALESCE(refresh_queue.fail_reason, ''), refresh_queue.attempts,
			COALESCE(refresh_queue.claimed_by, ''), refresh_queue.created_at,
			refresh_queue.claimed_at, refresh_queue.finished_at`

	queryCompleteEntry = `
		UPDATE refresh_queue
		SET state = 'completed', finished_at = now()
		WHERE id = $1 AND state = 'processing'`

	queryFailEntry = `
		UPDATE refresh_queue
		SET state = 'failed', fail_reason = NULLIF($2, ''), finished_at = now()
		WHERE id = $1 AND state = 'processing'`

	queryReclaimStuck = `
		UPDATE refresh_queue
		SET state = 'pending', claimed_at = NULL, claimed_by = NULL
		WHERE state = 'processing' AND claimed_at < $1`

	queryGetQueueEntry = `
		SELECT id, keyword, marketplace, priority, requested_by, state,
			COALESCE(fail_reason, ''), attempts, COALESCE(claimed_by, ''),
			created_at, claimed_at, finished_at
		FROM refresh_queue
		WHERE id = $1`

	queryListQueueEntries = `
		SELECT id, keyword, marketplace, priority, requested_by, state,
			COALESCE(fail_reason, ''), attempts, COALESCE(claimed_by, ''),
			created_at, claimed_at, finished_at
		FROM refresh_queue
		WHERE state = $1
		ORDER BY priority DESC, created_at ASC
		LIMIT $2`

	queryCountQueueByState = `
		SELECT state, COUNT(*)
		FROM refresh_queue
		GROUP BY state`

	queryCountManualEnqueues = `
		SELECT COUNT(*)
		FROM refresh_queue
		WHERE requested_by = $1
		  AND priority = 10
		  AND requested_at >= $2`
)

// Snapshot queries.
const (
	queryGetSnapshot = `
		SELECT keyword, marketplace, listing_count, avg_price, median_price,
			min_price, max_price, avg_rating, total_reviews,
			COALESCE(top_brand, ''), top_brand_share,
			priority, demand, last_updated
		FROM snapshots
		WHERE keyword = $1 AND marketplace = $2`

	// Full overwrite of every aggregate field in one statement; demand is
	// owned by the read path and deliberately left alone on conflict.
	queryPutSnapshot = `
		INSERT INTO snapshots (
			keyword, marketplace, listing_count, avg_price, median_price,
			min_price, max_price, avg_rating, total_reviews,
			top_brand, top_brand_share, priority, last_updated
		) VALUES (
			@keyword, @marketplace, @listing_count, @avg_price, @median_price,
			@min_price, @max_price, @avg_rating, @total_reviews,
			@top_brand, @top_brand_share, @priority, @last_updated
		)
		ON CONFLICT (keyword, marketplace) DO UPDATE SET
			listing_count   = EXCLUDED.listing_count,
			avg_price       = EXCLUDED.avg_price,
			median_price    = EXCLUDED.median_price,
			min_price       = EXCLUDED.min_price,
			max_price       = EXCLUDED.max_price,
			avg_rating      = EXCLUDED.avg_rating,
			total_reviews   = EXCLUDED.total_reviews,
			top_brand       = EXCLUDED.top_brand,
			top_brand_share = EXCLUDED.top_brand_share,
			priority        = EXCLUDED.priority,
			last_updated    = EXCLUDED.last_updated`

	queryRecordSnapshotDemand = `
		UPDATE snapshots
		SET demand = demand + 1
		WHERE keyword = $1 AND marketplace = $2`

	queryListRefreshCandidates = `
		SELECT keyword, marketplace, listing_count, avg_price, median_price,
			min_price, max_price, avg_rating, total_reviews,
			COALESCE(top_brand, ''), top_brand_share,
			priority, demand, last_updated
		FROM snapshots
		ORDER BY demand DESC, last_updated ASC
		LIMIT $1`
)

// Scheduler queries.
const (
	queryInsertJobRun = `
		INSERT INTO job_runs (job_name)
		VALUES ($1)
		RETURNING id`

	queryCompleteJobRun = `
		UPDATE job_runs SET
			completed_at  = now(),
			status        = $2,
			error_text    = $3,
			rows_affected = $4
		WHERE id = $1`

	queryListJobRuns = `
		SELECT id, job_name, started_at, completed_at, status,
			COALESCE(error_text, ''), rows_affected
		FROM job_runs
		WHERE job_name = $1
		ORDER BY started_at DESC
		LIMIT $2`

	queryListLatestJobRuns = `
		SELECT DISTINCT ON (job_name)
			id, job_name, started_at, completed_at, status,
			COALESCE(error_text, ''), rows_affected
		FROM job_runs
		ORDER BY job_name, started_at DESC`

	queryMarkStaleJobRunsCrashed = `
		UPDATE job_runs SET
			status       = 'crashed',
			completed_at = now()
		WHERE status = 'running' AND started_at < $1`

	queryDeleteOldJobRuns = `
		DELETE FROM job_runs WHERE started_at < now() - interval '30 days'`

	queryAcquireSchedulerLock = `
		INSERT INTO scheduler_locks (job_name, lock_holder, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (job_name) DO UPDATE
			SET locked_at   = now(),
				lock_holder = EXCLUDED.lock_holder,
				expires_at  = EXCLUDED.expires_at
			WHERE scheduler_locks.expires_at < now()
		RETURNING job_name`

	queryReleaseSchedulerLock = `
		DELETE FROM scheduler_locks WHERE job_name = $1 AND lock_holder = $2`
)
