package repository

const (
	createJobQuery = `INSERT INTO generation_jobs (task_id, type, user_id, status, created_at)
					VALUES ($1, $2, $3, $4, $5) RETURNING *`
	updateJobStatusQuery = `UPDATE generation_jobs
					SET status = $1,
					    error_message = COALESCE(NULLIF($2, ''), error_message),
					    started_at = CASE WHEN $1 = 'in_progress' THEN NOW() ELSE started_at END,
					    completed_at = CASE WHEN $1 IN ('completed', 'failed') THEN NOW() ELSE completed_at END
					WHERE task_id = $3`
	getJobByIDQuery = `SELECT task_id, type, user_id, status, COALESCE(error_message, '') AS error_message, created_at, started_at, completed_at
					FROM generation_jobs WHERE task_id = $1`
)
