package store

const (
	attemptsTable = "attempts"

	queryInsertAttempt = `
		INSERT INTO attempts (scenario, stable_id, username, file_name, expected, observed, passed, elapsed_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at`

	queryDeleteAttempts = `DELETE FROM attempts`
)

var attemptColumns = []string{
	"id",
	"scenario",
	"stable_id",
	"username",
	"file_name",
	"expected",
	"observed",
	"passed",
	"elapsed_ms",
	"error",
	"created_at",
}
