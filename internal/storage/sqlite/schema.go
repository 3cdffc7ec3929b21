package sqlite

const schema = `
-- Submissions table
-- Text snapshots gathered by the platform at submission time; empty strings
-- mean the source was unavailable.
CREATE TABLE IF NOT EXISTS submissions (
    id TEXT PRIMARY KEY,
    trail_id TEXT NOT NULL,
    student_id TEXT NOT NULL DEFAULT '',
    submission_text TEXT NOT NULL DEFAULT '',
    file_text TEXT NOT NULL DEFAULT '',
    module_text TEXT NOT NULL DEFAULT '',
    trail_text TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_submissions_trail ON submissions(trail_id);

-- Reviews table
-- One row per submission (submission_id UNIQUE): only the latest run is kept.
-- id is the run id, regenerated on every claim, so a superseded run's
-- terminal UPDATE matches zero rows instead of clobbering the new run.
CREATE TABLE IF NOT EXISTS reviews (
    id TEXT PRIMARY KEY,
    submission_id TEXT NOT NULL UNIQUE,
    status TEXT NOT NULL DEFAULT 'processing' CHECK(status IN ('pending', 'processing', 'completed', 'failed')),
    analysis TEXT,
    questions TEXT,
    coverage TEXT,
    error_message TEXT,
    started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    finished_at DATETIME,
    FOREIGN KEY (submission_id) REFERENCES submissions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_reviews_status ON reviews(status);

-- Trail questions table
-- Questions that were actually asked on earlier runs within a trail; fed back
-- into duplicate detection so a forced re-run does not resurface them.
CREATE TABLE IF NOT EXISTS trail_questions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    trail_id TEXT NOT NULL,
    question TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_trail_questions_trail ON trail_questions(trail_id);

-- Review events table (audit trail)
CREATE TABLE IF NOT EXISTS review_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    submission_id TEXT NOT NULL,
    event_type TEXT NOT NULL CHECK(event_type IN ('triggered', 'completed', 'failed')),
    actor TEXT NOT NULL,
    comment TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (submission_id) REFERENCES submissions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_review_events_submission ON review_events(submission_id);
CREATE INDEX IF NOT EXISTS idx_review_events_created_at ON review_events(created_at);

-- Config table (key/value)
CREATE TABLE IF NOT EXISTS config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
