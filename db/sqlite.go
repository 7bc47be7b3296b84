package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

var ErrNotInitialized = errors.New("database not initialized")

// InitDB opens the SQLite database at path and creates the training_log table.
func InitDB(path string) error {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT NOT NULL,
        model_name VARCHAR(50),
        accuracy REAL,
        precision REAL,
        recall REAL,
        trained_at DATETIME,
        data_points INTEGER,
        test_points INTEGER,
        model_path TEXT,
        UNIQUE(run_id)
    );
    `
	if _, err := conn.Exec(query); err != nil {
		conn.Close()
		return err
	}
	database = conn
	return nil
}

// Close releases the database opened by InitDB.
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

type TrainingLog struct {
	RunID      string    `json:"run_id"`
	ModelName  string    `json:"model_name"`
	Accuracy   float64   `json:"accuracy"`
	Precision  float64   `json:"precision"`
	Recall     float64   `json:"recall"`
	TrainedAt  time.Time `json:"trained_at"`
	DataPoints int       `json:"data_points"`
	TestPoints int       `json:"test_points"`
	ModelPath  string    `json:"model_path"`
}

func SaveTrainingLog(log TrainingLog) error {
	if database == nil {
		return ErrNotInitialized
	}
	if log.RunID == "" {
		return errors.New("run id required")
	}
	_, err := database.Exec(`
        INSERT OR REPLACE INTO training_log (
            run_id, model_name, accuracy, precision, recall,
            trained_at, data_points, test_points, model_path
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.RunID, log.ModelName, log.Accuracy, log.Precision, log.Recall,
		log.TrainedAt.UTC(), log.DataPoints, log.TestPoints, log.ModelPath,
	)
	return err
}

// LoadTrainingLog returns the most recent runs first. limit <= 0 returns all.
func LoadTrainingLog(limit int) ([]TrainingLog, error) {
	if database == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := database.Query(`
        SELECT run_id, model_name, accuracy, precision, recall,
               trained_at, data_points, test_points, model_path
        FROM training_log
        ORDER BY trained_at DESC, id DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.RunID, &log.ModelName, &log.Accuracy, &log.Precision, &log.Recall,
			&log.TrainedAt, &log.DataPoints, &log.TestPoints, &log.ModelPath); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
