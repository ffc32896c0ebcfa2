package database

import (
	"database/sql"
)

type PgAskmeRepository struct {
	conn *sql.DB
}

func NewPgAskmeRepository(dsn string) (*PgAskmeRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgAskmeRepository{conn: db}, nil
}

func (db *PgAskmeRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgAskmeRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
