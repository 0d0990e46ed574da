package main

// Database drivers selectable with DATABASE_DRIVER.
import (
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)
