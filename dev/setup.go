package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	devenv "ecourts-backend/dev/env"
	"ecourts-backend/internal/ledger"
)

func cmd(name string, args ...string) {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	fullCmd := name
	for _, a := range args {
		fullCmd += " "
		fullCmd += a
	}

	fmt.Printf("$ %s\n", fullCmd)
	err := cmd.Run()
	if err != nil {
		os.Exit(1)
	}
}

// CreateLocalStack starts redis and minio for the "redis" cache and an
// s3 compatible bucket.
func CreateLocalStack() error {
	err := os.Chdir("dev/local_stack")
	if err != nil {
		return err
	}
	cmd("docker", "compose", "up", "-d")
	return os.Chdir("../..")
}

func createDb(filename, schema string) error {
	dbPath, err := devenv.ResolvePath(filepath.Join("<dev_state>", filename))
	if err != nil {
		return err
	}

	_, err = os.Stat(dbPath)
	if err == nil {
		fmt.Println("database already created at", dbPath)
		return nil
	}

	fmt.Println("creating database at", dbPath)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec(schema)
	return err
}

func CreateEmptyLedger() error {
	return createDb("ledger.db", ledger.Schema)
}

// CreateConfig copies the example config unless a config already exists.
func CreateConfig() error {
	_, err := os.Stat("config.json5")
	if err == nil {
		return nil
	}
	example, err := os.ReadFile("config.example.json5")
	if err != nil {
		return err
	}
	fmt.Println("writing config.json5 from config.example.json5")
	return os.WriteFile("config.json5", example, 0600)
}

func PrintConfigLocations() {
	slog.Info("the local stack serves redis on localhost:6379 and minio on localhost:9000 (minioadmin/minioadmin), point cache.addr and storage.endpoint at them in config.json5 to use them.")
}
