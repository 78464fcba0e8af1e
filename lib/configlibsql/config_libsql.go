package configlibsql

import (
	"database/sql"
	"fmt"
	"net/url"

	devenv "ecourts-backend/dev/env"
	"ecourts-backend/lib/sqliteutil"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// Struct selects either a local sqlite file or a remote libsql database.
type Struct struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

// OpenDB opens the configured database and applies the schema to it.
func (config Struct) OpenDB(schema string) (*sql.DB, error) {
	if config.Url == "" {
		if config.File == "" {
			return nil, fmt.Errorf("neither a database file nor url was specified")
		}
		dbpath, err := devenv.ResolvePath(config.File)
		if err != nil {
			return nil, err
		}
		return sqliteutil.OpenDB(schema, dbpath)
	}

	values := url.Values{}
	if config.AuthToken != "" {
		values.Add("authToken", config.AuthToken)
	}
	db, err := sql.Open("libsql", config.Url+"?"+values.Encode())
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
