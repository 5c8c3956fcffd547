package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/snowflakedb/gosnowflake"
	_ "modernc.org/sqlite"
)

// Engine identifie le moteur de la base source.
type Engine string

const (
	EngineMySQL     Engine = "mysql"
	EngineSQLite    Engine = "sqlite"
	EngineSnowflake Engine = "snowflake"
	EnginePostgres  Engine = "postgres"
)

// ParseEngine accepte aussi "mariadb" et "postgresql".
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql", "mariadb":
		return EngineMySQL, nil
	case "sqlite", "sqlite3":
		return EngineSQLite, nil
	case "snowflake":
		return EngineSnowflake, nil
	case "postgres", "postgresql", "pg":
		return EnginePostgres, nil
	}
	return "", fmt.Errorf("moteur inconnu %q", s)
}

// EngineFromDSN devine le moteur d'après le schéma du DSN.
func EngineFromDSN(dsn string) (Engine, bool) {
	switch {
	case strings.HasPrefix(dsn, "mariadb://"), strings.HasPrefix(dsn, "mysql://"):
		return EngineMySQL, true
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return EnginePostgres, true
	case strings.HasPrefix(dsn, "sqlite://"), strings.HasSuffix(dsn, ".db"), strings.HasSuffix(dsn, ".sqlite"):
		return EngineSQLite, true
	case strings.HasPrefix(dsn, "snowflake://"):
		return EngineSnowflake, true
	}
	return "", false
}

// Open ouvre une base database/sql pour MySQL/MariaDB, SQLite ou Snowflake.
// Renvoie aussi le DSN effectivement passé au driver.
func Open(engine Engine, dsn string) (*sql.DB, string, error) {
	var (
		driver string
		native string
		err    error
	)
	switch engine {
	case EngineMySQL:
		driver = "mysql"
		native, err = toMySQLDSN(dsn)
	case EngineSQLite:
		driver = "sqlite"
		native = strings.TrimPrefix(dsn, "sqlite://")
	case EngineSnowflake:
		driver = "snowflake"
		native = strings.TrimPrefix(dsn, "snowflake://")
	case EnginePostgres:
		return nil, "", fmt.Errorf("postgres: utiliser OpenPostgres")
	default:
		return nil, "", fmt.Errorf("moteur non supporté %q", engine)
	}
	if err != nil {
		return nil, "", err
	}

	db, err := sql.Open(driver, native)
	if err != nil {
		return nil, "", err
	}
	if engine == EngineSQLite {
		// un seul writer, et une base :memory: n'existe que sur sa connexion
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, native, nil
}

// toMySQLDSN : DSN mariadb:// ou mysql:// → format MySQL driver
func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pw, _ := u.User.Password()
			pass = pw
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", fmt.Errorf("dsn incomplet (user/host/db)")
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			user, pass, host, db), nil
	}
	return dsn, nil
}

// RedactDSN masque le mot de passe pour les logs.
func RedactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
			return u.String()
		}
	}
	if at := strings.Index(dsn, "@"); at > 0 {
		if colon := strings.Index(dsn[:at], ":"); colon >= 0 {
			return dsn[:colon+1] + "xxxxx" + dsn[at:]
		}
	}
	return dsn
}
