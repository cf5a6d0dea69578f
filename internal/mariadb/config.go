// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     mariadb
// Description: Connection configuration and driver setup
// Author:      Mike Stoffels
// Created:     2026-01-14
// License:     MIT
// ============================================================================

package mariadb

import (
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

// ConnectionConfig holds the parameters of one database session
type ConnectionConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Database          string
	Charset           string
	Autocommit        bool
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	ConnectTimeout    time.Duration
}

// DefaultConnectionConfig returns the connector defaults
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		Host:              "localhost",
		Port:              3306,
		User:              "root",
		Charset:           "utf8mb4",
		Autocommit:        true,
		ReconnectAttempts: 3,
		ReconnectDelay:    2 * time.Second,
		ConnectTimeout:    10 * time.Second,
	}
}

// Address returns host:port
func (c ConnectionConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// String describes the target without the password
func (c ConnectionConfig) String() string {
	return fmt.Sprintf("%s@%s/%s", c.User, c.Address(), c.Database)
}

// DriverConfig translates c into a go-sql-driver configuration
func (c ConnectionConfig) DriverConfig() *mysql.Config {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = c.Address()
	mc.DBName = c.Database
	mc.Timeout = c.ConnectTimeout
	mc.ParseTime = true
	mc.Params = map[string]string{}
	if c.Charset != "" {
		mc.Params["charset"] = c.Charset
	}
	if c.Autocommit {
		mc.Params["autocommit"] = "1"
	} else {
		mc.Params["autocommit"] = "0"
	}
	return mc
}

// Opener creates a database handle for a configuration. Tests substitute
// one backed by go-sqlmock.
type Opener func(cfg ConnectionConfig) (*sql.DB, error)

// OpenMySQL is the default Opener using go-sql-driver/mysql
func OpenMySQL(cfg ConnectionConfig) (*sql.DB, error) {
	connector, err := mysql.NewConnector(cfg.DriverConfig())
	if err != nil {
		return nil, fmt.Errorf("invalid connection config: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}
