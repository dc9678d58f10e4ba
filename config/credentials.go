package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Credentials is the content of a positional credentials file:
//
//	line 1: Basic-Auth username
//	line 2: Basic-Auth password
//	line 3: listen host (optional)
//	line 4: listen port (optional)
type Credentials struct {
	Username string
	Password string
	Host     string
	Port     string
}

func LoadCredentialsFile(path string) (*Credentials, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open credentials file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	if len(lines) < 2 || lines[0] == "" || lines[1] == "" {
		return nil, fmt.Errorf("credentials file %s: expected username and password on lines 1 and 2", path)
	}

	creds := &Credentials{
		Username: lines[0],
		Password: lines[1],
	}
	if len(lines) > 2 {
		creds.Host = lines[2]
	}
	if len(lines) > 3 && lines[3] != "" {
		if _, err := strconv.Atoi(lines[3]); err != nil {
			return nil, fmt.Errorf("credentials file %s: invalid port %q on line 4", path, lines[3])
		}
		creds.Port = lines[3]
	}

	return creds, nil
}

func (cfg *Config) applyCredentialsFile(path string) error {
	creds, err := LoadCredentialsFile(path)
	if err != nil {
		return err
	}

	cfg.Auth.Username = creds.Username
	cfg.Auth.Password = creds.Password
	if creds.Host != "" {
		cfg.Server.Host = creds.Host
	}
	if creds.Port != "" {
		cfg.Server.Port = creds.Port
	}
	return nil
}
