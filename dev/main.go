package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	devenv "votewatch/dev/env"
	"votewatch/internal/components/chrono"
	"votewatch/internal/history"
	configlibsql "votewatch/lib/configutil/libsql"
)

const devConfigTemplate = `{
    // credentials can also come from VOTEWATCH_IDENTIFIER / VOTEWATCH_SECRET
    credentials: {identifier: "", secret: ""},
    port: 5000,
    debug_dir: %q,
    refresh: {staleness_seconds: 60, interval_seconds: 120},
    browser: {headful: true},
    history: {file: %q},
}
`

func createHistory(path string) error {
	database, err := configlibsql.Struct{File: path}.OpenDB()
	if err != nil {
		return err
	}
	defer database.Close()
	return history.NewStore(database, chrono.StandardTime{}).Migrate(context.Background())
}

func createConfig(path, debugDir, historyPath string) error {
	_, err := os.Stat(path)
	if err == nil {
		fmt.Println("config already created at", path)
		return nil
	}
	fmt.Println("creating config at", path)
	return os.WriteFile(path, []byte(fmt.Sprintf(devConfigTemplate, debugDir, historyPath)), 0600)
}

func create(recreate bool) error {
	_, err := os.Stat("go.mod")
	if os.IsNotExist(err) {
		return fmt.Errorf("the dev environment must be created in the repository root (the same directory as the 'go.mod' file)")
	}

	if recreate {
		err = os.RemoveAll("dev/.state")
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	historyPath, err := devenv.ResolvePath("<dev_state>/history.db")
	if err != nil {
		return err
	}
	debugDir, err := devenv.ResolvePath("<dev_state>/debug")
	if err != nil {
		return err
	}
	configPath, err := devenv.ResolvePath("<dev_state>/config.json5")
	if err != nil {
		return err
	}

	err = createHistory(historyPath)
	if err != nil {
		return err
	}
	err = createConfig(configPath, debugDir, historyPath)
	if err != nil {
		return err
	}

	fmt.Printf("$ go run ./cmd/votewatch serve -v --config %s\n", configPath)
	return nil
}

func main() {
	recreate := flag.Bool("recreate", false, "recreate the dev environment from scratch")
	flag.Parse()

	err := create(*recreate)
	if err != nil {
		slog.Error("failed to create dev environment", "err", err.Error())
		os.Exit(1)
	}

	slog.Info("dev environment created successfully!")
}
