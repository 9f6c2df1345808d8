/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hookguard/hookguard"
	"github.com/hookguard/hookguard/config"
	"github.com/hookguard/hookguard/database"
)

// Cli wraps the root Cobra command.
type Cli struct {
	cmd *cobra.Command
}

// appInstance holds the engine and configuration shared by all subcommands.
type appInstance struct {
	engine *hookguard.Hookguard
	cnf    *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads configuration and wires the engine before any subcommand runs.
func preRun(app *appInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		engine, err := setupEngine(cnf)
		if err != nil {
			log.Fatal(err)
		}

		app.engine = engine
		app.cnf = cnf
		return nil
	}
}

func setupEngine(cfg *config.Configuration) (*hookguard.Hookguard, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	engine, err := hookguard.NewHookguard(db)
	if err != nil {
		return nil, fmt.Errorf("error creating engine: %v", err)
	}
	return engine, nil
}

// NewCLI builds the command tree for the hookguard binary.
func NewCLI() *Cli {
	var configFile string
	app := &appInstance{}

	var rootCmd = &cobra.Command{
		Use:   "hookguard",
		Short: "Webhook ingestion reliability engine",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./hookguard.json", "Configuration file for hookguard")
	rootCmd.PersistentPreRunE = preRun(app, &configFile)

	rootCmd.AddCommand(serverCommands(app))
	rootCmd.AddCommand(workerCommands(app))
	rootCmd.AddCommand(migrateCommands())
	rootCmd.AddCommand(configCommands())

	return &Cli{cmd: rootCmd}
}

func (w Cli) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
