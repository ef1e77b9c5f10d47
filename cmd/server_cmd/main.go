package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/dingocoin/wdingocoin-bridge/cmd"
	"github.com/dingocoin/wdingocoin-bridge/logconfig"
)

func main() {
	// Tool to read environment variables
	viper.AutomaticEnv()

	// Accessing an environment variable of configuration file location.
	_config_file := viper.GetString(cmd.ENV_CONFIG_FILE_PATH)
	fmt.Printf("Authority configuration file = %s\n", _config_file)

	// See if file exists
	if !cmd.FileExists(_config_file) {
		fmt.Printf("Authority configuration file not found: %s\n", _config_file)
		os.Exit(1)
	}

	// Read from config file.
	if err := cmd.InitializeViper(_config_file); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	// Make the configuration
	asc, err := cmd.PrepareAuthorityServerConfig()
	if err != nil {
		fmt.Printf("Error loading authority configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logconfig.ConfigProductionLogger(asc.LogLevel); err != nil {
		fmt.Printf("Invalid log level: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Starting authority server... press Ctrl+C to kill the server")
	// Start server and block.
	if err := cmd.StartAuthorityServerAndWait(asc); err != nil {
		fmt.Printf("Authority server stopped: %v\n", err)
		os.Exit(1)
	}
}
