// Command simulatorctl административные операции сервиса:
// миграции, назначение ролей и чтение журнала безопасности из RabbitMQ.
package main

import (
	"log"

	"github.com/spf13/cobra"
)

// version задаётся при сборке через -ldflags "-X main.version=..."
var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "simulatorctl",
	Short:         "Administrative tool for marketing-simulator",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println(version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd, migrateCmd, setRoleCmd, auditTailCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalln(err.Error())
	}
}
