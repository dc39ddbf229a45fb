package graphmind

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "graphmind",
	Short: "GraphMind knowledge graph engine",
	Long: `GraphMind is a multi-tenant knowledge graph engine. It ingests documents
into isolated graph instances, extracts entities and relationships with a
language model, and answers questions grounded in graph search results.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	viper.AutomaticEnv()
	viper.BindEnv("llm.api_key", "OPENAI_API_KEY")
	viper.BindEnv("llm.base_url", "OPENAI_BASE_URL")
	viper.BindEnv("database.uri", "NEO4J_URI")
	viper.BindEnv("database.username", "NEO4J_USER")
	viper.BindEnv("database.password", "NEO4J_PASSWORD")
}
