// config/config.go
package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	Neo4j         DatabaseConfiguration
	Redis         RedisConfiguration
	Elasticsearch ElasticsearchConfiguration
	PDP           PDPConfiguration
	KAS           KASConfiguration
	Federation    FederationConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port string
}

// DatabaseConfiguration stores data for database connection
type DatabaseConfiguration struct {
	URI      string
	Username string
	Password string
}

// RedisConfiguration stores data for Redis connection
type RedisConfiguration struct {
	Addr            string
	DefaultCacheTTL string
}

// ElasticsearchConfiguration stores data for Elasticsearch connection
type ElasticsearchConfiguration struct {
	URL string
}

// PDPConfiguration stores settings for the external policy decision point
type PDPConfiguration struct {
	URL         string
	Timeout     time.Duration
	DecisionTTL time.Duration
}

// KASConfiguration stores key-access-service call and breaker settings
type KASConfiguration struct {
	CallTimeout      time.Duration
	ChainBudget      time.Duration
	FailureThreshold int
	Cooldown         time.Duration
}

// FederationConfiguration identifies this instance within the coalition
type FederationConfiguration struct {
	InstanceID      string
	RefreshInterval time.Duration
}

var config *Configuration

func InitConfig() error {
	viper.AddConfigPath("config") // path to look for the config file in
	viper.SetConfigName("config") // name of the config file (without extension)
	viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name

	viper.AutomaticEnv() // read in environment variables that match

	// Set default configurations
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.rateLimit.requests", 100)
	viper.SetDefault("server.rateLimit.duration", "1m")
	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("elasticsearch.url", "http://localhost:9200")
	viper.SetDefault("redis.defaultCacheTTL", "10m")
	viper.SetDefault("log.dir", "logs")
	viper.SetDefault("pdp.url", "http://localhost:8181/v1/decision")
	viper.SetDefault("pdp.timeout", "3s")
	viper.SetDefault("pdp.decisionTTL", "60s")
	viper.SetDefault("kas.callTimeout", "5s")
	viper.SetDefault("kas.chainBudget", "20s")
	viper.SetDefault("kas.failureThreshold", 3)
	viper.SetDefault("kas.cooldown", "30s")
	viper.SetDefault("federation.instanceId", "usa-instance")
	viper.SetDefault("federation.refreshInterval", "5m")
	viper.SetDefault("revocation.channel", "federation:revocations")

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	// Unmarshal the configuration into the Configuration struct
	err := viper.Unmarshal(&config)
	if err != nil {
		return err
	}

	return nil
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool retrieves a boolean value from the configuration
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
