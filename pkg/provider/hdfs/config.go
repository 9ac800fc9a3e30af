// Package hdfs implements the provider capability interfaces for a Hadoop
// distributed filesystem using the native HDFS RPC client.
package hdfs

// Config configures an HDFS provider.
//
// When Namenodes is empty, the namenode addresses are read from the Hadoop
// configuration found via HADOOP_CONF_DIR or HADOOP_HOME.
type Config struct {
	// Namenodes is the list of namenode host:port addresses.
	Namenodes []string

	// User is the HDFS user to act as. Empty uses the current OS user.
	User string
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "hdfs config: " + e.Field + ": " + e.Message
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	for _, nn := range c.Namenodes {
		if nn == "" {
			return &ConfigError{Field: "Namenodes", Message: "empty namenode address"}
		}
	}
	return nil
}
