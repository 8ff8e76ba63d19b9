// Package config reads the server's runtime configuration the way the
// teacher's main.go does: viper defaults, overridable by a .env file or the
// real environment.
package config

import (
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

var configLog = log.New(os.Stdout, "CONFIG INFO: ", log.Ltime)

// Config is the resolved set of knobs the rest of the server reads from.
type Config struct {
	BindAddr            string
	Shell               string
	PTYGracePeriod      time.Duration
	PTYCloseGrace       time.Duration
	ObserverBackoff     []time.Duration
	ObserverMaxRestarts int
	SubnetBase          string
	CommandDeadline     time.Duration
	PacketQueueSize     int
	PTYOutputBufferSize int
}

// Load reads .env (if present) and the environment, applying the same
// defaults the teacher ships, generalized to this server's own knobs.
func Load() *Config {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	if err := viper.ReadInConfig(); err != nil {
		configLog.Println("no .env file found, using defaults:", err)
	}

	viper.SetDefault("BIND_ADDR", "0.0.0.0:7777")
	viper.SetDefault("SHELL", "/bin/sh")
	viper.SetDefault("PTY_GRACE_PERIOD_S", 30)
	viper.SetDefault("PTY_CLOSE_GRACE_MS", 200)
	viper.SetDefault("OBSERVER_MAX_RESTARTS", 3)
	viper.SetDefault("SUBNET_BASE", "10.0.0.0")
	viper.SetDefault("COMMAND_DEADLINE_S", 10)
	viper.SetDefault("PACKET_QUEUE_SIZE", 1024)
	viper.SetDefault("PTY_OUTPUT_BUFFER_BYTES", 64*1024)

	viper.AutomaticEnv()

	return &Config{
		BindAddr:            viper.GetString("BIND_ADDR"),
		Shell:               viper.GetString("SHELL"),
		PTYGracePeriod:      time.Duration(viper.GetInt("PTY_GRACE_PERIOD_S")) * time.Second,
		PTYCloseGrace:       time.Duration(viper.GetInt("PTY_CLOSE_GRACE_MS")) * time.Millisecond,
		ObserverBackoff:     []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 2 * time.Second},
		ObserverMaxRestarts: viper.GetInt("OBSERVER_MAX_RESTARTS"),
		SubnetBase:          viper.GetString("SUBNET_BASE"),
		CommandDeadline:     time.Duration(viper.GetInt("COMMAND_DEADLINE_S")) * time.Second,
		PacketQueueSize:     viper.GetInt("PACKET_QUEUE_SIZE"),
		PTYOutputBufferSize: viper.GetInt("PTY_OUTPUT_BUFFER_BYTES"),
	}
}
