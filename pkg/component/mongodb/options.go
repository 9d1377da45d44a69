package mongodb

import (
	"fmt"
	"os"
	"time"

	"github.com/kart-io/logger"
	"github.com/spf13/pflag"

	"github.com/kart-io/mongokit/pkg/component"
	"github.com/kart-io/mongokit/pkg/component/storage"
	"github.com/kart-io/mongokit/pkg/utils/json"
)

// PasswordEnv is read by Complete when no password was configured.
const PasswordEnv = "MONGODB_PASSWORD"

const redactedPassword = "[REDACTED]"

var _ component.ConfigOptions = (*Options)(nil)

// Options defines configuration options for MongoDB.
type Options struct {
	// URI takes precedence over the host based fields when set.
	URI      string `json:"uri" mapstructure:"uri"`
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"-" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`

	MaxPoolSize     uint64        `json:"max-pool-size" mapstructure:"max-pool-size"`
	MinPoolSize     uint64        `json:"min-pool-size" mapstructure:"min-pool-size"`
	MaxConnIdleTime time.Duration `json:"max-conn-idle-time" mapstructure:"max-conn-idle-time"`

	ConnectTimeout         time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`
	SocketTimeout          time.Duration `json:"socket-timeout" mapstructure:"socket-timeout"`
	ServerSelectionTimeout time.Duration `json:"server-selection-timeout" mapstructure:"server-selection-timeout"`

	ReplicaSet string `json:"replica-set" mapstructure:"replica-set"`
	AuthSource string `json:"auth-source" mapstructure:"auth-source"`
	Direct     bool   `json:"direct" mapstructure:"direct"`
}

// NewOptions creates Options with default values.
func NewOptions() *Options {
	return &Options{
		Host:                   "127.0.0.1",
		Port:                   27017,
		Database:               "mongokit",
		MaxPoolSize:            100,
		MinPoolSize:            10,
		MaxConnIdleTime:        5 * time.Minute,
		ConnectTimeout:         10 * time.Second,
		SocketTimeout:          30 * time.Second,
		ServerSelectionTimeout: 30 * time.Second,
		AuthSource:             "admin",
	}
}

// Complete reads the password from MONGODB_PASSWORD when none was set.
func (o *Options) Complete() error {
	env := os.Getenv(PasswordEnv)
	if o.Password == "" {
		o.Password = env
	} else if env == "" {
		logger.Warnw("mongodb password passed on the command line or in a config file, prefer the environment",
			"env", PasswordEnv)
	}
	return nil
}

// Validate checks that a server can be addressed and the pool bounds agree.
func (o *Options) Validate() error {
	if o.Database == "" {
		return storage.ErrInvalidConfig.WithMessage("mongodb: database is required")
	}
	if o.MaxPoolSize > 0 && o.MinPoolSize > o.MaxPoolSize {
		return storage.ErrInvalidConfig.WithMessage(
			fmt.Sprintf("mongodb: min-pool-size %d exceeds max-pool-size %d", o.MinPoolSize, o.MaxPoolSize))
	}
	if o.URI != "" {
		return nil
	}
	if o.Host == "" {
		return storage.ErrInvalidConfig.WithMessage("mongodb: host is required when uri is not set")
	}
	if o.Port <= 0 || o.Port > 65535 {
		return storage.ErrInvalidConfig.WithMessage("mongodb: port must be between 1 and 65535")
	}
	return nil
}

// AddFlags adds flags for MongoDB options to fs.
func (o *Options) AddFlags(fs *pflag.FlagSet, namePrefix string) {
	fs.StringVar(&o.URI, namePrefix+"uri", o.URI, "MongoDB connection string, overrides host, port and credentials.")
	fs.StringVar(&o.Host, namePrefix+"host", o.Host, "MongoDB host.")
	fs.IntVar(&o.Port, namePrefix+"port", o.Port, "MongoDB port.")
	fs.StringVar(&o.Username, namePrefix+"username", o.Username, "MongoDB username.")
	fs.StringVar(&o.Password, namePrefix+"password", o.Password, "MongoDB password. Prefer the "+PasswordEnv+" environment variable.")
	fs.StringVar(&o.Database, namePrefix+"database", o.Database, "MongoDB database.")
	fs.Uint64Var(&o.MaxPoolSize, namePrefix+"max-pool-size", o.MaxPoolSize, "Maximum connections in the pool.")
	fs.Uint64Var(&o.MinPoolSize, namePrefix+"min-pool-size", o.MinPoolSize, "Minimum connections in the pool.")
	fs.DurationVar(&o.MaxConnIdleTime, namePrefix+"max-conn-idle-time", o.MaxConnIdleTime, "Idle time after which a pooled connection is closed.")
	fs.DurationVar(&o.ConnectTimeout, namePrefix+"connect-timeout", o.ConnectTimeout, "Connect timeout.")
	fs.DurationVar(&o.SocketTimeout, namePrefix+"socket-timeout", o.SocketTimeout, "Socket read and write timeout.")
	fs.DurationVar(&o.ServerSelectionTimeout, namePrefix+"server-selection-timeout", o.ServerSelectionTimeout, "Server selection timeout.")
	fs.StringVar(&o.ReplicaSet, namePrefix+"replica-set", o.ReplicaSet, "Replica set name. Transactions need a replica set.")
	fs.StringVar(&o.AuthSource, namePrefix+"auth-source", o.AuthSource, "Authentication database.")
	fs.BoolVar(&o.Direct, namePrefix+"direct", o.Direct, "Connect directly to the host instead of discovering the topology.")
}

type redactedOptions Options

// MarshalJSON encodes the options with the password redacted.
func (o *Options) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		*redactedOptions
		Password string `json:"password"`
	}{
		redactedOptions: (*redactedOptions)(o),
		Password:        o.redactedPassword(),
	})
}

// String is safe to log.
func (o *Options) String() string {
	return fmt.Sprintf("MongoDB{uri=%s, database=%s}", RedactURI(BuildURI(o)), o.Database)
}

func (o *Options) redactedPassword() string {
	if o.Password == "" {
		return ""
	}
	return redactedPassword
}
